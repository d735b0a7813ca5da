package place

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const portalHTML = `
<html><body>
<nav><a href="/">Accueil</a></nav>
<table class="consultations">
<tbody>
<tr>
  <td class="reference">2025-784512</td>
  <td class="objet"><a href="/consultation/784512">Maintenance des radars de surveillance aérienne</a></td>
  <td class="acheteur">Direction Générale de l'Armement</td>
  <td class="procedure">Procédure adaptée</td>
  <td class="date-parution">02/11/2025</td>
  <td class="date-limite">10 déc. 2025</td>
</tr>
<tr>
  <td class="reference"></td>
  <td class="objet"><a href="/consultation/784513">Fourniture de gilets pare-balles</a></td>
  <td class="acheteur"></td>
  <td class="procedure"></td>
  <td class="date-parution">3 novembre 2025</td>
  <td class="date-limite"></td>
</tr>
<tr>
  <td class="reference"></td>
  <td class="objet"><a href="/fr/accueil">Accueil</a></td>
  <td class="acheteur"></td><td class="procedure"></td>
  <td class="date-parution"></td><td class="date-limite"></td>
</tr>
<tr>
  <td class="reference"></td>
  <td class="objet"><a href="#">Consultation 42</a></td>
  <td class="acheteur"></td><td class="procedure"></td>
  <td class="date-parution"></td><td class="date-limite"></td>
</tr>
<tr>
  <td class="reference">2025-784514</td>
  <td class="objet"><a href="/consultation/784514">Travaux de réfection des pistes</a></td>
  <td class="acheteur">Service d'Infrastructure de la Défense</td>
  <td class="procedure"></td>
  <td class="date-parution">un jour récent</td>
  <td class="date-limite">15/01/2026</td>
</tr>
</tbody>
</table>
</body></html>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSource(t *testing.T, html string) (*Source, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}))
	src := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, testLogger())
	src.now = func() time.Time {
		return time.Date(2025, 11, 4, 10, 0, 0, 0, time.UTC)
	}
	return src, srv.Close
}

func TestFetchListings_Scrape(t *testing.T) {
	src, done := newTestSource(t, portalHTML)
	defer done()

	listings, err := src.FetchListings(context.Background())

	require.NoError(t, err)
	// 5 rows scraped, "Accueil" and "Consultation 42" rejected.
	require.Len(t, listings, 3)

	radar := listings[0]
	assert.Equal(t, "place:2025-784512", radar.ID)
	assert.Equal(t, "Maintenance des radars de surveillance aérienne", radar.Title)
	assert.Equal(t, "Direction Générale de l'Armement", radar.BuyerName)
	require.NotNil(t, radar.ProcedureType)
	assert.Equal(t, "Procédure adaptée", *radar.ProcedureType)
	assert.Equal(t, time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC), radar.PublicationDate)
	require.NotNil(t, radar.DeadlineDate)
	assert.Equal(t, time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC), *radar.DeadlineDate)
	assert.Contains(t, radar.OriginURL, "/consultation/784512")

	gilets := listings[1]
	// No portal reference: the ID falls back to the title key.
	assert.Equal(t, "place:fournituredegiletspareballes", gilets.ID)
	assert.Equal(t, "Unknown buyer", gilets.BuyerName)
	assert.Nil(t, gilets.DeadlineDate)
	assert.Nil(t, gilets.ProcedureType)

	pistes := listings[2]
	// Unparseable publication date falls back to now, scrape continues.
	assert.Equal(t, src.now(), pistes.PublicationDate)
	require.NotNil(t, pistes.DeadlineDate)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), *pistes.DeadlineDate)
}

func TestFetchListings_NavigationNeverAppears(t *testing.T) {
	src, done := newTestSource(t, portalHTML)
	defer done()

	listings, err := src.FetchListings(context.Background())
	require.NoError(t, err)

	for _, l := range listings {
		assert.NotEqual(t, "Accueil", l.Title)
		assert.NotEqual(t, "Consultation 42", l.Title)
	}
}

func TestFetchListings_EmptyPage(t *testing.T) {
	src, done := newTestSource(t, "<html><body><p>Maintenance en cours</p></body></html>")
	defer done()

	listings, err := src.FetchListings(context.Background())

	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestFetchListings_PortalDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := New(Config{BaseURL: srv.URL, Timeout: time.Second}, testLogger())

	_, err := src.FetchListings(context.Background())

	assert.Error(t, err)
}

func TestRejectTitle(t *testing.T) {
	tests := []struct {
		title  string
		reason string
		reject bool
	}{
		{"Accueil", "too_short", true},
		{"Mentions légales", "navigation", true},
		{"MENTIONS LÉGALES", "navigation", true},
		{"Recherche avancee", "navigation", true},
		{"Consultation 12", "placeholder", true},
		{"consultation   7", "placeholder", true},
		{"Fourniture de gilets pare-balles", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			reason, reject := rejectTitle(tt.title)
			assert.Equal(t, tt.reject, reject)
			assert.Equal(t, tt.reason, reason)
		})
	}
}
