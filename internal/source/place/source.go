// Package place scrapes consultations from the PLACE procurement
// portal. The portal has no API and no markup contract: every field is
// optional, rows that turn out to be navigation chrome are rejected,
// and a record that fails to parse is skipped, never fatal.
package place

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tender_watch/internal/domain"
	"tender_watch/internal/metrics"
	"tender_watch/internal/textutil"
)

const (
	SourceID   = "place"
	SourceName = "PLACE portal"
)

// rawListing is one row as scraped, before any validation. Everything
// is a string because the portal guarantees nothing.
type rawListing struct {
	Reference string
	Title     string
	Buyer     string
	Procedure string
	Published string
	Deadline  string
	URL       string
}

// Config holds PLACE source configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Source implements service.Fetcher for the PLACE portal.
type Source struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a PLACE source.
func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		logger:  logger.With("source", SourceID),
		now:     time.Now,
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns the human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// FetchListings scrapes the current consultation list.
func (s *Source) FetchListings(ctx context.Context) ([]domain.Listing, error) {
	doc, err := s.fetchDocument(ctx, s.baseURL)
	if err != nil {
		metrics.FetchErrors.WithLabelValues(SourceID).Inc()
		return nil, fmt.Errorf("fetch portal page: %w", err)
	}

	raws := s.extractRows(doc)
	listings := s.transform(raws)

	metrics.FetchedListings.WithLabelValues(SourceID).Add(float64(len(listings)))
	s.logger.Info("scraped portal",
		"rows", len(raws),
		"listings", len(listings),
	)
	return listings, nil
}

func (s *Source) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "TenderWatch/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// extractRows walks the consultation table. Cells are read by class
// first and by position as a fallback, since the portal layout drifts.
func (s *Source) extractRows(doc *goquery.Document) []rawListing {
	var raws []rawListing

	doc.Find("table.consultations tbody tr, tr.consultation-row").Each(func(_ int, row *goquery.Selection) {
		var raw rawListing

		link := row.Find("td.objet a, td a").First()
		raw.Title = strings.TrimSpace(link.Text())
		if raw.Title == "" {
			raw.Title = strings.TrimSpace(cellText(row, "objet", 1))
		}
		if href, ok := link.Attr("href"); ok {
			raw.URL = s.absoluteURL(href)
		}

		raw.Reference = strings.TrimSpace(cellText(row, "reference", 0))
		raw.Buyer = strings.TrimSpace(cellText(row, "acheteur", 2))
		raw.Procedure = strings.TrimSpace(cellText(row, "procedure", 3))
		raw.Published = strings.TrimSpace(cellText(row, "date-parution", 4))
		raw.Deadline = strings.TrimSpace(cellText(row, "date-limite", 5))

		raws = append(raws, raw)
	})

	return raws
}

func cellText(row *goquery.Selection, class string, position int) string {
	cell := row.Find("td." + class).First()
	if cell.Length() == 0 {
		cell = row.Find("td").Eq(position)
	}
	return cell.Text()
}

func fallbackRef(title string) string {
	key := textutil.Key(title)
	if len(key) > 40 {
		key = key[:40]
	}
	return key
}

func (s *Source) absoluteURL(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func (s *Source) transform(raws []rawListing) []domain.Listing {
	listings := make([]domain.Listing, 0, len(raws))
	now := s.now()

	for _, raw := range raws {
		if reason, reject := rejectTitle(raw.Title); reject {
			metrics.SkippedRecords.WithLabelValues(SourceID, reason).Inc()
			s.logger.Debug("rejected row", "title", raw.Title, "reason", reason)
			continue
		}

		ref := raw.Reference
		if ref == "" {
			// The portal does not always render a reference; the
			// title key keeps the ID stable across scrapes.
			ref = fallbackRef(raw.Title)
		}

		l := domain.Listing{
			ID:        SourceID + ":" + ref,
			Title:     raw.Title,
			SourceID:  SourceID,
			OriginURL: raw.URL,
		}

		if raw.Buyer != "" {
			l.BuyerName = raw.Buyer
		} else {
			l.BuyerName = "Unknown buyer"
		}
		if raw.Procedure != "" {
			p := raw.Procedure
			l.ProcedureType = &p
		}

		if raw.Published != "" {
			if d, err := ParseFrenchDate(raw.Published); err == nil {
				l.PublicationDate = d
			} else {
				s.logger.Warn("unparseable publication date, defaulting to now",
					"title", raw.Title,
					"value", raw.Published,
				)
				l.PublicationDate = now
			}
		} else {
			l.PublicationDate = now
		}

		if raw.Deadline != "" {
			if d, err := ParseFrenchDate(raw.Deadline); err == nil {
				l.DeadlineDate = &d
			} else {
				s.logger.Warn("unparseable deadline date",
					"title", raw.Title,
					"value", raw.Deadline,
				)
			}
		}

		listings = append(listings, l)
	}

	return listings
}
