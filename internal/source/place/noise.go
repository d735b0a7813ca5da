package place

import (
	"regexp"

	"tender_watch/internal/textutil"
)

// minTitleLen rejects link texts too short to be a tender object.
const minTitleLen = 10

// navDenylist is the portal chrome that shows up in the same markup as
// listings. Keys are loose-normalized so accent and case variants of
// the same label still match.
var navDenylist = func() map[string]struct{} {
	labels := []string{
		"Accueil",
		"Rechercher",
		"Recherche avancée",
		"Consultations",
		"Connexion",
		"S'inscrire",
		"Aide",
		"Contact",
		"Mentions légales",
		"Plan du site",
		"Page suivante",
		"Page précédente",
	}
	m := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		m[textutil.Loose(l)] = struct{}{}
	}
	return m
}()

// consultationNumberRe matches placeholder rows like "Consultation 12".
var consultationNumberRe = regexp.MustCompile(`(?i)^consultation\s*\d+$`)

// rejectTitle reports whether a scraped title is navigation noise
// rather than a tender, with the reason for the skip report.
func rejectTitle(title string) (string, bool) {
	loose := textutil.Loose(title)
	if len([]rune(loose)) < minTitleLen {
		return "too_short", true
	}
	if _, deny := navDenylist[loose]; deny {
		return "navigation", true
	}
	if consultationNumberRe.MatchString(loose) {
		return "placeholder", true
	}
	return "", false
}
