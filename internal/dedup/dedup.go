// Package dedup merges listings from multiple sources into one set.
// One source is authoritative; lower-priority records that carry the
// same title key are dropped.
package dedup

import (
	"tender_watch/internal/domain"
	"tender_watch/internal/textutil"
)

// titleKeyLen caps the normalized title used as the identity key, so
// that a trailing lot description on one portal does not defeat the
// match.
const titleKeyLen = 50

// TitleKey is the cross-source identity of a listing: the normalized
// title truncated to a fixed prefix.
func TitleKey(title string) string {
	key := textutil.Key(title)
	if len(key) > titleKeyLen {
		key = key[:titleKeyLen]
	}
	return key
}

// Merge returns the order-preserving union of primary and secondary.
// Every primary record is kept; a secondary record is appended only if
// no primary record shares its title key. Neither input is mutated.
func Merge(primary, secondary []domain.Listing) []domain.Listing {
	seen := make(map[string]struct{}, len(primary))
	for _, l := range primary {
		seen[TitleKey(l.Title)] = struct{}{}
	}

	out := make([]domain.Listing, 0, len(primary)+len(secondary))
	out = append(out, primary...)

	for _, l := range secondary {
		key := TitleKey(l.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}
