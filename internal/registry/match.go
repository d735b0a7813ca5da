package registry

import (
	"strings"

	"tender_watch/internal/domain"
	"tender_watch/internal/textutil"
)

// MatchEntity resolves a raw buyer name from a source record to a
// registry entity. An entity matches when its normalized name contains
// the normalized raw name or vice versa, which covers both
// "Préfecture de Police" and "Paris - Préfecture de Police" orderings.
// Among multiple matches the longest registry name wins, so a short
// acronym never shadows a more specific entity; length ties go to the
// first declared entity.
func (r *Registry) MatchEntity(rawName string) (string, bool) {
	raw := textutil.Key(rawName)
	if raw == "" {
		return "", false
	}

	bestIdx := -1
	bestLen := 0
	for i := range r.entries {
		name := r.normName[i]
		if name == "" {
			continue
		}
		if !strings.Contains(raw, name) && !strings.Contains(name, raw) {
			continue
		}
		if len(name) > bestLen {
			bestIdx, bestLen = i, len(name)
		}
	}
	if bestIdx < 0 {
		return "", false
	}
	return r.entries[bestIdx].ID, true
}

// ListingIndex pre-groups listings by the normalized form of their raw
// buyer name, so that per-entity lookups probe the index instead of
// rescanning every listing for every entity.
type ListingIndex struct {
	byName map[string][]domain.Listing
}

// NewListingIndex groups the given listings once by normalized buyer
// name.
func NewListingIndex(listings []domain.Listing) *ListingIndex {
	idx := &ListingIndex{byName: make(map[string][]domain.Listing)}
	for _, l := range listings {
		key := textutil.Key(l.BuyerName)
		idx.byName[key] = append(idx.byName[key], l)
	}
	return idx
}

// ListingsFor returns every indexed listing whose buyer name matches
// the entity under the same containment rule as MatchEntity.
func (idx *ListingIndex) ListingsFor(entity domain.BuyerEntity) []domain.Listing {
	name := textutil.Key(entity.DisplayName)
	if name == "" {
		return nil
	}
	var out []domain.Listing
	for raw, listings := range idx.byName {
		if raw == "" {
			continue
		}
		if strings.Contains(raw, name) || strings.Contains(name, raw) {
			out = append(out, listings...)
		}
	}
	return out
}
