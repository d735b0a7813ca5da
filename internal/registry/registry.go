// Package registry holds the curated list of known procuring entities,
// grouped by oversight body (tutelle), plus the fuzzy name matching
// between registry entries and raw buyer names from the sources.
package registry

import (
	"strings"

	"tender_watch/internal/domain"
	"tender_watch/internal/textutil"
)

// entries is ordered: on equal-length name matches the first declared
// entity wins, so declaration order is part of the contract.
var entries = []domain.BuyerEntity{
	{ID: "dga", DisplayName: "Direction Générale de l'Armement", Code: "DGA", Tutelle: "armees"},
	{ID: "sca", DisplayName: "Service du Commissariat des Armées", Code: "SCA", Tutelle: "armees"},
	{ID: "ssa", DisplayName: "Service de Santé des Armées", Code: "SSA", Tutelle: "armees"},
	{ID: "sid", DisplayName: "Service d'Infrastructure de la Défense", Code: "SID", Tutelle: "armees"},
	{ID: "sea", DisplayName: "Service de l'Énergie Opérationnelle", Code: "SEO", Tutelle: "armees"},
	{ID: "dirisi", DisplayName: "Direction Interarmées des Réseaux d'Infrastructure", Code: "DIRISI", Tutelle: "armees"},
	{ID: "gendarmerie", DisplayName: "Gendarmerie Nationale", Code: "GN", Tutelle: "interieur"},
	{ID: "police", DisplayName: "Police Nationale", Code: "PN", Tutelle: "interieur"},
	{ID: "secu-civile", DisplayName: "Direction Générale de la Sécurité Civile", Code: "DGSCGC", Tutelle: "interieur"},
	{ID: "pref-police", DisplayName: "Préfecture de Police", Code: "PP", Tutelle: "interieur"},
	{ID: "douanes", DisplayName: "Direction Générale des Douanes", Code: "DGDDI", Tutelle: "finances"},
	{ID: "ap", DisplayName: "Administration Pénitentiaire", Code: "DAP", Tutelle: "justice"},
}

// Registry is the load-once static catalogue of buyer entities. It is
// immutable after construction and safe for concurrent use.
type Registry struct {
	entries  []domain.BuyerEntity
	byID     map[string]domain.BuyerEntity
	byGroup  map[string][]domain.BuyerEntity
	groups   []string
	normName []string // normalized display names, same index as entries
}

// New builds the registry from the curated entity list.
func New() *Registry {
	return newFrom(entries)
}

func newFrom(list []domain.BuyerEntity) *Registry {
	r := &Registry{
		entries:  list,
		byID:     make(map[string]domain.BuyerEntity, len(list)),
		byGroup:  make(map[string][]domain.BuyerEntity),
		normName: make([]string, len(list)),
	}
	for i, e := range list {
		r.byID[e.ID] = e
		if _, ok := r.byGroup[e.Tutelle]; !ok {
			r.groups = append(r.groups, e.Tutelle)
		}
		r.byGroup[e.Tutelle] = append(r.byGroup[e.Tutelle], e)
		r.normName[i] = textutil.Key(e.DisplayName)
	}
	return r
}

// All returns every entity in declaration order.
func (r *Registry) All() []domain.BuyerEntity {
	out := make([]domain.BuyerEntity, len(r.entries))
	copy(out, r.entries)
	return out
}

// Groups returns the known tutelle tags, in first-seen order.
func (r *Registry) Groups() []string {
	out := make([]string, len(r.groups))
	copy(out, r.groups)
	return out
}

// ByGroup returns the entities under one tutelle tag.
func (r *Registry) ByGroup(tag string) []domain.BuyerEntity {
	group := r.byGroup[tag]
	out := make([]domain.BuyerEntity, len(group))
	copy(out, group)
	return out
}

// ByID looks up a single entity.
func (r *Registry) ByID(id string) (domain.BuyerEntity, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Search returns entities whose normalized display name or code
// contains the normalized query. An empty query matches everything.
func (r *Registry) Search(query string) []domain.BuyerEntity {
	q := textutil.Key(query)
	if q == "" {
		return r.All()
	}
	var out []domain.BuyerEntity
	for i, e := range r.entries {
		if strings.Contains(r.normName[i], q) || strings.Contains(textutil.Key(e.Code), q) {
			out = append(out, e)
		}
	}
	return out
}
