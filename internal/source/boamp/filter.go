package boamp

import (
	"fmt"
	"strings"

	"tender_watch/internal/domain"
)

// buyerTerms expands one registry entity into every search term worth
// querying: the full display name, its code, and each word of the name
// long enough to be discriminating. Narrow filters built from only the
// first few terms per group historically missed up to 90% of relevant
// records, so the whole expansion goes into the filter.
func buyerTerms(e domain.BuyerEntity) []string {
	seen := make(map[string]struct{})
	var terms []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if len(t) < 4 {
			return
		}
		lower := strings.ToLower(t)
		if _, dup := seen[lower]; dup {
			return
		}
		seen[lower] = struct{}{}
		terms = append(terms, t)
	}

	add(e.DisplayName)
	add(e.Code)
	words := strings.FieldsFunc(e.DisplayName, func(r rune) bool {
		return r == ' ' || r == '\'' || r == '-' || r == '(' || r == ')'
	})
	for _, w := range words {
		add(w)
	}
	return terms
}

// BuildFilter assembles the where-expression for a set of buyer
// entities: one search() alternative and one startswith() alternative
// per term, all OR-ed together.
func BuildFilter(buyers []domain.BuyerEntity) string {
	var alts []string
	for _, e := range buyers {
		for _, term := range buyerTerms(e) {
			escaped := strings.ReplaceAll(term, `"`, `\"`)
			alts = append(alts,
				fmt.Sprintf(`search(nomacheteur, "%s")`, escaped),
				fmt.Sprintf(`startswith(nomacheteur, "%s")`, escaped),
			)
		}
	}
	return strings.Join(alts, " OR ")
}
