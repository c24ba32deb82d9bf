package query

import (
	"strings"

	"github.com/brandeduk/catalog/internal/predicate"
	"github.com/brandeduk/catalog/internal/snapshot"
	"github.com/brandeduk/catalog/pkg/slug"
)

// Classify resolves a free-text query into its classified text component.
// Priority when a token is ambiguous: style code > brand > product type >
// structured attribute. An exact brand-name match beats a partial
// product-type match ("polo" against brand "Polo" and type "Polo Shirt"
// classifies as brand).
func Classify(raw string, lex *snapshot.Lexicon) *predicate.TextQuery {
	trimmed := strings.TrimSpace(raw)
	tq := &predicate.TextQuery{
		Raw:    trimmed,
		Tokens: strings.Fields(strings.ToLower(trimmed)),
	}
	if trimmed == "" || lex == nil {
		return tq
	}

	querySlug := slug.Normalize(trimmed)

	// Exact brand name first.
	for _, b := range lex.Brands {
		if strings.EqualFold(b.Name, trimmed) || b.Slug == querySlug {
			tq.BrandSlug = b.Slug
			break
		}
	}

	// Exact product type next; only consulted for the identity bonus, so a
	// brand classification above does not suppress an exact type match.
	for _, t := range lex.ProductTypes {
		if strings.EqualFold(t.Name, trimmed) || t.Slug == querySlug {
			tq.TypeSlug = t.Slug
			break
		}
	}

	// Partial product-type match only when nothing matched exactly.
	if tq.BrandSlug == "" && tq.TypeSlug == "" {
		for _, t := range lex.ProductTypes {
			if containsFold(t.Name, trimmed) || strings.Contains(t.Slug, querySlug) {
				tq.TypeSlug = t.Slug
				break
			}
		}
	}

	return tq
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
