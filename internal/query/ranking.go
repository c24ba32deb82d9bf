package query

import (
	"strings"

	"github.com/brandeduk/catalog/internal/predicate"
	"github.com/brandeduk/catalog/internal/snapshot"
)

// Relevance weights. The formula is additive and monotonic: adding a
// matching signal never decreases rank.
//
//	score = exact-code bonus
//	      + full-text contribution
//	      + max(similarity(name, q), similarity(brand, q)) × 40
//	      + brand identity bonus
//	      + type identity bonus
const (
	WeightExactCode  = 500
	WeightFullText   = 100
	WeightSimilarity = 40
	WeightBrand      = 60
	WeightType       = 50
)

// SimilarityThreshold is the minimum trigram similarity for a row to be
// admitted by the approximate branch of the text disjunction. Matches the
// pg_trgm default so the SQL and in-memory stores agree.
const SimilarityThreshold = 0.3

// Similarity computes trigram set similarity between two strings using
// pg_trgm semantics: each word is padded with two leading and one trailing
// space, and similarity is |common| / |union| over the trigram sets.
func Similarity(a, b string) float64 {
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			common++
		}
	}
	union := len(ta) + len(tb) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}

func trigrams(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(s)) {
		padded := "  " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			out[padded[i:i+3]] = struct{}{}
		}
	}
	return out
}

// fullTextMatch reports whether every query token appears as a word prefix
// in the row's search text, mirroring plainto_tsquery AND semantics.
func fullTextMatch(searchText string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	words := strings.Fields(searchText)
	for _, tok := range tokens {
		found := false
		for _, w := range words {
			if strings.HasPrefix(w, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ScoreRow computes the composite relevance score of a snapshot row for a
// classified text query. Deterministic: identical inputs always produce
// the identical score.
func ScoreRow(row *snapshot.Row, tq *predicate.TextQuery) int {
	if tq == nil || tq.Raw == "" {
		return 0
	}

	score := 0
	q := strings.ToLower(tq.Raw)

	if strings.EqualFold(row.Code, tq.Raw) {
		score += WeightExactCode
	}
	if fullTextMatch(row.SearchText, tq.Tokens) {
		score += WeightFullText
	}

	sim := Similarity(row.Name, q)
	if bs := Similarity(row.Brand, q); bs > sim {
		sim = bs
	}
	score += int(sim * WeightSimilarity)

	if tq.BrandSlug != "" && row.BrandSlug == tq.BrandSlug {
		score += WeightBrand
	}
	if tq.TypeSlug != "" && row.ProductTypeSlug == tq.TypeSlug {
		score += WeightType
	}

	return score
}

// MatchesText evaluates the disjunctive free-text admission check: exact
// code, code prefix, full text, approximate similarity, or a classified
// brand/type identity.
func MatchesText(row *snapshot.Row, tq *predicate.TextQuery) bool {
	if tq == nil || tq.Raw == "" {
		return true
	}

	if strings.EqualFold(row.Code, tq.Raw) {
		return true
	}
	if strings.HasPrefix(strings.ToLower(row.Code), strings.ToLower(tq.Raw)) {
		return true
	}
	if fullTextMatch(row.SearchText, tq.Tokens) {
		return true
	}

	q := strings.ToLower(tq.Raw)
	if Similarity(row.Name, q) >= SimilarityThreshold || Similarity(row.Brand, q) >= SimilarityThreshold {
		return true
	}

	if tq.BrandSlug != "" && row.BrandSlug == tq.BrandSlug {
		return true
	}
	if tq.TypeSlug != "" && row.ProductTypeSlug == tq.TypeSlug {
		return true
	}

	return false
}
