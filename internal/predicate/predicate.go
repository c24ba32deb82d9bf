// Package predicate defines the tagged predicate variants that both the
// query planner and the facet aggregator compile filter specifications
// into. Sharing one builder is what keeps sidebar counts and result sets
// consistent: a facet count and the search it implies are produced from
// the same predicates.
package predicate

import (
	"github.com/brandeduk/catalog/internal/domain"
)

// Predicate is one conjunct of a candidate-selection plan.
type Predicate interface {
	isPredicate()
}

// ScalarIn constrains a scalar dimension to a set of values (membership).
type ScalarIn struct {
	Dim    domain.Dimension
	Values []string
}

// ArrayAny constrains an array-valued dimension: the style's value set
// must intersect the requested values.
type ArrayAny struct {
	Dim    domain.Dimension
	Values []string
}

// PriceBetween constrains the representative sell price, pence, inclusive.
// Either bound may be nil.
type PriceBetween struct {
	Min *int64
	Max *int64
}

func (ScalarIn) isPredicate()     {}
func (ArrayAny) isPredicate()     {}
func (PriceBetween) isPredicate() {}

// TextQuery is the classified free-text component of a plan. It is carried
// alongside the conjunctive predicates because text matching is disjunctive
// (exact code, code prefix, full text, similarity) and contributes to the
// relevance score rather than only filtering.
type TextQuery struct {
	Raw    string
	Tokens []string

	// BrandSlug and TypeSlug are set when token classification resolved
	// the query to a brand or product-type identity (brand wins over
	// type; see the classifier for the priority order).
	BrandSlug string
	TypeSlug  string
}

// FromSpec compiles the canonical filter specification into its conjunctive
// predicates. The free-text component is handled separately (classifier).
func FromSpec(spec *domain.FilterSpec) []Predicate {
	var preds []Predicate

	for _, dim := range domain.Dimensions() {
		vals := spec.Values(dim)
		if len(vals) == 0 {
			continue
		}
		kind, _ := domain.KindOf(dim)
		if kind == domain.KindArray {
			preds = append(preds, ArrayAny{Dim: dim, Values: vals})
		} else {
			preds = append(preds, ScalarIn{Dim: dim, Values: vals})
		}
	}

	if spec.PriceMin != nil || spec.PriceMax != nil {
		preds = append(preds, PriceBetween{Min: spec.PriceMin, Max: spec.PriceMax})
	}

	return preds
}

// FromSpecExcluding compiles the spec with one dimension's constraint
// removed. The facet aggregator uses this to count a dimension against all
// other active constraints.
func FromSpecExcluding(spec *domain.FilterSpec, dim domain.Dimension) []Predicate {
	return FromSpec(spec.WithoutDimension(dim))
}

// Row is the minimal read surface a snapshot row must expose for in-memory
// predicate evaluation.
type Row interface {
	ScalarValue(domain.Dimension) string
	ArrayValues(domain.Dimension) []string
	Price() int64
}

// Matches evaluates the conjunction of predicates against a row.
func Matches(r Row, preds []Predicate) bool {
	for _, p := range preds {
		switch pred := p.(type) {
		case ScalarIn:
			if !contains(pred.Values, r.ScalarValue(pred.Dim)) {
				return false
			}
		case ArrayAny:
			if !intersects(r.ArrayValues(pred.Dim), pred.Values) {
				return false
			}
		case PriceBetween:
			price := r.Price()
			if pred.Min != nil && price < *pred.Min {
				return false
			}
			if pred.Max != nil && price > *pred.Max {
				return false
			}
		}
	}
	return true
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, v := range a {
		if contains(b, v) {
			return true
		}
	}
	return false
}
