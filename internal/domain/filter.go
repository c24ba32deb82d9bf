package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Dimension is a named filterable facet of styles.
type Dimension string

const (
	DimGender        Dimension = "gender"
	DimAgeGroup      Dimension = "age_group"
	DimTag           Dimension = "tag"
	DimFit           Dimension = "fit"
	DimBrand         Dimension = "brand"
	DimProductType   Dimension = "product_type"
	DimSleeve        Dimension = "sleeve"
	DimNeckline      Dimension = "neckline"
	DimFabric        Dimension = "fabric"
	DimSize          Dimension = "size"
	DimColour        Dimension = "colour"
	DimWeight        Dimension = "weight"
	DimSector        Dimension = "sector"
	DimSport         Dimension = "sport"
	DimEffect        Dimension = "effect"
	DimAccreditation Dimension = "accreditation"
	DimStyleKeyword  Dimension = "style_keyword"
)

// DimensionKind distinguishes scalar facets (one value per style) from
// array-valued facets (zero or more values per style).
type DimensionKind int

const (
	KindScalar DimensionKind = iota
	KindArray
)

var dimensionKinds = map[Dimension]DimensionKind{
	DimGender:        KindScalar,
	DimAgeGroup:      KindScalar,
	DimTag:           KindScalar,
	DimFit:           KindScalar,
	DimBrand:         KindScalar,
	DimProductType:   KindScalar,
	DimSleeve:        KindArray,
	DimNeckline:      KindArray,
	DimFabric:        KindArray,
	DimSize:          KindArray,
	DimColour:        KindArray,
	DimWeight:        KindArray,
	DimSector:        KindArray,
	DimSport:         KindArray,
	DimEffect:        KindArray,
	DimAccreditation: KindArray,
	DimStyleKeyword:  KindArray,
}

// Dimensions returns every known dimension in a stable order.
func Dimensions() []Dimension {
	out := make([]Dimension, 0, len(dimensionKinds))
	for d := range dimensionKinds {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// KindOf returns the kind of the given dimension. Unknown dimensions
// report KindScalar and false.
func KindOf(d Dimension) (DimensionKind, bool) {
	k, ok := dimensionKinds[d]
	return k, ok
}

// SortKey is one of the fixed result orderings.
type SortKey string

const (
	SortBest   SortKey = "best"
	SortNewest SortKey = "newest"
	SortPrice  SortKey = "price"
	SortName   SortKey = "name"
	SortBrand  SortKey = "brand"
	SortCode   SortKey = "code"
)

// ValidSortKey reports whether s is a known sort key.
func ValidSortKey(s SortKey) bool {
	switch s {
	case SortBest, SortNewest, SortPrice, SortName, SortBrand, SortCode:
		return true
	}
	return false
}

// FilterSpec is the canonical, validated filter specification. All values
// in Dimensions are slug-normalized and deduplicated; absent dimensions are
// absent from the map, never present with an empty value set. Prices are
// pence. Built only by the filter normalizer.
type FilterSpec struct {
	Query      string
	Dimensions map[Dimension][]string
	PriceMin   *int64
	PriceMax   *int64
	Sort       SortKey
	Desc       bool
}

// Values returns the constraint values for a dimension, nil when absent.
func (s *FilterSpec) Values(d Dimension) []string {
	if s.Dimensions == nil {
		return nil
	}
	return s.Dimensions[d]
}

// WithoutDimension returns a shallow clone with one dimension's constraint
// removed. Used by the facet aggregator, which counts each dimension
// against all other active constraints.
func (s *FilterSpec) WithoutDimension(d Dimension) *FilterSpec {
	clone := *s
	if _, ok := s.Dimensions[d]; ok {
		clone.Dimensions = make(map[Dimension][]string, len(s.Dimensions)-1)
		for k, v := range s.Dimensions {
			if k != d {
				clone.Dimensions[k] = v
			}
		}
	}
	return &clone
}

// Fingerprint returns a stable hash of the specification. Two specs that
// constrain the same dimensions to the same value sets produce the same
// fingerprint regardless of input ordering. It is the basis of cache keys.
func (s *FilterSpec) Fingerprint() string {
	var b strings.Builder

	b.WriteString("q=")
	b.WriteString(strings.ToLower(strings.TrimSpace(s.Query)))

	dims := make([]string, 0, len(s.Dimensions))
	for d := range s.Dimensions {
		dims = append(dims, string(d))
	}
	sort.Strings(dims)
	for _, d := range dims {
		vals := append([]string(nil), s.Dimensions[Dimension(d)]...)
		sort.Strings(vals)
		b.WriteString(";")
		b.WriteString(d)
		b.WriteString("=")
		b.WriteString(strings.Join(vals, ","))
	}

	if s.PriceMin != nil {
		b.WriteString(";pmin=" + strconv.FormatInt(*s.PriceMin, 10))
	}
	if s.PriceMax != nil {
		b.WriteString(";pmax=" + strconv.FormatInt(*s.PriceMax, 10))
	}
	b.WriteString(";sort=" + string(s.Sort))
	if s.Desc {
		b.WriteString(";desc")
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
