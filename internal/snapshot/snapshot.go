// Package snapshot defines the logical contract of the denormalized,
// periodically refreshed search view of the live catalog. The query path
// only ever reads it; writes happen through the refresh job.
package snapshot

import (
	"context"
	"time"

	"github.com/brandeduk/catalog/internal/domain"
	"github.com/brandeduk/catalog/internal/predicate"
)

// Row is one live style aggregated from its live variants. Scalar slugs
// are single-valued; array columns aggregate across variants (a style with
// navy and red variants carries both colours).
type Row struct {
	Code            string
	Name            string
	Brand           string
	BrandSlug       string
	ProductType     string
	ProductTypeSlug string

	Gender   string
	AgeGroup string
	Tag      string
	Fit      string

	PrimaryColour string
	ColourShade   string

	SellPrice int64 // representative: minimum live-variant sell price, pence
	CreatedAt time.Time
	ImageURL  string

	Sleeves        []string
	Necklines      []string
	Fabrics        []string
	Sizes          []string
	Colours        []string
	Weights        []string
	Sectors        []string
	Sports         []string
	Effects        []string
	Accreditations []string
	StyleKeywords  []string

	// SearchText is the precomputed text-relevance representation: the
	// lowercased concatenation of code, name, brand, and product type.
	SearchText string
}

// ScalarValue implements predicate.Row.
func (r *Row) ScalarValue(d domain.Dimension) string {
	switch d {
	case domain.DimGender:
		return r.Gender
	case domain.DimAgeGroup:
		return r.AgeGroup
	case domain.DimTag:
		return r.Tag
	case domain.DimFit:
		return r.Fit
	case domain.DimBrand:
		return r.BrandSlug
	case domain.DimProductType:
		return r.ProductTypeSlug
	}
	return ""
}

// ArrayValues implements predicate.Row.
func (r *Row) ArrayValues(d domain.Dimension) []string {
	switch d {
	case domain.DimSleeve:
		return r.Sleeves
	case domain.DimNeckline:
		return r.Necklines
	case domain.DimFabric:
		return r.Fabrics
	case domain.DimSize:
		return r.Sizes
	case domain.DimColour:
		return r.Colours
	case domain.DimWeight:
		return r.Weights
	case domain.DimSector:
		return r.Sectors
	case domain.DimSport:
		return r.Sports
	case domain.DimEffect:
		return r.Effects
	case domain.DimAccreditation:
		return r.Accreditations
	case domain.DimStyleKeyword:
		return r.StyleKeywords
	}
	return nil
}

// Price implements predicate.Row.
func (r *Row) Price() int64 { return r.SellPrice }

// Candidate is one selected style with its per-request relevance score.
// The score is zero when no free text was present.
type Candidate struct {
	Code  string
	Score int
}

// CandidateSet is an ordered page of candidates plus the total count of
// candidates matching the selection before pagination.
type CandidateSet struct {
	Candidates []Candidate
	Total      int
}

// Selection is a compiled candidate-selection plan.
type Selection struct {
	Predicates []predicate.Predicate
	Text       *predicate.TextQuery
	Sort       domain.SortKey
	Desc       bool
	Limit      int
	Offset     int
}

// LexiconEntry is one known brand or product type name with its slug.
type LexiconEntry struct {
	Name string
	Slug string
}

// Lexicon carries the brand and product-type vocabularies used by free-text
// token classification.
type Lexicon struct {
	Brands       []LexiconEntry
	ProductTypes []LexiconEntry
}

// Store is the read contract the query path requires from the snapshot.
type Store interface {
	// Select executes a selection plan and returns the ordered candidate
	// page and total. Ordering is deterministic: the requested sort with
	// style code ascending as the final tie-break.
	Select(ctx context.Context, sel Selection) (*CandidateSet, error)

	// CountDimension returns per-value counts of distinct live styles for
	// one dimension under the given selection (which must already exclude
	// that dimension's own constraint). Values with zero count are never
	// returned; results are capped at topN by descending count.
	CountDimension(ctx context.Context, dim domain.Dimension, sel Selection, topN int) ([]domain.FacetValue, error)

	// PriceRange returns the min and max representative sell price across
	// every style matching the selection, ignoring its pagination.
	PriceRange(ctx context.Context, sel Selection) (*domain.PriceRange, error)

	// Lexicon returns the known brand and product-type vocabularies.
	Lexicon(ctx context.Context) (*Lexicon, error)

	// Ping reports backend reachability.
	Ping(ctx context.Context) error
}

// Refresher rebuilds the snapshot from authoritative data. Kept separate
// from Store: the query path never refreshes, only the invalidation
// broadcaster and the admin surface do.
type Refresher interface {
	Refresh(ctx context.Context) error
}
