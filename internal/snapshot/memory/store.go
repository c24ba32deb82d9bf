// Package memory is the in-process snapshot store. It serves two roles:
// the test backend for everything above the snapshot contract, and the
// degraded-mode fallback when Postgres is unreachable at startup and a
// previously loaded row set is still held.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/brandeduk/catalog/internal/domain"
	"github.com/brandeduk/catalog/internal/predicate"
	"github.com/brandeduk/catalog/internal/query"
	"github.com/brandeduk/catalog/internal/snapshot"
)

// Loader supplies a full row set on refresh.
type Loader func(ctx context.Context) ([]snapshot.Row, error)

// Store holds the snapshot rows in memory. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	rows   []snapshot.Row
	names  map[domain.Dimension]map[string]string
	lex    snapshot.Lexicon
	loader Loader
}

// NewStore creates a store seeded with the given rows.
func NewStore(rows []snapshot.Row) *Store {
	s := &Store{}
	s.replace(rows)
	return s
}

// NewStoreWithLoader creates an empty store that fills itself via the
// loader on Refresh.
func NewStoreWithLoader(loader Loader) *Store {
	return &Store{loader: loader, names: map[domain.Dimension]map[string]string{}}
}

// SetNames registers display names for a dimension's slugs. Unregistered
// slugs fall back to a humanized form of the slug itself.
func (s *Store) SetNames(dim domain.Dimension, names map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.names == nil {
		s.names = map[domain.Dimension]map[string]string{}
	}
	s.names[dim] = names
}

func (s *Store) replace(rows []snapshot.Row) {
	lex := snapshot.Lexicon{}
	seenBrand := map[string]bool{}
	seenType := map[string]bool{}
	for i := range rows {
		r := &rows[i]
		if r.BrandSlug != "" && !seenBrand[r.BrandSlug] {
			seenBrand[r.BrandSlug] = true
			lex.Brands = append(lex.Brands, snapshot.LexiconEntry{Name: r.Brand, Slug: r.BrandSlug})
		}
		if r.ProductTypeSlug != "" && !seenType[r.ProductTypeSlug] {
			seenType[r.ProductTypeSlug] = true
			lex.ProductTypes = append(lex.ProductTypes, snapshot.LexiconEntry{Name: r.ProductType, Slug: r.ProductTypeSlug})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	s.lex = lex
	if s.names == nil {
		s.names = map[domain.Dimension]map[string]string{}
	}
	s.names[domain.DimBrand] = entriesToNames(lex.Brands)
	s.names[domain.DimProductType] = entriesToNames(lex.ProductTypes)
}

func entriesToNames(entries []snapshot.LexiconEntry) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Slug] = e.Name
	}
	return out
}

// Refresh reloads the row set through the loader. A store created without
// a loader refreshes to its current rows (no-op), so the admin refresh
// surface stays usable against a static fixture.
func (s *Store) Refresh(ctx context.Context) error {
	if s.loader == nil {
		return nil
	}
	rows, err := s.loader(ctx)
	if err != nil {
		return err
	}
	s.replace(rows)
	return nil
}

type scoredRow struct {
	row   *snapshot.Row
	score int
}

func (s *Store) match(sel snapshot.Selection) []scoredRow {
	var out []scoredRow
	for i := range s.rows {
		r := &s.rows[i]
		if !predicate.Matches(r, sel.Predicates) {
			continue
		}
		if !query.MatchesText(r, sel.Text) {
			continue
		}
		out = append(out, scoredRow{row: r, score: query.ScoreRow(r, sel.Text)})
	}
	return out
}

// Select implements snapshot.Store.
func (s *Store) Select(ctx context.Context, sel snapshot.Selection) (*snapshot.CandidateSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(sel)
	sortRows(matched, sel.Sort, sel.Desc)

	total := len(matched)
	start := sel.Offset
	if start > total {
		start = total
	}
	end := start + sel.Limit
	if sel.Limit <= 0 || end > total {
		end = total
	}

	cs := &snapshot.CandidateSet{Total: total, Candidates: make([]snapshot.Candidate, 0, end-start)}
	for _, sr := range matched[start:end] {
		cs.Candidates = append(cs.Candidates, snapshot.Candidate{Code: sr.row.Code, Score: sr.score})
	}
	return cs, nil
}

// sortRows orders matched rows by the requested key with style code
// ascending as the unconditional final tie-break.
func sortRows(rows []scoredRow, key domain.SortKey, desc bool) {
	less := func(a, b scoredRow) int {
		switch key {
		case domain.SortBest:
			// Higher score first by natural direction.
			return compareInt(b.score, a.score)
		case domain.SortNewest:
			return b.row.CreatedAt.Compare(a.row.CreatedAt)
		case domain.SortPrice:
			return compareInt64(a.row.SellPrice, b.row.SellPrice)
		case domain.SortName:
			return strings.Compare(strings.ToLower(a.row.Name), strings.ToLower(b.row.Name))
		case domain.SortBrand:
			return strings.Compare(strings.ToLower(a.row.Brand), strings.ToLower(b.row.Brand))
		case domain.SortCode:
			return strings.Compare(a.row.Code, b.row.Code)
		default:
			return 0
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := less(rows[i], rows[j])
		if desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return rows[i].row.Code < rows[j].row.Code
	})
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CountDimension implements snapshot.Store. The caller passes a selection
// already excluding the dimension's own constraint; each style contributes
// at most once per value.
func (s *Store) CountDimension(ctx context.Context, dim domain.Dimension, sel snapshot.Selection, topN int) ([]domain.FacetValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	kind, ok := domain.KindOf(dim)
	if !ok {
		return nil, nil
	}
	for _, sr := range s.match(sel) {
		if kind == domain.KindScalar {
			if v := sr.row.ScalarValue(dim); v != "" {
				counts[v]++
			}
			continue
		}
		seen := map[string]bool{}
		for _, v := range sr.row.ArrayValues(dim) {
			if v != "" && !seen[v] {
				seen[v] = true
				counts[v]++
			}
		}
	}

	out := make([]domain.FacetValue, 0, len(counts))
	for slug, n := range counts {
		out = append(out, domain.FacetValue{Slug: slug, Name: s.displayName(dim, slug), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Slug < out[j].Slug
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

func (s *Store) displayName(dim domain.Dimension, slugVal string) string {
	if names, ok := s.names[dim]; ok {
		if name, ok := names[slugVal]; ok {
			return name
		}
	}
	return humanize(slugVal)
}

func humanize(slugVal string) string {
	words := strings.Split(slugVal, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// PriceRange implements snapshot.Store.
func (s *Store) PriceRange(ctx context.Context, sel snapshot.Selection) (*domain.PriceRange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	pr := &domain.PriceRange{}
	first := true
	for _, sr := range s.match(sel) {
		p := sr.row.SellPrice
		if first {
			pr.Min, pr.Max = p, p
			first = false
			continue
		}
		if p < pr.Min {
			pr.Min = p
		}
		if p > pr.Max {
			pr.Max = p
		}
	}
	return pr, nil
}

// Lexicon implements snapshot.Store.
func (s *Store) Lexicon(ctx context.Context) (*snapshot.Lexicon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	lex := s.lex
	return &lex, nil
}

// Ping implements snapshot.Store.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
