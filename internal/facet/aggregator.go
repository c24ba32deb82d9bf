// Package facet computes the sidebar counts for a filtered result set.
// Counts are compiled from the same predicates as the search itself, with
// each dimension's own constraint excluded, so every count the sidebar
// shows corresponds to a search that returns exactly that many styles.
package facet

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/brandeduk/catalog/internal/domain"
	"github.com/brandeduk/catalog/internal/predicate"
	"github.com/brandeduk/catalog/internal/query"
	"github.com/brandeduk/catalog/internal/snapshot"
)

// MaxValuesPerDimension caps each dimension's value list.
const MaxValuesPerDimension = 50

// maxConcurrentCounts bounds the fan-out across dimensions.
const maxConcurrentCounts = 6

// Aggregator produces per-dimension facet counts and the price range for
// a filter specification.
type Aggregator struct {
	store   snapshot.Store
	planner *query.Planner
	logger  *slog.Logger
}

// NewAggregator creates a facet aggregator.
func NewAggregator(store snapshot.Store, planner *query.Planner, logger *slog.Logger) *Aggregator {
	return &Aggregator{store: store, planner: planner, logger: logger}
}

// Aggregate counts every dimension under the specification. Each
// dimension is counted with its own constraint removed and every other
// active constraint applied. Dimensions with no values are omitted.
func (a *Aggregator) Aggregate(ctx context.Context, spec *domain.FilterSpec) (*domain.FacetResponse, error) {
	baseSel, err := a.planner.Build(ctx, spec, 0, 0)
	if err != nil {
		return nil, err
	}

	resp := &domain.FacetResponse{Filters: map[domain.Dimension][]domain.FacetValue{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCounts)

	for _, dim := range domain.Dimensions() {
		g.Go(func() error {
			sel := baseSel
			sel.Predicates = predicate.FromSpecExcluding(spec, dim)

			values, err := a.store.CountDimension(gctx, dim, sel, MaxValuesPerDimension)
			if err != nil {
				return err
			}
			if len(values) == 0 {
				return nil
			}

			mu.Lock()
			resp.Filters[dim] = values
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}

// PriceRange returns the sell-price bounds of the full candidate set,
// ignoring any price constraint already present so the slider always
// shows the reachable range.
func (a *Aggregator) PriceRange(ctx context.Context, spec *domain.FilterSpec) (*domain.PriceRange, error) {
	unpriced := *spec
	unpriced.PriceMin = nil
	unpriced.PriceMax = nil

	sel, err := a.planner.Build(ctx, &unpriced, 0, 0)
	if err != nil {
		return nil, err
	}
	return a.store.PriceRange(ctx, sel)
}
