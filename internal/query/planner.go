// Package query compiles canonical filter specifications into
// candidate-selection plans and executes them against the snapshot store.
package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brandeduk/catalog/internal/domain"
	"github.com/brandeduk/catalog/internal/predicate"
	"github.com/brandeduk/catalog/internal/snapshot"
	apperrors "github.com/brandeduk/catalog/pkg/errors"
)

const (
	defaultPlanTimeout = 3 * time.Second
	retryBackoff       = 100 * time.Millisecond
)

// Planner builds and runs candidate-selection plans.
type Planner struct {
	store   snapshot.Store
	timeout time.Duration
	logger  *slog.Logger
}

// NewPlanner creates a planner with the given per-plan timeout budget.
// A non-positive timeout falls back to the default.
func NewPlanner(store snapshot.Store, timeout time.Duration, logger *slog.Logger) *Planner {
	if timeout <= 0 {
		timeout = defaultPlanTimeout
	}
	return &Planner{store: store, timeout: timeout, logger: logger}
}

// Build compiles a filter specification into a selection, classifying the
// free-text query against the snapshot lexicon when present. The selection
// is reusable across Select, CountDimension, and PriceRange calls so the
// planner and the facet aggregator share identical predicate logic.
func (p *Planner) Build(ctx context.Context, spec *domain.FilterSpec, limit, offset int) (snapshot.Selection, error) {
	sel := snapshot.Selection{
		Predicates: predicate.FromSpec(spec),
		Sort:       spec.Sort,
		Desc:       spec.Desc,
		Limit:      limit,
		Offset:     offset,
	}

	if spec.Query != "" {
		lex, err := p.store.Lexicon(ctx)
		if err != nil {
			// Classification is an enrichment: fall back to unclassified
			// tokens rather than failing the query.
			p.logger.WarnContext(ctx, "lexicon unavailable, skipping token classification",
				slog.String("error", err.Error()),
			)
			lex = nil
		}
		sel.Text = Classify(spec.Query, lex)
	}

	return sel, nil
}

// Plan compiles and executes a selection, returning the ordered candidate
// page and total. Timeouts are retried once with backoff; a second timeout
// surfaces as a retryable upstream error.
func (p *Planner) Plan(ctx context.Context, spec *domain.FilterSpec, limit, offset int) (*snapshot.CandidateSet, error) {
	sel, err := p.Build(ctx, spec, limit, offset)
	if err != nil {
		return nil, err
	}
	return p.Select(ctx, sel)
}

// Select runs an already-built selection with the planner's timeout budget.
func (p *Planner) Select(ctx context.Context, sel snapshot.Selection) (*snapshot.CandidateSet, error) {
	cs, err := p.selectOnce(ctx, sel)
	if err == nil {
		return cs, nil
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	// Candidate selection is idempotent: one retry with backoff.
	p.logger.WarnContext(ctx, "candidate selection timed out, retrying")
	select {
	case <-ctx.Done():
		return nil, apperrors.UpstreamTimeout("snapshot store", ctx.Err())
	case <-time.After(retryBackoff):
	}

	cs, err = p.selectOnce(ctx, sel)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.UpstreamTimeout("snapshot store", err)
		}
		return nil, err
	}
	return cs, nil
}

func (p *Planner) selectOnce(ctx context.Context, sel snapshot.Selection) (*snapshot.CandidateSet, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.store.Select(ctx, sel)
}
