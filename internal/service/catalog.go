// Package service composes the query pipeline: normalize → plan →
// select → reconcile → respond, with serialized responses cached whole.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brandeduk/catalog/internal/cache"
	"github.com/brandeduk/catalog/internal/domain"
	"github.com/brandeduk/catalog/internal/facet"
	"github.com/brandeduk/catalog/internal/query"
	"github.com/brandeduk/catalog/internal/reconcile"
	"github.com/brandeduk/catalog/internal/repository"
	apperrors "github.com/brandeduk/catalog/pkg/errors"
	"github.com/brandeduk/catalog/pkg/pagination"
)

// Invalidator clears caches and notifies peers of a catalog change.
type Invalidator interface {
	Invalidate(ctx context.Context, reason string) error
}

// Refresher rebuilds the snapshot on demand.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// CatalogService implements the browsing, search, facet, and detail
// operations. Responses are produced and cached as serialized JSON so a
// cache replay is byte-identical to the original render.
type CatalogService struct {
	planner     *query.Planner
	reconciler  *reconcile.Reconciler
	facets      *facet.Aggregator
	styles      repository.StyleReader
	cache       cache.Cache
	ttls        cache.TTLs
	invalidator Invalidator
	refresher   Refresher
	logger      *slog.Logger
}

// NewCatalogService wires the pipeline stages together.
func NewCatalogService(
	planner *query.Planner,
	reconciler *reconcile.Reconciler,
	facets *facet.Aggregator,
	styles repository.StyleReader,
	c cache.Cache,
	ttls cache.TTLs,
	invalidator Invalidator,
	refresher Refresher,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		planner:     planner,
		reconciler:  reconciler,
		facets:      facets,
		styles:      styles,
		cache:       c,
		ttls:        ttls,
		invalidator: invalidator,
		refresher:   refresher,
		logger:      logger,
	}
}

// Search runs a filtered, optionally free-text search and returns the
// serialized response page.
func (s *CatalogService) Search(ctx context.Context, spec *domain.FilterSpec, page pagination.Params) ([]byte, error) {
	kind := cache.KindList
	if spec.Query != "" {
		kind = cache.KindSearch
	}
	key := cache.Key(kind, fmt.Sprintf("%s:%d:%d", spec.Fingerprint(), page.Page, page.Limit))

	if payload, err := s.cache.Get(ctx, key); err == nil {
		return payload, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "cache read failed", slog.String("error", err.Error()))
	}

	resp, err := s.search(ctx, spec, page)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal search response: %w", err)
	}
	if err := s.cache.Set(ctx, key, payload, s.ttls.For(kind)); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", slog.String("error", err.Error()))
	}
	return payload, nil
}

func (s *CatalogService) search(ctx context.Context, spec *domain.FilterSpec, page pagination.Params) (*domain.SearchResponse, error) {
	// A page serves exactly the survivors of its own candidate window
	// [offset, offset+limit). Reconciliation drops leave the page short
	// and flagged rather than pulling candidates from the next window,
	// so concatenated pages tile the candidate stream without repeats.
	cs, err := s.planner.Plan(ctx, spec, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}

	codes := make([]string, len(cs.Candidates))
	for i, c := range cs.Candidates {
		codes[i] = c.Code
	}

	res, err := s.reconciler.Reconcile(ctx, codes, spec)
	if err != nil {
		return nil, err
	}
	items := res.Items
	if items == nil {
		items = []domain.StyleSummary{}
	}

	resp := &domain.SearchResponse{
		Items: items,
		Page:  page.Page,
		Limit: page.Limit,
		Total: cs.Total,
	}
	if res.Dropped > 0 {
		s.logger.DebugContext(ctx, "page short after reconciliation",
			slog.Int("dropped", res.Dropped),
			slog.Int("served", len(items)),
		)
		resp.SizeAdjusted = true
		if page.Offset+len(cs.Candidates) >= cs.Total {
			resp.Total = page.Offset + len(items)
		} else {
			resp.Total = cs.Total - res.Dropped
		}
	}

	pr, err := s.facets.PriceRange(ctx, spec)
	if err != nil {
		return nil, err
	}
	resp.PriceRange = *pr

	return resp, nil
}

// Facets returns the serialized sidebar counts for the specification.
func (s *CatalogService) Facets(ctx context.Context, spec *domain.FilterSpec) ([]byte, error) {
	key := cache.Key(cache.KindFacets, spec.Fingerprint())

	if payload, err := s.cache.Get(ctx, key); err == nil {
		return payload, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "cache read failed", slog.String("error", err.Error()))
	}

	resp, err := s.facets.Aggregate(ctx, spec)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal facet response: %w", err)
	}
	if err := s.cache.Set(ctx, key, payload, s.ttls.For(cache.KindFacets)); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", slog.String("error", err.Error()))
	}
	return payload, nil
}

// Style returns the serialized detail view of one style.
func (s *CatalogService) Style(ctx context.Context, code string) ([]byte, error) {
	if code == "" {
		return nil, apperrors.InvalidInput("style code is required")
	}
	key := cache.Key(cache.KindDetail, code)

	if payload, err := s.cache.Get(ctx, key); err == nil {
		return payload, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "cache read failed", slog.String("error", err.Error()))
	}

	style, err := s.styles.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !style.Live() {
		return nil, apperrors.NotFound("style", code)
	}

	detail := buildDetail(style)
	payload, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("marshal style detail: %w", err)
	}
	if err := s.cache.Set(ctx, key, payload, s.ttls.For(cache.KindDetail)); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", slog.String("error", err.Error()))
	}
	return payload, nil
}

func buildDetail(style *domain.Style) *domain.StyleDetail {
	detail := &domain.StyleDetail{
		Code:        style.Code,
		Name:        style.Name,
		Brand:       style.Brand,
		ProductType: style.ProductType,
		Variants:    style.Variants,
	}
	priced := false
	for i := range style.Variants {
		v := &style.Variants[i]
		if v.Status != domain.VariantLive {
			continue
		}
		if !priced || v.SellPrice < detail.PriceRange.Min {
			detail.PriceRange.Min = v.SellPrice
			priced = true
		}
		if v.SellPrice > detail.PriceRange.Max {
			detail.PriceRange.Max = v.SellPrice
		}
	}
	return detail
}

// Invalidate clears cached responses and broadcasts the change.
func (s *CatalogService) Invalidate(ctx context.Context, reason string) error {
	return s.invalidator.Invalidate(ctx, reason)
}

// RefreshSnapshot rebuilds the snapshot immediately and then invalidates,
// so responses rendered from the old snapshot cannot be replayed.
func (s *CatalogService) RefreshSnapshot(ctx context.Context) error {
	if err := s.refresher.Refresh(ctx); err != nil {
		return err
	}
	return s.invalidator.Invalidate(ctx, "refresh")
}
