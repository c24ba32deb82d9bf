package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandeduk/catalog/internal/cache"
	"github.com/brandeduk/catalog/internal/domain"
	"github.com/brandeduk/catalog/internal/facet"
	"github.com/brandeduk/catalog/internal/query"
	"github.com/brandeduk/catalog/internal/reconcile"
	"github.com/brandeduk/catalog/internal/snapshot"
	"github.com/brandeduk/catalog/internal/snapshot/memory"
	apperrors "github.com/brandeduk/catalog/pkg/errors"
	"github.com/brandeduk/catalog/pkg/pagination"
)

type stubReader struct {
	styles map[string]*domain.Style
}

func (s *stubReader) GetByCode(ctx context.Context, code string) (*domain.Style, error) {
	if st, ok := s.styles[code]; ok {
		return st, nil
	}
	return nil, apperrors.NotFound("style", code)
}

func (s *stubReader) BatchByCodes(ctx context.Context, codes []string) (map[string]*domain.Style, error) {
	out := map[string]*domain.Style{}
	for _, c := range codes {
		if st, ok := s.styles[c]; ok && st.Live() {
			out[c] = st
		}
	}
	return out, nil
}

type stubInvalidator struct {
	reasons []string
	err     error
}

func (s *stubInvalidator) Invalidate(ctx context.Context, reason string) error {
	s.reasons = append(s.reasons, reason)
	return s.err
}

type stubRefresher struct {
	calls int
	err   error
}

func (s *stubRefresher) Refresh(ctx context.Context) error {
	s.calls++
	return s.err
}

type fixture struct {
	svc         *CatalogService
	store       *memory.Store
	reader      *stubReader
	invalidator *stubInvalidator
	refresher   *stubRefresher
}

func snapshotRow(code, name string, price int64, created time.Time) snapshot.Row {
	return snapshot.Row{
		Code: code, Name: name, Brand: "Gildan", BrandSlug: "gildan",
		ProductType: "T-Shirt", ProductTypeSlug: "t-shirt", Gender: "unisex",
		Colours: []string{"navy"}, Sizes: []string{"m"},
		SellPrice: price, CreatedAt: created,
		SearchText: "gildan t-shirt",
	}
}

func authoritative(code, name string, price int64) *domain.Style {
	return &domain.Style{
		Code: code, Name: name, Brand: "Gildan", BrandSlug: "gildan",
		ProductType: "T-Shirt", ProductTypeSlug: "t-shirt",
		Variants: []domain.Variant{{
			SKU: code + "-NVY-M", StyleCode: code,
			ColourName: "Navy", PrimaryColour: "navy", Size: "m",
			SellPrice: price, Status: domain.VariantLive,
		}},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	store := memory.NewStore([]snapshot.Row{
		snapshotRow("GD001", "Tee One", 500, base.Add(3*time.Hour)),
		snapshotRow("GD002", "Tee Two", 600, base.Add(2*time.Hour)),
		snapshotRow("GD003", "Tee Three", 700, base.Add(time.Hour)),
		snapshotRow("GD004", "Tee Four", 800, base),
	})
	reader := &stubReader{styles: map[string]*domain.Style{
		"GD001": authoritative("GD001", "Tee One", 500),
		"GD002": authoritative("GD002", "Tee Two", 600),
		"GD003": authoritative("GD003", "Tee Three", 700),
		"GD004": authoritative("GD004", "Tee Four", 800),
	}}

	logger := slog.New(slog.DiscardHandler)
	planner := query.NewPlanner(store, time.Second, logger)
	f := &fixture{
		store:       store,
		reader:      reader,
		invalidator: &stubInvalidator{},
		refresher:   &stubRefresher{},
	}
	ttls := cache.TTLs{List: time.Minute, Search: time.Minute, Facets: time.Minute, Detail: time.Minute}
	f.svc = NewCatalogService(
		planner,
		reconcile.NewReconciler(reader, logger),
		facet.NewAggregator(store, planner, logger),
		reader,
		cache.NewLocal(64),
		ttls,
		f.invalidator,
		f.refresher,
		logger,
	)
	return f
}

func searchJSON(t *testing.T, payload []byte) *domain.SearchResponse {
	t.Helper()
	var resp domain.SearchResponse
	require.NoError(t, json.Unmarshal(payload, &resp))
	return &resp
}

func TestSearchFirstPage(t *testing.T) {
	f := newFixture(t)

	payload, err := f.svc.Search(context.Background(), &domain.FilterSpec{Sort: domain.SortNewest},
		pagination.Params{Page: 1, Limit: 2, Offset: 0})
	require.NoError(t, err)

	resp := searchJSON(t, payload)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "GD001", resp.Items[0].Code)
	assert.Equal(t, "GD002", resp.Items[1].Code)
	assert.Equal(t, 4, resp.Total)
	assert.False(t, resp.SizeAdjusted)
	assert.Equal(t, int64(500), resp.PriceRange.Min)
	assert.Equal(t, int64(800), resp.PriceRange.Max)
}

func TestSearchCachedReplayIsByteIdentical(t *testing.T) {
	f := newFixture(t)
	spec := &domain.FilterSpec{Sort: domain.SortNewest}
	page := pagination.Params{Page: 1, Limit: 2, Offset: 0}

	first, err := f.svc.Search(context.Background(), spec, page)
	require.NoError(t, err)

	// Authoritative data changes, but the cached page must replay as-is.
	f.reader.styles["GD001"].Variants[0].SellPrice = 999

	second, err := f.svc.Search(context.Background(), spec, page)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSearchDroppedCandidateLeavesPageShort(t *testing.T) {
	f := newFixture(t)
	// GD001 went dark between snapshot builds.
	delete(f.reader.styles, "GD001")

	payload, err := f.svc.Search(context.Background(), &domain.FilterSpec{Sort: domain.SortNewest},
		pagination.Params{Page: 1, Limit: 2, Offset: 0})
	require.NoError(t, err)

	// The page serves only its own window's survivors; GD003 belongs to
	// page 2 and must not be pulled forward.
	resp := searchJSON(t, payload)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "GD002", resp.Items[0].Code)
	assert.True(t, resp.SizeAdjusted)
	assert.Equal(t, 3, resp.Total)
}

func TestSearchPagesNeverOverlapAfterDrop(t *testing.T) {
	f := newFixture(t)
	delete(f.reader.styles, "GD001")

	seen := map[string]int{}
	var all []string
	for pageNum := 1; pageNum <= 2; pageNum++ {
		payload, err := f.svc.Search(context.Background(), &domain.FilterSpec{Sort: domain.SortNewest},
			pagination.Params{Page: pageNum, Limit: 2, Offset: (pageNum - 1) * 2})
		require.NoError(t, err)

		resp := searchJSON(t, payload)
		for _, item := range resp.Items {
			seen[item.Code]++
			all = append(all, item.Code)
		}
	}

	// Concatenated pages contain every surviving style exactly once.
	assert.Equal(t, []string{"GD002", "GD003", "GD004"}, all)
	for code, n := range seen {
		assert.Equal(t, 1, n, "style %s served on %d pages", code, n)
	}
}

func TestSearchShortFinalPageAdjustsTotal(t *testing.T) {
	f := newFixture(t)
	delete(f.reader.styles, "GD003")
	delete(f.reader.styles, "GD004")

	payload, err := f.svc.Search(context.Background(), &domain.FilterSpec{Sort: domain.SortNewest},
		pagination.Params{Page: 1, Limit: 4, Offset: 0})
	require.NoError(t, err)

	resp := searchJSON(t, payload)
	require.Len(t, resp.Items, 2)
	assert.True(t, resp.SizeAdjusted)
	assert.Equal(t, 2, resp.Total)
}

func TestSearchEmptyResult(t *testing.T) {
	f := newFixture(t)

	payload, err := f.svc.Search(context.Background(),
		&domain.FilterSpec{
			Sort:       domain.SortNewest,
			Dimensions: map[domain.Dimension][]string{domain.DimColour: {"chartreuse"}},
		},
		pagination.Params{Page: 1, Limit: 20, Offset: 0})
	require.NoError(t, err)

	resp := searchJSON(t, payload)
	assert.NotNil(t, resp.Items)
	assert.Empty(t, resp.Items)
	assert.Zero(t, resp.Total)
}

func TestFacetsCached(t *testing.T) {
	f := newFixture(t)
	spec := &domain.FilterSpec{}

	first, err := f.svc.Facets(context.Background(), spec)
	require.NoError(t, err)

	var resp domain.FacetResponse
	require.NoError(t, json.Unmarshal(first, &resp))
	assert.Equal(t, 4, resp.Filters[domain.DimBrand][0].Count)

	second, err := f.svc.Facets(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStyleDetail(t *testing.T) {
	f := newFixture(t)

	payload, err := f.svc.Style(context.Background(), "GD001")
	require.NoError(t, err)

	var detail domain.StyleDetail
	require.NoError(t, json.Unmarshal(payload, &detail))
	assert.Equal(t, "Tee One", detail.Name)
	assert.Equal(t, int64(500), detail.PriceRange.Min)
	require.Len(t, detail.Variants, 1)
}

func TestStyleDetailZeroPencePriceRange(t *testing.T) {
	f := newFixture(t)
	f.reader.styles["GD001"].Variants = append(f.reader.styles["GD001"].Variants, domain.Variant{
		SKU: "GD001-WHT-M", StyleCode: "GD001",
		ColourName: "White", PrimaryColour: "white", Size: "m",
		SellPrice: 0, Status: domain.VariantLive,
	})

	payload, err := f.svc.Style(context.Background(), "GD001")
	require.NoError(t, err)

	var detail domain.StyleDetail
	require.NoError(t, json.Unmarshal(payload, &detail))
	assert.Equal(t, int64(0), detail.PriceRange.Min)
	assert.Equal(t, int64(500), detail.PriceRange.Max)
}

func TestStyleNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Style(context.Background(), "ZZ999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestStyleWithoutLiveVariantsNotFound(t *testing.T) {
	f := newFixture(t)
	f.reader.styles["GD001"].Variants[0].Status = domain.VariantDiscontinued

	_, err := f.svc.Style(context.Background(), "GD001")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestInvalidateDelegates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Invalidate(context.Background(), "updated"))
	assert.Equal(t, []string{"updated"}, f.invalidator.reasons)
}

func TestRefreshSnapshotRefreshesThenInvalidates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RefreshSnapshot(context.Background()))
	assert.Equal(t, 1, f.refresher.calls)
	assert.Equal(t, []string{"refresh"}, f.invalidator.reasons)
}

func TestRefreshSnapshotFailureSkipsInvalidate(t *testing.T) {
	f := newFixture(t)
	f.refresher.err = errors.New("rebuild failed")

	require.Error(t, f.svc.RefreshSnapshot(context.Background()))
	assert.Empty(t, f.invalidator.reasons)
}
