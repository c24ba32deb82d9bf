// Package reconcile re-validates snapshot candidates against the
// authoritative catalog before they are served. The snapshot is allowed
// to be stale; reconciliation is what keeps stale candidates from
// reaching a response.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brandeduk/catalog/internal/domain"
	"github.com/brandeduk/catalog/internal/repository"
)

var reconciliationMisses = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_reconciliation_misses_total",
		Help: "Candidates dropped because the authoritative catalog no longer matched",
	},
	[]string{"reason"},
)

const (
	missGone   = "gone"
	missColour = "colour"
	missSize   = "size"
	missPrice  = "price"
)

// Reconciler hydrates candidate codes from the authoritative reader and
// strictly re-checks the constraints the snapshot may have answered with
// stale data.
type Reconciler struct {
	reader repository.StyleReader
	logger *slog.Logger
}

// NewReconciler creates a reconciler over the given authoritative reader.
func NewReconciler(reader repository.StyleReader, logger *slog.Logger) *Reconciler {
	return &Reconciler{reader: reader, logger: logger}
}

// Result is one reconciliation pass: the summaries that survived, in the
// candidate order given, and the number of candidates dropped.
type Result struct {
	Items   []domain.StyleSummary
	Dropped int
}

// Reconcile hydrates the candidate codes in one batch and re-checks each
// against the filter specification's colour, size, and price constraints
// using live variants only. Candidates that fail any strict check are
// dropped and counted; order is preserved for the survivors.
func (r *Reconciler) Reconcile(ctx context.Context, codes []string, spec *domain.FilterSpec) (*Result, error) {
	styles, err := r.reader.BatchByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	res := &Result{Items: make([]domain.StyleSummary, 0, len(codes))}
	for _, code := range codes {
		style, ok := styles[code]
		if !ok || !style.Live() {
			r.miss(ctx, code, missGone)
			res.Dropped++
			continue
		}

		summary, reason := r.check(style, spec)
		if reason != "" {
			r.miss(ctx, code, reason)
			res.Dropped++
			continue
		}
		res.Items = append(res.Items, summary)
	}

	return res, nil
}

// check builds the summary from live variants and reports the first
// strict constraint the style no longer satisfies.
func (r *Reconciler) check(style *domain.Style, spec *domain.FilterSpec) (domain.StyleSummary, string) {
	wantColours := spec.Values(domain.DimColour)
	wantSizes := spec.Values(domain.DimSize)

	var (
		colours   []string
		sizes     []string
		seenCol   = map[string]bool{}
		seenSize  = map[string]bool{}
		minPrice  int64
		priced    bool
		imageURL  string
		colourHit = len(wantColours) == 0
		sizeHit   = len(wantSizes) == 0
	)

	for i := range style.Variants {
		v := &style.Variants[i]
		if v.Status != domain.VariantLive {
			continue
		}

		if !seenCol[v.PrimaryColour] && v.PrimaryColour != "" {
			seenCol[v.PrimaryColour] = true
			colours = append(colours, v.PrimaryColour)
		}
		if !seenSize[v.Size] && v.Size != "" {
			seenSize[v.Size] = true
			sizes = append(sizes, v.Size)
		}
		if !priced || v.SellPrice < minPrice {
			minPrice = v.SellPrice
			priced = true
		}
		if imageURL == "" && v.ImageURL != "" {
			imageURL = v.ImageURL
		}

		if !colourHit && inSet(wantColours, v.PrimaryColour) {
			colourHit = true
		}
		if !sizeHit && inSet(wantSizes, v.Size) {
			sizeHit = true
		}
	}

	if !colourHit {
		return domain.StyleSummary{}, missColour
	}
	if !sizeHit {
		return domain.StyleSummary{}, missSize
	}
	if spec.PriceMin != nil && minPrice < *spec.PriceMin {
		return domain.StyleSummary{}, missPrice
	}
	if spec.PriceMax != nil && minPrice > *spec.PriceMax {
		return domain.StyleSummary{}, missPrice
	}

	return domain.StyleSummary{
		Code:        style.Code,
		Name:        style.Name,
		Brand:       style.Brand,
		ProductType: style.ProductType,
		Price:       minPrice,
		Colours:     colours,
		Sizes:       sizes,
		ImageURL:    imageURL,
	}, ""
}

func (r *Reconciler) miss(ctx context.Context, code, reason string) {
	reconciliationMisses.WithLabelValues(reason).Inc()
	r.logger.DebugContext(ctx, "reconciliation miss",
		slog.String("style_code", code),
		slog.String("reason", reason),
	)
}

func inSet(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
