// Package postgres implements the authoritative style reader over the
// styles and style_variants tables.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/brandeduk/catalog/internal/domain"
	apperrors "github.com/brandeduk/catalog/pkg/errors"
)

// Pool is the subset of pgxpool.Pool the repository uses. pgxmock
// satisfies it.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StyleRepository implements repository.StyleReader using PostgreSQL.
type StyleRepository struct {
	pool Pool
}

// NewStyleRepository creates a new PostgreSQL-backed style reader.
func NewStyleRepository(pool Pool) *StyleRepository {
	return &StyleRepository{pool: pool}
}

// GetByCode retrieves a style and all of its variants by style code.
func (r *StyleRepository) GetByCode(ctx context.Context, code string) (*domain.Style, error) {
	styleSQL := `
		SELECT style_code, style_name, brand_name, brand_slug,
			   product_type_name, product_type_slug, created_at
		FROM styles
		WHERE style_code = $1`

	var s domain.Style
	err := r.pool.QueryRow(ctx, styleSQL, code).Scan(
		&s.Code,
		&s.Name,
		&s.Brand,
		&s.BrandSlug,
		&s.ProductType,
		&s.ProductTypeSlug,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("style", code)
		}
		return nil, fmt.Errorf("get style %s: %w", code, err)
	}

	variantSQL := `
		SELECT sku, style_code, colour_name, primary_colour, colour_shade,
			   size_name, cost_price, sell_price, status, image_url
		FROM style_variants
		WHERE style_code = $1
		ORDER BY colour_name, size_name`

	rows, err := r.pool.Query(ctx, variantSQL, code)
	if err != nil {
		return nil, fmt.Errorf("get variants for %s: %w", code, err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		s.Variants = append(s.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	return &s, nil
}

// BatchByCodes retrieves the styles for the given codes with live variants
// only, in one round trip.
func (r *StyleRepository) BatchByCodes(ctx context.Context, codes []string) (map[string]*domain.Style, error) {
	if len(codes) == 0 {
		return map[string]*domain.Style{}, nil
	}

	sql := `
		SELECT s.style_code, s.style_name, s.brand_name, s.brand_slug,
			   s.product_type_name, s.product_type_slug, s.created_at,
			   v.sku, v.style_code, v.colour_name, v.primary_colour, v.colour_shade,
			   v.size_name, v.cost_price, v.sell_price, v.status, v.image_url
		FROM styles s
		JOIN style_variants v ON v.style_code = s.style_code
		WHERE s.style_code = ANY($1) AND v.status = 'live'
		ORDER BY s.style_code, v.colour_name, v.size_name`

	rows, err := r.pool.Query(ctx, sql, codes)
	if err != nil {
		return nil, fmt.Errorf("batch styles: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*domain.Style, len(codes))
	for rows.Next() {
		var (
			s domain.Style
			v domain.Variant
		)
		if err := rows.Scan(
			&s.Code, &s.Name, &s.Brand, &s.BrandSlug,
			&s.ProductType, &s.ProductTypeSlug, &s.CreatedAt,
			&v.SKU, &v.StyleCode, &v.ColourName, &v.PrimaryColour, &v.ColourShade,
			&v.Size, &v.CostPrice, &v.SellPrice, &v.Status, &v.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}

		existing, ok := out[s.Code]
		if !ok {
			existing = &s
			out[s.Code] = existing
		}
		existing.Variants = append(existing.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch rows: %w", err)
	}

	return out, nil
}

func scanVariant(rows pgx.Rows) (domain.Variant, error) {
	var v domain.Variant
	if err := rows.Scan(
		&v.SKU,
		&v.StyleCode,
		&v.ColourName,
		&v.PrimaryColour,
		&v.ColourShade,
		&v.Size,
		&v.CostPrice,
		&v.SellPrice,
		&v.Status,
		&v.ImageURL,
	); err != nil {
		return v, fmt.Errorf("scan variant row: %w", err)
	}
	return v, nil
}
