// Package postgres backs the snapshot contract with the denormalized
// style_search table: one row per live style, array columns for the
// multi-valued facets, a tsvector for full text, and pg_trgm for
// approximate matching. Ranking runs inside the SELECT so ordering and
// pagination happen in one round trip.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/brandeduk/catalog/internal/domain"
	"github.com/brandeduk/catalog/internal/predicate"
	"github.com/brandeduk/catalog/internal/query"
	"github.com/brandeduk/catalog/internal/snapshot"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Store implements snapshot.Store and snapshot.Refresher on Postgres.
type Store struct {
	pool Pool
}

// NewStore creates a Postgres-backed snapshot store.
func NewStore(pool Pool) *Store {
	return &Store{pool: pool}
}

var scalarColumns = map[domain.Dimension]string{
	domain.DimGender:      "gender_slug",
	domain.DimAgeGroup:    "age_group_slug",
	domain.DimTag:         "tag_slug",
	domain.DimFit:         "fit_slug",
	domain.DimBrand:       "brand_slug",
	domain.DimProductType: "product_type_slug",
}

var arrayColumns = map[domain.Dimension]string{
	domain.DimSleeve:        "sleeve_slugs",
	domain.DimNeckline:      "neckline_slugs",
	domain.DimFabric:        "fabric_slugs",
	domain.DimSize:          "size_slugs",
	domain.DimColour:        "colour_slugs",
	domain.DimWeight:        "weight_slugs",
	domain.DimSector:        "sector_slugs",
	domain.DimSport:         "sport_slugs",
	domain.DimEffect:        "effect_slugs",
	domain.DimAccreditation: "accreditation_slugs",
	domain.DimStyleKeyword:  "style_keyword_slugs",
}

// sqlBuilder accumulates WHERE conjuncts and positional args.
type sqlBuilder struct {
	conds []string
	args  []any
}

func (b *sqlBuilder) add(cond string, args ...any) {
	b.conds = append(b.conds, cond)
	b.args = append(b.args, args...)
}

func (b *sqlBuilder) next() int { return len(b.args) + 1 }

func (b *sqlBuilder) where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conds, " AND ")
}

// apply compiles the selection's conjunctive predicates into SQL.
func (b *sqlBuilder) apply(preds []predicate.Predicate) error {
	for _, p := range preds {
		switch pred := p.(type) {
		case predicate.ScalarIn:
			col, ok := scalarColumns[pred.Dim]
			if !ok {
				return fmt.Errorf("no scalar column for dimension %q", pred.Dim)
			}
			b.add(fmt.Sprintf("%s = ANY($%d)", col, b.next()), pred.Values)
		case predicate.ArrayAny:
			col, ok := arrayColumns[pred.Dim]
			if !ok {
				return fmt.Errorf("no array column for dimension %q", pred.Dim)
			}
			b.add(fmt.Sprintf("%s && $%d", col, b.next()), pred.Values)
		case predicate.PriceBetween:
			if pred.Min != nil {
				b.add(fmt.Sprintf("sell_price >= $%d", b.next()), *pred.Min)
			}
			if pred.Max != nil {
				b.add(fmt.Sprintf("sell_price <= $%d", b.next()), *pred.Max)
			}
		default:
			return fmt.Errorf("unsupported predicate %T", p)
		}
	}
	return nil
}

// applyText compiles the disjunctive text admission check and returns the
// score expression. Both reference the same placeholders so score and
// filter can never disagree.
func (b *sqlBuilder) applyText(tq *predicate.TextQuery) string {
	if tq == nil || tq.Raw == "" {
		return "0"
	}

	qArg := b.next()
	b.args = append(b.args, tq.Raw)
	q := "$" + strconv.Itoa(qArg)

	branches := []string{
		fmt.Sprintf("lower(style_code) = lower(%s)", q),
		fmt.Sprintf("style_code ILIKE %s || '%%'", q),
		fmt.Sprintf("search_vector @@ plainto_tsquery('simple', %s)", q),
		fmt.Sprintf("similarity(style_name, %s) >= %g", q, query.SimilarityThreshold),
		fmt.Sprintf("similarity(brand_name, %s) >= %g", q, query.SimilarityThreshold),
	}
	score := []string{
		fmt.Sprintf("(CASE WHEN lower(style_code) = lower(%s) THEN %d ELSE 0 END)", q, query.WeightExactCode),
		fmt.Sprintf("(CASE WHEN search_vector @@ plainto_tsquery('simple', %s) THEN %d ELSE 0 END)", q, query.WeightFullText),
		fmt.Sprintf("floor(greatest(similarity(style_name, %s), similarity(brand_name, %s)) * %d)::int",
			q, q, query.WeightSimilarity),
	}

	if tq.BrandSlug != "" {
		arg := b.next()
		b.args = append(b.args, tq.BrandSlug)
		branches = append(branches, fmt.Sprintf("brand_slug = $%d", arg))
		score = append(score, fmt.Sprintf("(CASE WHEN brand_slug = $%d THEN %d ELSE 0 END)", arg, query.WeightBrand))
	}
	if tq.TypeSlug != "" {
		arg := b.next()
		b.args = append(b.args, tq.TypeSlug)
		branches = append(branches, fmt.Sprintf("product_type_slug = $%d", arg))
		score = append(score, fmt.Sprintf("(CASE WHEN product_type_slug = $%d THEN %d ELSE 0 END)", arg, query.WeightType))
	}

	b.conds = append(b.conds, "("+strings.Join(branches, " OR ")+")")
	return strings.Join(score, " + ")
}

// orderBy maps a sort key to its clause. Style code ascending is the
// unconditional final tie-break so pagination is stable under equal keys.
func orderBy(key domain.SortKey, desc bool, scored bool) string {
	dir := func(natural string) string {
		if desc {
			if natural == "ASC" {
				return "DESC"
			}
			return "ASC"
		}
		return natural
	}

	switch key {
	case domain.SortBest:
		if scored {
			return fmt.Sprintf("ORDER BY score %s, style_code ASC", dir("DESC"))
		}
		return fmt.Sprintf("ORDER BY created_at %s, style_code ASC", dir("DESC"))
	case domain.SortNewest:
		return fmt.Sprintf("ORDER BY created_at %s, style_code ASC", dir("DESC"))
	case domain.SortPrice:
		return fmt.Sprintf("ORDER BY sell_price %s, style_code ASC", dir("ASC"))
	case domain.SortName:
		return fmt.Sprintf("ORDER BY lower(style_name) %s, style_code ASC", dir("ASC"))
	case domain.SortBrand:
		return fmt.Sprintf("ORDER BY lower(brand_name) %s, style_code ASC", dir("ASC"))
	default:
		return fmt.Sprintf("ORDER BY style_code %s", dir("ASC"))
	}
}

// Select implements snapshot.Store.
func (s *Store) Select(ctx context.Context, sel snapshot.Selection) (*snapshot.CandidateSet, error) {
	b := &sqlBuilder{}
	if err := b.apply(sel.Predicates); err != nil {
		return nil, err
	}
	scoreExpr := b.applyText(sel.Text)

	limitArg := b.next()
	b.args = append(b.args, sel.Limit)
	offsetArg := b.next()
	b.args = append(b.args, sel.Offset)

	sql := fmt.Sprintf(`
		SELECT style_code,
			   %s AS score,
			   count(*) OVER() AS total_count
		FROM style_search
		%s
		%s
		LIMIT $%d OFFSET $%d`,
		scoreExpr, b.where(), orderBy(sel.Sort, sel.Desc, sel.Text != nil && sel.Text.Raw != ""),
		limitArg, offsetArg,
	)

	rows, err := s.pool.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, fmt.Errorf("select candidates: %w", err)
	}
	defer rows.Close()

	cs := &snapshot.CandidateSet{}
	for rows.Next() {
		var c snapshot.Candidate
		if err := rows.Scan(&c.Code, &c.Score, &cs.Total); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		cs.Candidates = append(cs.Candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}

	return cs, nil
}

// CountDimension implements snapshot.Store. Scalar dimensions group on the
// column; array dimensions unnest first. Each style contributes once per
// distinct value because array columns are deduplicated on rebuild.
func (s *Store) CountDimension(ctx context.Context, dim domain.Dimension, sel snapshot.Selection, topN int) ([]domain.FacetValue, error) {
	b := &sqlBuilder{}
	if err := b.apply(sel.Predicates); err != nil {
		return nil, err
	}
	b.applyText(sel.Text)

	var valueExpr, fromClause string
	if col, ok := scalarColumns[dim]; ok {
		valueExpr = col
		fromClause = "FROM style_search"
	} else if col, ok := arrayColumns[dim]; ok {
		valueExpr = "facet_value"
		fromClause = fmt.Sprintf("FROM style_search, unnest(%s) AS facet_value", col)
	} else {
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}

	where := b.where()
	nonEmpty := fmt.Sprintf("%s <> ''", valueExpr)
	if where == "" {
		where = "WHERE " + nonEmpty
	} else {
		where += " AND " + nonEmpty
	}

	dimArg := b.next()
	b.args = append(b.args, string(dim))
	limitArg := b.next()
	b.args = append(b.args, topN)

	sql := fmt.Sprintf(`
		SELECT v.slug,
			   COALESCE(max(fn.display_name), initcap(replace(v.slug, '-', ' '))) AS display_name,
			   v.cnt
		FROM (
			SELECT %s AS slug, count(*) AS cnt
			%s
			%s
			GROUP BY %s
		) v
		LEFT JOIN facet_names fn ON fn.dimension = $%d AND fn.slug = v.slug
		GROUP BY v.slug, v.cnt
		ORDER BY v.cnt DESC, v.slug ASC
		LIMIT $%d`,
		valueExpr, fromClause, where, valueExpr, dimArg, limitArg,
	)

	rows, err := s.pool.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, fmt.Errorf("count dimension %s: %w", dim, err)
	}
	defer rows.Close()

	var out []domain.FacetValue
	for rows.Next() {
		var fv domain.FacetValue
		if err := rows.Scan(&fv.Slug, &fv.Name, &fv.Count); err != nil {
			return nil, fmt.Errorf("scan facet row: %w", err)
		}
		out = append(out, fv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facet rows: %w", err)
	}

	return out, nil
}

// PriceRange implements snapshot.Store.
func (s *Store) PriceRange(ctx context.Context, sel snapshot.Selection) (*domain.PriceRange, error) {
	b := &sqlBuilder{}
	if err := b.apply(sel.Predicates); err != nil {
		return nil, err
	}
	b.applyText(sel.Text)

	sql := fmt.Sprintf(`
		SELECT COALESCE(min(sell_price), 0), COALESCE(max(sell_price), 0)
		FROM style_search
		%s`, b.where(),
	)

	pr := &domain.PriceRange{}
	if err := s.pool.QueryRow(ctx, sql, b.args...).Scan(&pr.Min, &pr.Max); err != nil {
		return nil, fmt.Errorf("price range: %w", err)
	}
	return pr, nil
}

// Lexicon implements snapshot.Store.
func (s *Store) Lexicon(ctx context.Context) (*snapshot.Lexicon, error) {
	lex := &snapshot.Lexicon{}

	brandSQL := `
		SELECT DISTINCT brand_name, brand_slug
		FROM style_search
		WHERE brand_slug <> ''
		ORDER BY brand_name`
	if err := s.queryEntries(ctx, brandSQL, &lex.Brands); err != nil {
		return nil, fmt.Errorf("brand lexicon: %w", err)
	}

	typeSQL := `
		SELECT DISTINCT product_type_name, product_type_slug
		FROM style_search
		WHERE product_type_slug <> ''
		ORDER BY product_type_name`
	if err := s.queryEntries(ctx, typeSQL, &lex.ProductTypes); err != nil {
		return nil, fmt.Errorf("product type lexicon: %w", err)
	}

	return lex, nil
}

func (s *Store) queryEntries(ctx context.Context, sql string, dst *[]snapshot.LexiconEntry) error {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e snapshot.LexiconEntry
		if err := rows.Scan(&e.Name, &e.Slug); err != nil {
			return err
		}
		*dst = append(*dst, e)
	}
	return rows.Err()
}

// Refresh implements snapshot.Refresher by invoking the in-database
// rebuild, which repopulates style_search from the authoritative styles
// and variants tables in one transaction.
func (s *Store) Refresh(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "SELECT rebuild_style_search()"); err != nil {
		return fmt.Errorf("rebuild style_search: %w", err)
	}
	return nil
}

// Ping implements snapshot.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Rows dumps the full style_search read model. It backs the in-memory
// snapshot store's loader when the service runs with SNAPSHOT_STORE=memory.
func (s *Store) Rows(ctx context.Context) ([]snapshot.Row, error) {
	sql := `
		SELECT style_code, style_name, brand_name, brand_slug,
			   product_type_name, product_type_slug,
			   gender_slug, age_group_slug, tag_slug, fit_slug,
			   colour_slugs, size_slugs,
			   sleeve_slugs, neckline_slugs, fabric_slugs, weight_slugs,
			   sector_slugs, sport_slugs, effect_slugs, accreditation_slugs,
			   style_keyword_slugs,
			   sell_price, image_url, created_at,
			   lower(style_code || ' ' || style_name || ' ' ||
					 brand_name || ' ' || product_type_name) AS search_text
		FROM style_search`

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("dump style_search: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Row
	for rows.Next() {
		var r snapshot.Row
		err := rows.Scan(
			&r.Code, &r.Name, &r.Brand, &r.BrandSlug,
			&r.ProductType, &r.ProductTypeSlug,
			&r.Gender, &r.AgeGroup, &r.Tag, &r.Fit,
			&r.Colours, &r.Sizes,
			&r.Sleeves, &r.Necklines, &r.Fabrics, &r.Weights,
			&r.Sectors, &r.Sports, &r.Effects, &r.Accreditations,
			&r.StyleKeywords,
			&r.SellPrice, &r.ImageURL, &r.CreatedAt,
			&r.SearchText,
		)
		if err != nil {
			return nil, fmt.Errorf("scan style_search row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate style_search rows: %w", err)
	}
	return out, nil
}
