// Package filter turns raw query-string input into the canonical filter
// specification. Everything downstream (planner, facets, cache keys)
// assumes input has passed through here exactly once.
package filter

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/brandeduk/catalog/internal/domain"
	apperrors "github.com/brandeduk/catalog/pkg/errors"
	"github.com/brandeduk/catalog/pkg/slug"
)

// paramAliases maps every accepted query parameter name to its dimension.
// Aliases exist for the spellings historic clients still send.
var paramAliases = map[string]domain.Dimension{
	"gender":         domain.DimGender,
	"ageGroup":       domain.DimAgeGroup,
	"age":            domain.DimAgeGroup,
	"tag":            domain.DimTag,
	"fit":            domain.DimFit,
	"brand":          domain.DimBrand,
	"productType":    domain.DimProductType,
	"type":           domain.DimProductType,
	"sleeve":         domain.DimSleeve,
	"neckline":       domain.DimNeckline,
	"fabric":         domain.DimFabric,
	"size":           domain.DimSize,
	"colour":         domain.DimColour,
	"color":          domain.DimColour,
	"weight":         domain.DimWeight,
	"sector":         domain.DimSector,
	"sport":          domain.DimSport,
	"effect":         domain.DimEffect,
	"accreditation":  domain.DimAccreditation,
	"accreditations": domain.DimAccreditation,
	"styleKeyword":   domain.DimStyleKeyword,
	"keyword":        domain.DimStyleKeyword,
}

// Normalize parses and validates query-string values into a canonical
// specification. Values are slug-normalized and deduplicated; the same
// dimension reached via an alias and its primary name merges into one
// value set. Prices arrive as decimal pounds and are held as pence.
func Normalize(values url.Values) (*domain.FilterSpec, error) {
	spec := &domain.FilterSpec{
		Query: strings.TrimSpace(firstOf(values, "q", "query")),
		Sort:  domain.SortBest,
	}

	for param, dim := range paramAliases {
		raw := values[param]
		if len(raw) == 0 {
			continue
		}
		vals := slug.NormalizeSet(splitAll(raw))
		if len(vals) == 0 {
			continue
		}
		if spec.Dimensions == nil {
			spec.Dimensions = map[domain.Dimension][]string{}
		}
		spec.Dimensions[dim] = mergeSets(spec.Dimensions[dim], vals)
	}

	var err error
	if spec.PriceMin, err = parsePrice(firstOf(values, "priceMin", "minPrice"), "priceMin"); err != nil {
		return nil, err
	}
	if spec.PriceMax, err = parsePrice(firstOf(values, "priceMax", "maxPrice"), "priceMax"); err != nil {
		return nil, err
	}
	if spec.PriceMin != nil && spec.PriceMax != nil && *spec.PriceMin > *spec.PriceMax {
		return nil, apperrors.InvalidInput("priceMin must not exceed priceMax")
	}

	if err := parseSort(values, spec); err != nil {
		return nil, err
	}

	if spec.Query == "" && spec.Sort == domain.SortBest {
		// Relevance is undefined without a text query.
		spec.Sort = domain.SortNewest
		spec.Desc = false
	}

	return spec, nil
}

func parseSort(values url.Values, spec *domain.FilterSpec) error {
	raw := strings.TrimSpace(values.Get("sort"))
	if raw == "" {
		return nil
	}

	if rest, ok := strings.CutPrefix(raw, "-"); ok {
		raw = rest
		spec.Desc = true
	}
	key := domain.SortKey(strings.ToLower(raw))
	if !domain.ValidSortKey(key) {
		return apperrors.InvalidInput("unknown sort key: " + raw)
	}
	spec.Sort = key

	switch strings.ToLower(values.Get("order")) {
	case "":
	case "asc":
		spec.Desc = false
	case "desc":
		spec.Desc = true
	default:
		return apperrors.InvalidInput("order must be asc or desc")
	}
	return nil
}

// parsePrice converts decimal pounds to integer pence without going
// through float arithmetic.
func parsePrice(raw, param string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	whole, frac, _ := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	pounds, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || pounds < 0 || strings.HasPrefix(whole, "-") {
		return nil, apperrors.InvalidInput(param + " must be a non-negative amount")
	}

	var pennies int64
	if frac != "" {
		if len(frac) > 2 {
			return nil, apperrors.InvalidInput(param + " must have at most two decimal places")
		}
		for len(frac) < 2 {
			frac += "0"
		}
		pennies, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || pennies < 0 {
			return nil, apperrors.InvalidInput(param + " must be a non-negative amount")
		}
	}

	pence := pounds*100 + pennies
	return &pence, nil
}

func firstOf(values url.Values, params ...string) string {
	for _, p := range params {
		if v := values.Get(p); v != "" {
			return v
		}
	}
	return ""
}

// splitAll expands repeated parameters and comma-separated lists.
func splitAll(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			out = append(out, part)
		}
	}
	return out
}

func mergeSets(existing, extra []string) []string {
	if existing == nil {
		return extra
	}
	seen := map[string]bool{}
	for _, v := range existing {
		seen[v] = true
	}
	for _, v := range extra {
		if !seen[v] {
			seen[v] = true
			existing = append(existing, v)
		}
	}
	return existing
}
