package domain

// StyleSummary is one reconciled result item: the representative view of a
// style on a search or listing page.
type StyleSummary struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	ProductType string   `json:"productType"`
	Price       int64    `json:"price"`
	Colours     []string `json:"colours"`
	Sizes       []string `json:"sizes"`
	ImageURL    string   `json:"image,omitempty"`
}

// PriceRange bounds the sell prices of the full matching candidate set.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// SearchResponse is the assembled response for list and search requests.
// SizeAdjusted is set when strict post-filtering dropped candidates from
// the page's window; Total is then lowered by the observed drops so the
// pagination contract stays consistent.
type SearchResponse struct {
	Items        []StyleSummary `json:"items"`
	Page         int            `json:"page"`
	Limit        int            `json:"limit"`
	Total        int            `json:"total"`
	PriceRange   PriceRange     `json:"priceRange"`
	SizeAdjusted bool           `json:"sizeAdjusted,omitempty"`
}

// FacetValue is one value of a facet dimension with its result count.
type FacetValue struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// FacetResponse carries per-dimension facet counts for the sidebar.
type FacetResponse struct {
	Filters map[Dimension][]FacetValue `json:"filters"`
}

// StyleDetail is the fully hydrated view of a single style.
type StyleDetail struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Brand       string     `json:"brand"`
	ProductType string     `json:"productType"`
	PriceRange  PriceRange `json:"priceRange"`
	Variants    []Variant  `json:"variants"`
}
