package domain

import (
	"time"
)

// VariantStatus is the lifecycle state of a sellable variant.
type VariantStatus string

const (
	VariantLive         VariantStatus = "live"
	VariantPending      VariantStatus = "pending"
	VariantDiscontinued VariantStatus = "discontinued"
)

// Style is the canonical product entity: the unit of ranking and pagination.
// A style aggregates one or more size×colour variants.
type Style struct {
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	Brand           string    `json:"brand"`
	BrandSlug       string    `json:"brand_slug"`
	ProductType     string    `json:"product_type"`
	ProductTypeSlug string    `json:"product_type_slug"`
	CreatedAt       time.Time `json:"created_at"`
	Variants        []Variant `json:"variants,omitempty"`
}

// Live reports whether the style has at least one live variant.
func (s *Style) Live() bool {
	for i := range s.Variants {
		if s.Variants[i].Status == VariantLive {
			return true
		}
	}
	return false
}

// Variant is a specific sellable size/colour combination of a style.
// Prices are integer pence. SellPrice is derived from CostPrice by the
// pricing collaborator and consumed read-only on the query path.
type Variant struct {
	SKU           string        `json:"sku"`
	StyleCode     string        `json:"style_code"`
	ColourName    string        `json:"colour_name"`
	PrimaryColour string        `json:"primary_colour"`
	ColourShade   string        `json:"colour_shade"`
	Size          string        `json:"size"`
	CostPrice     int64         `json:"cost_price"`
	SellPrice     int64         `json:"sell_price"`
	Status        VariantStatus `json:"status"`
	ImageURL      string        `json:"image_url"`
}
