// Package repository defines the read contracts over the authoritative
// catalog tables. The snapshot answers "which styles match"; this layer
// answers "what are those styles right now".
package repository

import (
	"context"

	"github.com/brandeduk/catalog/internal/domain"
)

// StyleReader reads authoritative style and variant state.
type StyleReader interface {
	// GetByCode returns one style with all of its variants regardless of
	// status. Returns apperrors.ErrNotFound when the code is unknown.
	GetByCode(ctx context.Context, code string) (*domain.Style, error)

	// BatchByCodes returns the styles for the given codes with their live
	// variants only, keyed by style code. Codes with no live variants are
	// absent from the map; callers treat absence as a reconciliation miss.
	BatchByCodes(ctx context.Context, codes []string) (map[string]*domain.Style, error)
}
