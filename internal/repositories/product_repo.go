package repositories

import (
	"context"
	"strings"

	"productapi/internal/models"
)

// ProductFilter narrows a listing. An empty field places no constraint; a set field
// must match the stored value exactly, ignoring case.
type ProductFilter struct {
	Name  string
	Color string
}

// IsEmpty reports whether the filter places no constraint at all.
func (f ProductFilter) IsEmpty() bool {
	return f.Name == "" && f.Color == ""
}

// Matches reports whether p satisfies every set field of the filter, comparing with
// Unicode case folding.
func (f ProductFilter) Matches(p *models.Product) bool {
	if f.Name != "" && !strings.EqualFold(f.Name, p.Name) {
		return false
	}
	if f.Color != "" && !strings.EqualFold(f.Color, p.Color) {
		return false
	}
	return true
}

// ProductRepository defines the interface for product data access.
//
// Missing rows are reported through the boolean results, never through err.
// A non-nil err always means the store itself failed.
type ProductRepository interface {
	Get(ctx context.Context, id int) (*models.Product, bool, error)
	GetAll(ctx context.Context) ([]models.Product, error)
	GetBy(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	// Add assigns the next id (max existing id + 1), stamps CreatedAt in UTC, clears
	// UpdatedAt and returns the new id. The fields are also written back to product.
	Add(ctx context.Context, product *models.Product) (int, error)
	// Update replaces the row with product.ID, keeping its original CreatedAt and
	// stamping UpdatedAt. It returns false when no such row exists.
	Update(ctx context.Context, product *models.Product) (bool, error)
	Delete(ctx context.Context, id int) (bool, error)
}
