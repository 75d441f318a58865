package repositories

import (
	"context"
	"sync"
	"time"

	"productapi/internal/models"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
// Listings come back in insertion order.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[int]models.Product
	order    []int
	now      func() time.Time
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
// Seed rows are stored exactly as given, ids and timestamps included; a repeated id
// replaces the earlier row in place.
func NewMemoryProductRepository(seed ...models.Product) *MemoryProductRepository {
	r := &MemoryProductRepository{
		products: make(map[int]models.Product, len(seed)),
		now:      time.Now,
	}
	for _, p := range seed {
		if _, ok := r.products[p.ID]; !ok {
			r.order = append(r.order, p.ID)
		}
		r.products[p.ID] = clone(p)
	}
	return r
}

// clone copies p so that no pointer is shared between the store and its callers.
func clone(p models.Product) models.Product {
	if p.UpdatedAt != nil {
		updatedAt := *p.UpdatedAt
		p.UpdatedAt = &updatedAt
	}
	return p
}

// Get returns a copy of the product with the given id.
func (r *MemoryProductRepository) Get(_ context.Context, id int) (*models.Product, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, false, nil
	}
	product = clone(product)
	return &product, true, nil
}

// GetAll returns all products.
func (r *MemoryProductRepository) GetAll(_ context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.order))
	for _, id := range r.order {
		productList = append(productList, clone(r.products[id]))
	}
	return productList, nil
}

// GetBy returns the products matching filter.
func (r *MemoryProductRepository) GetBy(_ context.Context, filter ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0)
	for _, id := range r.order {
		p := r.products[id]
		if filter.Matches(&p) {
			productList = append(productList, clone(p))
		}
	}
	return productList, nil
}

// Add stores a new product under the next free id.
func (r *MemoryProductRepository) Add(_ context.Context, product *models.Product) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := 1
	for existing := range r.products {
		if existing >= id {
			id = existing + 1
		}
	}

	product.ID = id
	product.CreatedAt = r.now().UTC()
	product.UpdatedAt = nil

	r.products[id] = *product
	r.order = append(r.order, id)
	return id, nil
}

// Update modifies an existing product.
func (r *MemoryProductRepository) Update(_ context.Context, product *models.Product) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return false, nil
	}

	updatedAt := r.now().UTC()
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = &updatedAt
	r.products[product.ID] = clone(*product)
	return true, nil
}

// Delete removes a product by its ID.
func (r *MemoryProductRepository) Delete(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return false, nil
	}
	delete(r.products, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}
