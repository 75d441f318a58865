package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a product in the store.
type Product struct {
	BaseEntity
	Name  string          `json:"name"`
	Color string          `json:"color"`
	Price decimal.Decimal `json:"price"`
}

// ProductInput is the request body accepted when creating or replacing a product.
// Identity and timestamps are never taken from the client.
type ProductInput struct {
	Name  string          `json:"name"`
	Color string          `json:"color"`
	Price decimal.Decimal `json:"price"`
}

// ToProduct maps the input onto a fresh Product with no identity.
func (in ProductInput) ToProduct() *Product {
	return &Product{
		Name:  in.Name,
		Color: in.Color,
		Price: in.Price,
	}
}

// Product event types published after a successful mutation.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// ProductEvent describes a change to the product catalogue.
type ProductEvent struct {
	Type       string    `json:"type"`
	ProductID  int       `json:"productId"`
	Product    *Product  `json:"product,omitempty"` // nil for deletions
	OccurredAt time.Time `json:"occurredAt"`
}
