package repositories

import (
	"time"

	"github.com/shopspring/decimal"

	"productapi/internal/models"
)

// DemoProducts returns the demo catalogue used to seed a store.
func DemoProducts() []models.Product {
	createdAt := time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC)
	product := func(id int, name, color, price string) models.Product {
		p := models.Product{
			Name:  name,
			Color: color,
			Price: decimal.RequireFromString(price),
		}
		p.ID = id
		p.CreatedAt = createdAt
		return p
	}

	return []models.Product{
		product(1, "Shirt", "Red", "1.9"),
		product(2, "Pants", "Blue", "2.8"),
		product(3, "Belt", "Green", "3.7"),
		product(4, "Shoes", "Yellow", "4.6"),
		product(5, "Coat", "Black", "5.5"),
	}
}
