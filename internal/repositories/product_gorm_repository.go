package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"productapi/internal/models"
)

// productRecord is the row layout of the products table. Seq keeps insertion order,
// which the id alone does not once ids are reused after deletions.
type productRecord struct {
	ID        int             `gorm:"primaryKey;autoIncrement:false"`
	Seq       int64           `gorm:"not null;index"`
	Name      string          `gorm:"not null"`
	Color     string          `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:text;not null"`
	CreatedAt time.Time       `gorm:"autoCreateTime:false"`
	UpdatedAt *time.Time      `gorm:"autoUpdateTime:false"`
}

func (productRecord) TableName() string { return "products" }

func toRecord(p *models.Product) productRecord {
	return productRecord{
		ID:        p.ID,
		Name:      p.Name,
		Color:     p.Color,
		Price:     p.Price,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (rec productRecord) toModel() models.Product {
	p := models.Product{
		Name:  rec.Name,
		Color: rec.Color,
		Price: rec.Price,
	}
	p.ID = rec.ID
	p.CreatedAt = rec.CreatedAt.UTC()
	if rec.UpdatedAt != nil {
		updatedAt := rec.UpdatedAt.UTC()
		p.UpdatedAt = &updatedAt
	}
	return p
}

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGORMProductRepository creates a new instance of GORMProductRepository on db,
// migrating the products table and inserting seed rows exactly as given.
func NewGORMProductRepository(db *gorm.DB, seed ...models.Product) (*GORMProductRepository, error) {
	if err := db.AutoMigrate(&productRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate products table: %w", err)
	}

	r := &GORMProductRepository{
		db:  db,
		now: time.Now,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for i := range seed {
			rec := toRecord(&seed[i])
			rec.Seq = int64(i + 1)
			if err := tx.Save(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seed products: %w", err)
	}
	return r, nil
}

// OpenInMemorySQLite opens a private in-memory SQLite database. Its contents live only
// as long as the returned handle.
func OpenInMemorySQLite() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access in-memory database: %w", err)
	}
	// A single connection keeps the memory database alive and serialises writers.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)
	return db, nil
}

// Get retrieves a single product by its ID from the database.
func (r *GORMProductRepository) Get(ctx context.Context, id int) (*models.Product, bool, error) {
	var rec productRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}
	p := rec.toModel()
	return &p, true, nil
}

// GetAll retrieves all products from the database.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	return r.GetBy(ctx, ProductFilter{})
}

// GetBy retrieves the products matching filter.
func (r *GORMProductRepository) GetBy(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	var recs []productRecord
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	// SQLite's LOWER folds ASCII only, so matching happens here.
	products := make([]models.Product, 0, len(recs))
	for _, rec := range recs {
		p := rec.toModel()
		if filter.Matches(&p) {
			products = append(products, p)
		}
	}
	return products, nil
}

// Add creates a new product in the database.
func (r *GORMProductRepository) Add(ctx context.Context, product *models.Product) (int, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next struct {
			ID  int
			Seq int64
		}
		if err := tx.Model(&productRecord{}).
			Select("COALESCE(MAX(id), 0) + 1 AS id, COALESCE(MAX(seq), 0) + 1 AS seq").
			Scan(&next).Error; err != nil {
			return err
		}
		if next.ID < 1 {
			next.ID = 1
		}

		product.ID = next.ID
		product.CreatedAt = r.now().UTC()
		product.UpdatedAt = nil

		rec := toRecord(product)
		rec.Seq = next.Seq
		return tx.Create(&rec).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}
	return product.ID, nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing productRecord
		if err := tx.First(&existing, "id = ?", product.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		found = true

		updatedAt := r.now().UTC()
		product.CreatedAt = existing.CreatedAt.UTC()
		product.UpdatedAt = &updatedAt

		rec := toRecord(product)
		rec.Seq = existing.Seq
		return tx.Save(&rec).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to update product %d: %w", product.ID, err)
	}
	return found, nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(ctx context.Context, id int) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&productRecord{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete product %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
