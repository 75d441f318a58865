package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"productapi/internal/models"
	"productapi/internal/repositories"
	"productapi/internal/validation"
)

// EventPublisher delivers serialised product events to a broker.
type EventPublisher interface {
	Publish(eventType string, body []byte) error
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	validator *validation.ProductValidator
	publisher EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

// NewProductService creates a new ProductService. publisher may be nil, in which case
// no events are emitted.
func NewProductService(repo repositories.ProductRepository, publisher EventPublisher, log *zap.Logger) *ProductService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductService{
		repo:      repo,
		validator: validation.NewProductValidator(),
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// ListProducts returns every product, or only those matching filter when it is set.
func (s *ProductService) ListProducts(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, error) {
	if filter.IsEmpty() {
		return s.repo.GetAll(ctx)
	}
	return s.repo.GetBy(ctx, filter)
}

// GetProduct retrieves a single product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	product, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// CreateProduct validates input and stores it as a new product, returning its id.
func (s *ProductService) CreateProduct(ctx context.Context, input models.ProductInput) (int, error) {
	product := input.ToProduct()
	if errs := s.validator.Validate(product); len(errs) > 0 {
		return 0, &ValidationError{Errors: errs}
	}

	id, err := s.repo.Add(ctx, product)
	if err != nil {
		return 0, err
	}
	s.log.Debug("product created", zap.Int("id", id))

	s.publish(models.EventProductCreated, id, product)
	return id, nil
}

// UpdateProduct replaces the product with the given id. Validation runs before the
// existence check, so an invalid body is reported even for an unknown id.
func (s *ProductService) UpdateProduct(ctx context.Context, id int, input models.ProductInput) error {
	product := input.ToProduct()
	if errs := s.validator.Validate(product); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	product.ID = id
	ok, err := s.repo.Update(ctx, product)
	if err != nil {
		return err
	}
	if !ok {
		return ErrProductNotFound
	}
	s.log.Debug("product updated", zap.Int("id", id))

	s.publish(models.EventProductUpdated, id, product)
	return nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id int) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrProductNotFound
	}
	s.log.Debug("product deleted", zap.Int("id", id))

	s.publish(models.EventProductDeleted, id, nil)
	return nil
}

// publish emits a product event. Failures are logged and never fail the caller.
func (s *ProductService) publish(eventType string, id int, product *models.Product) {
	if s.publisher == nil {
		return
	}

	body, err := json.Marshal(models.ProductEvent{
		Type:       eventType,
		ProductID:  id,
		Product:    product,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.log.Warn("failed to marshal product event", zap.String("type", eventType), zap.Error(err))
		return
	}

	if err := s.publisher.Publish(eventType, body); err != nil {
		s.log.Warn("failed to publish product event",
			zap.String("type", eventType),
			zap.Int("id", id),
			zap.Error(fmt.Errorf("publish %s: %w", eventType, err)),
		)
	}
}
