package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"productapi/internal/models"
	"productapi/internal/repositories"
	"productapi/internal/services"
)

// RouteGetProduct names the get-by-id route; Location headers are built from it.
const RouteGetProduct = "products.get"

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
	log     *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the product routes under router. Every handler passed in
// auth runs before the product handlers.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth ...fiber.Handler) {
	productRoutes := router.Group("/products", auth...)
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID).Name(RouteGetProduct)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleGetProducts lists products, optionally filtered by exact name and color.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	filter := repositories.ProductFilter{
		Name:  strings.TrimSpace(c.Query("name")),
		Color: strings.TrimSpace(c.Query("color")),
	}

	products, err := h.service.ListProducts(c.UserContext(), filter)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		c.Status(fiber.StatusBadRequest)
		return nil
	}

	product, err := h.service.GetProduct(c.UserContext(), id)
	if errors.Is(err, services.ErrProductNotFound) {
		c.Status(fiber.StatusNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get product %d: %w", id, err)
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a new product and points Location at it.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var input models.ProductInput
	if err := c.BodyParser(&input); err != nil {
		h.log.Warn("error parsing create request body", zap.Error(err))
		return errMalformedBody
	}

	id, err := h.service.CreateProduct(c.UserContext(), input)
	if err != nil {
		return h.mutationError(c, err, "create product")
	}

	if err := h.setLocation(c, id); err != nil {
		return err
	}
	c.Status(fiber.StatusCreated)
	return nil
}

// HandleUpdateProduct replaces an existing product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		c.Status(fiber.StatusBadRequest)
		return nil
	}

	var input models.ProductInput
	if err := c.BodyParser(&input); err != nil {
		h.log.Warn("error parsing update request body", zap.Int("id", id), zap.Error(err))
		return errMalformedBody
	}

	if err := h.service.UpdateProduct(c.UserContext(), id, input); err != nil {
		return h.mutationError(c, err, fmt.Sprintf("update product %d", id))
	}

	if err := h.setLocation(c, id); err != nil {
		return err
	}
	c.Status(fiber.StatusAccepted)
	return nil
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		c.Status(fiber.StatusBadRequest)
		return nil
	}

	if err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			c.Status(fiber.StatusNotFound)
			return nil
		}
		return fmt.Errorf("delete product %d: %w", id, err)
	}

	c.Status(fiber.StatusNoContent)
	return nil
}

// ErrorResponse is the body of a 400 response.
type ErrorResponse struct {
	Errors []string `json:"errors"`
}

// mutationError maps service errors from create and update onto responses.
func (h *ProductHandler) mutationError(c *fiber.Ctx, err error, op string) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Errors: verr.Errors})
	case errors.Is(err, services.ErrProductNotFound):
		c.Status(fiber.StatusNotFound)
		return nil
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (h *ProductHandler) setLocation(c *fiber.Ctx, id int) error {
	location, err := c.GetRouteURL(RouteGetProduct, fiber.Map{"id": id})
	if err != nil {
		return fmt.Errorf("build location for product %d: %w", id, err)
	}
	c.Location(location)
	return nil
}
