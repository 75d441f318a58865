package app

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"productapi/internal/config"
	"productapi/internal/handlers"
	"productapi/internal/middleware"
	"productapi/internal/models"
	"productapi/internal/repositories"
	"productapi/internal/services"
)

// ServiceName labels logs and metrics.
const ServiceName = "productapi"

// Deps carries everything the HTTP app is built from.
type Deps struct {
	Config *config.Config
	Log    *zap.Logger
	Repo   repositories.ProductRepository

	// Publisher is optional; leave it nil to disable product events.
	Publisher services.EventPublisher

	// Registry receives the request metrics. A fresh registry is created when nil.
	Registry *prometheus.Registry
}

// New builds the Fiber app serving the product API, /health and, when enabled, /metrics.
func New(deps Deps) *fiber.App {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               ServiceName,
		DisableStartupMessage: true,
		ErrorHandler:          handlers.ErrorHandler(deps.Log),
	})

	setupMiddleware(app, deps)
	setupMetrics(app, deps)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	productService := services.NewProductService(deps.Repo, deps.Publisher, deps.Log)
	productHandler := handlers.NewProductHandler(productService, deps.Log)
	productHandler.RegisterRoutes(app,
		middleware.APIKeyAuth(deps.Config.APIKeyHeader, deps.Config.APIKey, deps.Log),
	)

	return app
}

func setupMiddleware(app *fiber.App, deps Deps) {
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.RequestLogger(deps.Log))
	app.Use(recover.New())
}

func setupMetrics(app *fiber.App, deps Deps) {
	if !deps.Config.MetricsEnabled {
		return
	}

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	metrics := middleware.NewMetrics(reg)
	app.Use(metrics.Handler(ServiceName))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}

// NewRepository opens the product store selected by cfg.StoreDriver, seeded with the
// demo catalogue when cfg.StoreSeed is set.
func NewRepository(cfg *config.Config) (repositories.ProductRepository, error) {
	var seed []models.Product
	if cfg.StoreSeed {
		seed = repositories.DemoProducts()
	}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		return repositories.NewMemoryProductRepository(seed...), nil
	case config.StoreSQLite:
		db, err := repositories.OpenInMemorySQLite()
		if err != nil {
			return nil, err
		}
		repo, err := repositories.NewGORMProductRepository(db, seed...)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
