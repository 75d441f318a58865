package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"productapi/internal/handlers"
	"productapi/internal/middleware"
	"productapi/internal/models"
	"productapi/internal/repositories"
	"productapi/internal/services"
)

const (
	apiKeyHeader = "x-api-key"
	apiKey       = "d48b3f23-c609-4247-a9ee-f315d856664e"
	baseURL      = "/products"
)

// setupApp sets up a Fiber app for testing over the given repository.
func setupApp(repo repositories.ProductRepository) *fiber.App {
	log := zap.NewNop()
	productService := services.NewProductService(repo, nil, log)
	productHandler := handlers.NewProductHandler(productService, log)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log)})
	productHandler.RegisterRoutes(app, middleware.APIKeyAuth(apiKeyHeader, apiKey, log))
	return app
}

// seededApp returns an app over a store preloaded with the demo catalogue.
func seededApp() *fiber.App {
	return setupApp(repositories.NewMemoryProductRepository(repositories.DemoProducts()...))
}

func do(t *testing.T, app *fiber.App, method, target string, body any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(apiKeyHeader, apiKey)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func productIDs(products []models.Product) []int {
	ids := make([]int, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func newProductBody() map[string]any {
	return map[string]any{"name": "Test Product", "color": "White", "price": 9.9}
}

func TestGetAll_MediaTypeApplicationJSON(t *testing.T) {
	resp := do(t, seededApp(), http.MethodGet, baseURL, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON))
}

func TestGetAll_HasProducts(t *testing.T) {
	resp := do(t, seededApp(), http.MethodGet, baseURL, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	products := decode[[]models.Product](t, resp)
	expected := repositories.DemoProducts()
	require.Len(t, products, len(expected))
	for i := range expected {
		assert.Equal(t, expected[i].ID, products[i].ID)
		assert.Equal(t, expected[i].Name, products[i].Name)
		assert.Equal(t, expected[i].Color, products[i].Color)
		assert.True(t, expected[i].Price.Equal(products[i].Price))
		assert.True(t, expected[i].CreatedAt.Equal(products[i].CreatedAt))
		assert.Nil(t, products[i].UpdatedAt)
	}
}

func TestGetAll_NoProducts(t *testing.T) {
	app := setupApp(repositories.NewMemoryProductRepository())

	resp := do(t, app, http.MethodGet, baseURL, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestGetAll_Filters(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{"existing color ignores case", "?color=rEd", []int{1}},
		{"unknown color", "?color=FFEE00", []int{}},
		{"name", "?name=coat", []int{5}},
		{"name and color", "?name=Coat&color=Red", []int{}},
		{"blank filters list everything", "?name=%20&color=", []int{1, 2, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, seededApp(), http.MethodGet, baseURL+tt.query, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			products := decode[[]models.Product](t, resp)
			assert.Equal(t, tt.want, productIDs(products))
		})
	}
}

func TestGetByID(t *testing.T) {
	app := seededApp()

	resp := do(t, app, http.MethodGet, baseURL+"/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	product := decode[models.Product](t, resp)
	assert.Equal(t, 3, product.ID)
	assert.Equal(t, "Belt", product.Name)

	resp = do(t, app, http.MethodGet, baseURL+"/99999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, app, http.MethodGet, baseURL+"/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEntityJSONShape(t *testing.T) {
	resp := do(t, seededApp(), http.MethodGet, baseURL+"/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":1,"createdAt":"2024-08-10T00:00:00Z","updatedAt":null,"name":"Shirt","color":"Red","price":1.9}`,
		string(raw))
}

func TestCreate_Valid(t *testing.T) {
	app := seededApp()

	resp := do(t, app, http.MethodPost, baseURL, newProductBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	location := resp.Header.Get(fiber.HeaderLocation)
	assert.Equal(t, "/products/6", location)

	resp = do(t, app, http.MethodGet, location, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decode[models.Product](t, resp)
	assert.Equal(t, 6, created.ID)
	assert.Equal(t, "Test Product", created.Name)
	assert.Equal(t, "White", created.Color)
	assert.True(t, decimal.RequireFromString("9.9").Equal(created.Price))
	assert.False(t, created.CreatedAt.IsZero())
	assert.Nil(t, created.UpdatedAt)
}

func TestCreate_IgnoresClientIdentity(t *testing.T) {
	app := seededApp()
	body := newProductBody()
	body["id"] = 1
	body["createdAt"] = "2000-01-01T00:00:00Z"

	resp := do(t, app, http.MethodPost, baseURL, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/products/6", resp.Header.Get(fiber.HeaderLocation))

	resp = do(t, app, http.MethodGet, baseURL+"/1", nil)
	original := decode[models.Product](t, resp)
	assert.Equal(t, "Shirt", original.Name)
}

func TestCreate_InvalidPrice(t *testing.T) {
	app := seededApp()
	body := newProductBody()
	body["price"] = -1

	resp := do(t, app, http.MethodPost, baseURL, body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	errs := decode[handlers.ErrorResponse](t, resp)
	require.Len(t, errs.Errors, 1)
	assert.Contains(t, errs.Errors[0], "Price")

	resp = do(t, app, http.MethodGet, baseURL, nil)
	assert.Len(t, decode[[]models.Product](t, resp), 5)
}

func TestCreate_ReportsEveryViolation(t *testing.T) {
	resp := do(t, seededApp(), http.MethodPost, baseURL, map[string]any{"name": "", "color": "", "price": 0})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	errs := decode[handlers.ErrorResponse](t, resp)
	assert.Len(t, errs.Errors, 4)
}

func TestCreate_MalformedBody(t *testing.T) {
	app := seededApp()

	req := httptest.NewRequest(http.MethodPost, baseURL, strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, apiKey)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"internal server error"}`, string(raw))
}

func TestUpdate_Existing(t *testing.T) {
	app := seededApp()
	body := map[string]any{"name": "New Shirt", "color": "White", "price": 9.9}

	resp := do(t, app, http.MethodPut, baseURL+"/1", body)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	location := resp.Header.Get(fiber.HeaderLocation)
	assert.Equal(t, "/products/1", location)

	resp = do(t, app, http.MethodGet, location, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[models.Product](t, resp)
	assert.Equal(t, 1, updated.ID)
	assert.Equal(t, "New Shirt", updated.Name)
	assert.Equal(t, "White", updated.Color)
	assert.True(t, decimal.RequireFromString("9.9").Equal(updated.Price))
	assert.True(t, repositories.DemoProducts()[0].CreatedAt.Equal(updated.CreatedAt))
	require.NotNil(t, updated.UpdatedAt)
}

func TestUpdate_NonExisting(t *testing.T) {
	resp := do(t, seededApp(), http.MethodPut, baseURL+"/99999", newProductBody())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdate_InvalidBeatsNotFound(t *testing.T) {
	body := newProductBody()
	body["name"] = "x"

	resp := do(t, seededApp(), http.MethodPut, baseURL+"/99999", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	errs := decode[handlers.ErrorResponse](t, resp)
	assert.NotEmpty(t, errs.Errors)
}

func TestDelete(t *testing.T) {
	app := seededApp()

	resp := do(t, app, http.MethodDelete, baseURL+"/1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, app, http.MethodGet, baseURL+"/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, app, http.MethodDelete, baseURL+"/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, app, http.MethodDelete, baseURL+"/99999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductEndpointsAuth(t *testing.T) {
	app := seededApp()

	for _, tc := range []struct {
		method string
		target string
	}{
		{http.MethodGet, baseURL},
		{http.MethodGet, baseURL + "/1"},
		{http.MethodPost, baseURL},
		{http.MethodPut, baseURL + "/1"},
		{http.MethodDelete, baseURL + "/1"},
	} {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			// Test without key
			req := httptest.NewRequest(tc.method, tc.target, nil)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			resp.Body.Close()

			// Test with a wrong key
			req = httptest.NewRequest(tc.method, tc.target, nil)
			req.Header.Set(apiKeyHeader, "wrong-"+apiKey)
			resp, err = app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			raw, _ := io.ReadAll(resp.Body)
			assert.Empty(t, raw)
			resp.Body.Close()

			// Test with the header present but empty
			req = httptest.NewRequest(tc.method, tc.target, nil)
			req.Header["X-Api-Key"] = []string{""}
			resp, err = app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			resp.Body.Close()
		})
	}

	// Rejected mutations leave the store untouched.
	resp := do(t, app, http.MethodGet, baseURL+"/1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGORMStore_EndToEnd(t *testing.T) {
	db, err := repositories.OpenInMemorySQLite()
	require.NoError(t, err)
	repo, err := repositories.NewGORMProductRepository(db, repositories.DemoProducts()...)
	require.NoError(t, err)
	app := setupApp(repo)

	resp := do(t, app, http.MethodPost, baseURL, newProductBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	location := resp.Header.Get(fiber.HeaderLocation)

	resp = do(t, app, http.MethodGet, baseURL+"?color=white", nil)
	products := decode[[]models.Product](t, resp)
	require.Len(t, products, 1)
	assert.Equal(t, location, baseURL+"/"+strconv.Itoa(products[0].ID))
}
