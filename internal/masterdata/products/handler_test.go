package products

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *memoryRepo) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/products", NewHandler(nil, NewService(repo, nil, nil)).MountRoutes)
	return r
}

func TestHandlerCreateProduct(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	body := `{"name":"Widget","sku":"W-1","price":"9.99","warehouse_id":7,"initial_quantity":"15"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Message   string `json:"message"`
		ProductID int64  `json:"product_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Product created", resp.Message)
	assert.Equal(t, int64(1), resp.ProductID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":"9.99"`)
}

func TestHandlerCreateProductValidation(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	cases := []string{
		`{"sku":"W-1"}`,
		`{"name":"Widget","sku":"W-1","price":"abc"}`,
		`{"name":"Widget","sku":"W-1","warehouse_id":7,"initial_quantity":"abc"}`,
		`not json`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	}
	assert.Empty(t, repo.products)
}

func TestHandlerShowMissingProduct(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(newMemoryRepo()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/42", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
