package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/stockwatch/internal/alerts"
	"github.com/odyssey-erp/stockwatch/internal/inventory"
	"github.com/odyssey-erp/stockwatch/internal/masterdata/companies"
	"github.com/odyssey-erp/stockwatch/internal/masterdata/products"
	"github.com/odyssey-erp/stockwatch/internal/masterdata/suppliers"
	"github.com/odyssey-erp/stockwatch/internal/masterdata/warehouses"
	"github.com/odyssey-erp/stockwatch/internal/observability"
	"github.com/odyssey-erp/stockwatch/internal/platform/httpx"
	"github.com/odyssey-erp/stockwatch/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	// Health reports readiness of backing stores; nil means always healthy.
	Health func(r *http.Request) error

	CompaniesHandler  *companies.Handler
	WarehousesHandler *warehouses.Handler
	SuppliersHandler  *suppliers.Handler
	ProductsHandler   *products.Handler
	InventoryHandler  *inventory.Handler
	AlertsHandler     *alerts.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with stockwatch defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Health != nil {
			if err := params.Health(r); err != nil {
				httpx.Problem(w, http.StatusServiceUnavailable, "Unhealthy", err.Error())
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		var companyScoped []func(chi.Router)
		if params.WarehousesHandler != nil {
			companyScoped = append(companyScoped, params.WarehousesHandler.MountCompanyRoutes)
		}
		if params.AlertsHandler != nil {
			companyScoped = append(companyScoped, params.AlertsHandler.MountCompanyRoutes)
		}
		if params.CompaniesHandler != nil {
			r.Route("/companies", func(r chi.Router) {
				params.CompaniesHandler.MountRoutes(r, companyScoped...)
			})
		}
		if params.WarehousesHandler != nil {
			var warehouseScoped []func(chi.Router)
			if params.InventoryHandler != nil {
				warehouseScoped = append(warehouseScoped, params.InventoryHandler.MountWarehouseRoutes)
			}
			r.Route("/warehouses", func(r chi.Router) {
				params.WarehousesHandler.MountRoutes(r, warehouseScoped...)
			})
		}
		if params.SuppliersHandler != nil {
			r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		}
		if params.ProductsHandler != nil {
			r.Route("/products", params.ProductsHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" not allowed on "+r.URL.Path)
	})

	return r
}
