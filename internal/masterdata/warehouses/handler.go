package warehouses

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockwatch/internal/masterdata/companies"
	"github.com/odyssey-erp/stockwatch/internal/platform/httpx"
	"github.com/odyssey-erp/stockwatch/internal/shared"
)

// WarehouseIDParam names the URL parameter used by warehouse-scoped routes.
const WarehouseIDParam = "warehouseID"

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /api/warehouses routes; scoped mounts hang off /{warehouseID}.
func (h *Handler) MountRoutes(r chi.Router, scoped ...func(chi.Router)) {
	r.Post("/", h.Create)
	r.Route("/{"+WarehouseIDParam+"}", func(r chi.Router) {
		r.Get("/", h.Show)
		for _, mount := range scoped {
			mount(r)
		}
	})
}

// MountCompanyRoutes registers routes under /api/companies/{companyID}.
func (h *Handler) MountCompanyRoutes(r chi.Router) {
	r.Get("/warehouses", h.ListByCompany)
}

func (h *Handler) ListByCompany(w http.ResponseWriter, r *http.Request) {
	companyID, err := httpx.IDParam(r, companies.CompanyIDParam)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListByCompany(r.Context(), companyID, shared.ParseListFilters(r.URL.Query()))
	if err != nil {
		h.logger.Error("list warehouses failed", slog.Int64("company_id", companyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"warehouses": items})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, WarehouseIDParam)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	warehouse, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, warehouse)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateWarehouseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	warehouse, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Warn("create warehouse failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("warehouse created",
		slog.Int64("warehouse_id", warehouse.ID),
		slog.Int64("company_id", warehouse.CompanyID))
	httpx.JSON(w, http.StatusCreated, warehouse)
}
