package inventory

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockwatch/internal/platform/httpx"
	"github.com/odyssey-erp/stockwatch/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger          *slog.Logger
	service         *Service
	warehouseIDName string
}

// NewHandler constructs inventory handler. warehouseParam names the chi URL
// parameter carrying the warehouse id on warehouse-scoped routes.
func NewHandler(logger *slog.Logger, service *Service, warehouseParam string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, warehouseIDName: warehouseParam}
}

// MountRoutes registers /api/inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/movements", h.handleMovement)
	r.Post("/transfers", h.handleTransfer)
}

// MountWarehouseRoutes registers routes nested under a warehouse.
func (h *Handler) MountWarehouseRoutes(r chi.Router) {
	r.Get("/inventory", h.handleLevels)
	r.Get("/inventory/{productID}/transactions", h.handleStockCard)
}

func (h *Handler) handleMovement(w http.ResponseWriter, r *http.Request) {
	var input MovementInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.PostMovement(r.Context(), input)
	if err != nil {
		h.logger.Warn("inventory movement rejected",
			slog.Int64("warehouse_id", input.WarehouseID),
			slog.Int64("product_id", input.ProductID),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var input TransferInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, in, err := h.service.PostTransfer(r.Context(), input)
	if err != nil {
		h.logger.Warn("inventory transfer rejected", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"out": out, "in": in})
}

func (h *Handler) handleLevels(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := httpx.IDParam(r, h.warehouseIDName)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	levels, err := h.service.ListLevels(r.Context(), warehouseID, shared.ParseListFilters(r.URL.Query()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"warehouse_id": warehouseID, "inventory": levels})
}

func (h *Handler) handleStockCard(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := httpx.IDParam(r, h.warehouseIDName)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	productID, err := httpx.IDParam(r, "productID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := StockCardFilter{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Limit:       shared.ParseListFilters(r.URL.Query()).Limit,
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse("2006-01-02", since)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "since must be YYYY-MM-DD")
			return
		}
		filter.Since = t
	}
	entries, err := h.service.GetStockCard(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": entries})
}
