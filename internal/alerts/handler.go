package alerts

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockwatch/internal/platform/httpx"
)

// Handler exposes the low-stock endpoint.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	companyIDName string
}

// NewHandler constructs the handler. companyParam names the chi URL parameter
// carrying the company id.
func NewHandler(logger *slog.Logger, service *Service, companyParam string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, companyIDName: companyParam}
}

// MountCompanyRoutes registers routes under /api/companies/{companyID}.
func (h *Handler) MountCompanyRoutes(r chi.Router) {
	r.Get("/alerts/low-stock", h.handleLowStock)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	companyID, err := httpx.IDParam(r, h.companyIDName)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := Query{CompanyID: companyID}
	params := r.URL.Query()
	if raw := params.Get("window_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "window_days must be a positive integer")
			return
		}
		q.WindowDays = days
	}
	if raw := params.Get("include_unknown_velocity"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "include_unknown_velocity must be a boolean")
			return
		}
		q.IncludeUnknownVelocity = include
	}

	env, err := h.service.LowStock(r.Context(), q)
	if err != nil {
		h.logger.Error("low stock alerts failed", slog.Int64("company_id", companyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, env)
}
