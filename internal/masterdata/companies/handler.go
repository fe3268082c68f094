package companies

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockwatch/internal/platform/httpx"
	"github.com/odyssey-erp/stockwatch/internal/shared"
)

// CompanyIDParam names the URL parameter used by company-scoped routes.
const CompanyIDParam = "companyID"

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

// MountRoutes registers company routes. Each scoped mount receives the
// /{companyID} subrouter so other modules can hang company-scoped endpoints off it.
func (h *Handler) MountRoutes(r chi.Router, scoped ...func(chi.Router)) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{"+CompanyIDParam+"}", func(r chi.Router) {
		r.Get("/", h.Show)
		for _, mount := range scoped {
			mount(r)
		}
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.List(r.Context(), shared.ParseListFilters(r.URL.Query()))
	if err != nil {
		h.logger.Error("list companies failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"companies": companies})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, CompanyIDParam)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	company, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	company, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Warn("create company failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("company created", slog.Int64("company_id", company.ID))
	httpx.JSON(w, http.StatusCreated, company)
}
