package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brandeduk/catalog/internal/filter"
	"github.com/brandeduk/catalog/internal/service"
	"github.com/brandeduk/catalog/pkg/httputil"
	"github.com/brandeduk/catalog/pkg/pagination"
	"github.com/brandeduk/catalog/pkg/validator"
)

// CatalogHandler handles the browsing, search, facet, and admin endpoints.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

// List handles GET /api/v1/styles. The same endpoint serves plain listing
// and free-text search: presence of q switches the ranking.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	spec, err := filter.Normalize(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	page := pagination.FromRequest(r)

	payload, err := h.service.Search(r.Context(), spec, page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteRaw(w, http.StatusOK, payload)
}

// Facets handles GET /api/v1/styles/facets.
func (h *CatalogHandler) Facets(w http.ResponseWriter, r *http.Request) {
	spec, err := filter.Normalize(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	payload, err := h.service.Facets(r.Context(), spec)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteRaw(w, http.StatusOK, payload)
}

// Style handles GET /api/v1/styles/{code}.
func (h *CatalogHandler) Style(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))

	payload, err := h.service.Style(r.Context(), code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteRaw(w, http.StatusOK, payload)
}

// InvalidateRequest is the JSON request body for manual invalidation.
type InvalidateRequest struct {
	Reason string `json:"reason" validate:"omitempty,oneof=updated repriced reordered manual"`
}

// Invalidate handles POST /api/v1/admin/invalidate.
func (h *CatalogHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	req := InvalidateRequest{Reason: "manual"}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
				Code:    "INVALID_INPUT",
				Message: "invalid request body: " + err.Error(),
			})
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.Invalidate(r.Context(), req.Reason); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "reason": req.Reason})
}

// RefreshSnapshot handles POST /api/v1/admin/snapshot/refresh.
func (h *CatalogHandler) RefreshSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefreshSnapshot(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
