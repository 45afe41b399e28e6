package reports

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/obrastock/obrastock/internal/platform/httpx"
)

// Handler wires HTTP endpoints for reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock", h.handleStock)
	r.Get("/consumption", h.handleConsumption)
}

func (h *Handler) handleStock(w http.ResponseWriter, r *http.Request) {
	filter := StockFilter{Category: r.URL.Query().Get("category")}
	if raw := r.URL.Query().Get("front_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid front_id")
			return
		}
		filter.FrontID = id
	}
	rows, err := h.service.StockSummary(r.Context(), filter)
	if err != nil {
		h.logger.Error("stock report failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) handleConsumption(w http.ResponseWriter, r *http.Request) {
	frontID, err := strconv.ParseInt(r.URL.Query().Get("front_id"), 10, 64)
	if err != nil || frontID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "front_id is required")
		return
	}
	rows, svcErr := h.service.FrontConsumption(r.Context(), frontID)
	if svcErr != nil {
		h.logger.Error("consumption report failed", slog.Any("error", svcErr))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}
