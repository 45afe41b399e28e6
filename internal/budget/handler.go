package budget

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/obrastock/obrastock/internal/platform/httpx"
	"github.com/obrastock/obrastock/internal/shared"
)

// Handler wires HTTP endpoints for the budget module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers budget routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreateEntry)
	r.Get("/check", h.handleCheck)
	r.Get("/report", h.handleReport)
}

type entryForm struct {
	FrontSpecialtyID int64   `json:"front_specialty_id" validate:"required,gt=0"`
	ItemKind         string  `json:"item_kind" validate:"required,oneof=MATERIAL SERVICE EQUIPMENT PPE"`
	ItemID           int64   `json:"item_id"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	Budgeted         float64 `json:"budgeted_qty" validate:"required,gt=0"`
}

func (h *Handler) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var form entryForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.CreateEntry(r.Context(), Entry{
		FrontSpecialtyID: form.FrontSpecialtyID,
		Item: shared.ItemRef{
			Kind:        shared.ItemKind(form.ItemKind),
			ID:          form.ItemID,
			Description: form.Description,
			Category:    form.Category,
		},
		Budgeted: form.Budgeted,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	frontSpecialtyID, _ := strconv.ParseInt(q.Get("front_specialty_id"), 10, 64)
	itemID, _ := strconv.ParseInt(q.Get("item_id"), 10, 64)
	requested, _ := strconv.ParseFloat(q.Get("requested_qty"), 64)
	pendingInForm, _ := strconv.ParseFloat(q.Get("pending_in_form_qty"), 64)
	item := shared.ItemRef{
		Kind:        shared.ItemKind(q.Get("item_kind")),
		ID:          itemID,
		Description: q.Get("description"),
		Category:    q.Get("category"),
	}
	if item.Kind == "" {
		item.Kind = shared.ItemMaterial
	}
	result, err := h.service.Check(r.Context(), frontSpecialtyID, item, requested, pendingInForm)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	frontSpecialtyID, err := strconv.ParseInt(r.URL.Query().Get("front_specialty_id"), 10, 64)
	if err != nil || frontSpecialtyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "front_specialty_id is required")
		return
	}
	rows, svcErr := h.service.Report(r.Context(), frontSpecialtyID)
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("budget request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}
