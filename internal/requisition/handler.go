package requisition

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

// Handler wires HTTP endpoints for the requisition module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers requisition routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Post("/lines/{lineID}/cancel", h.handleCancelLine)
}

type lineForm struct {
	Kind        string  `json:"kind" validate:"required,oneof=MATERIAL SERVICE EQUIPMENT PPE"`
	ItemID      int64   `json:"item_id"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Unit        string  `json:"unit" validate:"required"`
	Qty         float64 `json:"qty" validate:"required,gt=0"`
}

type createForm struct {
	Number            string     `json:"number"`
	FrontID           int64      `json:"front_id" validate:"required,gt=0"`
	BlockID           int64      `json:"block_id"`
	SpecialtyID       int64      `json:"specialty_id"`
	FrontSpecialtyID  int64      `json:"front_specialty_id"`
	RequestedBy       int64      `json:"requested_by" validate:"required,gt=0"`
	Note              string     `json:"note"`
	ConfirmOverBudget bool       `json:"confirm_over_budget"`
	Lines             []lineForm `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var form createForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateInput{
		Number:            form.Number,
		FrontID:           form.FrontID,
		BlockID:           form.BlockID,
		SpecialtyID:       form.SpecialtyID,
		FrontSpecialtyID:  form.FrontSpecialtyID,
		RequestedBy:       form.RequestedBy,
		Note:              form.Note,
		ConfirmOverBudget: form.ConfirmOverBudget,
	}
	for _, l := range form.Lines {
		input.Lines = append(input.Lines, LineInput{
			Kind:        shared.ItemKind(l.Kind),
			ItemID:      l.ItemID,
			Description: l.Description,
			Category:    l.Category,
			Unit:        l.Unit,
			Qty:         l.Qty,
		})
	}
	result, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid requisition id")
		return
	}
	req, lines, svcErr := h.service.Get(r.Context(), id)
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requisition": req, "lines": lines})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	frontID, err := strconv.ParseInt(r.URL.Query().Get("front_id"), 10, 64)
	if err != nil || frontID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "front_id is required")
		return
	}
	reqs, svcErr := h.service.ListByFront(r.Context(), frontID)
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, reqs)
}

func (h *Handler) handleCancelLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid line id")
		return
	}
	if svcErr := h.service.CancelLine(r.Context(), lineID); svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOverBudget):
		httpx.Problem(w, http.StatusConflict, "Over Budget", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("requisition request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}
