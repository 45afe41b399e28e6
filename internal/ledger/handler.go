package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/obrastock/obrastock/internal/allocation"
	"github.com/obrastock/obrastock/internal/observability"
	"github.com/obrastock/obrastock/internal/platform/httpx"
	"github.com/obrastock/obrastock/internal/requisition"
	"github.com/obrastock/obrastock/internal/shared"
)

// Handler wires HTTP endpoints for the warehouse ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, metrics: metrics, validator: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/receipts", h.handleReceipt)
	r.Post("/exits", h.handleExit)
	r.Get("/entries", h.handleListEntries)
	r.Get("/entries/{id}", h.handleGetEntry)
	r.Get("/lines/{lineID}/free", h.handleFree)
	r.Get("/order-lines/{lineID}/pending", h.handlePending)
	r.Get("/active-orders", h.handleActiveOrders)
	r.Post("/requisitions/{id}/recompute", h.handleRecompute)
}

type receiptForm struct {
	RequisitionLineID int64   `json:"requisition_line_id" validate:"required,gt=0"`
	Code              string  `json:"code"`
	Qty               float64 `json:"qty" validate:"required,gt=0"`
	Source            string  `json:"source" validate:"required,oneof=PURCHASE_ORDER PETTY_CASH"`
	OrderID           int64   `json:"order_id"`
	Destination       string  `json:"destination"`
	ActorID           int64   `json:"actor_id" validate:"required,gt=0"`
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	var form receiptForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.ApplyReceipt(r.Context(), ReceiptInput{
		RequisitionLineID: form.RequisitionLineID,
		Code:              form.Code,
		Quantity:          form.Qty,
		Source:            SourceType(form.Source),
		OrderID:           form.OrderID,
		Destination:       form.Destination,
		ActorID:           form.ActorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.metrics.ObserveReceipt(form.Source)
	httpx.JSON(w, http.StatusCreated, result)
}

type exitForm struct {
	Kind          string  `json:"kind" validate:"required,oneof=MATERIAL SERVICE EQUIPMENT PPE"`
	ItemID        int64   `json:"item_id"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	Qty           float64 `json:"qty" validate:"required,gt=0"`
	RequisitionID int64   `json:"requisition_id"`
	Destination   string  `json:"destination" validate:"required"`
	ActorID       int64   `json:"actor_id" validate:"required,gt=0"`
}

func (h *Handler) handleExit(w http.ResponseWriter, r *http.Request) {
	var form exitForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.RegisterExit(r.Context(), ExitInput{
		Item: shared.ItemRef{
			Kind:        shared.ItemKind(form.Kind),
			ID:          form.ItemID,
			Description: form.Description,
			Category:    form.Category,
		},
		Quantity:      form.Qty,
		RequisitionID: form.RequisitionID,
		Destination:   form.Destination,
		ActorID:       form.ActorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	var filter EntryFilter
	if raw := r.URL.Query().Get("requisition_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid requisition_id")
			return
		}
		filter.RequisitionID = id
	}
	if raw := r.URL.Query().Get("direction"); raw != "" {
		filter.Direction = Direction(raw)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid limit")
			return
		}
		filter.Limit = limit
	}
	entries, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, svcErr := h.service.GetEntry(r.Context(), id)
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) handleFree(w http.ResponseWriter, r *http.Request) {
	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid line id")
		return
	}
	free, warnings, svcErr := h.service.FreeToPurchase(r.Context(), lineID)
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"free_qty": free, "warnings": warnings})
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order line id")
		return
	}
	requisitionID, err := strconv.ParseInt(r.URL.Query().Get("requisition_id"), 10, 64)
	if err != nil || requisitionID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "requisition_id is required")
		return
	}
	pending, svcErr := h.service.PendingForOrderLine(r.Context(), requisitionID, lineID)
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"pending_qty": pending})
}

type orderLineView struct {
	ID            int64   `json:"id"`
	RequestLineID int64   `json:"request_line_id"`
	Qty           float64 `json:"qty"`
}

type orderView struct {
	ID        int64           `json:"id"`
	Number    string          `json:"number"`
	Status    string          `json:"status"`
	OrderDate time.Time       `json:"order_date"`
	Lines     []orderLineView `json:"lines"`
}

func toOrderViews(orders []allocation.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		view := orderView{
			ID:        o.ID,
			Number:    o.Number,
			Status:    string(o.Status),
			OrderDate: o.OrderDate,
			Lines:     make([]orderLineView, 0, len(o.Lines)),
		}
		for _, l := range o.Lines {
			view.Lines = append(view.Lines, orderLineView{ID: l.ID, RequestLineID: l.RequestLineID, Qty: l.Quantity})
		}
		views = append(views, view)
	}
	return views
}

func (h *Handler) handleActiveOrders(w http.ResponseWriter, r *http.Request) {
	requisitionID, err := strconv.ParseInt(r.URL.Query().Get("requisition_id"), 10, 64)
	if err != nil || requisitionID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "requisition_id is required")
		return
	}
	orders, warnings, svcErr := h.service.ActiveOrders(r.Context(), requisitionID)
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": toOrderViews(orders), "warnings": warnings})
}

func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid requisition id")
		return
	}
	changed, svcErr := h.service.RecomputeFulfilled(r.Context(), id)
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"repaired": changed})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, shared.ErrValidation), errors.Is(err, allocation.ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrExceedsPending), errors.Is(err, ErrExceedsFree), errors.Is(err, ErrOrderNotOpen), errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, requisition.ErrNotFound), errors.Is(err, allocation.ErrLineNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}
