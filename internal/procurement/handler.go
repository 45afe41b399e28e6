package procurement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/obrastock/obrastock/internal/platform/httpx"
	"github.com/obrastock/obrastock/internal/requisition"
	"github.com/obrastock/obrastock/internal/shared"
)

// Handler wires HTTP endpoints for the procurement module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/requests", h.handleCreateRequest)
	r.Get("/requests/{id}", h.handleGetRequest)
	r.Post("/requests/{id}/submit", h.handleSubmitRequest)
	r.Post("/orders", h.handleCreateOrder)
	r.Get("/orders/{id}", h.handleGetOrder)
	r.Post("/orders/{id}/cancel", h.handleCancelOrder)
	r.Post("/orders/{id}/receive", h.handleReceiveOrder)
}

type requestLineForm struct {
	RequisitionLineID int64   `json:"requisition_line_id" validate:"required,gt=0"`
	Qty               float64 `json:"qty" validate:"required,gt=0"`
}

type createRequestForm struct {
	RequisitionID int64             `json:"requisition_id" validate:"required,gt=0"`
	Number        string            `json:"number"`
	Note          string            `json:"note"`
	Lines         []requestLineForm `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var form createRequestForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateRequestInput{RequisitionID: form.RequisitionID, Number: form.Number, Note: form.Note}
	for _, l := range form.Lines {
		input.Lines = append(input.Lines, RequestLineInput{RequisitionLineID: l.RequisitionLineID, Qty: l.Qty})
	}
	req, lines, err := h.service.CreateRequest(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"request": req, "lines": lines})
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request id")
		return
	}
	req, lines, svcErr := h.service.GetRequest(r.Context(), id)
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"request": req, "lines": lines})
}

func (h *Handler) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request id")
		return
	}
	if svcErr := h.service.SubmitRequest(r.Context(), id); svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(RequestStatusSubmitted)})
}

type orderLineForm struct {
	RequestLineID int64   `json:"request_line_id" validate:"required,gt=0"`
	Qty           float64 `json:"qty" validate:"required,gt=0"`
	Price         float64 `json:"price" validate:"gte=0"`
}

type createOrderForm struct {
	Number     string          `json:"number"`
	SupplierID int64           `json:"supplier_id" validate:"required,gt=0"`
	OrderDate  string          `json:"order_date"`
	Note       string          `json:"note"`
	Lines      []orderLineForm `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var form createOrderForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateOrderInput{Number: form.Number, SupplierID: form.SupplierID, Note: form.Note}
	if form.OrderDate != "" {
		parsed, err := time.Parse("2006-01-02", form.OrderDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "order_date must be YYYY-MM-DD")
			return
		}
		input.OrderDate = parsed
	}
	for _, l := range form.Lines {
		input.Lines = append(input.Lines, OrderLineInput{RequestLineID: l.RequestLineID, Qty: l.Qty, Price: l.Price})
	}
	order, err := h.service.CreateOrder(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	order, svcErr := h.service.GetOrder(r.Context(), id)
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	if svcErr := h.service.CancelOrder(r.Context(), id); svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) handleReceiveOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	if svcErr := h.service.MarkOrderReceived(r.Context(), id); svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, requisition.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, requisition.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("procurement request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}
