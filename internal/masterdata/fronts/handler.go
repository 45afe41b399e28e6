package fronts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/obrastock/obrastock/internal/masterdata/shared"
	"github.com/obrastock/obrastock/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers front routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Post("/{id}/blocks", h.AddBlock)
	r.Get("/specialties", h.ListSpecialties)
	r.Post("/{id}/specialties/{specialtyID}", h.LinkSpecialty)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid front id")
		return
	}
	front, blocks, svcErr := h.service.Get(r.Context(), id)
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"front": front, "blocks": blocks})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var form struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	front, err := h.service.Create(r.Context(), Front{Code: form.Code, Name: form.Name})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, front)
}

func (h *Handler) AddBlock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid front id")
		return
	}
	var form struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	block, svcErr := h.service.AddBlock(r.Context(), Block{FrontID: id, Code: form.Code, Name: form.Name})
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusCreated, block)
}

func (h *Handler) ListSpecialties(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListSpecialties(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) LinkSpecialty(w http.ResponseWriter, r *http.Request) {
	frontID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid front id")
		return
	}
	specialtyID, err := strconv.ParseInt(chi.URLParam(r, "specialtyID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid specialty id")
		return
	}
	link, svcErr := h.service.LinkSpecialty(r.Context(), frontID, specialtyID)
	if svcErr != nil {
		h.respondError(w, svcErr)
		return
	}
	httpx.JSON(w, http.StatusCreated, link)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrRequiredField), errors.Is(err, shared.ErrInvalidID), errors.Is(err, shared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("fronts request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
