package register

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/pos-register/internal/common"
)

// Handler wires the register service to HTTP.
type Handler struct {
	Svc             *Service
	DefaultDiscount int
}

type openRequest struct {
	Discount *int `json:"discount" validate:"omitempty,min=0,max=100"`
}

type addItemRequest struct {
	Item      string `json:"item" validate:"required,max=200"`
	UnitPrice Money  `json:"unitPrice" validate:"min=0,max=100000000000"`
	Quantity  int    `json:"quantity" validate:"min=0,max=10000"`
}

type discountResponse struct {
	DiscountResult
	Register Snapshot `json:"register"`
}

type voidResponse struct {
	Voided      bool         `json:"voided"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Register    Snapshot     `json:"register"`
}

// Routes mounts the register endpoints. write wraps the mutating routes
// (e.g. with idempotency middleware).
func (h *Handler) Routes(r chi.Router, write ...func(http.Handler) http.Handler) {
	r.Get("/registers", h.List)
	r.Get("/registers/{id}", h.Get)
	r.Group(func(g chi.Router) {
		g.Use(write...)
		g.Post("/registers", h.Open)
		g.Post("/registers/{id}/items", h.AddItem)
		g.Post("/registers/{id}/discount", h.ApplyDiscount)
		g.Post("/registers/{id}/void", h.VoidLast)
		g.Delete("/registers/{id}", h.Close)
	})
}

// Open creates a register. The discount defaults to the configured value.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var payload openRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	discount := h.DefaultDiscount
	if payload.Discount != nil {
		discount = *payload.Discount
	}
	snap, err := h.Svc.Open(r.Context(), discount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/registers/"+snap.ID.String())
	common.Data(w, http.StatusCreated, snap)
}

// List returns all open registers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	list, err := h.Svc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, list)
}

// Get returns a register snapshot.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.registerID(w, r)
	if !ok {
		return
	}
	snap, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, snap)
}

// AddItem records a purchase.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.registerID(w, r)
	if !ok {
		return
	}
	var payload addItemRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	snap, err := h.Svc.AddItem(r.Context(), id, strings.TrimSpace(payload.Item), payload.UnitPrice, payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, snap)
}

// ApplyDiscount applies the register's discount. A register without a
// discount answers 200 with applied=false.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.registerID(w, r)
	if !ok {
		return
	}
	res, snap, err := h.Svc.ApplyDiscount(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, discountResponse{DiscountResult: res, Register: snap})
}

// VoidLast reverses the most recent purchase. Voiding an empty register
// answers 200 with voided=false.
func (h *Handler) VoidLast(w http.ResponseWriter, r *http.Request) {
	id, ok := h.registerID(w, r)
	if !ok {
		return
	}
	tx, voided, snap, err := h.Svc.VoidLast(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := voidResponse{Voided: voided, Register: snap}
	if voided {
		resp.Transaction = &tx
	}
	common.Data(w, http.StatusOK, resp)
}

// Close drops a register.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := h.registerID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Close(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) configured(w http.ResponseWriter) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) registerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if !h.configured(w) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid register id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.WriteError(w, common.NotFound("register not found", err))
	case errors.Is(err, ErrInvalidInput):
		common.WriteError(w, common.BadRequest(err.Error(), err))
	case errors.Is(err, ErrTooManyRegisters):
		common.WriteError(w, common.Conflict("too many open registers", err))
	default:
		common.WriteError(w, err)
	}
}
