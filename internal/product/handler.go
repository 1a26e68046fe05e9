package product

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/pkg/api"
	"github.com/shoplab/order-coordination-go/pkg/httpx"
)

type Handler struct {
	store Store
	log   *zap.Logger
}

func NewHandler(store Store, log *zap.Logger) *Handler {
	return &Handler{store: store, log: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/product/{id}", h.getProduct)
	r.Post("/product", h.postProduct)
	r.Post("/product/deduct", h.deduct)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}
	p, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httpx.WriteStatus(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.log.Error("get product failed", zap.Int("product_id", id), zap.Error(err))
		httpx.WriteStatus(w, http.StatusInternalServerError, "Internal Error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payloadFor(p))
}

func (h *Handler) postProduct(w http.ResponseWriter, r *http.Request) {
	var req api.ProductPayload
	if err := httpx.ReadJSON(r, &req); err != nil || req.Command == "" || req.ID <= 0 {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}

	switch req.Command {
	case api.CommandCreate:
		h.create(w, r, req)
	case api.CommandUpdate:
		h.update(w, r, req)
	case api.CommandDelete:
		h.delete(w, r, req)
	default:
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, req api.ProductPayload) {
	if req.Name == nil || *req.Name == "" || req.Description == nil || *req.Description == "" ||
		req.Price == nil || req.Quantity == nil {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}
	if *req.Price <= 0 || *req.Quantity < 0 {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}
	p := Product{
		ID:          req.ID,
		Name:        *req.Name,
		Description: *req.Description,
		Price:       *req.Price,
		Quantity:    *req.Quantity,
	}
	err := h.store.Create(r.Context(), p)
	if errors.Is(err, ErrDuplicateID) {
		httpx.WriteStatus(w, http.StatusConflict, "Product already exists")
		return
	}
	if err != nil {
		h.log.Error("create product failed", zap.Int("product_id", req.ID), zap.Error(err))
		httpx.WriteStatus(w, http.StatusInternalServerError, "Internal Error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payloadFor(p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, req api.ProductPayload) {
	if (req.Name != nil && *req.Name == "") || (req.Description != nil && *req.Description == "") {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}
	if (req.Price != nil && *req.Price <= 0) || (req.Quantity != nil && *req.Quantity < 0) {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}
	p, err := h.store.Update(r.Context(), req.ID, req.Name, req.Description, req.Price, req.Quantity)
	if errors.Is(err, ErrNotFound) {
		httpx.WriteStatus(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.log.Error("update product failed", zap.Int("product_id", req.ID), zap.Error(err))
		httpx.WriteStatus(w, http.StatusInternalServerError, "Internal Error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payloadFor(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, req api.ProductPayload) {
	if req.Name == nil || req.Price == nil || req.Quantity == nil {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}
	p, err := h.store.Get(r.Context(), req.ID)
	if errors.Is(err, ErrNotFound) {
		httpx.WriteStatus(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.log.Error("delete product lookup failed", zap.Int("product_id", req.ID), zap.Error(err))
		httpx.WriteStatus(w, http.StatusInternalServerError, "Internal Error")
		return
	}
	if p.Name != *req.Name || p.Price != *req.Price || p.Quantity != *req.Quantity {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}
	if err := h.store.Delete(r.Context(), req.ID); err != nil {
		h.log.Error("delete product failed", zap.Int("product_id", req.ID), zap.Error(err))
		httpx.WriteStatus(w, http.StatusInternalServerError, "Internal Error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payloadFor(p))
}

// deduct is the conditional decrement the coordinator calls: it succeeds
// only when the remaining stock covers the requested quantity.
func (h *Handler) deduct(w http.ResponseWriter, r *http.Request) {
	var req api.DeductRequest
	if err := httpx.ReadJSON(r, &req); err != nil || req.ID <= 0 || req.Quantity <= 0 {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}
	remaining, err := h.store.Deduct(r.Context(), req.ID, req.Quantity)
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.WriteStatus(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, ErrInsufficientStock):
		httpx.WriteStatus(w, http.StatusConflict, "QuantityExceeded")
	case err != nil:
		h.log.Error("deduct failed", zap.Int("product_id", req.ID), zap.Error(err))
		httpx.WriteStatus(w, http.StatusInternalServerError, "Internal Error")
	default:
		httpx.WriteJSON(w, http.StatusOK, api.DeductResponse{ID: req.ID, Remaining: remaining, Status: "Success"})
	}
}

func payloadFor(p Product) api.ProductPayload {
	return api.ProductPayload{
		ID:          p.ID,
		Name:        &p.Name,
		Description: &p.Description,
		Price:       &p.Price,
		Quantity:    &p.Quantity,
	}
}
