package order

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shoplab/order-coordination-go/pkg/api"
	"github.com/shoplab/order-coordination-go/pkg/httpx"
	"github.com/shoplab/order-coordination-go/pkg/metrics"
)

type Handler struct {
	svc     *Service
	metrics *metrics.ServerMetrics
}

func NewHandler(svc *Service, m *metrics.ServerMetrics) *Handler {
	return &Handler{svc: svc, metrics: m}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/order", h.placeOrder)
	r.Get("/user/purchased/{id}", h.getPurchases)
}

func failureMessage(o api.Outcome) string {
	switch o {
	case api.OutcomeInvalidRequest:
		return "Invalid Request"
	case api.OutcomeUserNotFound, api.OutcomeProductNotFound:
		return "Not Found"
	case api.OutcomeQuantityExceeded:
		return "Exceeded quantity limit"
	default:
		return "Internal Error"
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req api.PlaceOrderRequest
	if err := httpx.ReadJSON(r, &req); err != nil || req.Command != api.CommandPlaceOrder {
		h.metrics.ObserveOutcome(api.OutcomeInvalidRequest)
		httpx.WriteStatus(w, http.StatusBadRequest, failureMessage(api.OutcomeInvalidRequest))
		return
	}

	res := h.svc.PlaceOrder(r.Context(), req.UserID, req.ProductID, req.Quantity)
	h.metrics.ObserveOutcome(res.Outcome)
	if res.Outcome != api.OutcomeApproved {
		httpx.WriteStatus(w, res.Outcome.HTTPStatus(), failureMessage(res.Outcome))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, api.PlaceOrderResponse{
		ID:        res.Order.ID,
		UserID:    res.Order.UserID,
		ProductID: res.Order.ProductID,
		Quantity:  res.Order.Quantity,
		Status:    "Success",
	})
}

func (h *Handler) getPurchases(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteStatus(w, http.StatusBadRequest, failureMessage(api.OutcomeInvalidRequest))
		return
	}
	purchases, outcome := h.svc.GetPurchases(r.Context(), id)
	if outcome != api.OutcomeApproved {
		httpx.WriteStatus(w, outcome.HTTPStatus(), failureMessage(outcome))
		return
	}
	// Keys are product ids rendered as strings, empty object when the user
	// has bought nothing.
	body := make(map[string]int, len(purchases))
	for productID, qty := range purchases {
		body[strconv.Itoa(productID)] = qty
	}
	httpx.WriteJSON(w, http.StatusOK, body)
}
