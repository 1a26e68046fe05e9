package coordinator

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shoplab/order-coordination-go/pkg/api"
	"github.com/shoplab/order-coordination-go/pkg/httpx"
	"github.com/shoplab/order-coordination-go/pkg/metrics"
)

type Handler struct {
	router  *Router
	metrics *metrics.ServerMetrics
}

func NewHandler(router *Router, m *metrics.ServerMetrics) *Handler {
	return &Handler{router: router, metrics: m}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/route", h.route)
}

var outcomeMessages = map[api.Outcome]string{
	api.OutcomeApproved:         "Success",
	api.OutcomeInvalidRequest:   "Missing required fields",
	api.OutcomeUserNotFound:     "User not found",
	api.OutcomeProductNotFound:  "Product not found",
	api.OutcomeQuantityExceeded: "QuantityExceeded",
	api.OutcomeInternalError:    "Internal Error",
}

func (h *Handler) route(w http.ResponseWriter, r *http.Request) {
	var req api.RouteRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		h.metrics.ObserveOutcome(api.OutcomeInvalidRequest)
		httpx.WriteStatus(w, http.StatusBadRequest, outcomeMessages[api.OutcomeInvalidRequest])
		return
	}
	outcome := h.router.Route(r.Context(), req.UserID, req.ProductID, req.Quantity)
	h.metrics.ObserveOutcome(outcome)
	httpx.WriteStatus(w, outcome.HTTPStatus(), outcomeMessages[outcome])
}
