// Package api holds the wire contracts shared by the order front-end, the
// coordinator, and the user/product services, plus the outcome taxonomy they
// map between.
package api

import "net/http"

// Commands accepted on the POST endpoints.
const (
	CommandPlaceOrder = "place order"
	CommandCreate     = "create"
	CommandUpdate     = "update"
	CommandDelete     = "delete"
)

// PlaceOrderRequest is the POST /order payload.
type PlaceOrderRequest struct {
	Command   string `json:"command"`
	UserID    int    `json:"user_id"`
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderResponse is the 200 body for a placed order.
type PlaceOrderResponse struct {
	ID        string `json:"id"`
	UserID    int    `json:"user_id"`
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status"`
}

// StatusResponse is the body of every non-200 reply.
type StatusResponse struct {
	Status string `json:"status"`
}

// RouteRequest is the POST /route payload sent by the order front-end.
type RouteRequest struct {
	UserID    int `json:"user_id"`
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// DeductRequest is the POST /product/deduct payload: decrement quantity
// atomically if the remaining stock allows it.
type DeductRequest struct {
	ID       int `json:"id"`
	Quantity int `json:"quantity"`
}

// DeductResponse reports the stock left after a successful deduct.
type DeductResponse struct {
	ID        int    `json:"id"`
	Remaining int    `json:"remaining"`
	Status    string `json:"status"`
}

// UserPayload is the POST /user command payload and the GET /user/{id} body.
// Pointer fields distinguish absent from empty on partial updates.
type UserPayload struct {
	Command  string  `json:"command,omitempty"`
	ID       int     `json:"id"`
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// ProductPayload is the POST /product command payload and the
// GET /product/{id} body. Pointer fields distinguish absent from zero on
// partial updates, matching the update semantics of the product service.
type ProductPayload struct {
	Command     string   `json:"command,omitempty"`
	ID          int      `json:"id"`
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Quantity    *int     `json:"quantity,omitempty"`
}

// Outcome is the coordination result taxonomy. Every component maps its own
// faults to the nearest kind and returns immediately; nothing is retried.
type Outcome string

const (
	OutcomeApproved         Outcome = "Approved"
	OutcomeInvalidRequest   Outcome = "InvalidRequest"
	OutcomeUserNotFound     Outcome = "UserNotFound"
	OutcomeProductNotFound  Outcome = "ProductNotFound"
	OutcomeQuantityExceeded Outcome = "QuantityExceeded"
	OutcomeInternalError    Outcome = "InternalError"
)

// HTTPStatus maps an outcome onto the status code it travels as.
func (o Outcome) HTTPStatus() int {
	switch o {
	case OutcomeApproved:
		return http.StatusOK
	case OutcomeInvalidRequest:
		return http.StatusBadRequest
	case OutcomeUserNotFound, OutcomeProductNotFound:
		return http.StatusNotFound
	case OutcomeQuantityExceeded:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// OutcomeFromStatus is the reverse mapping used by HTTP clients. A 404 cannot
// distinguish user from product, so callers that care pass through the
// response message instead.
func OutcomeFromStatus(code int) Outcome {
	switch {
	case code >= 200 && code < 300:
		return OutcomeApproved
	case code == http.StatusBadRequest:
		return OutcomeInvalidRequest
	case code == http.StatusNotFound:
		return OutcomeUserNotFound
	case code == http.StatusConflict:
		return OutcomeQuantityExceeded
	default:
		return OutcomeInternalError
	}
}

// Order lifecycle event types published through the outbox.
const (
	EventOrderPlaced = "order.placed"
	EventOrderFailed = "order.failed"
)

// OrderEvent is the message relayed to the events topic when an order
// reaches a terminal status.
type OrderEvent struct {
	EventID   string  `json:"event_id"`
	OrderID   string  `json:"order_id"`
	Type      string  `json:"type"`
	UserID    int     `json:"user_id"`
	ProductID int     `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Outcome   Outcome `json:"outcome"`
}
