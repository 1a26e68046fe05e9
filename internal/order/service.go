package order

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/pkg/api"
	"github.com/shoplab/order-coordination-go/pkg/httpx"
	"github.com/shoplab/order-coordination-go/pkg/logging"
)

// RouteClient is the coordinator leg of the saga.
type RouteClient interface {
	Route(ctx context.Context, userID, productID, quantity int) (api.Outcome, error)
}

// UserDirectory gates the purchases read path on user existence.
type UserDirectory interface {
	Exists(ctx context.Context, userID int) (bool, error)
}

type Service struct {
	ledger Ledger
	router RouteClient
	users  UserDirectory
	log    *zap.Logger
}

func NewService(ledger Ledger, router RouteClient, users UserDirectory, log *zap.Logger) *Service {
	return &Service{ledger: ledger, router: router, users: users, log: log}
}

// Result is the caller-visible outcome of one placement attempt.
type Result struct {
	Order   Order
	Outcome api.Outcome
}

// PlaceOrder runs the placement saga: record a PENDING ledger entry, ask the
// coordinator to decide, then finalize the order as PLACED or FAILED. The
// purchase accumulation is applied only on PLACED, inside Finalize, so a
// rejected or failed coordination never leaves ledger state implying a
// fulfilled order.
func (s *Service) PlaceOrder(ctx context.Context, userID, productID, quantity int) Result {
	if userID <= 0 || productID <= 0 || quantity <= 0 {
		return Result{Outcome: api.OutcomeInvalidRequest}
	}

	o := Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Status:    StatusPending,
	}
	if err := s.ledger.Record(ctx, o); err != nil {
		s.log.Error("record order failed", logging.OrderID(o.ID), zap.Error(err))
		return Result{Outcome: api.OutcomeInternalError}
	}

	start := time.Now()
	outcome, err := s.router.Route(ctx, userID, productID, quantity)
	if err != nil {
		s.log.Warn("coordinator unreachable", logging.OrderID(o.ID), zap.Error(err))
		outcome = api.OutcomeInternalError
	}

	o.Outcome = outcome
	if outcome == api.OutcomeApproved {
		o.Status = StatusPlaced
	} else {
		o.Status = StatusFailed
	}

	evt := api.OrderEvent{
		EventID:   uuid.NewString(),
		OrderID:   o.ID,
		Type:      api.EventOrderFailed,
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Outcome:   outcome,
	}
	if o.Status == StatusPlaced {
		evt.Type = api.EventOrderPlaced
	}

	if err := s.ledger.Finalize(ctx, o, evt); err != nil {
		// The stock decrement may already have happened; surface the fault
		// rather than pretend the order is in a clean state.
		s.log.Error("finalize order failed", logging.OrderID(o.ID), zap.Error(err))
		return Result{Order: o, Outcome: api.OutcomeInternalError}
	}

	s.log.Info("order finalized",
		logging.OrderID(o.ID),
		logging.Step("place_order"),
		logging.Status(string(o.Status)),
		logging.DurationMS(time.Since(start)),
	)
	return Result{Order: o, Outcome: outcome}
}

// GetPurchases returns the accumulated purchases of a user, keyed by
// product id. Unknown users are a NotFound, not an empty map.
func (s *Service) GetPurchases(ctx context.Context, userID int) (map[int]int, api.Outcome) {
	if userID <= 0 {
		return nil, api.OutcomeInvalidRequest
	}
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		s.log.Warn("user directory unreachable", zap.Int("user_id", userID), zap.Error(err))
		return nil, api.OutcomeInternalError
	}
	if !exists {
		return nil, api.OutcomeUserNotFound
	}
	purchases, err := s.ledger.Purchases(ctx, userID)
	if err != nil {
		s.log.Error("read purchases failed", zap.Int("user_id", userID), zap.Error(err))
		return nil, api.OutcomeInternalError
	}
	return purchases, api.OutcomeApproved
}

// HTTPRouteClient calls the coordinator's POST /route.
type HTTPRouteClient struct {
	c *httpx.Client
}

func NewHTTPRouteClient(baseURL string, timeout time.Duration) *HTTPRouteClient {
	return &HTTPRouteClient{c: httpx.NewClient(baseURL, timeout)}
}

func (r *HTTPRouteClient) Route(ctx context.Context, userID, productID, quantity int) (api.Outcome, error) {
	var status api.StatusResponse
	code, err := r.c.PostJSON(ctx, "/route",
		api.RouteRequest{UserID: userID, ProductID: productID, Quantity: quantity}, &status)
	if err != nil {
		return api.OutcomeInternalError, err
	}
	if code == http.StatusNotFound {
		// The status body disambiguates which owner reported the miss.
		if status.Status == "Product not found" {
			return api.OutcomeProductNotFound, nil
		}
		return api.OutcomeUserNotFound, nil
	}
	if code >= 500 {
		return api.OutcomeInternalError, fmt.Errorf("coordinator status %d: %w", code, httpx.ErrUnexpectedStatus)
	}
	return api.OutcomeFromStatus(code), nil
}
