// Package coordinator decides whether an order intent is valid and, if so,
// performs the stock decrement. It owns no durable state: user existence and
// inventory are answered by their owning services.
package coordinator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/pkg/api"
	"github.com/shoplab/order-coordination-go/pkg/logging"
)

// UserDirectory answers the only question the coordinator has about users.
type UserDirectory interface {
	Exists(ctx context.Context, userID int) (bool, error)
}

// Inventory performs the conditional stock decrement. Implementations must
// make the check-and-write atomic; the coordinator never reads stock and
// writes it back in separate steps.
type Inventory interface {
	Deduct(ctx context.Context, productID, quantity int) (remaining int, err error)
}

// Sentinel errors an Inventory implementation reports as decisions rather
// than faults.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Router struct {
	users     UserDirectory
	inventory Inventory
	log       *zap.Logger
}

func NewRouter(users UserDirectory, inventory Inventory, log *zap.Logger) *Router {
	return &Router{users: users, inventory: inventory, log: log}
}

// Route runs the decision sequence, short-circuiting on the first failure:
// validate the intent, confirm the user exists, then deduct stock in one
// atomic step. A network or downstream fault at any leg maps to
// InternalError and is not retried; retry policy belongs to the caller.
func (r *Router) Route(ctx context.Context, userID, productID, quantity int) api.Outcome {
	start := time.Now()
	outcome := r.route(ctx, userID, productID, quantity)
	r.log.Info("route decided",
		zap.Int("user_id", userID),
		zap.Int("product_id", productID),
		zap.Int("quantity", quantity),
		logging.Status(string(outcome)),
		logging.DurationMS(time.Since(start)),
	)
	return outcome
}

func (r *Router) route(ctx context.Context, userID, productID, quantity int) api.Outcome {
	if userID <= 0 || productID <= 0 || quantity <= 0 {
		return api.OutcomeInvalidRequest
	}

	exists, err := r.users.Exists(ctx, userID)
	if err != nil {
		r.log.Warn("user directory unreachable", zap.Int("user_id", userID), zap.Error(err))
		return api.OutcomeInternalError
	}
	if !exists {
		return api.OutcomeUserNotFound
	}

	_, err = r.inventory.Deduct(ctx, productID, quantity)
	switch {
	case errors.Is(err, ErrProductNotFound):
		return api.OutcomeProductNotFound
	case errors.Is(err, ErrInsufficientStock):
		return api.OutcomeQuantityExceeded
	case err != nil:
		r.log.Warn("inventory deduct failed", zap.Int("product_id", productID), zap.Error(err))
		return api.OutcomeInternalError
	}
	return api.OutcomeApproved
}
