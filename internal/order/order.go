// Package order implements the order front-end: the append-only order
// ledger with its purchase accumulation, and the placement saga that drives
// a pending order through the coordinator to a terminal status.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/shoplab/order-coordination-go/pkg/api"
)

type Status string

const (
	// StatusPending marks an order recorded before the coordinator has
	// decided; it is never caller-visible as a terminal state.
	StatusPending Status = "PENDING"
	StatusPlaced  Status = "PLACED"
	StatusFailed  Status = "FAILED"
)

type Order struct {
	ID        string
	UserID    int
	ProductID int
	Quantity  int
	Status    Status
	Outcome   api.Outcome

	CreatedAt time.Time
	UpdatedAt time.Time
}

var ErrNotFound = errors.New("order not found")

// Event is a staged lifecycle event awaiting relay to the broker.
type Event struct {
	ID      int64
	EventID string
	OrderID string
	Type    string
	Payload []byte
	SentAt  *time.Time
}

// Ledger is the durable record of attempted and placed orders.
//
// Record writes the provisional PENDING entry before coordination.
// Finalize attaches the terminal status, applies the purchase accumulation
// only when the order was placed, and stages the lifecycle event; backends
// with transactions do all three atomically. Orders are never deleted: a
// failed attempt stays recorded as FAILED and never touches the
// accumulation, so the ledger cannot imply a success without stock backing.
type Ledger interface {
	Record(ctx context.Context, o Order) error
	Finalize(ctx context.Context, o Order, evt api.OrderEvent) error
	Get(ctx context.Context, orderID string) (Order, error)
	Purchases(ctx context.Context, userID int) (map[int]int, error)

	PendingEvents(ctx context.Context, limit int) ([]Event, error)
	MarkEventSent(ctx context.Context, id int64) error
}
