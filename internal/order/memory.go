package order

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shoplab/order-coordination-go/pkg/api"
)

// MemoryLedger backs local runs and tests.
type MemoryLedger struct {
	mu        sync.RWMutex
	orders    map[string]Order
	purchases map[int]map[int]int // userID -> productID -> quantity
	events    []Event
	nextEvent int64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		orders:    make(map[string]Order),
		purchases: make(map[int]map[int]int),
		nextEvent: 1,
	}
}

func (l *MemoryLedger) Record(_ context.Context, o Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	l.orders[o.ID] = o
	return nil
}

func (l *MemoryLedger) Finalize(_ context.Context, o Order, evt api.OrderEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored, ok := l.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = o.Status
	stored.Outcome = o.Outcome
	stored.UpdatedAt = time.Now().UTC()
	l.orders[o.ID] = stored

	if o.Status == StatusPlaced {
		byProduct, ok := l.purchases[o.UserID]
		if !ok {
			byProduct = make(map[int]int)
			l.purchases[o.UserID] = byProduct
		}
		byProduct[o.ProductID] += o.Quantity
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	l.events = append(l.events, Event{
		ID:      l.nextEvent,
		EventID: evt.EventID,
		OrderID: o.ID,
		Type:    evt.Type,
		Payload: payload,
	})
	l.nextEvent++
	return nil
}

func (l *MemoryLedger) Get(_ context.Context, orderID string) (Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.orders[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (l *MemoryLedger) Purchases(_ context.Context, userID int) (map[int]int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[int]int, len(l.purchases[userID]))
	for productID, qty := range l.purchases[userID] {
		out[productID] = qty
	}
	return out, nil
}

func (l *MemoryLedger) PendingEvents(_ context.Context, limit int) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.events {
		if e.SentAt == nil {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (l *MemoryLedger) MarkEventSent(_ context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.events {
		if l.events[i].ID == id {
			now := time.Now().UTC()
			l.events[i].SentAt = &now
			return nil
		}
	}
	return nil
}
