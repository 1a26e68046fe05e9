package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/pkg/logging"
)

// EventSink is where relayed events go; satisfied by the kafka publisher.
type EventSink interface {
	PublishRaw(ctx context.Context, key string, payload []byte) error
}

// Relay drains staged order events to the sink in the background. Events
// are marked sent only after the broker acknowledges, so a crash between
// publish and mark can re-deliver; consumers dedup on event_id.
type Relay struct {
	ledger   Ledger
	sink     EventSink
	log      *zap.Logger
	interval time.Duration
	batch    int
}

func NewRelay(ledger Ledger, sink EventSink, log *zap.Logger) *Relay {
	return &Relay{ledger: ledger, sink: sink, log: log, interval: time.Second, batch: 100}
}

// Run loops until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	events, err := r.ledger.PendingEvents(ctx, r.batch)
	if err != nil {
		r.log.Warn("fetch pending events failed", zap.Error(err))
		return
	}
	for _, e := range events {
		if err := r.sink.PublishRaw(ctx, e.OrderID, e.Payload); err != nil {
			r.log.Warn("publish event failed", logging.EventID(e.EventID), zap.Error(err))
			return
		}
		if err := r.ledger.MarkEventSent(ctx, e.ID); err != nil {
			r.log.Warn("mark event sent failed", logging.EventID(e.EventID), zap.Error(err))
			return
		}
	}
}
