// Package kafka wraps the broker plumbing for the order lifecycle events
// topic. Kafka is optional: with no brokers configured the publisher is
// disabled and every service keeps working without it.
package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shoplab/order-coordination-go/pkg/api"
)

const DefaultTopic = "shoplab.order-events"

type Broker struct {
	addrs []string
}

func NewBroker(brokersCSV string) *Broker {
	var addrs []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &Broker{addrs: addrs}
}

func (b *Broker) Enabled() bool {
	return len(b.addrs) > 0
}

// EventPublisher writes order lifecycle events keyed by order id, so all
// events of one order land on the same partition in order.
type EventPublisher struct {
	writer *kafka.Writer
}

func (b *Broker) NewEventPublisher(topic string) *EventPublisher {
	if !b.Enabled() {
		return nil
	}
	return &EventPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(b.addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *EventPublisher) Publish(ctx context.Context, evt api.OrderEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

// PublishRaw sends an already-encoded event payload, used by the outbox
// relay which stores payloads as marshalled JSON.
func (p *EventPublisher) PublishRaw(ctx context.Context, key string, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (p *EventPublisher) Close() error {
	return p.writer.Close()
}

func (b *Broker) NewEventReader(topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.addrs,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
}
