// Package events publishes order lifecycle events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/twmb/franz-go/pkg/kgo"

	config "github.com/DaniDevGS/triven-shop/configs"
	"github.com/DaniDevGS/triven-shop/internal/models"
)

const (
	OrderPlaced   = "order.placed"
	OrderApproved = "order.approved"
	OrderRejected = "order.rejected"
)

type OrderEvent struct {
	Type       string          `json:"type"`
	OrderID    uint            `json:"order_id"`
	Code       string          `json:"code"`
	UserID     uint            `json:"user_id"`
	Status     string          `json:"status"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Items      int             `json:"items"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// FromOrder builds the event matching the order's current status.
func FromOrder(order models.Order) OrderEvent {
	typ := OrderPlaced
	switch order.Status {
	case models.OrderApproved:
		typ = OrderApproved
	case models.OrderRejected:
		typ = OrderRejected
	}
	return OrderEvent{
		Type:       typ,
		OrderID:    order.ID,
		Code:       order.Code,
		UserID:     order.UserID,
		Status:     string(order.Status),
		Subtotal:   order.Subtotal,
		Items:      len(order.Items),
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
	Close()
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }
func (Nop) Close()                                    {}

type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: cfg.Topic}, nil
}

// Publish writes the event keyed by order code so every event of one order
// lands on the same partition.
func (k *KafkaPublisher) Publish(ctx context.Context, ev OrderEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(ev.Code),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce %s event: %w", ev.Type, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() {
	k.client.Close()
}

// Memory keeps published events in memory.
type Memory struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (m *Memory) Publish(_ context.Context, ev OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) Close() {}

func (m *Memory) Events() []OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderEvent, len(m.events))
	copy(out, m.events)
	return out
}
