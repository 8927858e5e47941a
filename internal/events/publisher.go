package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TypeRideRequested     = "ride_requested"
	TypeRideStatusChanged = "ride_status_changed"
)

// RideEvent is the lifecycle record published for downstream consumers
// (analytics, notifications). IDs are hex strings so consumers need no
// Mongo types.
type RideEvent struct {
	Type     string    `json:"type"`
	RideID   string    `json:"ride_id"`
	RiderID  string    `json:"rider_id"`
	DriverID string    `json:"driver_id,omitempty"`
	Status   string    `json:"status"`
	At       time.Time `json:"at"`
}

// Publisher writes ride events to Kafka. A nil Publisher is valid and drops
// everything, so event publishing can be disabled by configuration.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Publisher{writer: w}
}

func (p *Publisher) PublishRideEvent(ctx context.Context, event RideEvent) error {
	if p == nil || p.writer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RideID),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
