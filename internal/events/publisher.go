// Package events emits trip lifecycle events for downstream consumers such
// as billing.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"dispatch/internal/domain"
)

// DefaultTopic receives every trip lifecycle event.
const DefaultTopic = "trip-events"

// Publisher emits committed trip changes.
type Publisher interface {
	PublishTripEvent(ctx context.Context, ev domain.TripEvent) error
}

// TripEventMessage is the JSON value written to the topic.
type TripEventMessage struct {
	EventID          string    `json:"eventId"`
	Type             string    `json:"type"`
	TripID           string    `json:"tripId"`
	CompanyID        string    `json:"companyId"`
	Status           string    `json:"status"`
	PreviousStatus   string    `json:"previousStatus,omitempty"`
	DriverID         string    `json:"driverId,omitempty"`
	VehicleID        string    `json:"vehicleId,omitempty"`
	PreviousDriverID string    `json:"previousDriverId,omitempty"`
	PaymentStatus    string    `json:"paymentStatus"`
	TotalAmount      float64   `json:"totalAmount"`
	ActorID          string    `json:"actorId"`
	ActorRole        string    `json:"actorRole"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// NewTripEventMessage converts a domain event into its wire form.
func NewTripEventMessage(ev domain.TripEvent) TripEventMessage {
	t := ev.Trip
	return TripEventMessage{
		EventID:          uuid.New().String(),
		Type:             "trip." + string(ev.Kind),
		TripID:           t.ID,
		CompanyID:        t.CompanyID,
		Status:           string(t.Status),
		PreviousStatus:   string(ev.From),
		DriverID:         t.Driver(),
		VehicleID:        t.Vehicle(),
		PreviousDriverID: ev.PreviousDriverID,
		PaymentStatus:    string(t.PaymentStatus),
		TotalAmount:      t.TotalAmount,
		ActorID:          ev.Actor.ID,
		ActorRole:        string(ev.Actor.Role),
		OccurredAt:       ev.At.UTC(),
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes trip events to Kafka keyed by trip id, so every
// event of one trip lands on the same partition in commit order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a KafkaPublisher.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}, nil
}

// PublishTripEvent implements Publisher.
func (p *KafkaPublisher) PublishTripEvent(ctx context.Context, ev domain.TripEvent) error {
	if ev.Trip == nil {
		return errors.New("trip event without trip")
	}
	value, err := json.Marshal(NewTripEventMessage(ev))
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Trip.ID),
		Value: value,
		Time:  ev.At.UTC(),
	})
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events. Used when no brokers are configured.
type NopPublisher struct{}

// PublishTripEvent implements Publisher.
func (NopPublisher) PublishTripEvent(context.Context, domain.TripEvent) error { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NopPublisher{}
)
