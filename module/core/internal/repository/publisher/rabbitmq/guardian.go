package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/publisher"
)

var _ publisher.GuardianPublisher = (*GuardianPublisher)(nil)

const (
	ExchangeName = "guardian.events"
	QueueName    = "guardian_alerts"

	eventDeviation = "deviation"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type GuardianPublisher struct {
	ch channel
}

// NewGuardianPublisher declares the fanout exchange and the durable queue
// guardian consumers read from.
func NewGuardianPublisher(conn *amqp.Connection) (*GuardianPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := Declare(ch); err != nil {
		return nil, err
	}

	return &GuardianPublisher{ch: ch}, nil
}

// Declare sets up the exchange, queue and binding on ch.
func Declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// EventMessage is the wire form of a guardian event.
type EventMessage struct {
	ID         string        `json:"id"`
	Event      string        `json:"event"`
	UserID     string        `json:"user_id"`
	GuardianID string        `json:"guardian_id"`
	Location   eventLocation `json:"location"`
	Distance   float64       `json:"distance"`
	Message    string        `json:"message"`
	Timestamp  int64         `json:"timestamp"`
}

type eventLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p *GuardianPublisher) PublishDeviation(ctx context.Context, alert *domain.DeviationAlert) error {
	msg := EventMessage{
		ID:         alert.ID,
		Event:      eventDeviation,
		UserID:     alert.UserID,
		GuardianID: alert.GuardianID,
		Location: eventLocation{
			Latitude:  alert.Position.Lat,
			Longitude: alert.Position.Lon,
		},
		Distance:  alert.DistanceMeters,
		Message:   alert.Message,
		Timestamp: alert.CreatedAt.UnixMilli(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal guardian event: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    alert.ID,
		Body:         body,
	})
}
