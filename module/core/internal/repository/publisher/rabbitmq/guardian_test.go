package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

type fakeChannel struct {
	exchange string
	msgs     []amqp.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, _ string, _, _ bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.msgs = append(f.msgs, msg)
	return f.err
}

func TestPublishDeviation(t *testing.T) {
	ch := &fakeChannel{}
	p := &GuardianPublisher{ch: ch}

	ts := time.UnixMilli(1715003456789)
	err := p.PublishDeviation(context.Background(), &domain.DeviationAlert{
		ID:             "a-1",
		UserID:         "user-1",
		GuardianID:     "guardian-1",
		Position:       domain.Coordinate{Lat: 37.5665, Lon: 126.978},
		DistanceMeters: 152.4,
		Message:        "경로에서 152m 벗어났습니다",
		CreatedAt:      ts,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.exchange != ExchangeName {
		t.Errorf("expected exchange %s, got %s", ExchangeName, ch.exchange)
	}
	if len(ch.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ch.msgs))
	}

	pub := ch.msgs[0]
	if pub.MessageId != "a-1" {
		t.Errorf("expected message id a-1, got %s", pub.MessageId)
	}
	if pub.DeliveryMode != amqp.Persistent {
		t.Errorf("expected persistent delivery")
	}

	var msg EventMessage
	if err := json.Unmarshal(pub.Body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Event != "deviation" {
		t.Errorf("expected deviation, got %s", msg.Event)
	}
	if msg.GuardianID != "guardian-1" {
		t.Errorf("expected guardian-1, got %s", msg.GuardianID)
	}
	if msg.Location.Latitude != 37.5665 {
		t.Errorf("expected 37.5665, got %f", msg.Location.Latitude)
	}
	if msg.Timestamp != 1715003456789 {
		t.Errorf("expected 1715003456789, got %d", msg.Timestamp)
	}
}

func TestPublishDeviation_ChannelError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &GuardianPublisher{ch: ch}

	err := p.PublishDeviation(context.Background(), &domain.DeviationAlert{ID: "a-1", UserID: "user-1", GuardianID: "g"})
	if err == nil {
		t.Fatal("expected error")
	}
}
