package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/nandanugg/route-guardian/config"
	"github.com/nandanugg/route-guardian/module/core"
)

type guardianEvent struct {
	ID         string `json:"id"`
	Event      string `json:"event"`
	UserID     string `json:"user_id"`
	GuardianID string `json:"guardian_id"`
	Location   struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Distance  float64 `json:"distance"`
	Message   string  `json:"message"`
	Timestamp int64   `json:"timestamp"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	conn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		logger.Fatal("rabbitmq", zap.Error(err))
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("rabbitmq channel", zap.Error(err))
	}
	defer func() { _ = ch.Close() }()

	if err := core.DeclareGuardianTopology(ch); err != nil {
		logger.Fatal("declare topology", zap.Error(err))
	}

	msgs, err := ch.Consume(core.GuardianQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatal("consume", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("waiting for guardian events", zap.String("queue", core.GuardianQueue))

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			handleDelivery(logger, msg)
		}
	}
}

func handleDelivery(logger *zap.Logger, msg amqp.Delivery) {
	var ev guardianEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		logger.Warn("malformed guardian event", zap.Error(err))
		// redelivery would fail the same way
		_ = msg.Nack(false, false)
		return
	}

	logger.Info("guardian event",
		zap.String("event", ev.Event),
		zap.String("id", ev.ID),
		zap.String("user_id", ev.UserID),
		zap.String("guardian_id", ev.GuardianID),
		zap.Float64("latitude", ev.Location.Latitude),
		zap.Float64("longitude", ev.Location.Longitude),
		zap.Float64("distance_m", ev.Distance),
		zap.String("message", ev.Message),
		zap.Time("at", time.UnixMilli(ev.Timestamp)))
	_ = msg.Ack(false)
}
