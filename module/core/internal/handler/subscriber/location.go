package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

const TopicPattern = "/nav/user/+/location"

type locationService interface {
	SaveSample(ctx context.Context, sample *domain.Sample) error
}

type tracker interface {
	HandleSample(ctx context.Context, sample domain.Sample) (domain.Transition, error)
}

// LocationMessage is the payload a device publishes for each location fix.
// Timestamp is in milliseconds. The topic names the user; UserID is optional
// and must match it when present.
type LocationMessage struct {
	UserID    string  `json:"user_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

type LocationSubscriber struct {
	client      mqtt.Client
	locationSvc locationService
	tracker     tracker
	logger      *zap.Logger
}

func NewLocationSubscriber(client mqtt.Client, locationSvc locationService, tracker tracker, logger *zap.Logger) *LocationSubscriber {
	return &LocationSubscriber{
		client:      client,
		locationSvc: locationSvc,
		tracker:     tracker,
		logger:      logger,
	}
}

func (s *LocationSubscriber) Start() error {
	token := s.client.Subscribe(TopicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *LocationSubscriber) Stop() error {
	token := s.client.Unsubscribe(TopicPattern)
	token.Wait()
	return token.Error()
}

func (s *LocationSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw LocationMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.logger.Warn("invalid location message", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	userID, err := userFromTopic(msg.Topic())
	if err != nil {
		s.logger.Warn("invalid location topic", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	if err := validateLocationMessage(&raw, userID); err != nil {
		s.logger.Warn("location validation failed", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	sample := domain.Sample{
		UserID:    userID,
		Position:  domain.Coordinate{Lat: raw.Latitude, Lon: raw.Longitude},
		Timestamp: time.UnixMilli(raw.Timestamp),
	}

	ctx := context.Background()

	// history is secondary to tracking, so a failed insert does not stop the sample
	if err := s.locationSvc.SaveSample(ctx, &sample); err != nil {
		s.logger.Warn("save location failed", zap.String("user_id", sample.UserID), zap.Error(err))
	}

	if _, err := s.tracker.HandleSample(ctx, sample); err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			s.logger.Debug("sample without navigation session", zap.String("user_id", sample.UserID))
			return
		}
		s.logger.Warn("tracking sample failed", zap.String("user_id", sample.UserID), zap.Error(err))
	}
}

// userFromTopic extracts the user segment of /nav/user/{id}/location.
func userFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != "" || parts[1] != "nav" || parts[2] != "user" || parts[4] != "location" || parts[3] == "" {
		return "", fmt.Errorf("topic %q: not a location topic", topic)
	}
	return parts[3], nil
}

func validateLocationMessage(msg *LocationMessage, topicUser string) error {
	if msg.UserID != "" && msg.UserID != topicUser {
		return fmt.Errorf("user_id: %q does not match topic user %q", msg.UserID, topicUser)
	}
	if msg.Latitude < -90 || msg.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if msg.Longitude < -180 || msg.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}
