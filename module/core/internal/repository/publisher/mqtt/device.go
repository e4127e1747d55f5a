package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nandanugg/route-guardian/module/core/internal/repository/publisher"
)

var (
	_ publisher.VoiceAnnouncer = (*DevicePublisher)(nil)
	_ publisher.PushNotifier   = (*DevicePublisher)(nil)
)

const (
	voiceTopicFormat = "/nav/user/%s/voice"
	pushTopicFormat  = "/nav/user/%s/push"

	voiceLanguage = "ko-KR"
	// NormalSpeechRate is the slowed-down rate used for regular guidance;
	// urgent announcements play at full speed.
	NormalSpeechRate = 0.8
	UrgentSpeechRate = 1.0

	pushChannelDeviation = "deviation"
)

type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

// DevicePublisher sends voice and notification commands to a user's device.
type DevicePublisher struct {
	client publishClient
}

func NewDevicePublisher(client pahomqtt.Client) *DevicePublisher {
	return &DevicePublisher{client: client}
}

type VoiceCommand struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Rate     float64 `json:"rate"`
	Urgent   bool    `json:"urgent"`
}

type PushCommand struct {
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Channel string   `json:"channel"`
	Data    pushData `json:"data"`
}

type pushData struct {
	Type     string  `json:"type"`
	Distance float64 `json:"distance"`
}

// speak queues text on the device's speech engine.
func (p *DevicePublisher) speak(ctx context.Context, userID, text string, urgent bool) error {
	rate := NormalSpeechRate
	if urgent {
		rate = UrgentSpeechRate
	}
	return p.publish(ctx, fmt.Sprintf(voiceTopicFormat, userID), VoiceCommand{
		Text:     text,
		Language: voiceLanguage,
		Rate:     rate,
		Urgent:   urgent,
	})
}

func (p *DevicePublisher) SpeakDeviationAlert(ctx context.Context, userID string, distanceMeters float64) error {
	text := fmt.Sprintf("주의하세요! 경로에서 %d미터 벗어났어요. 걱정 마세요, 다시 안내해 드릴게요.", int(math.Round(distanceMeters)))
	return p.speak(ctx, userID, text, true)
}

func (p *DevicePublisher) SpeakNavigation(ctx context.Context, userID, instruction string) error {
	return p.speak(ctx, userID, instruction, false)
}

func (p *DevicePublisher) SpeakArrival(ctx context.Context, userID, destination string) error {
	return p.speak(ctx, userID, fmt.Sprintf("🎉 %s에 도착했어요! 정말 잘했어요!", destination), false)
}

func (p *DevicePublisher) SendDeviationPush(ctx context.Context, userID string, distanceMeters float64) error {
	return p.publish(ctx, fmt.Sprintf(pushTopicFormat, userID), PushCommand{
		Title:   "⚠️ 경로 이탈 감지!",
		Body:    fmt.Sprintf("경로에서 약 %dm 벗어났어요. 앱을 확인해 주세요.", int(math.Round(distanceMeters))),
		Channel: pushChannelDeviation,
		Data:    pushData{Type: "deviation", Distance: distanceMeters},
	})
}

func (p *DevicePublisher) publish(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}

	token := p.client.Publish(topic, 1, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}
}
