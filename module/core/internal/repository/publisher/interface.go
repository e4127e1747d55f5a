package publisher

import (
	"context"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

// VoiceAnnouncer asks the user's device to speak. Deviation warnings are
// urgent; step guidance and arrival play at the normal rate.
type VoiceAnnouncer interface {
	SpeakDeviationAlert(ctx context.Context, userID string, distanceMeters float64) error
	SpeakNavigation(ctx context.Context, userID, instruction string) error
	SpeakArrival(ctx context.Context, userID, destination string) error
}

// PushNotifier asks the user's device to raise an immediate local notification.
type PushNotifier interface {
	SendDeviationPush(ctx context.Context, userID string, distanceMeters float64) error
}

// GuardianPublisher broadcasts deviation events to guardian-facing consumers.
type GuardianPublisher interface {
	PublishDeviation(ctx context.Context, alert *domain.DeviationAlert) error
}
