package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/observability"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/database"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/publisher"
)

const (
	ChannelVoice  = "voice"
	ChannelPush   = "push"
	ChannelRecord = "record"
	ChannelNotify = "notify"
	ChannelShare  = "share"
	// ChannelGuidance is step and arrival speech, not part of the alert fan-out.
	ChannelGuidance = "guidance"
)

// AlertChannels are the collaborators an AlertFanout dispatches to. Nil
// channels are skipped.
type AlertChannels struct {
	Voice    publisher.VoiceAnnouncer
	Push     publisher.PushNotifier
	Guardian publisher.GuardianPublisher
	Records  database.AlertRepository
	Shares   database.ShareRepository
}

// AlertFanout dispatches one deviation event to every channel at once.
// Channel failures are logged and never reach the caller.
type AlertFanout struct {
	channels AlertChannels
	clock    Clock
	logger   *zap.Logger
	metrics  *observability.TrackingCollector
}

func NewAlertFanout(channels AlertChannels, clock Clock, logger *zap.Logger, metrics *observability.TrackingCollector) *AlertFanout {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertFanout{channels: channels, clock: clock, logger: logger, metrics: metrics}
}

// DispatchDeviationAlert always attempts voice and push. Guardian-linked
// alerts also get a persisted record, a guardian event and a location share.
// It returns once every attempted channel has settled.
func (f *AlertFanout) DispatchDeviationAlert(ctx context.Context, alert domain.DeviationAlert) {
	var g errgroup.Group

	if f.channels.Voice != nil {
		f.settle(&g, ChannelVoice, alert.UserID, func() error {
			return f.channels.Voice.SpeakDeviationAlert(ctx, alert.UserID, alert.DistanceMeters)
		})
	}
	if f.channels.Push != nil {
		f.settle(&g, ChannelPush, alert.UserID, func() error {
			return f.channels.Push.SendDeviationPush(ctx, alert.UserID, alert.DistanceMeters)
		})
	}

	if alert.HasGuardian() {
		if f.channels.Records != nil {
			f.settle(&g, ChannelRecord, alert.UserID, func() error {
				return f.channels.Records.Insert(ctx, &alert)
			})
		}
		if f.channels.Guardian != nil {
			f.settle(&g, ChannelNotify, alert.UserID, func() error {
				return f.channels.Guardian.PublishDeviation(ctx, &alert)
			})
		}
		if f.channels.Shares != nil {
			share := &domain.LocationShare{
				UserID:     alert.UserID,
				Position:   alert.Position,
				IsDeviated: true,
				UpdatedAt:  alert.CreatedAt,
			}
			f.settle(&g, ChannelShare, alert.UserID, func() error {
				return f.channels.Shares.Upsert(ctx, share)
			})
		}
	}

	_ = g.Wait()
}

// ShareRecovered publishes a non-deviated location share after the user
// returns to the route.
func (f *AlertFanout) ShareRecovered(ctx context.Context, userID string, pos domain.Coordinate) {
	f.ShareLocation(ctx, &domain.LocationShare{
		UserID:    userID,
		Position:  pos,
		UpdatedAt: f.clock.Now(),
	})
}

// ShareLocation upserts the latest position for guardians, best-effort.
func (f *AlertFanout) ShareLocation(ctx context.Context, share *domain.LocationShare) {
	if f.channels.Shares == nil {
		return
	}
	f.attempt(ChannelShare, "location share failed", func() error {
		return f.channels.Shares.Upsert(ctx, share)
	}, zap.String("user_id", share.UserID), zap.Bool("is_deviated", share.IsDeviated))
}

// AnnounceStep speaks the instruction the user should follow next.
func (f *AlertFanout) AnnounceStep(ctx context.Context, userID, instruction string) {
	if f.channels.Voice == nil || instruction == "" {
		return
	}
	f.attempt(ChannelGuidance, "step announcement failed", func() error {
		return f.channels.Voice.SpeakNavigation(ctx, userID, instruction)
	}, zap.String("user_id", userID))
}

// AnnounceArrival tells the user they reached their destination.
func (f *AlertFanout) AnnounceArrival(ctx context.Context, userID, destination string) {
	if f.channels.Voice == nil {
		return
	}
	f.attempt(ChannelGuidance, "arrival announcement failed", func() error {
		return f.channels.Voice.SpeakArrival(ctx, userID, destination)
	}, zap.String("user_id", userID))
}

func (f *AlertFanout) settle(g *errgroup.Group, channel, userID string, fn func() error) {
	g.Go(func() error {
		f.attempt(channel, "deviation alert channel failed", fn, zap.String("user_id", userID))
		return nil
	})
}

// attempt runs one channel call and records its outcome. A panicking channel
// counts as a failed one.
func (f *AlertFanout) attempt(channel, msg string, fn func() error, fields ...zap.Field) {
	var err error
	defer func() {
		log := f.logger.With(append(fields, zap.String("channel", channel))...)
		if r := recover(); r != nil {
			err = fmt.Errorf("%s channel panicked: %v", channel, r)
			log.Error("alert channel panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		f.metrics.ObserveChannel(channel, err)
		if err != nil {
			log.Warn(msg, zap.Error(err))
		}
	}()
	err = fn()
}
