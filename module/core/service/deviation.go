package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

// DefaultAlertCooldown is the minimum gap between repeated alerts while a
// user stays off-route.
const DefaultAlertCooldown = 30 * time.Second

type alertDispatcher interface {
	DispatchDeviationAlert(ctx context.Context, alert domain.DeviationAlert)
	ShareRecovered(ctx context.Context, userID string, pos domain.Coordinate)
}

type TrackerConfig struct {
	UserID     string
	GuardianID string
	Checker    DeviationChecker
	Cooldown   time.Duration
	Clock      Clock
}

// Tracker is the deviation state machine for one user. It consumes one
// position at a time and is not safe for concurrent use; Session serialises
// access to it.
type Tracker struct {
	userID     string
	guardianID string
	checker    DeviationChecker
	cooldown   time.Duration
	clock      Clock
	alerts     alertDispatcher

	points []domain.Coordinate
	state  domain.DeviationState
}

func NewTracker(cfg TrackerConfig, points []domain.Coordinate, alerts alertDispatcher) *Tracker {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultAlertCooldown
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Checker.Radius() <= 0 {
		cfg.Checker = NewDeviationChecker(DefaultDeviationRadius)
	}
	return &Tracker{
		userID:     cfg.UserID,
		guardianID: cfg.GuardianID,
		checker:    cfg.Checker,
		cooldown:   cfg.Cooldown,
		clock:      cfg.Clock,
		alerts:     alerts,
		points:     points,
	}
}

// Process applies one position sample and performs at most one alert dispatch.
func (t *Tracker) Process(ctx context.Context, pos domain.Coordinate) (domain.Transition, error) {
	if !pos.Valid() {
		return domain.Transition{}, fmt.Errorf("process sample (%v, %v): %w", pos.Lat, pos.Lon, domain.ErrInvalidCoordinate)
	}

	result := t.checker.Check(pos, t.points)
	tr := domain.Transition{From: t.state.State(), Result: result}

	switch {
	case result.IsDeviated && !t.state.IsDeviated:
		now := t.clock.Now()
		t.state = domain.DeviationState{IsDeviated: true, DistanceMeters: result.MinDistance, LastAlertAt: now}
		t.dispatch(ctx, pos, result.MinDistance, now)
		tr.Alerted = true

	case result.IsDeviated:
		t.state.DistanceMeters = result.MinDistance
		now := t.clock.Now()
		if now.Sub(t.state.LastAlertAt) >= t.cooldown {
			t.state.LastAlertAt = now
			t.dispatch(ctx, pos, result.MinDistance, now)
			tr.Alerted = true
		}

	case t.state.IsDeviated:
		t.state.IsDeviated = false
		t.state.DistanceMeters = 0
		if t.guardianID != "" {
			t.alerts.ShareRecovered(ctx, t.userID, pos)
		}
		tr.Recovered = true

	default:
		t.state.DistanceMeters = result.MinDistance
	}

	tr.To = t.state.State()
	return tr, nil
}

func (t *Tracker) dispatch(ctx context.Context, pos domain.Coordinate, distance float64, now time.Time) {
	t.alerts.DispatchDeviationAlert(ctx, domain.DeviationAlert{
		ID:             uuid.NewString(),
		UserID:         t.userID,
		GuardianID:     t.guardianID,
		Position:       pos,
		DistanceMeters: distance,
		Message:        fmt.Sprintf("경로에서 %dm 벗어났습니다", int(math.Round(distance))),
		CreatedAt:      now,
	})
}

// State returns a copy of the current deviation state.
func (t *Tracker) State() domain.DeviationState {
	return t.state
}

// SetRoute swaps the active route and resets deviation state.
func (t *Tracker) SetRoute(points []domain.Coordinate) {
	t.points = points
	t.Reset()
}

func (t *Tracker) Reset() {
	t.state = domain.DeviationState{}
}
