package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/observability"
)

// DefaultShareInterval is how often a navigating user's position is shared
// with their guardian regardless of deviation.
const DefaultShareInterval = 10 * time.Second

type sessionDispatcher interface {
	alertDispatcher
	ShareLocation(ctx context.Context, share *domain.LocationShare)
	AnnounceStep(ctx context.Context, userID, instruction string)
	AnnounceArrival(ctx context.Context, userID, destination string)
}

// Session owns everything known about one user's active trip. Samples are
// applied one at a time in arrival order.
type Session struct {
	mu sync.Mutex

	route      domain.Route
	stepIndex  int
	navigating bool
	current    *domain.Coordinate
	lastSample time.Time
	lastShare  time.Time

	tracker       *Tracker
	dispatcher    sessionDispatcher
	shareInterval time.Duration
	clock         Clock
	metrics       *observability.TrackingCollector
}

func newSession(route domain.Route, tuning Tuning, dispatcher sessionDispatcher, clock Clock, metrics *observability.TrackingCollector) *Session {
	tracker := NewTracker(TrackerConfig{
		UserID:     route.UserID,
		GuardianID: route.GuardianID,
		Checker:    NewDeviationChecker(tuning.DeviationRadius),
		Cooldown:   tuning.AlertCooldown,
		Clock:      clock,
	}, route.Points, dispatcher)

	interval := tuning.ShareInterval
	if interval <= 0 {
		interval = DefaultShareInterval
	}

	return &Session{
		route:         route,
		navigating:    true,
		tracker:       tracker,
		dispatcher:    dispatcher,
		shareInterval: interval,
		clock:         clock,
		metrics:       metrics,
	}
}

// HandleSample feeds one location sample through the deviation state machine
// and shares the position with a linked guardian once per share interval.
func (s *Session) HandleSample(ctx context.Context, sample domain.Sample) (domain.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.navigating {
		return domain.Transition{}, domain.ErrNoActiveSession
	}
	if !s.lastSample.IsZero() && sample.Timestamp.Before(s.lastSample) {
		s.metrics.ObserveSample("stale")
		return domain.Transition{}, fmt.Errorf("sample at %s: %w", sample.Timestamp.Format(time.RFC3339), domain.ErrStaleSample)
	}

	tr, err := s.tracker.Process(ctx, sample.Position)
	if err != nil {
		s.metrics.ObserveSample("invalid")
		return tr, err
	}

	pos := sample.Position
	s.current = &pos
	s.lastSample = sample.Timestamp
	s.metrics.ObserveSample("processed")
	if tr.From != tr.To {
		s.metrics.ObserveTransition(string(tr.From), string(tr.To))
	}

	now := s.clock.Now()
	if tr.Alerted || tr.Recovered {
		// the alert fan-out and recovery share already carried this position
		s.lastShare = now
	} else if s.route.HasGuardian() && (s.lastShare.IsZero() || now.Sub(s.lastShare) >= s.shareInterval) {
		s.lastShare = now
		s.dispatcher.ShareLocation(ctx, &domain.LocationShare{
			UserID:     s.route.UserID,
			Position:   pos,
			IsDeviated: tr.To == domain.Deviated,
			UpdatedAt:  now,
		})
	}

	return tr, nil
}

// Snapshot captures the session for urgency evaluation and prompt building.
func (s *Session) Snapshot() domain.NavigationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.NavigationSnapshot{
		UserID:       s.route.UserID,
		Destination:  s.route.Destination,
		IsNavigating: s.navigating,
		Deviation:    s.tracker.State(),
	}
	if s.current != nil {
		loc := *s.current
		snap.CurrentLocation = &loc
	}
	if s.stepIndex < len(s.route.Steps) {
		snap.CurrentStep = s.route.Steps[s.stepIndex]
	}
	return snap
}

func (s *Session) Route() domain.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

// StepIndex is the zero-based index of the step being followed.
func (s *Session) StepIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepIndex
}

// AdvanceStep moves to the next step, staying on the last one, and speaks
// the new instruction. Reaching the last step announces arrival instead.
func (s *Session) AdvanceStep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stepIndex >= len(s.route.Steps)-1 {
		return s.stepIndex
	}
	s.stepIndex++
	if s.stepIndex == len(s.route.Steps)-1 {
		s.dispatcher.AnnounceArrival(ctx, s.route.UserID, s.route.Destination)
	} else {
		s.dispatcher.AnnounceStep(ctx, s.route.UserID, s.route.Steps[s.stepIndex])
	}
	return s.stepIndex
}

// SetRoute replaces the planned trip and resets deviation state. The guardian
// link is kept.
func (s *Session) SetRoute(destination string, steps []string, points []domain.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if destination != "" {
		s.route.Destination = destination
	}
	s.route.Steps = steps
	s.route.Points = points
	s.stepIndex = 0
	s.tracker.SetRoute(points)
}

// Stop ends tracking. Later samples are rejected and in-flight alerts finish
// on their own.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigating = false
	s.tracker.Reset()
}
