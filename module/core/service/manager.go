package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/observability"
)

// Tuning holds the tracking parameters applied to newly started sessions.
type Tuning struct {
	DeviationRadius float64
	AlertCooldown   time.Duration
	ShareInterval   time.Duration
}

func DefaultTuning() Tuning {
	return Tuning{
		DeviationRadius: DefaultDeviationRadius,
		AlertCooldown:   DefaultAlertCooldown,
		ShareInterval:   DefaultShareInterval,
	}
}

type StartRequest struct {
	Route           domain.Route
	LocationGranted bool
}

// SessionManager is the single owner of every navigation session.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	tuning   Tuning

	dispatcher *asyncFanout
	clock      Clock
	location   *time.Location
	logger     *zap.Logger
	metrics    *observability.TrackingCollector
}

// DefaultDispatchTimeout bounds one background alert dispatch, so stuck
// channels cannot hold shutdown open.
const DefaultDispatchTimeout = 15 * time.Second

type ManagerConfig struct {
	Tuning          Tuning
	Clock           Clock
	Location        *time.Location
	DispatchTimeout time.Duration
}

func NewSessionManager(fanout *AlertFanout, cfg ManagerConfig, logger *zap.Logger, metrics *observability.TrackingCollector) *SessionManager {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = DefaultDispatchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		tuning:   cfg.Tuning,
		dispatcher: &asyncFanout{
			fanout:  fanout,
			timeout: cfg.DispatchTimeout,
			logger:  logger,
		},
		clock:      cfg.Clock,
		location:   cfg.Location,
		logger:     logger,
		metrics:    metrics,
	}
}

// Start begins tracking a route, replacing any session the user already had.
// A device that refused location access gets no session.
func (m *SessionManager) Start(req StartRequest) (*Session, error) {
	if !req.LocationGranted {
		return nil, fmt.Errorf("start navigation for %s: %w", req.Route.UserID, domain.ErrLocationDenied)
	}
	for i, p := range req.Route.Points {
		if !p.Valid() {
			return nil, fmt.Errorf("route point %d: %w", i, domain.ErrInvalidCoordinate)
		}
	}

	m.mu.Lock()
	if prev, ok := m.sessions[req.Route.UserID]; ok {
		prev.Stop()
	}
	s := newSession(req.Route, m.tuning, m.dispatcher, m.clock, m.metrics)
	m.sessions[req.Route.UserID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(n)
	m.logger.Info("navigation started",
		zap.String("user_id", req.Route.UserID),
		zap.Bool("guardian", req.Route.HasGuardian()),
		zap.Int("route_points", len(req.Route.Points)))
	return s, nil
}

func (m *SessionManager) Stop(userID string) error {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return domain.ErrNoActiveSession
	}
	s.Stop()
	m.metrics.SetActiveSessions(n)
	m.logger.Info("navigation stopped", zap.String("user_id", userID))
	return nil
}

func (m *SessionManager) Get(userID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, domain.ErrNoActiveSession
	}
	return s, nil
}

func (m *SessionManager) HandleSample(ctx context.Context, sample domain.Sample) (domain.Transition, error) {
	s, err := m.Get(sample.UserID)
	if err != nil {
		return domain.Transition{}, err
	}
	tr, err := s.HandleSample(ctx, sample)
	if err != nil {
		return tr, err
	}
	if tr.Alerted || tr.Recovered {
		m.logger.Info("deviation transition",
			zap.String("user_id", sample.UserID),
			zap.String("from", string(tr.From)),
			zap.String("to", string(tr.To)),
			zap.Float64("distance_m", tr.Result.MinDistance),
			zap.Bool("alerted", tr.Alerted))
	}
	return tr, nil
}

func (m *SessionManager) SetRoute(userID, destination string, steps []string, points []domain.Coordinate) error {
	for i, p := range points {
		if !p.Valid() {
			return fmt.Errorf("route point %d: %w", i, domain.ErrInvalidCoordinate)
		}
	}
	s, err := m.Get(userID)
	if err != nil {
		return err
	}
	s.SetRoute(destination, steps, points)
	return nil
}

// AdvanceStep moves the user's session to its next step, announces it on the
// device and returns the resulting snapshot.
func (m *SessionManager) AdvanceStep(ctx context.Context, userID string) (domain.NavigationSnapshot, error) {
	s, err := m.Get(userID)
	if err != nil {
		return domain.NavigationSnapshot{}, err
	}
	s.AdvanceStep(ctx)
	return s.Snapshot(), nil
}

// Snapshot returns the user's navigation snapshot, or an idle one when the
// user is not navigating.
func (m *SessionManager) Snapshot(userID string) domain.NavigationSnapshot {
	s, err := m.Get(userID)
	if err != nil {
		return domain.NavigationSnapshot{UserID: userID}
	}
	return s.Snapshot()
}

// ContextSummary evaluates the user's situation at the current local time.
func (m *SessionManager) ContextSummary(userID string, weather *domain.Weather) domain.ContextSummary {
	return BuildContextSummary(m.Snapshot(userID), weather, m.Now())
}

// Now is the manager's clock reading in the configured timezone.
func (m *SessionManager) Now() time.Time {
	return m.clock.Now().In(m.location)
}

// ApplyTuning changes the parameters used by sessions started afterwards.
func (m *SessionManager) ApplyTuning(t Tuning) {
	m.mu.Lock()
	m.tuning = t
	m.mu.Unlock()
	m.logger.Info("tracking tuning updated",
		zap.Float64("deviation_radius_m", t.DeviationRadius),
		zap.Duration("alert_cooldown", t.AlertCooldown),
		zap.Duration("share_interval", t.ShareInterval))
}

func (m *SessionManager) Tuning() Tuning {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tuning
}

// Wait blocks until every in-flight dispatch has settled or ctx is done.
func (m *SessionManager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.dispatcher.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for alert dispatch: %w", ctx.Err())
	}
}

// asyncFanout runs fan-out work off the sample path. Dispatches outlive the
// request context that triggered them but not their own timeout.
type asyncFanout struct {
	fanout  *AlertFanout
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func (a *asyncFanout) DispatchDeviationAlert(ctx context.Context, alert domain.DeviationAlert) {
	a.run(ctx, func(ctx context.Context) { a.fanout.DispatchDeviationAlert(ctx, alert) })
}

func (a *asyncFanout) ShareRecovered(ctx context.Context, userID string, pos domain.Coordinate) {
	a.run(ctx, func(ctx context.Context) { a.fanout.ShareRecovered(ctx, userID, pos) })
}

func (a *asyncFanout) ShareLocation(ctx context.Context, share *domain.LocationShare) {
	a.run(ctx, func(ctx context.Context) { a.fanout.ShareLocation(ctx, share) })
}

func (a *asyncFanout) AnnounceStep(ctx context.Context, userID, instruction string) {
	a.run(ctx, func(ctx context.Context) { a.fanout.AnnounceStep(ctx, userID, instruction) })
}

func (a *asyncFanout) AnnounceArrival(ctx context.Context, userID, destination string) {
	a.run(ctx, func(ctx context.Context) { a.fanout.AnnounceArrival(ctx, userID, destination) })
}

func (a *asyncFanout) run(ctx context.Context, fn func(context.Context)) {
	if a.fanout == nil {
		return
	}
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("alert dispatch panicked", zap.Any("panic", r), zap.Stack("stack"))
			}
		}()
		fn(detached)
	}()
}
