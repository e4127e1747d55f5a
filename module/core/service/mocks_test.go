package service

import (
	"context"
	"sync"
	"time"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingDispatcher captures everything a Tracker or Session hands off.
type recordingDispatcher struct {
	mu        sync.Mutex
	alerts    []domain.DeviationAlert
	recovered []domain.Coordinate
	shares    []domain.LocationShare
	spoken    []string
}

func (d *recordingDispatcher) DispatchDeviationAlert(_ context.Context, alert domain.DeviationAlert) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = append(d.alerts, alert)
}

func (d *recordingDispatcher) ShareRecovered(_ context.Context, _ string, pos domain.Coordinate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recovered = append(d.recovered, pos)
}

func (d *recordingDispatcher) ShareLocation(_ context.Context, share *domain.LocationShare) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shares = append(d.shares, *share)
}

func (d *recordingDispatcher) AnnounceStep(_ context.Context, _ string, instruction string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spoken = append(d.spoken, instruction)
}

func (d *recordingDispatcher) AnnounceArrival(_ context.Context, _ string, destination string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spoken = append(d.spoken, "arrived:"+destination)
}

func (d *recordingDispatcher) announcements() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.spoken...)
}

func (d *recordingDispatcher) counts() (alerts, recovered, shares int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.alerts), len(d.recovered), len(d.shares)
}

type mockVoice struct {
	fn        func(ctx context.Context, userID string, distance float64) error
	stepFn    func(ctx context.Context, userID, instruction string) error
	arrivalFn func(ctx context.Context, userID, destination string) error
}

func (m *mockVoice) SpeakDeviationAlert(ctx context.Context, userID string, distance float64) error {
	return m.fn(ctx, userID, distance)
}

func (m *mockVoice) SpeakNavigation(ctx context.Context, userID, instruction string) error {
	if m.stepFn == nil {
		return nil
	}
	return m.stepFn(ctx, userID, instruction)
}

func (m *mockVoice) SpeakArrival(ctx context.Context, userID, destination string) error {
	if m.arrivalFn == nil {
		return nil
	}
	return m.arrivalFn(ctx, userID, destination)
}

type mockPush struct {
	fn func(ctx context.Context, userID string, distance float64) error
}

func (m *mockPush) SendDeviationPush(ctx context.Context, userID string, distance float64) error {
	return m.fn(ctx, userID, distance)
}

type mockGuardianPublisher struct {
	fn func(ctx context.Context, alert *domain.DeviationAlert) error
}

func (m *mockGuardianPublisher) PublishDeviation(ctx context.Context, alert *domain.DeviationAlert) error {
	return m.fn(ctx, alert)
}

type mockAlertRepo struct {
	insertFn func(ctx context.Context, alert *domain.DeviationAlert) error
	listFn   func(ctx context.Context, guardianID string, limit int) ([]domain.DeviationAlert, error)
}

func (m *mockAlertRepo) Insert(ctx context.Context, alert *domain.DeviationAlert) error {
	return m.insertFn(ctx, alert)
}

func (m *mockAlertRepo) ListByGuardian(ctx context.Context, guardianID string, limit int) ([]domain.DeviationAlert, error) {
	return m.listFn(ctx, guardianID, limit)
}

type mockShareRepo struct {
	upsertFn func(ctx context.Context, share *domain.LocationShare) error
	getFn    func(ctx context.Context, userID string) (*domain.LocationShare, error)
}

func (m *mockShareRepo) Upsert(ctx context.Context, share *domain.LocationShare) error {
	return m.upsertFn(ctx, share)
}

func (m *mockShareRepo) Get(ctx context.Context, userID string) (*domain.LocationShare, error) {
	return m.getFn(ctx, userID)
}

type mockLocationRepo struct {
	insertFn     func(ctx context.Context, sample *domain.Sample) error
	getLatestFn  func(ctx context.Context, userID string) (*domain.Sample, error)
	getHistoryFn func(ctx context.Context, query *domain.HistoryQuery) ([]domain.Sample, error)
}

func (m *mockLocationRepo) Insert(ctx context.Context, sample *domain.Sample) error {
	return m.insertFn(ctx, sample)
}

func (m *mockLocationRepo) GetLatest(ctx context.Context, userID string) (*domain.Sample, error) {
	return m.getLatestFn(ctx, userID)
}

func (m *mockLocationRepo) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.Sample, error) {
	return m.getHistoryFn(ctx, query)
}

type mockCompleter struct {
	fn func(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	return m.fn(ctx, messages)
}

// offset returns a coordinate roughly meters north of c.
func offset(c domain.Coordinate, meters float64) domain.Coordinate {
	return domain.Coordinate{Lat: c.Lat + meters/111195.0, Lon: c.Lon}
}

type mockLinkRepo struct {
	createFn func(ctx context.Context, link *domain.GuardianLink) error
	redeemFn func(ctx context.Context, code, guardianID string, at time.Time) (*domain.GuardianLink, error)
	getFn    func(ctx context.Context, userID string) (*domain.GuardianLink, error)
	listFn   func(ctx context.Context, guardianID string) ([]domain.GuardianLink, error)
}

func (m *mockLinkRepo) CreateCode(ctx context.Context, link *domain.GuardianLink) error {
	return m.createFn(ctx, link)
}

func (m *mockLinkRepo) Redeem(ctx context.Context, code, guardianID string, at time.Time) (*domain.GuardianLink, error) {
	return m.redeemFn(ctx, code, guardianID, at)
}

func (m *mockLinkRepo) GetByUser(ctx context.Context, userID string) (*domain.GuardianLink, error) {
	return m.getFn(ctx, userID)
}

func (m *mockLinkRepo) ListByGuardian(ctx context.Context, guardianID string) ([]domain.GuardianLink, error) {
	return m.listFn(ctx, guardianID)
}

type mockHistoryRepo struct {
	saveFn        func(ctx context.Context, entry *domain.RouteHistoryEntry) error
	recentFn      func(ctx context.Context, userID string, limit int) ([]domain.RouteHistoryEntry, error)
	frequentFn    func(ctx context.Context, userID string, limit int) ([]domain.RouteHistoryEntry, error)
	favoritesFn   func(ctx context.Context, userID string) ([]domain.RouteHistoryEntry, error)
	setFavoriteFn func(ctx context.Context, userID, id string, favorite bool) error
	deleteFn      func(ctx context.Context, userID, id string) error
}

func (m *mockHistoryRepo) Save(ctx context.Context, entry *domain.RouteHistoryEntry) error {
	return m.saveFn(ctx, entry)
}

func (m *mockHistoryRepo) Recent(ctx context.Context, userID string, limit int) ([]domain.RouteHistoryEntry, error) {
	return m.recentFn(ctx, userID, limit)
}

func (m *mockHistoryRepo) Frequent(ctx context.Context, userID string, limit int) ([]domain.RouteHistoryEntry, error) {
	return m.frequentFn(ctx, userID, limit)
}

func (m *mockHistoryRepo) Favorites(ctx context.Context, userID string) ([]domain.RouteHistoryEntry, error) {
	return m.favoritesFn(ctx, userID)
}

func (m *mockHistoryRepo) SetFavorite(ctx context.Context, userID, id string, favorite bool) error {
	return m.setFavoriteFn(ctx, userID, id, favorite)
}

func (m *mockHistoryRepo) Delete(ctx context.Context, userID, id string) error {
	return m.deleteFn(ctx, userID, id)
}
