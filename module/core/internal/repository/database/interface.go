package database

import (
	"context"
	"time"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

type LocationRepository interface {
	Insert(ctx context.Context, sample *domain.Sample) error
	GetLatest(ctx context.Context, userID string) (*domain.Sample, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.Sample, error)
}

type AlertRepository interface {
	Insert(ctx context.Context, alert *domain.DeviationAlert) error
	ListByGuardian(ctx context.Context, guardianID string, limit int) ([]domain.DeviationAlert, error)
}

type ShareRepository interface {
	Upsert(ctx context.Context, share *domain.LocationShare) error
	Get(ctx context.Context, userID string) (*domain.LocationShare, error)
}

type GuardianLinkRepository interface {
	CreateCode(ctx context.Context, link *domain.GuardianLink) error
	Redeem(ctx context.Context, code, guardianID string, at time.Time) (*domain.GuardianLink, error)
	GetByUser(ctx context.Context, userID string) (*domain.GuardianLink, error)
	ListByGuardian(ctx context.Context, guardianID string) ([]domain.GuardianLink, error)
}

type RouteHistoryRepository interface {
	Save(ctx context.Context, entry *domain.RouteHistoryEntry) error
	Recent(ctx context.Context, userID string, limit int) ([]domain.RouteHistoryEntry, error)
	Frequent(ctx context.Context, userID string, limit int) ([]domain.RouteHistoryEntry, error)
	Favorites(ctx context.Context, userID string) ([]domain.RouteHistoryEntry, error)
	SetFavorite(ctx context.Context, userID, id string, favorite bool) error
	Delete(ctx context.Context, userID, id string) error
}
