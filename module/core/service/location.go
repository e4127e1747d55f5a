package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/database"
)

// DefaultAlertLimit caps guardian alert listings when no limit is given.
const DefaultAlertLimit = 20

type LocationService struct {
	locations database.LocationRepository
	shares    database.ShareRepository
	alerts    database.AlertRepository
}

func NewLocationService(locations database.LocationRepository, shares database.ShareRepository, alerts database.AlertRepository) *LocationService {
	return &LocationService{locations: locations, shares: shares, alerts: alerts}
}

func (s *LocationService) SaveSample(ctx context.Context, sample *domain.Sample) error {
	return s.locations.Insert(ctx, sample)
}

func (s *LocationService) GetLatest(ctx context.Context, userID string) (*domain.Sample, error) {
	return s.locations.GetLatest(ctx, userID)
}

func (s *LocationService) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.Sample, error) {
	if query.End.Before(query.Start) {
		return nil, fmt.Errorf("history range: end %s before start %s", query.End, query.Start)
	}
	return s.locations.GetHistory(ctx, query)
}

// GetShare returns what the user's guardian currently sees.
func (s *LocationService) GetShare(ctx context.Context, userID string) (*domain.LocationShare, error) {
	share, err := s.shares.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if share == nil {
		return nil, domain.ErrNotFound
	}
	return share, nil
}

func (s *LocationService) ListAlerts(ctx context.Context, guardianID string, limit int) ([]domain.DeviationAlert, error) {
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	alerts, err := s.alerts.ListByGuardian(ctx, guardianID, limit)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return alerts, nil
}
