package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/database"
)

const (
	DefaultRecentRoutes   = 10
	DefaultFrequentRoutes = 5
)

// RouteHistoryService keeps the trips a user has taken for quick restarts.
type RouteHistoryService struct {
	routes database.RouteHistoryRepository
	clock  Clock
}

func NewRouteHistoryService(routes database.RouteHistoryRepository, clock Clock) *RouteHistoryService {
	if clock == nil {
		clock = SystemClock()
	}
	return &RouteHistoryService{routes: routes, clock: clock}
}

// Save records a trip, merging it with an earlier one between the same
// origin and destination names.
func (s *RouteHistoryService) Save(ctx context.Context, e *domain.RouteHistoryEntry) error {
	e.Origin.Name = strings.TrimSpace(e.Origin.Name)
	e.Destination.Name = strings.TrimSpace(e.Destination.Name)
	if e.UserID == "" || e.Origin.Name == "" || e.Destination.Name == "" {
		return fmt.Errorf("origin and destination names are required: %w", domain.ErrInvalidRoute)
	}
	if !e.Origin.Position.Valid() || !e.Destination.Position.Valid() {
		return fmt.Errorf("route endpoints: %w", domain.ErrInvalidCoordinate)
	}
	if e.DurationMin < 0 || e.DistanceM < 0 {
		return fmt.Errorf("negative duration or distance: %w", domain.ErrInvalidRoute)
	}

	now := s.clock.Now()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.LastUsedAt = now
	e.UsedCount = 1
	e.IsFavorite = false
	if err := s.routes.Save(ctx, e); err != nil {
		return fmt.Errorf("save route for %s: %w", e.UserID, err)
	}
	return nil
}

func (s *RouteHistoryService) Recent(ctx context.Context, userID string, limit int) ([]domain.RouteHistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentRoutes
	}
	return s.routes.Recent(ctx, userID, limit)
}

func (s *RouteHistoryService) Frequent(ctx context.Context, userID string, limit int) ([]domain.RouteHistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultFrequentRoutes
	}
	return s.routes.Frequent(ctx, userID, limit)
}

func (s *RouteHistoryService) Favorites(ctx context.Context, userID string) ([]domain.RouteHistoryEntry, error) {
	return s.routes.Favorites(ctx, userID)
}

func (s *RouteHistoryService) SetFavorite(ctx context.Context, userID, id string, favorite bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	return s.routes.SetFavorite(ctx, userID, id, favorite)
}

func (s *RouteHistoryService) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	return s.routes.Delete(ctx, userID, id)
}
