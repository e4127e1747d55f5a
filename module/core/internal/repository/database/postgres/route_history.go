package postgres

import (
	"context"
	"database/sql"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/database"
)

var _ database.RouteHistoryRepository = (*RouteHistoryRepo)(nil)

const routeHistoryColumns = `id, user_id, origin_name, origin_address, origin_lat, origin_lng, destination_name, destination_address, destination_lat, destination_lng, duration_min, distance_m, is_favorite, used_count, created_at, last_used_at`

type RouteHistoryRepo struct {
	db *sql.DB
}

func NewRouteHistoryRepo(db *sql.DB) *RouteHistoryRepo {
	return &RouteHistoryRepo{db: db}
}

// Save records a trip. A repeat of the same origin and destination names
// increments the existing entry and refreshes last_used_at; e is updated with
// the stored id, count and favorite flag.
func (r *RouteHistoryRepo) Save(ctx context.Context, e *domain.RouteHistoryEntry) error {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO route_history (id, user_id, origin_name, origin_address, origin_lat, origin_lng, destination_name, destination_address, destination_lat, destination_lng, duration_min, distance_m, used_count, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13, $13)
		ON CONFLICT (user_id, origin_name, destination_name) DO UPDATE SET used_count = route_history.used_count + 1, last_used_at = EXCLUDED.last_used_at
		RETURNING id, is_favorite, used_count, created_at`,
		e.ID, e.UserID,
		e.Origin.Name, e.Origin.Address, e.Origin.Position.Lat, e.Origin.Position.Lon,
		e.Destination.Name, e.Destination.Address, e.Destination.Position.Lat, e.Destination.Position.Lon,
		e.DurationMin, e.DistanceM, e.LastUsedAt,
	)
	return row.Scan(&e.ID, &e.IsFavorite, &e.UsedCount, &e.CreatedAt)
}

func (r *RouteHistoryRepo) Recent(ctx context.Context, userID string, limit int) ([]domain.RouteHistoryEntry, error) {
	return r.list(ctx,
		`SELECT `+routeHistoryColumns+` FROM route_history WHERE user_id = $1 ORDER BY last_used_at DESC LIMIT $2`,
		userID, limit)
}

func (r *RouteHistoryRepo) Frequent(ctx context.Context, userID string, limit int) ([]domain.RouteHistoryEntry, error) {
	return r.list(ctx,
		`SELECT `+routeHistoryColumns+` FROM route_history WHERE user_id = $1 ORDER BY used_count DESC, last_used_at DESC LIMIT $2`,
		userID, limit)
}

func (r *RouteHistoryRepo) Favorites(ctx context.Context, userID string) ([]domain.RouteHistoryEntry, error) {
	return r.list(ctx,
		`SELECT `+routeHistoryColumns+` FROM route_history WHERE user_id = $1 AND is_favorite ORDER BY last_used_at DESC`,
		userID)
}

func (r *RouteHistoryRepo) SetFavorite(ctx context.Context, userID, id string, favorite bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE route_history SET is_favorite = $3 WHERE id = $1 AND user_id = $2`,
		id, userID, favorite,
	)
	return affectedOne(res, err)
}

func (r *RouteHistoryRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM route_history WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return affectedOne(res, err)
}

func (r *RouteHistoryRepo) list(ctx context.Context, query string, args ...any) ([]domain.RouteHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.RouteHistoryEntry
	for rows.Next() {
		var e domain.RouteHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID,
			&e.Origin.Name, &e.Origin.Address, &e.Origin.Position.Lat, &e.Origin.Position.Lon,
			&e.Destination.Name, &e.Destination.Address, &e.Destination.Position.Lat, &e.Destination.Position.Lon,
			&e.DurationMin, &e.DistanceM, &e.IsFavorite, &e.UsedCount, &e.CreatedAt, &e.LastUsedAt); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
