package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/database"
)

var _ database.ShareRepository = (*ShareRepo)(nil)

type ShareRepo struct {
	db *sql.DB
}

func NewShareRepo(db *sql.DB) *ShareRepo {
	return &ShareRepo{db: db}
}

func (r *ShareRepo) Upsert(ctx context.Context, s *domain.LocationShare) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO location_updates (user_id, latitude, longitude, is_deviated, updated_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, is_deviated = EXCLUDED.is_deviated, updated_at = EXCLUDED.updated_at
		WHERE location_updates.updated_at <= EXCLUDED.updated_at`,
		s.UserID, s.Position.Lat, s.Position.Lon, s.IsDeviated, s.UpdatedAt,
	)
	return err
}

func (r *ShareRepo) Get(ctx context.Context, userID string) (*domain.LocationShare, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, latitude, longitude, is_deviated, updated_at FROM location_updates WHERE user_id = $1`,
		userID,
	)

	var s domain.LocationShare
	if err := row.Scan(&s.UserID, &s.Position.Lat, &s.Position.Lon, &s.IsDeviated, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
