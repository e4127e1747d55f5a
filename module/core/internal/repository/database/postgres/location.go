package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/database"
)

var _ database.LocationRepository = (*LocationRepo)(nil)

type LocationRepo struct {
	db *sql.DB
}

func NewLocationRepo(db *sql.DB) *LocationRepo {
	return &LocationRepo{db: db}
}

func (r *LocationRepo) Insert(ctx context.Context, s *domain.Sample) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_locations (user_id, latitude, longitude, timestamp) VALUES ($1, $2, $3, $4)`,
		s.UserID, s.Position.Lat, s.Position.Lon, s.Timestamp,
	)
	return err
}

func (r *LocationRepo) GetLatest(ctx context.Context, userID string) (*domain.Sample, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, latitude, longitude, timestamp FROM user_locations WHERE user_id = $1 ORDER BY timestamp DESC LIMIT 1`,
		userID,
	)

	var s domain.Sample
	if err := row.Scan(&s.UserID, &s.Position.Lat, &s.Position.Lon, &s.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *LocationRepo) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.Sample, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, latitude, longitude, timestamp FROM user_locations WHERE user_id = $1 AND timestamp >= $2 AND timestamp <= $3 ORDER BY timestamp ASC`,
		query.UserID, query.Start, query.End,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Sample
	for rows.Next() {
		var s domain.Sample
		if err := rows.Scan(&s.UserID, &s.Position.Lat, &s.Position.Lon, &s.Timestamp); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}
