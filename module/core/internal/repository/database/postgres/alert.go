package postgres

import (
	"context"
	"database/sql"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/database"
)

var _ database.AlertRepository = (*AlertRepo)(nil)

const alertTypeDeviation = "deviation"

type AlertRepo struct {
	db *sql.DB
}

func NewAlertRepo(db *sql.DB) *AlertRepo {
	return &AlertRepo{db: db}
}

func (r *AlertRepo) Insert(ctx context.Context, a *domain.DeviationAlert) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alerts (id, user_id, guardian_id, type, latitude, longitude, distance, message, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.GuardianID, alertTypeDeviation, a.Position.Lat, a.Position.Lon, a.DistanceMeters, a.Message, a.CreatedAt,
	)
	return err
}

func (r *AlertRepo) ListByGuardian(ctx context.Context, guardianID string, limit int) ([]domain.DeviationAlert, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, guardian_id, latitude, longitude, distance, message, created_at FROM alerts WHERE guardian_id = $1 AND type = $2 ORDER BY created_at DESC LIMIT $3`,
		guardianID, alertTypeDeviation, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.DeviationAlert
	for rows.Next() {
		var a domain.DeviationAlert
		if err := rows.Scan(&a.ID, &a.UserID, &a.GuardianID, &a.Position.Lat, &a.Position.Lon, &a.DistanceMeters, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}
