package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/nandanugg/route-guardian/module/core/domain"
	"github.com/nandanugg/route-guardian/module/core/internal/repository/database"
)

var _ database.GuardianLinkRepository = (*GuardianLinkRepo)(nil)

const uniqueViolation = "23505"

const guardianLinkColumns = `user_id, guardian_code, guardian_id, status, created_at, linked_at`

type GuardianLinkRepo struct {
	db *sql.DB
}

func NewGuardianLinkRepo(db *sql.DB) *GuardianLinkRepo {
	return &GuardianLinkRepo{db: db}
}

// CreateCode stores a fresh pending code for the user, dropping any guardian
// the user was linked to before.
func (r *GuardianLinkRepo) CreateCode(ctx context.Context, l *domain.GuardianLink) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO guardian_links (user_id, guardian_code, status, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET guardian_code = EXCLUDED.guardian_code, status = EXCLUDED.status, created_at = EXCLUDED.created_at, guardian_id = NULL, linked_at = NULL`,
		l.UserID, l.Code, string(domain.LinkPending), l.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrLinkCodeTaken
	}
	return err
}

// Redeem links guardianID to the user who owns a pending code. Codes are
// single use.
func (r *GuardianLinkRepo) Redeem(ctx context.Context, code, guardianID string, at time.Time) (*domain.GuardianLink, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE guardian_links SET guardian_id = $2, status = $3, linked_at = $4 WHERE guardian_code = $1 AND status = $5
		RETURNING `+guardianLinkColumns,
		code, guardianID, string(domain.LinkActive), at, string(domain.LinkPending),
	)
	l, err := scanGuardianLink(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidLinkCode
	}
	return l, err
}

func (r *GuardianLinkRepo) GetByUser(ctx context.Context, userID string) (*domain.GuardianLink, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+guardianLinkColumns+` FROM guardian_links WHERE user_id = $1`,
		userID,
	)
	return scanGuardianLink(row)
}

func (r *GuardianLinkRepo) ListByGuardian(ctx context.Context, guardianID string) ([]domain.GuardianLink, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+guardianLinkColumns+` FROM guardian_links WHERE guardian_id = $1 AND status = $2 ORDER BY linked_at DESC`,
		guardianID, string(domain.LinkActive),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.GuardianLink
	for rows.Next() {
		l, err := scanGuardianLink(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *l)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGuardianLink(s scanner) (*domain.GuardianLink, error) {
	var (
		l          domain.GuardianLink
		status     string
		guardianID sql.NullString
		linkedAt   sql.NullTime
	)
	if err := s.Scan(&l.UserID, &l.Code, &guardianID, &status, &l.CreatedAt, &linkedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	l.Status = domain.LinkStatus(status)
	l.GuardianID = guardianID.String
	if linkedAt.Valid {
		t := linkedAt.Time
		l.LinkedAt = &t
	}
	return &l, nil
}
