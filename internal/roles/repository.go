package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("role grant not found")

// Repository describes role grant persistence operations.
type Repository interface {
	Upsert(ctx context.Context, g Grant) (Grant, error)
	FindBySubject(ctx context.Context, subjectID uuid.UUID) (*Grant, error)
	Deactivate(ctx context.Context, subjectID uuid.UUID) (*Grant, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const grantColumns = `id, subject_id, roles, permissions, active, deactivated_at, created_at, updated_at`

func (r *repository) Upsert(ctx context.Context, g Grant) (Grant, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO role_grants (subject_id, roles, permissions, active)
VALUES ($1, $2, $3, $4)
ON CONFLICT (subject_id) WHERE active DO UPDATE SET roles = EXCLUDED.roles, permissions = EXCLUDED.permissions, active = EXCLUDED.active, updated_at = NOW()
RETURNING `+grantColumns, g.SubjectID, g.Roles, g.Permissions, g.Active)
	grant, err := scanGrant(row)
	if err != nil {
		return Grant{}, fmt.Errorf("roles: upsert: %w", err)
	}
	return grant, nil
}

// FindBySubject returns the subject's grant, or nil when none exists.
func (r *repository) FindBySubject(ctx context.Context, subjectID uuid.UUID) (*Grant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+grantColumns+` FROM role_grants WHERE subject_id = $1`, subjectID)
	grant, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

// Deactivate marks the subject's grant inactive and returns the prior
// state for the audit payload. Returns nil when no grant exists or the
// grant was deactivated earlier, so callers never re-report old grants.
func (r *repository) Deactivate(ctx context.Context, subjectID uuid.UUID) (*Grant, error) {
	prior, err := r.FindBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if prior == nil || !prior.Active {
		return nil, nil
	}
	_, err = r.pool.Exec(ctx, `UPDATE role_grants SET active = FALSE, deactivated_at = NOW(), updated_at = NOW() WHERE subject_id = $1 AND active`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("roles: deactivate: %w", err)
	}
	return prior, nil
}

func scanGrant(row pgx.Row) (Grant, error) {
	var g Grant
	var deactivatedAt pgtype.Timestamptz
	if err := row.Scan(&g.ID, &g.SubjectID, &g.Roles, &g.Permissions, &g.Active, &deactivatedAt, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return Grant{}, err
	}
	if deactivatedAt.Valid {
		val := deactivatedAt.Time
		g.DeactivatedAt = &val
	}
	return g, nil
}
