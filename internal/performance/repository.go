package performance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository describes performance review lookups.
type Repository interface {
	LatestScored(ctx context.Context, employeeID uuid.UUID) (*Review, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// LatestScored returns the most recent scored review, or nil when the
// employee has never been reviewed.
func (r *repository) LatestScored(ctx context.Context, employeeID uuid.UUID) (*Review, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, employee_id, score, summary, reviewed_at
FROM performance_reviews
WHERE employee_id = $1 AND score IS NOT NULL
ORDER BY reviewed_at DESC
LIMIT 1`, employeeID)

	var rev Review
	if err := row.Scan(&rev.ID, &rev.EmployeeID, &rev.Score, &rev.Summary, &rev.ReviewedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rev, nil
}
