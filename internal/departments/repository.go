package departments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("department not found")

// Repository describes department persistence operations.
type Repository interface {
	Upsert(ctx context.Context, d Department) (Department, error)
	GetByName(ctx context.Context, name string) (Department, error)
	List(ctx context.Context) ([]Department, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const departmentColumns = `id, name, head_employee_id, created_at, updated_at`

func (r *repository) Upsert(ctx context.Context, d Department) (Department, error) {
	var head pgtype.UUID
	if d.HeadEmployeeID != nil {
		head = pgtype.UUID{Bytes: *d.HeadEmployeeID, Valid: true}
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO departments (name, head_employee_id)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET head_employee_id = EXCLUDED.head_employee_id, updated_at = NOW()
RETURNING `+departmentColumns, d.Name, head)
	dep, err := scanDepartment(row)
	if err != nil {
		return Department{}, fmt.Errorf("departments: upsert: %w", err)
	}
	return dep, nil
}

func (r *repository) GetByName(ctx context.Context, name string) (Department, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE name = $1`, name)
	dep, err := scanDepartment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, ErrNotFound
		}
		return Department{}, err
	}
	return dep, nil
}

func (r *repository) List(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+departmentColumns+` FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Department
	for rows.Next() {
		dep, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, dep)
	}
	return list, rows.Err()
}

func scanDepartment(row pgx.Row) (Department, error) {
	var d Department
	var head pgtype.UUID
	if err := row.Scan(&d.ID, &d.Name, &head, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return Department{}, err
	}
	if head.Valid {
		val := uuid.UUID(head.Bytes)
		d.HeadEmployeeID = &val
	}
	return d, nil
}
