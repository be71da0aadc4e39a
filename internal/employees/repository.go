package employees

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("employee not found")
	ErrDuplicate = errors.New("employee number already exists")
)

// Repository describes employee persistence operations.
type Repository interface {
	Create(ctx context.Context, e Employee) (Employee, error)
	Get(ctx context.Context, id uuid.UUID) (Employee, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, req ListRequest) ([]Employee, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, effectiveFrom time.Time) (Employee, error)
}

// ListRequest filters employee listings.
type ListRequest struct {
	Department *string
	Status     *Status
	Search     *string
	Limit      int
	Offset     int
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const employeeColumns = `id, number, full_name, email, department, status, terminated_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, e Employee) (Employee, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO employees (id, number, full_name, email, department, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+employeeColumns, e.ID, e.Number, e.FullName, e.Email, e.Department, string(e.Status))
	created, err := scanEmployee(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Employee{}, ErrDuplicate
		}
		return Employee{}, fmt.Errorf("employees: create: %w", err)
	}
	return created, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	e, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM employees WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("employees: exists: %w", err)
	}
	return exists, nil
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]Employee, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.Department != nil {
		conditions = append(conditions, fmt.Sprintf("department = $%d", argPos))
		args = append(args, *req.Department)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE '%%' || $%d || '%%' OR number ILIKE '%%' || $%d || '%%')", argPos, argPos))
		args = append(args, *req.Search)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM employees "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT "+employeeColumns+" FROM employees %s ORDER BY number LIMIT $%d OFFSET $%d", whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, e)
	}
	return list, total, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, effectiveFrom time.Time) (Employee, error) {
	var terminatedAt pgtype.Timestamptz
	if status == StatusTerminated {
		terminatedAt = pgtype.Timestamptz{Time: effectiveFrom, Valid: true}
	}
	row := r.pool.QueryRow(ctx, `UPDATE employees
SET status = $2, terminated_at = $3, updated_at = NOW()
WHERE id = $1
RETURNING `+employeeColumns, id, string(status), terminatedAt)
	e, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, fmt.Errorf("employees: update status: %w", err)
	}
	return e, nil
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	var status string
	var terminatedAt pgtype.Timestamptz
	if err := row.Scan(&e.ID, &e.Number, &e.FullName, &e.Email, &e.Department, &status, &terminatedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Employee{}, err
	}
	e.Status = Status(status)
	if terminatedAt.Valid {
		val := terminatedAt.Time
		e.TerminatedAt = &val
	}
	return e, nil
}
