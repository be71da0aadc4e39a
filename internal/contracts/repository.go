package contracts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("contract not found")

// Repository describes contract persistence operations.
type Repository interface {
	Create(ctx context.Context, c Contract) (Contract, error)
	Get(ctx context.Context, id uuid.UUID) (Contract, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]Contract, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const contractColumns = `id, employee_id, contract_type, start_date, end_date, active, created_at`

func (r *repository) Create(ctx context.Context, c Contract) (Contract, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	var endDate pgtype.Date
	if c.EndDate != nil {
		endDate = pgtype.Date{Time: *c.EndDate, Valid: true}
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO contracts (id, employee_id, contract_type, start_date, end_date, active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+contractColumns, c.ID, c.EmployeeID, string(c.Type), c.StartDate, endDate, c.Active)
	created, err := scanContract(row)
	if err != nil {
		return Contract{}, fmt.Errorf("contracts: create: %w", err)
	}
	return created, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Contract, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contract{}, ErrNotFound
		}
		return Contract{}, err
	}
	return c, nil
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM contracts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("contracts: exists: %w", err)
	}
	return exists, nil
}

func (r *repository) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]Contract, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+contractColumns+` FROM contracts WHERE employee_id = $1 ORDER BY start_date DESC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func scanContract(row pgx.Row) (Contract, error) {
	var c Contract
	var contractType string
	var endDate pgtype.Date
	if err := row.Scan(&c.ID, &c.EmployeeID, &contractType, &c.StartDate, &endDate, &c.Active, &c.CreatedAt); err != nil {
		return Contract{}, err
	}
	c.Type = Type(contractType)
	if endDate.Valid {
		val := endDate.Time
		c.EndDate = &val
	}
	return c, nil
}
