package employees

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

// Service exposes the employee directory operations the rest of the
// platform depends on.
type Service struct {
	repo Repository
}

// NewService constructs the service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new employee in ACTIVE status.
func (s *Service) Create(ctx context.Context, req CreateEmployeeRequest) (Employee, error) {
	e := Employee{
		Number:     req.Number,
		FullName:   req.FullName,
		Email:      req.Email,
		Department: req.Department,
		Status:     StatusActive,
	}
	created, err := s.repo.Create(ctx, e)
	if err != nil {
		if err == ErrDuplicate {
			return Employee{}, fmt.Errorf("%w: employee number %s", httpx.ErrConflict, req.Number)
		}
		return Employee{}, fmt.Errorf("create employee: %w", err)
	}
	return created, nil
}

// Get returns one employee.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Employee, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return Employee{}, fmt.Errorf("%w: employee %s", httpx.ErrNotFound, id)
		}
		return Employee{}, err
	}
	return e, nil
}

// Exists reports whether an employee record exists.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// GetStatus returns the current employment status.
func (s *Service) GetStatus(ctx context.Context, id uuid.UUID) (Status, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return e.Status, nil
}

// SetStatus flips the employment status with an effective timestamp.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status Status, effectiveFrom time.Time) (Employee, error) {
	if !status.Valid() {
		return Employee{}, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, status)
	}
	e, err := s.repo.UpdateStatus(ctx, id, status, effectiveFrom)
	if err != nil {
		if err == ErrNotFound {
			return Employee{}, fmt.Errorf("%w: employee %s", httpx.ErrNotFound, id)
		}
		return Employee{}, err
	}
	return e, nil
}

// List returns a filtered page of employees.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Employee, int, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}
