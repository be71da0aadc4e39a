package departments

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-hr/meridian-hr/internal/platform/cache"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

// Service exposes department directory lookups. Head lookups go through a
// short-TTL redis cache since checklist creation fans out one lookup per
// department.
type Service struct {
	repo  Repository
	cache *cache.JSONCache
}

// NewService constructs the service.
func NewService(repo Repository, jsonCache *cache.JSONCache) *Service {
	return &Service{repo: repo, cache: jsonCache}
}

// Upsert creates or updates a department by name.
func (s *Service) Upsert(ctx context.Context, d Department) (Department, error) {
	dep, err := s.repo.Upsert(ctx, d)
	if err != nil {
		return Department{}, err
	}
	_ = s.cache.Invalidate(ctx, headCacheKey(dep.Name))
	return dep, nil
}

// Get returns one department by name.
func (s *Service) Get(ctx context.Context, name string) (Department, error) {
	dep, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Department{}, fmt.Errorf("%w: department %s", httpx.ErrNotFound, name)
		}
		return Department{}, err
	}
	return dep, nil
}

// List returns all departments.
func (s *Service) List(ctx context.Context) ([]Department, error) {
	return s.repo.List(ctx)
}

// FindHead resolves the department head. A missing department or an unset
// head returns nil without error; callers treat head lookups as best-effort.
func (s *Service) FindHead(ctx context.Context, name string) (*Head, error) {
	var head *Head
	err := s.cache.Fetch(ctx, headCacheKey(name), &head, func(ctx context.Context) (interface{}, error) {
		dep, err := s.repo.GetByName(ctx, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return (*Head)(nil), nil
			}
			return nil, err
		}
		if dep.HeadEmployeeID == nil {
			return (*Head)(nil), nil
		}
		return &Head{EmployeeID: *dep.HeadEmployeeID}, nil
	})
	if err != nil {
		return nil, err
	}
	return head, nil
}

func headCacheKey(name string) string {
	return "departments:head:" + name
}
