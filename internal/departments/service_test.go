package departments

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hr/meridian-hr/internal/platform/cache"
)

type memRepo struct {
	byName map[string]Department
	gets   int
}

func (m *memRepo) Upsert(_ context.Context, d Department) (Department, error) {
	if m.byName == nil {
		m.byName = make(map[string]Department)
	}
	m.byName[d.Name] = d
	return d, nil
}

func (m *memRepo) GetByName(_ context.Context, name string) (Department, error) {
	m.gets++
	d, ok := m.byName[name]
	if !ok {
		return Department{}, ErrNotFound
	}
	return d, nil
}

func (m *memRepo) List(_ context.Context) ([]Department, error) {
	var list []Department
	for _, d := range m.byName {
		list = append(list, d)
	}
	return list, nil
}

func newCachedService(t *testing.T, repo *memRepo) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, cache.NewJSONCache(client, time.Minute))
}

func TestFindHeadCachesLookups(t *testing.T) {
	headID := uuid.New()
	repo := &memRepo{byName: map[string]Department{
		"IT": {Name: "IT", HeadEmployeeID: &headID},
	}}
	service := newCachedService(t, repo)

	head, err := service.FindHead(context.Background(), "IT")
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, headID, head.EmployeeID)

	head, err = service.FindHead(context.Background(), "IT")
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, 1, repo.gets)
}

func TestFindHeadMissingDepartmentIsNil(t *testing.T) {
	service := newCachedService(t, &memRepo{})
	head, err := service.FindHead(context.Background(), "Legal")
	require.NoError(t, err)
	assert.Nil(t, head)
}

func TestFindHeadUnsetHeadIsNil(t *testing.T) {
	repo := &memRepo{byName: map[string]Department{
		"Admin": {Name: "Admin"},
	}}
	service := newCachedService(t, repo)
	head, err := service.FindHead(context.Background(), "Admin")
	require.NoError(t, err)
	assert.Nil(t, head)
}

func TestUpsertInvalidatesHeadCache(t *testing.T) {
	oldHead := uuid.New()
	repo := &memRepo{byName: map[string]Department{
		"Finance": {Name: "Finance", HeadEmployeeID: &oldHead},
	}}
	service := newCachedService(t, repo)

	head, err := service.FindHead(context.Background(), "Finance")
	require.NoError(t, err)
	require.NotNil(t, head)

	newHead := uuid.New()
	_, err = service.Upsert(context.Background(), Department{Name: "Finance", HeadEmployeeID: &newHead})
	require.NoError(t, err)

	head, err = service.FindHead(context.Background(), "Finance")
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, newHead, head.EmployeeID)
}
