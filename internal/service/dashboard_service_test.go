package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	appErrors "github.com/noah-isme/dept-csat-engine/pkg/errors"
)

type memoryCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

type dashboardRepoStub struct {
	total, submitted int
	performance      []dto.DepartmentPerformance
	raters           []dto.RaterRating
	calls            int
}

func (s *dashboardRepoStub) CountCatalog(ctx context.Context) (int, int, error) {
	s.calls++
	return s.total, s.submitted, nil
}

func (s *dashboardRepoStub) DepartmentPerformance(ctx context.Context) ([]dto.DepartmentPerformance, error) {
	return s.performance, nil
}

func (s *dashboardRepoStub) RatingsByRater(ctx context.Context, departmentID string) ([]dto.RaterRating, error) {
	s.calls++
	return s.raters, nil
}

func TestDashboardAdminUsesCache(t *testing.T) {
	repo := &dashboardRepoStub{
		total:     12,
		submitted: 9,
		performance: []dto.DepartmentPerformance{
			{DepartmentID: "d-fin", Name: "Finance", SuperOverall: 91.5, Ratings: 3},
			{DepartmentID: "d-log", Name: "Logistics", SuperOverall: 79.99, Ratings: 2},
		},
	}
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, NewMetricsService(), time.Minute, nil, true)
	svc := NewDashboardService(repo, repo, cache, nil, DashboardServiceConfig{})

	resp, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, resp.SurveysNotSubmitted)
	assert.Equal(t, []string{"Logistics"}, resp.BelowTarget)
	assert.Equal(t, 80.0, resp.PerformanceTarget)

	_, err = svc.Admin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	cache.InvalidateDashboards(context.Background())
	_, err = svc.Admin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestDashboardRatingsByRaterWithoutCache(t *testing.T) {
	repo := &dashboardRepoStub{}
	svc := NewDashboardService(repo, repo, nil, nil, DashboardServiceConfig{PerformanceTarget: 85})

	rows, err := svc.RatingsByRater(context.Background(), "d-log")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	_, err = svc.RatingsByRater(context.Background(), "")
	assert.Error(t, err)
}
