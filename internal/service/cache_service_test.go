package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingCacheRepo struct{ *memoryCacheRepo }

func (f *failingCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("connection reset")
}

func (f *failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection reset")
}

func TestCacheServiceCountsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewCacheService(newMemoryCacheRepo(), metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out []string
	hit, err := cache.Get(ctx, raterDashboardKey("d-fin"), &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, raterDashboardKey("d-fin"), []string{"Logistics"}, 0))
	hit, err = cache.Get(ctx, raterDashboardKey("d-fin"), &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"Logistics"}, out)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
}

func TestCacheServiceReadFailureFallsThrough(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewCacheService(&failingCacheRepo{newMemoryCacheRepo()}, metrics, time.Minute, nil, true)

	var out []string
	hit, err := cache.Get(context.Background(), adminDashboardKey(), &out)
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.cacheMisses))
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, false)
	ctx := context.Background()

	assert.False(t, cache.Enabled())
	require.NoError(t, cache.Set(ctx, adminDashboardKey(), 1, 0))
	assert.Empty(t, repo.items)
	cache.InvalidateDashboards(ctx)

	var nilCache *CacheService
	hit, err := nilCache.Get(ctx, adminDashboardKey(), new(int))
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceInvalidationFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cache := NewCacheService(&failingCacheRepo{newMemoryCacheRepo()}, nil, time.Minute, zap.New(core), true)

	cache.InvalidateDashboards(context.Background())

	require.Equal(t, 1, logs.FilterMessage("dashboard cache invalidation failed").Len())
}
