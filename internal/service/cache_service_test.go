package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCacheRepo struct{ stubCacheRepo }

func (f *failingCacheRepo) Get(context.Context, string, interface{}) error {
	return errors.New("connection refused")
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := &stubCacheRepo{}
	svc := NewCacheService(repo, nil, time.Minute, nil, false)

	require.NoError(t, svc.Set(context.Background(), "analytics:overview", 1, 0))
	var out int
	hit, err := svc.Get(context.Background(), "analytics:overview", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, repo.store)

	var nilSvc *CacheService
	nilSvc.InvalidateAnalytics(context.Background())
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(&stubCacheRepo{}, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out map[string]int
	hit, err := svc.Get(ctx, "analytics:overview", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "analytics:overview", map[string]int{"totalClos": 3}, 0))
	hit, err = svc.Get(ctx, "analytics:overview", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, out["totalClos"])

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	svc := NewCacheService(&failingCacheRepo{}, nil, time.Minute, nil, true)
	var out int
	hit, err := svc.Get(context.Background(), "analytics:overview", &out)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestCacheServiceSkipsWritesFromOlderGeneration(t *testing.T) {
	repo := &stubCacheRepo{}
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	gen := svc.Generation()
	svc.InvalidateAnalytics(ctx)
	require.NoError(t, svc.SetIfGeneration(ctx, "analytics:overview", 1, 0, gen))
	assert.Empty(t, repo.store)

	require.NoError(t, svc.SetIfGeneration(ctx, "analytics:overview", 2, 0, svc.Generation()))
	assert.Contains(t, repo.store, "analytics:overview")
}
