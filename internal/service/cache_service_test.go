package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/models"
)

type brokenCacheRepo struct{ err error }

func (b *brokenCacheRepo) Get(context.Context, string, interface{}) error { return b.err }

func (b *brokenCacheRepo) Set(context.Context, string, interface{}, time.Duration) error {
	return b.err
}

func (b *brokenCacheRepo) DeleteByPattern(context.Context, string) error { return b.err }

func TestCacheServiceRoundTrip(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCacheRepo(), metrics, 0, nil, true)
	ctx := context.Background()

	var board models.Leaderboard
	hit, err := svc.Get(ctx, "ranking:exam-1", &board)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "ranking:exam-1", models.Leaderboard{ExamID: "exam-1"}, 0))
	hit, err = svc.Get(ctx, "ranking:exam-1", &board)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "exam-1", board.ExamID)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 1e-9)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.Zero(t, repo.sets)

	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), "k", new(string))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, nilSvc.Invalidate(context.Background(), "*"))
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	boom := errors.New("redis timeout")
	svc := NewCacheService(&brokenCacheRepo{err: boom}, nil, time.Minute, nil, true)

	hit, err := svc.Get(context.Background(), "k", new(string))
	assert.False(t, hit)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, svc.Invalidate(context.Background(), "*"), boom)
}
