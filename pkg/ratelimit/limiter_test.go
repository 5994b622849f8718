package ratelimit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchwire/pitchwire/pkg/kvstore"
)

func newTestLimiter(t *testing.T) (*Limiter, *kvstore.FakeStore) {
	t.Helper()
	store := kvstore.NewFakeStore()
	l := NewLimiter(store, slog.Default())
	return l, store
}

func TestLimiter_AllowsUnderLimit(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	allowed, info := l.Check(ctx, "user_abc")
	require.True(t, allowed)
	assert.Equal(t, "free", info.Tier)
	assert.Equal(t, 50, info.Limit)
	assert.Equal(t, 1, info.CurrentUsage)
	assert.Equal(t, 49, info.Remaining)
	assert.Equal(t, int64(24*3600), info.WindowDuration)
}

func TestLimiter_BlocksAtLimit(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	for i := 0; i < 50; i++ {
		allowed, _ := l.Check(ctx, "user_abc")
		require.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, info := l.Check(ctx, "user_abc")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 50, info.CurrentUsage)
}

func TestLimiter_LastAllowedRequestHasZeroRemaining(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	for i := 0; i < 49; i++ {
		l.Check(ctx, "user_abc")
	}

	allowed, info := l.Check(ctx, "user_abc")
	assert.True(t, allowed)
	assert.Equal(t, 50, info.CurrentUsage)
	assert.Equal(t, 0, info.Remaining)
}

func TestLimiter_PremiumTierLimit(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	require.NoError(t, l.SetTier(ctx, "user_vip", "premium"))

	allowed, info := l.Check(ctx, "user_vip")
	assert.True(t, allowed)
	assert.Equal(t, "premium", info.Tier)
	assert.Equal(t, 500, info.Limit)
	assert.Equal(t, 499, info.Remaining)
}

func TestLimiter_SetTierRejectsUnknown(t *testing.T) {
	l, _ := newTestLimiter(t)

	err := l.SetTier(context.Background(), "user_x", "platinum")
	assert.Error(t, err)
}

func TestLimiter_GetTierDefaultsWhenMissing(t *testing.T) {
	l, _ := newTestLimiter(t)

	assert.Equal(t, DefaultTier, l.GetTier(context.Background(), "nobody"))
}

func TestLimiter_OldBucketsFallOutOfWindow(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLimiter(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l.now = func() time.Time { return now }

	// Fill the limit entirely within one sub-window.
	for i := 0; i < 50; i++ {
		allowed, _ := l.Check(ctx, "user_abc")
		require.True(t, allowed)
	}
	allowed, _ := l.Check(ctx, "user_abc")
	require.False(t, allowed)

	// 25 hours later the bucket is outside the sliding window.
	now = base.Add(25 * time.Hour)
	allowed, info := l.Check(ctx, "user_abc")
	assert.True(t, allowed)
	assert.Equal(t, 1, info.CurrentUsage)

	// The stale bucket was pruned from the hash.
	fields, err := store.HKeys(ctx, "rl:user_abc")
	require.NoError(t, err)
	assert.Len(t, fields, 1)
}

func TestLimiter_ResetTimeIsNextSubWindow(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, info := l.Check(ctx, "user_abc")
	expectedReset := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, expectedReset, info.ResetTime)
	assert.Equal(t, int64(30*60), info.ResetInSeconds)
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLimiter(t)
	store.SetUnavailable(true)

	allowed, info := l.Check(ctx, "user_abc")
	assert.True(t, allowed)
	assert.True(t, info.Allowed)
	assert.Equal(t, "Rate limit check failed", info.Error)
	assert.Equal(t, "free", info.Tier)
	assert.Equal(t, 50, info.Limit)

	// The failed check still counts in the statistics.
	snap := l.Stats()
	assert.Equal(t, int64(1), snap.TotalRequests)
	assert.Equal(t, int64(0), snap.BlockedRequests)
	assert.Equal(t, int64(1), snap.RequestsByTier["free"])
}

func TestLimiter_CountsAcrossSubWindows(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLimiter(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	now := base
	l.now = func() time.Time { return now }

	// 20 requests in hour zero, 20 more in hour one.
	for i := 0; i < 20; i++ {
		l.Check(ctx, "user_abc")
	}
	now = base.Add(time.Hour)
	for i := 0; i < 20; i++ {
		l.Check(ctx, "user_abc")
	}

	// Both buckets exist and the combined usage counts against the limit.
	fields, err := store.HKeys(ctx, "rl:user_abc")
	require.NoError(t, err)
	require.Len(t, fields, 2)

	_, info := l.Check(ctx, "user_abc")
	assert.Equal(t, 41, info.CurrentUsage)
}

func TestLimiter_StatsTrackBlocks(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t)

	for i := 0; i < 50; i++ {
		l.Check(ctx, "user_abc")
	}
	l.Check(ctx, "user_abc")

	stats := l.Stats()
	assert.Equal(t, int64(51), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.BlockedRequests)
	assert.Equal(t, int64(51), stats.RequestsByTier["free"])
	assert.Equal(t, int64(1), stats.BlockedByTier["free"])
	assert.InDelta(t, 0.0196, stats.BlockRate, 0.0001)
}
