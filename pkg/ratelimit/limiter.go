// Package ratelimit implements a per-user sliding window rate limiter backed
// by the shared key-value store. The 24-hour window is divided into hourly
// sub-windows tracked as hash fields keyed by sub-window start timestamp.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pitchwire/pitchwire/pkg/kvstore"
)

const (
	// WindowDuration is the full sliding window.
	WindowDuration = 24 * time.Hour
	// SubWindows is the number of buckets the window is divided into.
	SubWindows = 24
	// SubWindowDuration is the width of one bucket.
	SubWindowDuration = WindowDuration / SubWindows

	// DefaultTier applies to identities with no stored tier.
	DefaultTier = "free"

	tierKeyPrefix  = "tier"
	limitKeyPrefix = "rl"
)

// TierLimits maps tier names to requests allowed per window.
var TierLimits = map[string]int{
	"free":    50,
	"premium": 500,
	"admin":   10000,
}

// Info describes the outcome of a rate limit check. It is returned to
// clients in 429 bodies and response headers.
type Info struct {
	Allowed        bool   `json:"allowed"`
	Tier           string `json:"tier"`
	Limit          int    `json:"limit"`
	CurrentUsage   int    `json:"current_usage"`
	Remaining      int    `json:"remaining"`
	ResetTime      int64  `json:"reset_time"`
	ResetInSeconds int64  `json:"reset_in_seconds"`
	WindowDuration int64  `json:"window_duration"`
	Error          string `json:"error,omitempty"`
}

// Limiter checks and records request usage per identity.
type Limiter struct {
	store  kvstore.Store
	logger *slog.Logger
	stats  *Statistics
	now    func() time.Time
}

// NewLimiter creates a Limiter on top of the shared store.
func NewLimiter(store kvstore.Store, logger *slog.Logger) *Limiter {
	return &Limiter{
		store:  store,
		logger: logger.With("component", "ratelimit"),
		stats:  NewStatistics(),
		now:    time.Now,
	}
}

func (l *Limiter) currentWindowStart() int64 {
	now := l.now().Unix()
	d := int64(SubWindowDuration / time.Second)
	return now - now%d
}

// GetTier returns the stored tier for an identity, falling back to the
// default tier when missing or when the store is unreachable.
func (l *Limiter) GetTier(ctx context.Context, userID string) string {
	tier, err := l.store.Get(ctx, tierKey(userID))
	if err != nil {
		if !kvstore.IsNotFound(err) {
			l.logger.Warn("failed to get user tier", "user_id", userID, "error", err)
		}
		return DefaultTier
	}
	if _, ok := TierLimits[tier]; !ok {
		return DefaultTier
	}
	return tier
}

// SetTier stores the tier for an identity. Unknown tiers are rejected.
func (l *Limiter) SetTier(ctx context.Context, userID, tier string) error {
	if _, ok := TierLimits[tier]; !ok {
		return fmt.Errorf("invalid tier: %s", tier)
	}
	if err := l.store.SetEx(ctx, tierKey(userID), tier, 0); err != nil {
		return fmt.Errorf("set user tier: %w", err)
	}
	l.logger.Info("user tier updated", "user_id", userID, "tier", tier)
	return nil
}

// Check evaluates the sliding window for an identity and, when the request
// is allowed, records it in the current sub-window. Store failures fail
// open: the request is allowed and the returned Info carries an error note.
func (l *Limiter) Check(ctx context.Context, userID string) (bool, Info) {
	tier := l.GetTier(ctx, userID)
	limit := TierLimits[tier]

	currentWindow := l.currentWindowStart()
	key := limitKey(userID)

	total, err := l.countWindow(ctx, key, currentWindow)
	if err != nil {
		l.logger.Error("rate limit check failed", "user_id", userID, "error", err)
		l.stats.Record(tier, false)
		return true, Info{
			Allowed: true,
			Error:   "Rate limit check failed",
			Tier:    tier,
			Limit:   limit,
		}
	}

	allowed := total < limit
	if allowed {
		if _, err := l.store.HIncrBy(ctx, key, strconv.FormatInt(currentWindow, 10), 1); err != nil {
			l.logger.Error("rate limit check failed", "user_id", userID, "error", err)
			l.stats.Record(tier, false)
			return true, Info{
				Allowed: true,
				Error:   "Rate limit check failed",
				Tier:    tier,
				Limit:   limit,
			}
		}
		if err := l.store.Expire(ctx, key, WindowDuration+time.Hour); err != nil {
			l.logger.Warn("failed to set rate limit key expiry", "user_id", userID, "error", err)
		}
	}

	used := total
	if allowed {
		used++
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	resetTime := currentWindow + int64(SubWindowDuration/time.Second)
	resetIn := resetTime - l.now().Unix()
	if resetIn < 0 {
		resetIn = 0
	}

	l.stats.Record(tier, !allowed)

	return allowed, Info{
		Allowed:        allowed,
		Tier:           tier,
		Limit:          limit,
		CurrentUsage:   used,
		Remaining:      remaining,
		ResetTime:      resetTime,
		ResetInSeconds: resetIn,
		WindowDuration: int64(WindowDuration / time.Second),
	}
}

// countWindow prunes expired sub-window buckets and sums the counts of the
// buckets still inside the sliding window.
func (l *Limiter) countWindow(ctx context.Context, key string, currentWindow int64) (int, error) {
	sub := int64(SubWindowDuration / time.Second)
	window := int64(WindowDuration / time.Second)
	cutoff := currentWindow - window

	fields, err := l.store.HKeys(ctx, key)
	if err != nil {
		return 0, err
	}
	for _, field := range fields {
		ts, err := strconv.ParseInt(field, 10, 64)
		if err != nil || ts < cutoff {
			if err := l.store.HDel(ctx, key, field); err != nil {
				l.logger.Warn("failed to prune rate limit bucket", "key", key, "field", field, "error", err)
			}
		}
	}

	windowStart := currentWindow - window + sub
	total := 0
	for i := int64(0); i < SubWindows; i++ {
		bucket := windowStart + i*sub
		v, err := l.store.HGet(ctx, key, strconv.FormatInt(bucket, 10))
		if err != nil {
			if kvstore.IsNotFound(err) {
				continue
			}
			return 0, err
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		total += n
	}
	return total, nil
}

// Stats returns a snapshot of limiter activity since startup.
func (l *Limiter) Stats() StatsSnapshot {
	return l.stats.Snapshot()
}

func tierKey(userID string) string  { return tierKeyPrefix + ":" + userID }
func limitKey(userID string) string { return limitKeyPrefix + ":" + userID }
