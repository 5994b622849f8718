package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Statistics accumulates limiter activity counters in memory.
type Statistics struct {
	mu            sync.Mutex
	totalRequests int64
	blocked       int64
	byTier        map[string]int64
	blockedByTier map[string]int64
	startTime     time.Time
}

// StatsSnapshot is a point-in-time view of limiter activity.
type StatsSnapshot struct {
	TotalRequests   int64            `json:"total_requests"`
	BlockedRequests int64            `json:"blocked_requests"`
	BlockRate       float64          `json:"block_rate"`
	RequestsByTier  map[string]int64 `json:"requests_by_tier"`
	BlockedByTier   map[string]int64 `json:"blocked_by_tier"`
	UptimeHours     float64          `json:"uptime_hours"`
}

// NewStatistics creates zeroed statistics anchored at the current time.
func NewStatistics() *Statistics {
	return &Statistics{
		byTier:        make(map[string]int64),
		blockedByTier: make(map[string]int64),
		startTime:     time.Now(),
	}
}

// Record counts one request attempt for a tier.
func (s *Statistics) Record(tier string, blocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests++
	s.byTier[tier]++
	if blocked {
		s.blocked++
		s.blockedByTier[tier]++
	}
}

// Snapshot copies the counters into an exportable view.
func (s *Statistics) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.totalRequests
	if total == 0 {
		total = 1
	}

	byTier := make(map[string]int64, len(s.byTier))
	for k, v := range s.byTier {
		byTier[k] = v
	}
	blockedByTier := make(map[string]int64, len(s.blockedByTier))
	for k, v := range s.blockedByTier {
		blockedByTier[k] = v
	}

	return StatsSnapshot{
		TotalRequests:   s.totalRequests,
		BlockedRequests: s.blocked,
		BlockRate:       round4(float64(s.blocked) / float64(total)),
		RequestsByTier:  byTier,
		BlockedByTier:   blockedByTier,
		UptimeHours:     round2(time.Since(s.startTime).Hours()),
	}
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
