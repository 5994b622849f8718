package llmcache

import (
	"math"
	"sync"
	"time"

	"github.com/pitchwire/pitchwire/pkg/classifier"
)

// Statistics accumulates cache activity counters in memory.
type Statistics struct {
	mu              sync.Mutex
	hits            int64
	misses          int64
	totalRequests   int64
	saves           int64
	errors          int64
	noCacheRequests int64
	hitTimes        []float64
	missTimes       []float64
	categories      map[string]int64
	startTime       time.Time
}

// StatsSnapshot is a point-in-time view of cache activity.
type StatsSnapshot struct {
	TotalRequests       int64            `json:"total_requests"`
	CacheHits           int64            `json:"cache_hits"`
	CacheMisses         int64            `json:"cache_misses"`
	NoCacheRequests     int64            `json:"no_cache_requests"`
	CacheableRequests   int64            `json:"cacheable_requests"`
	HitRate             float64          `json:"hit_rate"`
	MissRate            float64          `json:"miss_rate"`
	CacheSaves          int64            `json:"cache_saves"`
	CacheErrors         int64            `json:"cache_errors"`
	AvgHitResponseTime  float64          `json:"avg_hit_response_time"`
	AvgMissResponseTime float64          `json:"avg_miss_response_time"`
	QueryCategories     map[string]int64 `json:"query_categories"`
	UptimeHours         float64          `json:"uptime_hours"`
}

// NewStatistics creates zeroed statistics anchored at the current time.
func NewStatistics() *Statistics {
	return &Statistics{
		categories: make(map[string]int64),
		startTime:  time.Now(),
	}
}

// RecordHit counts a cache hit with its lookup latency in seconds.
func (s *Statistics) RecordHit(responseTime float64, category classifier.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits++
	s.totalRequests++
	s.hitTimes = append(s.hitTimes, responseTime)
	s.categories[string(category)+"_hit"]++
}

// RecordMiss counts a cache miss with its lookup latency in seconds.
func (s *Statistics) RecordMiss(responseTime float64, category classifier.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.misses++
	s.totalRequests++
	s.missTimes = append(s.missTimes, responseTime)
	s.categories[string(category)+"_miss"]++
}

// RecordNoCache counts a personalized query that bypassed the cache.
func (s *Statistics) RecordNoCache(category classifier.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noCacheRequests++
	s.totalRequests++
	s.categories[string(category)+"_no_cache"]++
}

// RecordSave counts a successful cache write.
func (s *Statistics) RecordSave(category classifier.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.categories[string(category)+"_saved"]++
}

// RecordError counts a store or serialization failure.
func (s *Statistics) RecordError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
}

// Reset zeroes every counter and restarts the uptime clock.
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = 0
	s.misses = 0
	s.totalRequests = 0
	s.saves = 0
	s.errors = 0
	s.noCacheRequests = 0
	s.hitTimes = nil
	s.missTimes = nil
	s.categories = make(map[string]int64)
	s.startTime = time.Now()
}

// Snapshot copies the counters into an exportable view. Hit and miss rates
// are computed over cacheable requests only.
func (s *Statistics) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	cacheable := s.totalRequests - s.noCacheRequests
	var hitRate, missRate float64
	if cacheable > 0 {
		hitRate = float64(s.hits) / float64(cacheable)
		missRate = float64(s.misses) / float64(cacheable)
	}

	categories := make(map[string]int64, len(s.categories))
	for k, v := range s.categories {
		categories[k] = v
	}

	return StatsSnapshot{
		TotalRequests:       s.totalRequests,
		CacheHits:           s.hits,
		CacheMisses:         s.misses,
		NoCacheRequests:     s.noCacheRequests,
		CacheableRequests:   cacheable,
		HitRate:             round4(hitRate),
		MissRate:            round4(missRate),
		CacheSaves:          s.saves,
		CacheErrors:         s.errors,
		AvgHitResponseTime:  round4(avg(s.hitTimes)),
		AvgMissResponseTime: round4(avg(s.missTimes)),
		QueryCategories:     categories,
		UptimeHours:         math.Round(time.Since(s.startTime).Hours()*100) / 100,
	}
}

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
