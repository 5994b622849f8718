package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// FakeIndex is an in-memory Index using cosine similarity, for tests.
type FakeIndex struct {
	mu     sync.Mutex
	points map[int64]Point
	err    error
}

// NewFakeIndex creates an empty in-memory index.
func NewFakeIndex() *FakeIndex {
	return &FakeIndex{points: make(map[int64]Point)}
}

// SetError makes every subsequent operation fail with err.
func (f *FakeIndex) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Points returns a copy of the stored points keyed by id (test helper).
func (f *FakeIndex) Points() map[int64]Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]Point, len(f.points))
	for id, p := range f.points {
		out[id] = p
	}
	return out
}

func (f *FakeIndex) Upsert(_ context.Context, point Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.points[point.ID] = point
	return nil
}

func (f *FakeIndex) Query(_ context.Context, vector []float32, limit int, filter *Filter) ([]Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	var matches []Match
	for id, p := range f.points {
		if !matchesFilter(p.Payload, filter) {
			continue
		}
		matches = append(matches, Match{ArticleID: id, Score: cosine(vector, p.Vector)})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (f *FakeIndex) Delete(_ context.Context, ids ...int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, id := range ids {
		delete(f.points, id)
	}
	return nil
}

func (f *FakeIndex) Close() error { return nil }

func matchesFilter(m Metadata, f *Filter) bool {
	if f == nil {
		return true
	}
	if f.Source != "" && m.Source != f.Source {
		return false
	}
	if f.SentimentGte != nil && m.Sentiment < *f.SentimentGte {
		return false
	}
	if f.SentimentLte != nil && m.Sentiment > *f.SentimentLte {
		return false
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
