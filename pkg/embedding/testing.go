package embedding

import (
	"context"
	"crypto/sha256"
	"sync"
)

// FakeEmbedder returns deterministic vectors derived from the input text.
// Errs can be loaded to fail the next calls in order, simulating provider
// rate limiting or outages.
type FakeEmbedder struct {
	mu         sync.Mutex
	Dimensions int
	Errs       []error
	Calls      []string
}

// NewFakeEmbedder creates a fake producing vectors of the given width.
func NewFakeEmbedder(dimensions int) *FakeEmbedder {
	return &FakeEmbedder{Dimensions: dimensions}
}

// FailNext queues errors returned by upcoming Embed calls before any
// successful ones.
func (f *FakeEmbedder) FailNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errs = append(f.Errs, errs...)
}

// Embed records the call and returns a vector seeded by the text hash.
func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, text)
	if len(f.Errs) > 0 {
		err := f.Errs[0]
		f.Errs = f.Errs[1:]
		return nil, err
	}

	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, f.Dimensions)
	for i := range vec {
		vec[i] = float32(sum[i%len(sum)]) / 255
	}
	return vec, nil
}
