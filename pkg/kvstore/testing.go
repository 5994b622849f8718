package kvstore

import (
	"context"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"
)

// FakeStore is an in-memory Store for tests. It honors TTLs against a
// controllable clock and can simulate outages via SetUnavailable.
type FakeStore struct {
	mu          sync.Mutex
	strings     map[string]fakeEntry
	hashes      map[string]map[string]int64
	hashExpiry  map[string]time.Time
	lists       map[string][]string
	unavailable bool
	now         func() time.Time
}

type fakeEntry struct {
	value     string
	expiresAt time.Time // zero = no expiry
}

// NewFakeStore creates an empty in-memory store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		strings:    make(map[string]fakeEntry),
		hashes:     make(map[string]map[string]int64),
		hashExpiry: make(map[string]time.Time),
		lists:      make(map[string][]string),
		now:        time.Now,
	}
}

// SetUnavailable toggles simulated transport failure: every operation
// returns ErrStoreUnavailable while set.
func (f *FakeStore) SetUnavailable(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailable = down
}

// SetClock overrides the time source used for TTL evaluation.
func (f *FakeStore) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// TTLOf reports the remaining TTL recorded for a string key (test helper).
func (f *FakeStore) TTLOf(key string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.strings[key]
	if !ok || e.expiresAt.IsZero() {
		return 0, false
	}
	return e.expiresAt.Sub(f.now()), true
}

func (f *FakeStore) check() error {
	if f.unavailable {
		return ErrStoreUnavailable
	}
	return nil
}

func (f *FakeStore) expired(e fakeEntry) bool {
	return !e.expiresAt.IsZero() && f.now().After(e.expiresAt)
}

func (f *FakeStore) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check()
}

func (f *FakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return "", err
	}
	e, ok := f.strings[key]
	if !ok || f.expired(e) {
		delete(f.strings, key)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (f *FakeStore) SetEx(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return err
	}
	e := fakeEntry{value: value}
	if ttl > 0 {
		e.expiresAt = f.now().Add(ttl)
	}
	f.strings[key] = e
	return nil
}

func (f *FakeStore) Del(_ context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return 0, err
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.strings[k]; ok {
			delete(f.strings, k)
			n++
		}
		if _, ok := f.hashes[k]; ok {
			delete(f.hashes, k)
			delete(f.hashExpiry, k)
			n++
		}
	}
	return n, nil
}

func (f *FakeStore) hash(key string) map[string]int64 {
	if exp, ok := f.hashExpiry[key]; ok && f.now().After(exp) {
		delete(f.hashes, key)
		delete(f.hashExpiry, key)
	}
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]int64)
		f.hashes[key] = h
	}
	return h
}

func (f *FakeStore) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return 0, err
	}
	h := f.hash(key)
	h[field] += delta
	return h[field], nil
}

func (f *FakeStore) HGet(_ context.Context, key, field string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return "", err
	}
	h := f.hash(key)
	v, ok := h[field]
	if !ok {
		return "", ErrNotFound
	}
	return strconv.FormatInt(v, 10), nil
}

func (f *FakeStore) HDel(_ context.Context, key string, fields ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return err
	}
	h := f.hash(key)
	for _, field := range fields {
		delete(h, field)
	}
	return nil
}

func (f *FakeStore) HKeys(_ context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	h := f.hash(key)
	fields := make([]string, 0, len(h))
	for field := range h {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields, nil
}

func (f *FakeStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return err
	}
	if e, ok := f.strings[key]; ok {
		e.expiresAt = f.now().Add(ttl)
		f.strings[key] = e
	}
	if _, ok := f.hashes[key]; ok {
		f.hashExpiry[key] = f.now().Add(ttl)
	}
	return nil
}

func (f *FakeStore) Scan(_ context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, 0, err
	}
	// Single-pass scan: return every match and a zero cursor. Sufficient for
	// exercising cursor-loop callers.
	var keys []string
	for k, e := range f.strings {
		if f.expired(e) {
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, 0, nil
}

func (f *FakeStore) LPush(_ context.Context, key string, values ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return err
	}
	f.lists[key] = append(values, f.lists[key]...)
	return nil
}

func (f *FakeStore) BRPop(_ context.Context, _ time.Duration, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return "", err
	}
	l := f.lists[key]
	if len(l) == 0 {
		return "", ErrNotFound
	}
	v := l[len(l)-1]
	f.lists[key] = l[:len(l)-1]
	return v, nil
}

func (f *FakeStore) Close() error { return nil }
