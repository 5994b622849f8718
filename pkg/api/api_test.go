package api

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/pitchwire/pitchwire/pkg/config"
	"github.com/pitchwire/pitchwire/pkg/kvstore"
	"github.com/pitchwire/pitchwire/pkg/llmcache"
	"github.com/pitchwire/pitchwire/pkg/memory"
	"github.com/pitchwire/pitchwire/pkg/orchestrator"
	"github.com/pitchwire/pitchwire/pkg/ratelimit"
	"github.com/pitchwire/pitchwire/pkg/search"
)

type fakeChat struct {
	mu       sync.Mutex
	response string
	err      error
	events   []orchestrator.Event
	history  map[string][]memory.Message
	cleared  []string
	messages []string
}

func newFakeChat(response string) *fakeChat {
	return &fakeChat{response: response, history: map[string][]memory.Message{}}
}

func (f *fakeChat) Chat(ctx context.Context, message, conversationID string, sink orchestrator.Sink) (string, error) {
	f.mu.Lock()
	f.messages = append(f.messages, message)
	events := f.events
	f.mu.Unlock()
	for _, ev := range events {
		if err := sink(ctx, ev); err != nil {
			return "", err
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeChat) History(ctx context.Context, conversationID string) []memory.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[conversationID]
}

func (f *fakeChat) ClearConversation(ctx context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, conversationID)
	return f.err
}

type fakeSearch struct {
	mu      sync.Mutex
	results []search.Ranked
	err     error
	queries []string
	opts    []search.Options
}

func (f *fakeSearch) Search(ctx context.Context, query string, opts search.Options) ([]search.Ranked, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeIngest struct {
	stats map[string]int64
	err   error
}

func (f *fakeIngest) Stats(ctx context.Context) (map[string]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

type serverFixture struct {
	server  *Server
	chat    *fakeChat
	search  *fakeSearch
	limiter *ratelimit.Limiter
	cache   *llmcache.Cache
}

func newTestServer(t *testing.T) *serverFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chat := newFakeChat("Arsenal won.")
	searcher := &fakeSearch{}
	limiter := ratelimit.NewLimiter(kvstore.NewFakeStore(), logger)
	cache := llmcache.New(kvstore.NewFakeStore(), logger)
	cfg := &config.Config{AdminToken: "test-admin-token"}
	ingest := &fakeIngest{stats: map[string]int64{"completed": 3, "pending": 1}}

	srv := NewServer(cfg, limiter, chat, cache, searcher, ingest, nil, logger)
	return &serverFixture{server: srv, chat: chat, search: searcher, limiter: limiter, cache: cache}
}
