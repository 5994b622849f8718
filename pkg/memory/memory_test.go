package memory

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchwire/pitchwire/pkg/kvstore"
)

func TestBuffer_KeepsWindowOfExchanges(t *testing.T) {
	b := NewBuffer(2)

	for i := 0; i < 5; i++ {
		b.AddExchange("question", "answer")
	}

	msgs := b.Messages()
	assert.Len(t, msgs, 4)
	assert.Equal(t, RoleHuman, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[3].Role)
}

func TestBuffer_CacheContextEmptyWhenNoHistory(t *testing.T) {
	b := NewBuffer(10)
	assert.Equal(t, "", b.CacheContext())
}

func TestBuffer_CacheContextLastThreeTurns(t *testing.T) {
	b := NewBuffer(10)
	b.AddExchange("first question", "first answer")
	b.AddExchange("second question", "second answer")

	ctx := b.CacheContext()
	assert.Equal(t, "A:first answer|H:second question|A:second answer", ctx)
}

func TestBuffer_CacheContextTruncatesLongMessages(t *testing.T) {
	b := NewBuffer(10)
	long := strings.Repeat("x", 150)
	b.Add(RoleHuman, long)

	ctx := b.CacheContext()
	assert.Equal(t, "H:"+strings.Repeat("x", 100), ctx)
}

func TestBuffer_Clear(t *testing.T) {
	b := NewBuffer(10)
	b.AddExchange("q", "a")
	b.Clear()
	assert.Empty(t, b.Messages())
}

func TestManager_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewFakeStore()
	m := NewManager(store, slog.Default())

	msgs := []Message{
		{Role: RoleHuman, Content: "who won the derby"},
		{Role: RoleAssistant, Content: "United won 2-1"},
	}
	require.NoError(t, m.Save(ctx, "conv-1", msgs))

	loaded := m.Load(ctx, "conv-1")
	assert.Equal(t, msgs, loaded)
}

func TestManager_SaveSetsSevenDayTTL(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewFakeStore()
	fixed := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return fixed })
	m := NewManager(store, slog.Default())

	require.NoError(t, m.Save(ctx, "conv-1", []Message{{Role: RoleHuman, Content: "hi"}}))

	ttl, ok := store.TTLOf("conversation:conv-1")
	require.True(t, ok)
	assert.Equal(t, conversationTTL, ttl)
}

func TestManager_LoadMissingReturnsEmpty(t *testing.T) {
	store := kvstore.NewFakeStore()
	m := NewManager(store, slog.Default())

	assert.Empty(t, m.Load(context.Background(), "absent"))
}

func TestManager_LoadStoreErrorReturnsEmpty(t *testing.T) {
	store := kvstore.NewFakeStore()
	store.SetUnavailable(true)
	m := NewManager(store, slog.Default())

	assert.Empty(t, m.Load(context.Background(), "conv-1"))
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewFakeStore()
	m := NewManager(store, slog.Default())

	require.NoError(t, m.Save(ctx, "conv-1", []Message{{Role: RoleHuman, Content: "hi"}}))
	require.NoError(t, m.Delete(ctx, "conv-1"))
	assert.Empty(t, m.Load(ctx, "conv-1"))
}
