package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pitchwire/pitchwire/pkg/kvstore"
)

// conversationTTL is how long an idle conversation survives in the store.
const conversationTTL = 7 * 24 * time.Hour

// storedMessage is the persisted shape of one turn.
type storedMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Manager persists conversations in the shared key-value store.
type Manager struct {
	store  kvstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a Manager over the shared store.
func NewManager(store kvstore.Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger.With("component", "memory"),
		now:    time.Now,
	}
}

func conversationKey(id string) string { return "conversation:" + id }

// Save writes the full message list for a conversation, refreshing its TTL.
func (m *Manager) Save(ctx context.Context, conversationID string, messages []Message) error {
	stored := make([]storedMessage, 0, len(messages))
	ts := m.now().Format(time.RFC3339)
	for _, msg := range messages {
		stored = append(stored, storedMessage{
			Type:      string(msg.Role),
			Content:   msg.Content,
			Timestamp: ts,
		})
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	if err := m.store.SetEx(ctx, conversationKey(conversationID), string(raw), conversationTTL); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// Load reads a conversation's messages. Missing conversations and store
// failures both yield an empty history so a chat can always proceed.
func (m *Manager) Load(ctx context.Context, conversationID string) []Message {
	raw, err := m.store.Get(ctx, conversationKey(conversationID))
	if err != nil {
		if !kvstore.IsNotFound(err) {
			m.logger.Error("failed to load conversation", "conversation_id", conversationID, "error", err)
		}
		return nil
	}

	var stored []storedMessage
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		m.logger.Error("corrupt conversation record", "conversation_id", conversationID, "error", err)
		return nil
	}

	messages := make([]Message, 0, len(stored))
	for _, s := range stored {
		switch Role(s.Type) {
		case RoleHuman, RoleAssistant:
			messages = append(messages, Message{Role: Role(s.Type), Content: s.Content})
		}
	}
	return messages
}

// Delete removes a conversation from the store.
func (m *Manager) Delete(ctx context.Context, conversationID string) error {
	if _, err := m.store.Del(ctx, conversationKey(conversationID)); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}
