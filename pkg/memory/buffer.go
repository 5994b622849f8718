// Package memory holds per-conversation chat history: a bounded in-process
// window used for prompting, plus persistence in the shared key-value store.
package memory

import "strings"

// Role identifies the author of a message.
type Role string

const (
	// RoleHuman marks a user message.
	RoleHuman Role = "human"
	// RoleAssistant marks a generated reply.
	RoleAssistant Role = "ai"
)

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"type"`
	Content string `json:"content"`
}

// DefaultWindow is the number of exchanges kept for prompting.
const DefaultWindow = 10

// Buffer is a sliding window over a conversation. It retains the most
// recent exchanges and drops older turns as new ones arrive.
type Buffer struct {
	messages []Message
	window   int
}

// NewBuffer creates a buffer keeping the last window exchanges. A
// non-positive window falls back to DefaultWindow.
func NewBuffer(window int) *Buffer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Buffer{window: window}
}

// Add appends a message, trimming the buffer to the window size.
func (b *Buffer) Add(role Role, content string) {
	b.messages = append(b.messages, Message{Role: role, Content: content})
	// One exchange is a human turn plus the assistant reply.
	if max := b.window * 2; len(b.messages) > max {
		b.messages = b.messages[len(b.messages)-max:]
	}
}

// AddExchange appends a user message and the assistant reply.
func (b *Buffer) AddExchange(userMessage, reply string) {
	b.Add(RoleHuman, userMessage)
	b.Add(RoleAssistant, reply)
}

// Messages returns the retained turns, oldest first.
func (b *Buffer) Messages() []Message {
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Replace swaps the buffer contents, keeping only the window tail.
func (b *Buffer) Replace(messages []Message) {
	b.messages = nil
	for _, m := range messages {
		b.Add(m.Role, m.Content)
	}
}

// Clear drops all retained turns.
func (b *Buffer) Clear() {
	b.messages = nil
}

// CacheContext summarizes the last three turns for cache key derivation.
// Each turn contributes "H:" or "A:" plus its first 100 characters, joined
// with "|". An empty buffer yields an empty string.
func (b *Buffer) CacheContext() string {
	if len(b.messages) == 0 {
		return ""
	}

	recent := b.messages
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	parts := make([]string, 0, len(recent))
	for _, m := range recent {
		prefix := "A"
		if m.Role == RoleHuman {
			prefix = "H"
		}
		content := m.Content
		if runes := []rune(content); len(runes) > 100 {
			content = string(runes[:100])
		}
		parts = append(parts, prefix+":"+content)
	}
	return strings.Join(parts, "|")
}
