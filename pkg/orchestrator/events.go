package orchestrator

import "context"

// EventType identifies a streaming chat event.
type EventType string

const (
	EventMessageReceived EventType = "message_received"
	EventTyping          EventType = "typing"
	EventCacheHit        EventType = "cache_hit"
	EventCacheMiss       EventType = "cache_miss"
	EventNoCache         EventType = "no_cache"
	EventToken           EventType = "token"
	EventFinalResponse   EventType = "final_response"
	EventMessageComplete EventType = "message_complete"
	EventError           EventType = "error"
)

// Event is one streaming chat event. Token, final_response, and error events
// carry Content; the cache status events carry a human-readable Message plus
// the category metadata.
type Event struct {
	Type     EventType `json:"type"`
	Content  string    `json:"content,omitempty"`
	Message  string    `json:"message,omitempty"`
	Category string    `json:"category,omitempty"`
	TTLHours int       `json:"ttl_hours,omitempty"`
}

// Sink receives events as a chat turn progresses. A send error aborts the
// turn.
type Sink func(ctx context.Context, ev Event) error

func discard(context.Context, Event) error { return nil }
