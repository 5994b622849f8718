package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/pitchwire/pitchwire/pkg/orchestrator"
)

// sseEvent is one Server-Sent-Events frame.
type sseEvent struct {
	Type           string `json:"type"`
	Content        string `json:"content,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// chatStreamHandler handles GET /api/v1/chat/chat/stream. The response is a
// start frame, one chunk frame per streamed token, and an end frame; errors
// surface as an error frame instead of an HTTP status once streaming began.
func (s *Server) chatStreamHandler(c *echo.Context) error {
	message := c.QueryParam("message")
	if message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	conversationID := c.QueryParam("conversation_id")
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	w := c.Response()
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)

	writeFrame := func(ev sseEvent) error {
		raw, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", raw); err != nil {
			return err
		}
		return rc.Flush()
	}

	if err := writeFrame(sseEvent{Type: "start", ConversationID: conversationID}); err != nil {
		return err
	}

	sink := func(ctx context.Context, ev orchestrator.Event) error {
		if ev.Type != orchestrator.EventToken {
			return nil
		}
		return writeFrame(sseEvent{Type: "chunk", Content: ev.Content})
	}

	if _, err := s.chat.Chat(c.Request().Context(), message, conversationID, sink); err != nil {
		s.logger.Error("Streaming chat failed", "conversation_id", conversationID, "error", err)
		return writeFrame(sseEvent{Type: "error", Content: err.Error()})
	}

	return writeFrame(sseEvent{Type: "end"})
}
