package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/pitchwire/pitchwire/pkg/orchestrator"
)

// wsInbound is a client chat frame.
type wsInbound struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// wsOutbound is a server event frame. The field set mirrors the orchestrator
// events plus a timestamp per frame.
type wsOutbound struct {
	Type           string `json:"type"`
	Content        string `json:"content,omitempty"`
	Message        string `json:"message,omitempty"`
	Category       string `json:"category,omitempty"`
	TTLHours       int    `json:"ttl_hours,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// wsChatHandler handles GET /ws/chat/:connection_id: a full-duplex chat
// session, one turn at a time per connection.
func (s *Server) wsChatHandler(c *echo.Context) error {
	connectionID := c.Param("connection_id")

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	ctx := c.Request().Context()
	s.logger.Info("WebSocket client connected", "connection_id", connectionID)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			s.logger.Info("WebSocket client disconnected", "connection_id", connectionID)
			return nil
		}

		var in wsInbound
		if err := json.Unmarshal(data, &in); err != nil {
			s.writeWS(ctx, conn, wsOutbound{Type: string(orchestrator.EventError), Content: "Invalid message format"})
			continue
		}
		if strings.TrimSpace(in.Message) == "" {
			s.writeWS(ctx, conn, wsOutbound{Type: string(orchestrator.EventError), Content: "Empty message received"})
			continue
		}

		conversationID := in.ConversationID
		if conversationID == "" {
			conversationID = uuid.NewString()
		}

		s.writeWS(ctx, conn, wsOutbound{Type: string(orchestrator.EventMessageReceived), ConversationID: conversationID})
		s.writeWS(ctx, conn, wsOutbound{Type: string(orchestrator.EventTyping)})

		sink := func(ctx context.Context, ev orchestrator.Event) error {
			return s.writeWS(ctx, conn, wsOutbound{
				Type:     string(ev.Type),
				Content:  ev.Content,
				Message:  ev.Message,
				Category: ev.Category,
				TTLHours: ev.TTLHours,
			})
		}

		if _, err := s.chat.Chat(ctx, in.Message, conversationID, sink); err != nil {
			s.logger.Error("WebSocket chat turn failed", "connection_id", connectionID, "error", err)
			s.writeWS(ctx, conn, wsOutbound{
				Type:    string(orchestrator.EventError),
				Content: "Error processing your message: " + err.Error(),
			})
			continue
		}

		s.writeWS(ctx, conn, wsOutbound{Type: string(orchestrator.EventMessageComplete), ConversationID: conversationID})
	}
}

func (s *Server) writeWS(ctx context.Context, conn *websocket.Conn, out wsOutbound) error {
	out.Timestamp = time.Now().UTC().Format(time.RFC3339)
	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, raw)
}
