package api

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/pitchwire/pitchwire/pkg/classifier"
	"github.com/pitchwire/pitchwire/pkg/llmcache"
	"github.com/pitchwire/pitchwire/pkg/ratelimit"
)

// ChatRequest is the body for POST /api/v1/chat/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// ChatResponse is the non-streaming chat reply.
type ChatResponse struct {
	Response       string    `json:"response"`
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// chatHandler handles POST /api/v1/chat/chat, the non-streaming alternative
// to the WebSocket.
func (s *Server) chatHandler(c *echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	response, err := s.chat.Chat(c.Request().Context(), req.Message, conversationID, nil)
	if err != nil {
		s.logger.Error("Chat request failed", "conversation_id", conversationID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, &ChatResponse{
		Response:       response,
		ConversationID: conversationID,
		Timestamp:      time.Now().UTC(),
	})
}

// ConversationMessage is one stored message in transport form.
type ConversationMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ConversationResponse is the body for GET /api/v1/chat/conversations/:id.
type ConversationResponse struct {
	ConversationID string                `json:"conversation_id"`
	Messages       []ConversationMessage `json:"messages"`
	MessageCount   int                   `json:"message_count"`
}

func (s *Server) getConversationHandler(c *echo.Context) error {
	conversationID := c.Param("id")
	if conversationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}

	stored := s.chat.History(c.Request().Context(), conversationID)
	messages := make([]ConversationMessage, 0, len(stored))
	now := time.Now().UTC().Format(time.RFC3339)
	for _, m := range stored {
		messages = append(messages, ConversationMessage{
			Type:      string(m.Role),
			Content:   m.Content,
			Timestamp: now,
		})
	}

	return c.JSON(http.StatusOK, &ConversationResponse{
		ConversationID: conversationID,
		Messages:       messages,
		MessageCount:   len(messages),
	})
}

func (s *Server) deleteConversationHandler(c *echo.Context) error {
	conversationID := c.Param("id")
	if conversationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation id is required")
	}

	if err := s.chat.ClearConversation(c.Request().Context(), conversationID); err != nil {
		s.logger.Error("Conversation delete failed", "conversation_id", conversationID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete conversation")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message":         "Conversation " + conversationID + " deleted successfully",
		"conversation_id": conversationID,
	})
}

// StatsResponse aggregates rate limiting and cache statistics.
type StatsResponse struct {
	RateLimiting    ratelimit.StatsSnapshot `json:"rate_limiting"`
	LLMCache        llmcache.StatsSnapshot  `json:"llm_cache"`
	RateLimitConfig RateLimitConfigBody     `json:"rate_limit_config"`
	Timestamp       string                  `json:"timestamp"`
}

// RateLimitConfigBody describes the static limiter configuration.
type RateLimitConfigBody struct {
	Tiers               map[string]int `json:"tiers"`
	WindowDurationHours int            `json:"window_duration_hours"`
	SubWindows          int            `json:"sub_windows,omitempty"`
	DefaultTier         string         `json:"default_tier"`
}

// statsHandler handles GET /api/v1/chat/stats.
func (s *Server) statsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &StatsResponse{
		RateLimiting: s.limiter.Stats(),
		LLMCache:     s.cache.Stats(),
		RateLimitConfig: RateLimitConfigBody{
			Tiers:               ratelimit.TierLimits,
			WindowDurationHours: int(ratelimit.WindowDuration / time.Hour),
			DefaultTier:         ratelimit.DefaultTier,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ClassificationResponse shows how a query would be cached.
type ClassificationResponse struct {
	Query      string  `json:"query"`
	Category   string  `json:"category"`
	TTLSeconds int64   `json:"ttl_seconds"`
	TTLHours   float64 `json:"ttl_hours"`
	WillCache  bool    `json:"will_cache"`
}

// classifyHandler handles GET /api/v1/chat/rate-limit/classify?query=...
func (s *Server) classifyHandler(c *echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	category := classifier.Classify(query)
	ttl := llmcache.TTLFor(category)
	return c.JSON(http.StatusOK, &ClassificationResponse{
		Query:      query,
		Category:   string(category),
		TTLSeconds: int64(ttl.Seconds()),
		TTLHours:   math.Round(ttl.Hours()*100) / 100,
		WillCache:  category != classifier.CategoryNoCache,
	})
}
