// Package api exposes the HTTP/WS surface: chat (REST, SSE, WebSocket),
// enhanced search, statistics, and admin operations.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/pitchwire/pitchwire/pkg/config"
	"github.com/pitchwire/pitchwire/pkg/llmcache"
	"github.com/pitchwire/pitchwire/pkg/memory"
	"github.com/pitchwire/pitchwire/pkg/orchestrator"
	"github.com/pitchwire/pitchwire/pkg/ratelimit"
	"github.com/pitchwire/pitchwire/pkg/search"
	"github.com/pitchwire/pitchwire/pkg/store"
)

// ChatService is the slice of the orchestrator the handlers need.
type ChatService interface {
	Chat(ctx context.Context, message, conversationID string, sink orchestrator.Sink) (string, error)
	History(ctx context.Context, conversationID string) []memory.Message
	ClearConversation(ctx context.Context, conversationID string) error
}

// SearchService runs one enhanced search invocation.
type SearchService interface {
	Search(ctx context.Context, query string, opts search.Options) ([]search.Ranked, error)
}

// IngestStats reports vector-ingestion progress per embedding state.
type IngestStats interface {
	Stats(ctx context.Context) (map[string]int64, error)
}

// Server is the HTTP server binding all services to routes.
type Server struct {
	cfg      *config.Config
	limiter  *ratelimit.Limiter
	chat     ChatService
	cache    *llmcache.Cache
	search   SearchService
	ingest   IngestStats
	dbClient *store.Client
	logger   *slog.Logger

	echo       *echo.Echo
	httpServer *http.Server
}

// NewServer wires the routes. ingest and dbClient may be nil (the related
// endpoints then report unavailable).
func NewServer(cfg *config.Config, limiter *ratelimit.Limiter, chat ChatService, cache *llmcache.Cache, searcher SearchService, ingest IngestStats, dbClient *store.Client, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		limiter:  limiter,
		chat:     chat,
		cache:    cache,
		search:   searcher,
		ingest:   ingest,
		dbClient: dbClient,
		logger:   logger.With("component", "api"),
	}
	s.echo = s.buildEcho()
	return s
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.Use(securityHeaders())
	e.Use(s.rateLimitMiddleware())

	e.GET("/health", s.healthHandler)

	chat := e.Group("/api/v1/chat")
	chat.POST("/chat", s.chatHandler)
	chat.GET("/chat/stream", s.chatStreamHandler)
	chat.GET("/stats", s.statsHandler)
	chat.GET("/rate-limit/classify", s.classifyHandler)
	chat.GET("/conversations/:id", s.getConversationHandler)
	chat.DELETE("/conversations/:id", s.deleteConversationHandler)

	e.GET("/ws/chat/:connection_id", s.wsChatHandler)

	e.POST("/api/v1/search/enhanced-search", s.enhancedSearchHandler)

	admin := e.Group("/api/v1/admin", s.adminAuth())
	admin.GET("/rate-limit/stats", s.rateLimitStatsHandler)
	admin.GET("/rate-limit/config", s.rateLimitConfigHandler)
	admin.POST("/users/:user_id/tier", s.setUserTierHandler)
	admin.GET("/users/:user_id/tier", s.getUserTierHandler)
	admin.DELETE("/users/:user_id/tier", s.resetUserTierHandler)
	admin.GET("/users/:user_id/rate-limit/status", s.userRateLimitStatusHandler)
	admin.POST("/cache/clear", s.clearCacheHandler)
	admin.GET("/vectors/stats", s.vectorStatsHandler)

	return e
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("HTTP server listening", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
