package api

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/pitchwire/pitchwire/pkg/ratelimit"
)

func (s *Server) rateLimitStatsHandler(c *echo.Context) error {
	if s.limiter == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "rate limiting is not configured")
	}
	return c.JSON(http.StatusOK, s.limiter.Stats())
}

func (s *Server) rateLimitConfigHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"rate_limits":           ratelimit.TierLimits,
		"window_duration_hours": int(ratelimit.WindowDuration.Hours()),
		"sub_windows":           ratelimit.SubWindows,
		"default_tier":          ratelimit.DefaultTier,
	})
}

// TierUpdateRequest is the body for POST /api/v1/admin/users/:user_id/tier.
type TierUpdateRequest struct {
	Tier string `json:"tier"`
}

// TierResponse reports a user's tier and its request allowance.
type TierResponse struct {
	UserID    string `json:"user_id"`
	Tier      string `json:"tier"`
	RateLimit int    `json:"rate_limit"`
}

func (s *Server) setUserTierHandler(c *echo.Context) error {
	if s.limiter == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "rate limiting is not configured")
	}
	userID := c.Param("user_id")

	var req TierUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if _, ok := ratelimit.TierLimits[req.Tier]; !ok {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("Invalid tier '%s'. Available tiers: %v", req.Tier, tierNames()))
	}
	if err := s.limiter.SetTier(c.Request().Context(), userID, req.Tier); err != nil {
		s.logger.Error("failed to set user tier", "error", err, "user_id", userID)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update tier")
	}
	return c.JSON(http.StatusOK, TierResponse{
		UserID:    userID,
		Tier:      req.Tier,
		RateLimit: ratelimit.TierLimits[req.Tier],
	})
}

func (s *Server) getUserTierHandler(c *echo.Context) error {
	if s.limiter == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "rate limiting is not configured")
	}
	userID := c.Param("user_id")
	tier := s.limiter.GetTier(c.Request().Context(), userID)
	return c.JSON(http.StatusOK, TierResponse{
		UserID:    userID,
		Tier:      tier,
		RateLimit: ratelimit.TierLimits[tier],
	})
}

func (s *Server) resetUserTierHandler(c *echo.Context) error {
	if s.limiter == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "rate limiting is not configured")
	}
	userID := c.Param("user_id")
	if err := s.limiter.SetTier(c.Request().Context(), userID, ratelimit.DefaultTier); err != nil {
		s.logger.Error("failed to reset user tier", "error", err, "user_id", userID)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to reset user tier")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":    fmt.Sprintf("User %s reset to default tier '%s'", userID, ratelimit.DefaultTier),
		"tier":       ratelimit.DefaultTier,
		"rate_limit": ratelimit.TierLimits[ratelimit.DefaultTier],
	})
}

// userRateLimitStatusHandler reports a user's current window. The probe runs
// a regular check, so it counts one request against the user.
func (s *Server) userRateLimitStatusHandler(c *echo.Context) error {
	if s.limiter == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "rate limiting is not configured")
	}
	userID := c.Param("user_id")
	_, info := s.limiter.Check(c.Request().Context(), userID)
	return c.JSON(http.StatusOK, map[string]any{
		"user_id":         userID,
		"rate_limit_info": info,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) clearCacheHandler(c *echo.Context) error {
	if s.cache == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "llm cache is not configured")
	}
	deleted, err := s.cache.Clear(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to clear llm cache", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to clear cache")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"keys_deleted":     deleted,
		"cache_cleared_at": time.Now().UTC().Format(time.RFC3339),
		"stats":            s.cache.Stats(),
	})
}

func (s *Server) vectorStatsHandler(c *echo.Context) error {
	if s.ingest == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "vector ingestion is not configured")
	}
	stats, err := s.ingest.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to read vector stats", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read vector stats")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"embedding_status": stats,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}

func tierNames() []string {
	names := make([]string, 0, len(ratelimit.TierLimits))
	for name := range ratelimit.TierLimits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
