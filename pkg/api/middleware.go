package api

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/pitchwire/pitchwire/pkg/ratelimit"
)

// Paths excluded from rate limiting, matched by prefix.
var excludedPaths = []string{
	"/health",
	"/docs",
	"/openapi.json",
	"/api/v1/chat/stats",
	"/api/v1/admin",
}

// Chat paths subject to rate limiting, matched by prefix.
var rateLimitedPaths = []string{
	"/api/v1/chat/chat",
	"/api/v1/chat/stream",
	"/ws/chat",
}

func shouldRateLimit(path string) bool {
	for _, p := range excludedPaths {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	for _, p := range rateLimitedPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// securityHeaders sets standard security response headers.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			return next(c)
		}
	}
}

// rateLimitMiddleware enforces the per-identity quota on chat paths. Quota
// headers are attached to allowed and denied responses alike.
func (s *Server) rateLimitMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if s.limiter == nil || !shouldRateLimit(c.Request().URL.Path) {
				return next(c)
			}

			userID := ratelimit.IdentityFromRequest(c.Request())
			allowed, info := s.limiter.Check(c.Request().Context(), userID)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime, 10))
			h.Set("X-RateLimit-Tier", info.Tier)

			if !allowed {
				s.logger.Warn("Rate limit exceeded", "user_id", userID, "tier", info.Tier)
				h.Set("Retry-After", strconv.FormatInt(info.ResetInSeconds, 10))
				return c.JSON(http.StatusTooManyRequests, &RateLimitExceededResponse{
					Error: "Rate limit exceeded",
					Message: "You have exceeded your rate limit of " + strconv.Itoa(info.Limit) +
						" requests per day for " + info.Tier + " tier",
					RateLimit:  info,
					RetryAfter: info.ResetInSeconds,
				})
			}

			return next(c)
		}
	}
}

// RateLimitExceededResponse is the 429 body.
type RateLimitExceededResponse struct {
	Error      string         `json:"error"`
	Message    string         `json:"message"`
	RateLimit  ratelimit.Info `json:"rate_limit"`
	RetryAfter int64          `json:"retry_after"`
}
