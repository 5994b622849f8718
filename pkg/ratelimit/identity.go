package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// IdentityFromRequest derives a stable rate-limiting identity for a request.
// Sources are tried in priority order: bearer token, user_id query parameter,
// X-User-ID header, first X-Forwarded-For address, then the peer address.
func IdentityFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		token := auth[len("Bearer "):]
		sum := sha256.Sum256([]byte(token))
		return "user_" + hex.EncodeToString(sum[:])[:16]
	}

	if id := r.URL.Query().Get("user_id"); id != "" {
		return id
	}

	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		return "ip_" + first
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip_" + host
}
