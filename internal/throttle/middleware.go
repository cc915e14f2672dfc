package throttle

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"

	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/auth"
)

// loadTestHeader lets load-testing traffic opt in to enforcement in
// test environments. Ordinary test traffic bypasses the limiter.
const loadTestHeader = "X-Load-Test"

// Middleware enforces the group's quota for each request. The caller
// key is the authenticated identity id when present, else the network
// address. Runs after the identity gate, never before it.
func Middleware(l *Limiter, group Group, enabled bool, testEnv bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil || !enabled {
				next.ServeHTTP(w, r)
				return
			}
			if testEnv && r.Header.Get(loadTestHeader) == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := callerKey(r)
			ok, retryAfter := l.Allow(key, group)
			if !ok {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{
					"error":               "rate limit exceeded",
					"limiter":             string(group),
					"retry_after_seconds": seconds,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request) string {
	if id := auth.IdentityFrom(r.Context()); id != nil {
		return id.ID
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = strings.Trim(r.RemoteAddr, "[]")
	}
	return ip
}
