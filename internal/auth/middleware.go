package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Middleware enforces the identity gate: every request must carry a
// verifiable bearer credential before throttling or handlers run.
// If verifier is nil, all requests are rejected (fail closed).
func Middleware(verifier Verifier, bypass *Bypass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				unauthorized(w, "authorization header must be 'Bearer <token>'")
				return
			}
			token := parts[1]

			if bypass != nil && token == bypass.Token {
				id := bypass.Identity
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), &id)))
				return
			}

			if verifier == nil {
				unauthorized(w, "authentication not configured")
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, ErrVerifierUnavailable) {
					serviceUnavailable(w)
					return
				}
				unauthorized(w, "invalid or expired credential")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func serviceUnavailable(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(map[string]string{"error": "identity service unavailable"})
}
