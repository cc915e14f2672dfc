package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the principal resolved from a request credential. It is
// never persisted here — the identity provider owns the account record.
type Identity struct {
	ID    string
	Email string
	Role  string
}

// Credential failure taxonomy. The credential errors all map to 401;
// the distinction is for logs and tests, not for leaking detail to
// callers. ErrVerifierUnavailable is not a credential failure — the
// identity service could not be consulted at all — and maps to 503.
var (
	ErrMissingCredential   = errors.New("missing or malformed credential")
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrCredentialExpired   = errors.New("credential expired")
	ErrMalformedClaims     = errors.New("required claims missing")
	ErrVerifierUnavailable = errors.New("identity service unavailable")
)

// Verifier resolves a raw bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Claims are the JWT claims expected by the local verifier.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LocalVerifier validates self-contained HS256 tokens against a shared
// secret. Subject and role claims are required.
type LocalVerifier struct {
	secret []byte
}

// NewLocalVerifier creates a verifier for the given shared secret.
func NewLocalVerifier(secret string) (*LocalVerifier, error) {
	if secret == "" {
		return nil, errors.New("auth secret required for local verification")
	}
	return &LocalVerifier{secret: []byte(secret)}, nil
}

// Verify parses and validates a signed token string.
func (v *LocalVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrCredentialExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidCredential
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, ErrMalformedClaims
	}
	return &Identity{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// RemoteVerifier delegates verification to an external identity service
// by presenting the raw token and trusting its returned principal.
type RemoteVerifier struct {
	serviceURL string
	client     *http.Client
}

// NewRemoteVerifier creates a verifier backed by the identity service
// at the given base URL.
func NewRemoteVerifier(serviceURL string) (*RemoteVerifier, error) {
	if serviceURL == "" {
		return nil, errors.New("auth service URL required for remote verification")
	}
	return &RemoteVerifier{
		serviceURL: serviceURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Verify presents the token to the identity service.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", v.serviceURL+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read verify response: %v", ErrVerifierUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: identity service status %d", ErrVerifierUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: identity service status %d", ErrInvalidCredential, resp.StatusCode)
	}

	var principal struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(respBody, &principal); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	if principal.ID == "" || principal.Role == "" {
		return nil, ErrMalformedClaims
	}
	return &Identity{ID: principal.ID, Email: principal.Email, Role: principal.Role}, nil
}

// Bypass is the environment-gated fixed-token shortcut for test traffic.
// Disabled entirely when the deployment environment is production.
type Bypass struct {
	Token    string
	Identity Identity
}

// NewBypass returns the bypass for the current environment, or nil when
// it must not be active.
func NewBypass(env, token, userID string) *Bypass {
	if env == "production" || token == "" {
		return nil
	}
	if userID == "" {
		userID = "test-user"
	}
	return &Bypass{
		Token:    token,
		Identity: Identity{ID: userID, Email: userID + "@test.local", Role: "user"},
	}
}
