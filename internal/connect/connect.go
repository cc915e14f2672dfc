package connect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/config"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/store"
)

// ErrNotConnected means the user has never exchanged a provider
// authorization code.
var ErrNotConnected = errors.New("provider not connected")

// refreshMargin is how close to expiry a token may get before it is
// refreshed on access.
const refreshMargin = 2 * time.Minute

// Exchanger is the surface the external calendar/email OAuth flow must
// expose: exchange an authorization code for a token pair, and refresh
// an expiring token.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// OAuthExchanger implements Exchanger on a standard oauth2.Config.
type OAuthExchanger struct {
	conf *oauth2.Config
}

// NewExchanger builds an exchanger from configuration. Returns an error
// when the provider is not configured for this deployment.
func NewExchanger(cfg config.OAuthConfig) (*OAuthExchanger, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenURL == "" {
		return nil, errors.New("oauth client id, secret and token url required")
	}
	return &OAuthExchanger{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
	}, nil
}

// Exchange trades an authorization code for a token pair.
func (e *OAuthExchanger) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := e.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

// Refresh obtains a fresh access token from a refresh token.
func (e *OAuthExchanger) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	tok, err := e.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return tok, nil
}

// Credentials manages per-user provider tokens persisted in the store —
// an explicit credential record per identity, never a process-wide cache.
type Credentials struct {
	db        *store.DB
	exchanger Exchanger
}

// NewCredentials creates the credential manager.
func NewCredentials(db *store.DB, exchanger Exchanger) *Credentials {
	return &Credentials{db: db, exchanger: exchanger}
}

// Connect exchanges an authorization code and stores the resulting
// token pair for the user.
func (c *Credentials) Connect(ctx context.Context, userID, code string) error {
	if c.exchanger == nil {
		return errors.New("provider exchange not configured")
	}
	tok, err := c.exchanger.Exchange(ctx, code)
	if err != nil {
		return err
	}
	return c.save(userID, tok)
}

// Token returns a valid access token for the user, refreshing
// transparently when the stored token is near expiry.
func (c *Credentials) Token(ctx context.Context, userID string) (string, error) {
	cred, err := c.db.GetCredential(userID)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", ErrNotConnected
	}

	if cred.ExpiresAt == nil || time.UnixMilli(*cred.ExpiresAt).After(time.Now().Add(refreshMargin)) {
		return cred.AccessToken, nil
	}
	if cred.RefreshToken == "" || c.exchanger == nil {
		return "", fmt.Errorf("credential for %s expired and cannot refresh", userID)
	}

	tok, err := c.exchanger.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		return "", err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = cred.RefreshToken
	}
	if err := c.save(userID, tok); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (c *Credentials) save(userID string, tok *oauth2.Token) error {
	cred := &store.Credential{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		ms := tok.Expiry.UnixMilli()
		cred.ExpiresAt = &ms
	}
	return c.db.SaveCredential(cred)
}
