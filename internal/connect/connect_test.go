package connect

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/config"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/store"
)

type fakeExchanger struct {
	exchangeTok *oauth2.Token
	refreshTok  *oauth2.Token
	refreshErr  error
	refreshed   int
}

func (f *fakeExchanger) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if code != "good-code" {
		return nil, errors.New("invalid code")
	}
	return f.exchangeTok, nil
}

func (f *fakeExchanger) Refresh(_ context.Context, _ string) (*oauth2.Token, error) {
	f.refreshed++
	return f.refreshTok, f.refreshErr
}

func testCredentials(t *testing.T, ex Exchanger) *Credentials {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCredentials(db, ex)
}

func TestConnectAndToken(t *testing.T) {
	ex := &fakeExchanger{
		exchangeTok: &oauth2.Token{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			Expiry:       time.Now().Add(time.Hour),
		},
	}
	c := testCredentials(t, ex)

	if err := c.Connect(context.Background(), "user-1", "good-code"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	tok, err := c.Token(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "access-1" {
		t.Errorf("token = %q, want access-1", tok)
	}
	if ex.refreshed != 0 {
		t.Errorf("refresh calls = %d, want 0 for a fresh token", ex.refreshed)
	}
}

func TestConnectBadCode(t *testing.T) {
	c := testCredentials(t, &fakeExchanger{})

	if err := c.Connect(context.Background(), "user-1", "bad-code"); err == nil {
		t.Error("expected error for rejected code")
	}
}

func TestTokenNotConnected(t *testing.T) {
	c := testCredentials(t, &fakeExchanger{})

	_, err := c.Token(context.Background(), "user-1")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestTokenRefreshesNearExpiry(t *testing.T) {
	ex := &fakeExchanger{
		exchangeTok: &oauth2.Token{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			Expiry:       time.Now().Add(30 * time.Second),
		},
		// The refresh response carries no refresh token; the stored one
		// must survive
		refreshTok: &oauth2.Token{
			AccessToken: "access-2",
			Expiry:      time.Now().Add(time.Hour),
		},
	}
	c := testCredentials(t, ex)

	if err := c.Connect(context.Background(), "user-1", "good-code"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	tok, err := c.Token(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "access-2" {
		t.Errorf("token = %q, want refreshed access-2", tok)
	}
	if ex.refreshed != 1 {
		t.Errorf("refresh calls = %d, want 1", ex.refreshed)
	}

	cred, err := c.db.GetCredential("user-1")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if cred.RefreshToken != "refresh-1" {
		t.Errorf("refresh token = %q, want refresh-1 preserved", cred.RefreshToken)
	}
}

func TestTokenRefreshFailure(t *testing.T) {
	ex := &fakeExchanger{
		exchangeTok: &oauth2.Token{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			Expiry:       time.Now().Add(-time.Minute),
		},
		refreshErr: errors.New("provider says no"),
	}
	c := testCredentials(t, ex)

	if err := c.Connect(context.Background(), "user-1", "good-code"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := c.Token(context.Background(), "user-1"); err == nil {
		t.Error("expected refresh failure to surface")
	}
}

func TestNewExchangerRequiresConfig(t *testing.T) {
	if _, err := NewExchanger(config.OAuthConfig{}); err == nil {
		t.Error("expected error for empty oauth config")
	}
	if _, err := NewExchanger(config.OAuthConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     "https://provider.example/token",
	}); err != nil {
		t.Errorf("NewExchanger: %v", err)
	}
}
