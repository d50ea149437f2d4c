// internal/app/externalauth/externalauth.go
//
// Package externalauth turns an OAuth2 authorization-code exchange
// into an accounts.ExternalProfile. It owns no HTTP routes and no
// sessions; the API layer drives the redirect dance and hands the
// resulting profile to accounts.EnsureExternalUser.
package externalauth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/dochub/internal/app/accounts"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const stateTTL = 10 * time.Minute

// Provider wraps one OAuth2 identity provider.
type Provider struct {
	Log *zap.Logger

	ClientID     string
	ClientSecret string
	RedirectURL  string

	// UserInfoURL overrides the provider's userinfo endpoint; tests
	// point it at a local server.
	UserInfoURL string

	// Endpoint overrides the OAuth2 endpoint; zero means Google.
	Endpoint oauth2.Endpoint

	mu     sync.Mutex
	states map[string]time.Time
}

func New(clientID, clientSecret, baseURL string, log *zap.Logger) *Provider {
	return &Provider{
		Log:          log,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/callback",
		UserInfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
		states:       make(map[string]time.Time),
	}
}

// IsConfigured reports whether provider credentials are present.
func (p *Provider) IsConfigured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

func (p *Provider) config() *oauth2.Config {
	endpoint := p.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: endpoint,
	}
}

// BeginLogin returns the provider consent URL with a fresh single-use
// state parameter.
func (p *Provider) BeginLogin() (string, error) {
	state, err := generateState()
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.states[state] = time.Now().UTC().Add(stateTTL)
	p.mu.Unlock()

	return p.config().AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// ConsumeState validates and retires a state value issued by
// BeginLogin. Each state is good for one callback within its TTL.
func (p *Provider) ConsumeState(state string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	expires, ok := p.states[state]
	if !ok {
		return false
	}
	delete(p.states, state)
	return time.Now().UTC().Before(expires)
}

// Exchange trades the callback's authorization code for the external
// user profile.
func (p *Provider) Exchange(ctx context.Context, code string) (accounts.ExternalProfile, error) {
	token, err := p.config().Exchange(ctx, code)
	if err != nil {
		return accounts.ExternalProfile{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	return p.fetchProfile(ctx, token)
}

// userInfo is the provider's userinfo document.
type userInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

func (p *Provider) fetchProfile(ctx context.Context, token *oauth2.Token) (accounts.ExternalProfile, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(p.UserInfoURL)
	if err != nil {
		return accounts.ExternalProfile{}, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return accounts.ExternalProfile{}, fmt.Errorf("user info: unexpected status code %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return accounts.ExternalProfile{}, fmt.Errorf("decode user info: %w", err)
	}
	if info.Email == "" {
		return accounts.ExternalProfile{}, fmt.Errorf("user info has no email")
	}

	p.Log.Debug("external user info fetched",
		zap.String("connect_id", info.ID),
		zap.String("email", info.Email))

	return accounts.ExternalProfile{
		ConnectID: info.ID,
		Email:     info.Email,
		Name:      info.Name,
		Picture:   info.Picture,
		Locale:    info.Locale,
	}, nil
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return "", fmt.Errorf("generate random state")
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
