// Package auth implements the portal's identity adapter: sign-in against
// an external OAuth provider, JWT-backed sessions, and the middleware
// that threads the resulting session through request contexts.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pu-events/portal/internal/config"
)

// ErrExchangeFailed is returned when the provider rejects the
// authorization code or the profile fetch fails.
var ErrExchangeFailed = errors.New("sign-in with provider failed")

// Identity is the user profile issued by the external provider. It lives
// for the duration of a session and is never persisted by the portal.
type Identity struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email"`
	PhotoURL      string `json:"photo_url,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// Provider drives the OAuth authorization-code flow against a single
// configured identity provider.
type Provider struct {
	clientID     string
	clientSecret string
	redirectURI  string
	authURL      string
	tokenURL     string
	userInfoURL  string
	scopes       []string
	client       *http.Client
}

// NewProvider builds a Provider from configuration.
func NewProvider(cfg config.Config) *Provider {
	return &Provider{
		clientID:     cfg.OAuthClientID,
		clientSecret: cfg.OAuthClientSecret,
		redirectURI:  cfg.OAuthRedirectURI,
		authURL:      cfg.OAuthAuthURL,
		tokenURL:     cfg.OAuthTokenURL,
		userInfoURL:  cfg.OAuthUserInfoURL,
		scopes:       cfg.OAuthScopes,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthCodeURL builds the provider redirect URL for the given CSRF state.
func (p *Provider) AuthCodeURL(state string) (string, error) {
	u, err := url.Parse(p.authURL)
	if err != nil {
		return "", fmt.Errorf("invalid provider auth URL: %w", err)
	}
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", p.clientID)
	query.Set("redirect_uri", p.redirectURI)
	query.Set("scope", strings.Join(p.scopes, " "))
	query.Set("state", state)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// Exchange trades an authorization code for the signed-in identity.
func (p *Provider) Exchange(ctx context.Context, code string) (Identity, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("redirect_uri", p.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Identity{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("%w: token endpoint returned %d", ErrExchangeFailed, resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&token); err != nil {
		return Identity{}, fmt.Errorf("%w: decode token response: %v", ErrExchangeFailed, err)
	}
	if token.AccessToken == "" {
		return Identity{}, fmt.Errorf("%w: empty access token", ErrExchangeFailed)
	}

	return p.fetchProfile(ctx, token.AccessToken)
}

func (p *Provider) fetchProfile(ctx context.Context, accessToken string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("%w: userinfo endpoint returned %d", ErrExchangeFailed, resp.StatusCode)
	}

	var profile struct {
		Sub           string `json:"sub"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		Picture       string `json:"picture"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return Identity{}, fmt.Errorf("%w: decode userinfo: %v", ErrExchangeFailed, err)
	}
	if profile.Sub == "" {
		return Identity{}, fmt.Errorf("%w: profile has no subject", ErrExchangeFailed)
	}

	return NewIdentity(profile.Sub, profile.Name, profile.Email, profile.Picture, profile.EmailVerified), nil
}

// NewIdentity normalises a provider profile. A missing display name falls
// back to the local part of the email address.
func NewIdentity(id, name, email, photoURL string, verified bool) Identity {
	if name == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			name = email[:at]
		} else {
			name = "User"
		}
	}
	return Identity{
		ID:            id,
		DisplayName:   name,
		Email:         email,
		PhotoURL:      photoURL,
		EmailVerified: verified,
	}
}

// NewState generates a random CSRF state for the login round-trip.
func NewState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
