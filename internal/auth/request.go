package auth

import (
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Mode selects what the callback hands back to the dashboard.
type Mode string

const (
	// ModeCode expects an authorization code that the backend exchanges.
	ModeCode Mode = "code"

	// ModeToken expects a token the server already issued during redirect.
	ModeToken Mode = "token"
)

// Popup defaults. Reusing PopupName makes the opener focus the live window
// instead of creating a second one.
const (
	DefaultPopupName    = "googleAuth"
	DefaultPopupWidth   = 500
	DefaultPopupHeight  = 600
	DefaultPollInterval = time.Second
	DefaultTimeout      = 5 * time.Minute
)

// Config describes how authorization attempts are started.
type Config struct {
	ClientID    string
	RedirectURI string
	Scopes      []string

	// AuthURL overrides the provider consent endpoint. Empty means Google.
	AuthURL string

	Mode         Mode
	PopupName    string
	PopupWidth   int
	PopupHeight  int
	PollInterval time.Duration
	Timeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.AuthURL == "" {
		c.AuthURL = google.Endpoint.AuthURL
	}
	if c.Mode == "" {
		c.Mode = ModeCode
	}
	if c.PopupName == "" {
		c.PopupName = DefaultPopupName
	}
	if c.PopupWidth <= 0 {
		c.PopupWidth = DefaultPopupWidth
	}
	if c.PopupHeight <= 0 {
		c.PopupHeight = DefaultPopupHeight
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

func (c Config) validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("auth config: client id is required")
	}
	if c.Mode != ModeCode && c.Mode != ModeToken {
		return fmt.Errorf("auth config: unknown mode %q", c.Mode)
	}
	if _, err := OriginOf(c.RedirectURI); err != nil {
		return fmt.Errorf("auth config: redirect uri: %w", err)
	}
	return nil
}

// AuthorizationRequest is the immutable description of one consent screen
// visit. State carries the attempt ID and is echoed back by the provider.
type AuthorizationRequest struct {
	AuthURL     string
	Scopes      []string
	RedirectURI string
	State       string
}

// NewAuthorizationRequest builds the provider URL for an attempt.
func NewAuthorizationRequest(cfg Config, state string) AuthorizationRequest {
	cfg = cfg.withDefaults()
	scopes := append([]string(nil), cfg.Scopes...)

	oc := oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: cfg.RedirectURI,
		Scopes:      scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: cfg.AuthURL},
	}

	return AuthorizationRequest{
		AuthURL:     oc.AuthCodeURL(state, oauth2.AccessTypeOffline),
		Scopes:      scopes,
		RedirectURI: cfg.RedirectURI,
		State:       state,
	}
}

// OriginOf returns the scheme://host[:port] origin of rawURL.
func OriginOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute url", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
