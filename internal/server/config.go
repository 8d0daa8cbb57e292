package server

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/memakingbeats/sentient-inbox-main/internal/credential"
	"github.com/memakingbeats/sentient-inbox-main/internal/mailbox/imap"
)

// Mail drivers the backend can talk to.
const (
	DriverGmail = "gmail"
	DriverIMAP  = "imap"
)

// Config is the backend configuration, read from the environment.
type Config struct {
	Addr   string `env:"SENTIENT_INBOX_API_ADDR"   envDefault:":8000"`
	DBPath string `env:"SENTIENT_INBOX_API_DB"     envDefault:"sentient-inbox.db"`

	JWTSecret string        `env:"SENTIENT_INBOX_API_JWT_SECRET"`
	JWTIssuer string        `env:"SENTIENT_INBOX_API_JWT_ISSUER" envDefault:"sentient-inbox"`
	JWTTTL    time.Duration `env:"SENTIENT_INBOX_API_JWT_TTL"    envDefault:"24h"`

	// DashboardURL is where the token-mode callback sends the browser back.
	DashboardURL   string   `env:"SENTIENT_INBOX_API_DASHBOARD_URL"    envDefault:"http://localhost:5173"`
	AllowedOrigins []string `env:"SENTIENT_INBOX_API_ALLOWED_ORIGINS" envSeparator:","`

	MailDriver   string `env:"SENTIENT_INBOX_API_MAIL_DRIVER" envDefault:"gmail"`
	IMAPHost     string `env:"SENTIENT_INBOX_API_IMAP_HOST"   envDefault:"imap.gmail.com"`
	IMAPPort     int    `env:"SENTIENT_INBOX_API_IMAP_PORT"   envDefault:"993"`
	IMAPTLS      bool   `env:"SENTIENT_INBOX_API_IMAP_TLS"    envDefault:"true"`
	IMAPUsername string `env:"SENTIENT_INBOX_API_IMAP_USERNAME"`

	GoogleClientID     string   `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string   `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string   `env:"GOOGLE_REDIRECT_URI" envDefault:"http://localhost:5173/auth/callback"`
	GoogleScopes       []string `env:"GOOGLE_SCOPES"       envSeparator:"," envDefault:"https://www.googleapis.com/auth/gmail.readonly,https://www.googleapis.com/auth/gmail.modify"`
	GoogleAuthURL      string   `env:"GOOGLE_OAUTH_AUTH_URL"`
	GoogleTokenURL     string   `env:"GOOGLE_OAUTH_TOKEN_URL"`

	AnthropicAPIKey    string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel     string `env:"SENTIENT_INBOX_API_AI_MODEL"`
	AnthropicMaxTokens int    `env:"SENTIENT_INBOX_API_AI_MAX_TOKENS" envDefault:"1024"`
}

// LoadConfig parses the environment and fills unset secrets from the
// system keyring.
func LoadConfig() (Config, error) {
	return loadConfig(credential.Resolve)
}

func loadConfig(resolve func(value, key string) (string, error)) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	secrets := []struct {
		dst *string
		key string
	}{
		{&cfg.GoogleClientSecret, credential.KeyGoogleClientSecret},
		{&cfg.JWTSecret, credential.KeyJWTSecret},
		{&cfg.AnthropicAPIKey, credential.KeyAnthropicAPIKey},
	}
	for _, s := range secrets {
		v, err := resolve(*s.dst, s.key)
		if err != nil {
			return Config{}, fmt.Errorf("resolving %s: %w", s.key, err)
		}
		*s.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c Config) Validate() error {
	var missing []string
	if c.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if c.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "SENTIENT_INBOX_API_JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	switch c.MailDriver {
	case DriverGmail:
	case DriverIMAP:
		if c.IMAPHost == "" {
			return fmt.Errorf("imap driver needs SENTIENT_INBOX_API_IMAP_HOST")
		}
	default:
		return fmt.Errorf("unknown mail driver %q", c.MailDriver)
	}

	if _, err := url.Parse(c.DashboardURL); err != nil {
		return fmt.Errorf("invalid dashboard url: %w", err)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("SENTIENT_INBOX_API_JWT_TTL must be positive")
	}
	return nil
}

// OAuth2 returns the Google client configuration. The auth and token URLs
// can be overridden to point at a test server.
func (c Config) OAuth2() *oauth2.Config {
	endpoint := google.Endpoint
	if c.GoogleAuthURL != "" {
		endpoint.AuthURL = c.GoogleAuthURL
	}
	if c.GoogleTokenURL != "" {
		endpoint.TokenURL = c.GoogleTokenURL
	}
	return &oauth2.Config{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
		RedirectURL:  c.GoogleRedirectURI,
		Scopes:       c.GoogleScopes,
		Endpoint:     endpoint,
	}
}

// IMAP returns the IMAP driver settings.
func (c Config) IMAP() imap.Config {
	return imap.Config{
		Host:     c.IMAPHost,
		Port:     c.IMAPPort,
		TLS:      c.IMAPTLS,
		Username: c.IMAPUsername,
	}
}

// CORSOrigins lists the browser origins allowed to call the API. It
// defaults to the dashboard origin.
func (c Config) CORSOrigins() []string {
	if len(c.AllowedOrigins) > 0 {
		return c.AllowedOrigins
	}
	u, err := url.Parse(c.DashboardURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Scheme + "://" + u.Host}
}
