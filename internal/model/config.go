package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config defaults.
const (
	DefaultRedirectURI     = "http://localhost:5173/auth/callback"
	DefaultBackendURL      = "http://localhost:8000"
	DefaultRefreshInterval = 60
	DefaultMaxResults      = 50
)

// DefaultScopes are the Gmail scopes the dashboard asks for.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.modify",
}

// AuthConfig holds the consent popup settings.
type AuthConfig struct {
	// ClientID is the public OAuth client identifier.
	ClientID string `mapstructure:"client_id" yaml:"client_id"`

	// RedirectURI must be registered with the provider. Its origin is
	// the dashboard origin the callback server binds.
	RedirectURI string `mapstructure:"redirect_uri" yaml:"redirect_uri"`

	Scopes  []string `mapstructure:"scopes" yaml:"scopes"`
	AuthURL string   `mapstructure:"auth_url" yaml:"auth_url"`

	// Mode is "code" (the dashboard exchanges the code) or "token" (the
	// backend already did).
	Mode string `mapstructure:"mode" yaml:"mode"`

	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PopupWidth   int           `mapstructure:"popup_width" yaml:"popup_width"`
	PopupHeight  int           `mapstructure:"popup_height" yaml:"popup_height"`
	PopupName    string        `mapstructure:"popup_name" yaml:"popup_name"`
}

// BackendConfig locates the REST service.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// BrowserConfig overrides browser discovery.
type BrowserConfig struct {
	Command string `mapstructure:"command" yaml:"command"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme              string `mapstructure:"theme" yaml:"theme"`
	RefreshIntervalSec int    `mapstructure:"refresh_interval_sec" yaml:"refresh_interval_sec"`
	MaxResults         int    `mapstructure:"max_results" yaml:"max_results"`
}

// AppConfig is the top-level dashboard configuration.
type AppConfig struct {
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// Configured reports whether the first-run setup has been completed.
func (c *AppConfig) Configured() bool {
	return c.Auth.ClientID != "" && c.Backend.BaseURL != ""
}

// RefreshInterval is the inbox auto-refresh period.
func (c *AppConfig) RefreshInterval() time.Duration {
	return time.Duration(c.Display.RefreshIntervalSec) * time.Second
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/sentient-inbox/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "sentient-inbox", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Auth: AuthConfig{
			RedirectURI:  DefaultRedirectURI,
			Scopes:       append([]string(nil), DefaultScopes...),
			Mode:         "code",
			PollInterval: time.Second,
			Timeout:      5 * time.Minute,
			PopupWidth:   500,
			PopupHeight:  600,
			PopupName:    "googleAuth",
		},
		Backend: BackendConfig{BaseURL: DefaultBackendURL},
		Display: DisplayConfig{
			Theme:              "default",
			RefreshIntervalSec: DefaultRefreshInterval,
			MaxResults:         DefaultMaxResults,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	def := defaultAppConfig()
	v.SetDefault("auth.redirect_uri", def.Auth.RedirectURI)
	v.SetDefault("auth.scopes", def.Auth.Scopes)
	v.SetDefault("auth.mode", def.Auth.Mode)
	v.SetDefault("auth.poll_interval", def.Auth.PollInterval)
	v.SetDefault("auth.timeout", def.Auth.Timeout)
	v.SetDefault("auth.popup_width", def.Auth.PopupWidth)
	v.SetDefault("auth.popup_height", def.Auth.PopupHeight)
	v.SetDefault("auth.popup_name", def.Auth.PopupName)
	v.SetDefault("backend.base_url", def.Backend.BaseURL)
	v.SetDefault("display.theme", def.Display.Theme)
	v.SetDefault("display.refresh_interval_sec", def.Display.RefreshIntervalSec)
	v.SetDefault("display.max_results", def.Display.MaxResults)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return def, nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Display.RefreshIntervalSec <= 0 {
		cfg.Display.RefreshIntervalSec = DefaultRefreshInterval
	}
	if cfg.Display.MaxResults <= 0 {
		cfg.Display.MaxResults = DefaultMaxResults
	}
	if cfg.Auth.Mode != "code" && cfg.Auth.Mode != "token" {
		return nil, fmt.Errorf("parsing config %s: unknown auth.mode %q", path, cfg.Auth.Mode)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("auth", map[string]any{
		"client_id":     cfg.Auth.ClientID,
		"redirect_uri":  cfg.Auth.RedirectURI,
		"scopes":        cfg.Auth.Scopes,
		"auth_url":      cfg.Auth.AuthURL,
		"mode":          cfg.Auth.Mode,
		"poll_interval": cfg.Auth.PollInterval.String(),
		"timeout":       cfg.Auth.Timeout.String(),
		"popup_width":   cfg.Auth.PopupWidth,
		"popup_height":  cfg.Auth.PopupHeight,
		"popup_name":    cfg.Auth.PopupName,
	})
	v.Set("backend", map[string]any{"base_url": cfg.Backend.BaseURL})
	v.Set("browser", map[string]any{"command": cfg.Browser.Command})
	v.Set("display", map[string]any{
		"theme":                cfg.Display.Theme,
		"refresh_interval_sec": cfg.Display.RefreshIntervalSec,
		"max_results":          cfg.Display.MaxResults,
	})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
