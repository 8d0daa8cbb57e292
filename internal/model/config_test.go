package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.False(t, cfg.Configured())
	assert.Equal(t, DefaultRedirectURI, cfg.Auth.RedirectURI)
	assert.Equal(t, DefaultScopes, cfg.Auth.Scopes)
	assert.Equal(t, "code", cfg.Auth.Mode)
	assert.Equal(t, DefaultBackendURL, cfg.Backend.BaseURL)
	assert.Equal(t, time.Minute, cfg.RefreshInterval())
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  client_id: abc.apps.googleusercontent.com
  timeout: 2m
backend:
  base_url: http://api.test:9000
display:
  refresh_interval_sec: 15
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Configured())
	assert.Equal(t, "abc.apps.googleusercontent.com", cfg.Auth.ClientID)
	assert.Equal(t, 2*time.Minute, cfg.Auth.Timeout)
	assert.Equal(t, time.Second, cfg.Auth.PollInterval)
	assert.Equal(t, 500, cfg.Auth.PopupWidth)
	assert.Equal(t, "googleAuth", cfg.Auth.PopupName)
	assert.Equal(t, "http://api.test:9000", cfg.Backend.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.RefreshInterval())
}

func TestLoadConfigRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  mode: implicit\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "auth.mode")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.Auth.ClientID = "client-1"
	cfg.Auth.Mode = "token"
	cfg.Browser.Command = "chromium"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "client-1", loaded.Auth.ClientID)
	assert.Equal(t, "token", loaded.Auth.Mode)
	assert.Equal(t, "chromium", loaded.Browser.Command)
	assert.Equal(t, 5*time.Minute, loaded.Auth.Timeout)
	assert.Equal(t, DefaultScopes, loaded.Auth.Scopes)
}
