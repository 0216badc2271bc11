package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/vigil/pkg/config"
	"github.com/entrhq/vigil/pkg/session"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
defaults:
  interval: 5m
  incognito: true
sessions:
  - url: https://a.example.com
  - url: https://b.example.com
    interval: 30m
    headless: true
`)

	m, err := loadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, "5m", m.Defaults.Interval)
	require.NotNil(t, m.Defaults.Incognito)
	assert.True(t, *m.Defaults.Incognito)

	require.Len(t, m.Sessions, 2)
	assert.Equal(t, "https://a.example.com", m.Sessions[0].URL)
	assert.Equal(t, "30m", m.Sessions[1].Interval)
	require.NotNil(t, m.Sessions[1].Headless)
	assert.True(t, *m.Sessions[1].Headless)
}

func TestLoadManifest_MissingURL(t *testing.T) {
	path := writeManifest(t, `
sessions:
  - interval: 5m
`)
	_, err := loadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}

func TestLoadManifest_BadInterval(t *testing.T) {
	path := writeManifest(t, `
sessions:
  - url: https://a.example.com
    interval: soon
`)
	_, err := loadManifest(path)
	assert.Error(t, err)
}

func TestLoadManifest_MissingFile(t *testing.T) {
	_, err := loadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestManifestSettings_ApplyLeavesUnsetFields(t *testing.T) {
	cfg := session.Config{
		KeepAliveInterval: 10 * time.Minute,
		Incognito:         true,
		ProxyServer:       "proxy.internal:8080",
	}

	headless := true
	manifestSettings{Headless: &headless, Interval: "5m"}.apply(&cfg)

	assert.Equal(t, 5*time.Minute, cfg.KeepAliveInterval)
	assert.True(t, cfg.Headless)
	assert.True(t, cfg.Incognito, "unset manifest field must not clear config")
	assert.Equal(t, "proxy.internal:8080", cfg.ProxyServer)
}

func TestBaseConfig_Precedence(t *testing.T) {
	t.Setenv("VIGIL_PROXY", "env-proxy:1")
	t.Setenv("VIGIL_USER_AGENT", "")
	t.Setenv("VIGIL_INTERVAL", "")

	prefs := config.Preferences{
		KeepAliveInterval: 7 * time.Minute,
		ProxyServer:       "pref-proxy:1",
		UserAgent:         "pref-agent",
	}

	incognito := true
	m := &manifest{Defaults: manifestSettings{
		Interval:  "3m",
		Incognito: &incognito,
	}}

	cli := &CLIConfig{
		UserAgent: "flag-agent",
		set:       map[string]bool{"user-agent": true},
	}

	cfg := baseConfig(cli, prefs, m)

	// manifest beats preferences
	assert.Equal(t, 3*time.Minute, cfg.KeepAliveInterval)
	assert.True(t, cfg.Incognito)
	// environment beats preferences
	assert.Equal(t, "env-proxy:1", cfg.ProxyServer)
	// explicit flag beats everything
	assert.Equal(t, "flag-agent", cfg.UserAgent)
}

func TestBaseConfig_DefaultsWhenNothingSet(t *testing.T) {
	t.Setenv("VIGIL_PROXY", "")
	t.Setenv("VIGIL_USER_AGENT", "")
	t.Setenv("VIGIL_INTERVAL", "")

	cli := &CLIConfig{set: map[string]bool{}}
	cfg := baseConfig(cli, config.Preferences{}, nil)

	assert.Equal(t, session.DefaultKeepAliveInterval, cfg.KeepAliveInterval)
	assert.False(t, cfg.Incognito)
	assert.Empty(t, cfg.ProxyServer)
}

func TestSessionConfigs_FlagsWinOverPerSessionManifest(t *testing.T) {
	headless := true
	m := &manifest{Sessions: []manifestSession{{
		URL:              "https://a.example.com",
		manifestSettings: manifestSettings{Interval: "30m", Headless: &headless},
	}}}

	cli := &CLIConfig{
		Interval: 2 * time.Minute,
		set:      map[string]bool{"interval": true},
	}
	base := session.Config{KeepAliveInterval: 2 * time.Minute}

	configs, err := sessionConfigs(cli, base, m)
	require.NoError(t, err)
	require.Len(t, configs, 1)

	assert.Equal(t, "https://a.example.com", configs[0].TargetURL)
	assert.Equal(t, 2*time.Minute, configs[0].KeepAliveInterval, "explicit flag overrides manifest entry")
	assert.True(t, configs[0].Headless, "manifest entry still sets unflagged fields")
}

func TestSessionConfigs_CombinesFlagURLsAndManifest(t *testing.T) {
	m := &manifest{Sessions: []manifestSession{{URL: "https://b.example.com"}}}
	cli := &CLIConfig{
		URLs: urlList{"https://a.example.com"},
		set:  map[string]bool{},
	}

	configs, err := sessionConfigs(cli, session.Config{}, m)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "https://a.example.com", configs[0].TargetURL)
	assert.Equal(t, "https://b.example.com", configs[1].TargetURL)
}
