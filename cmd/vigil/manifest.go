package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/vigil/pkg/session"
)

// manifestSettings holds session settings from a manifest file. Pointer
// and string-zero fields distinguish "not set" from an explicit value so
// layers below are not clobbered.
type manifestSettings struct {
	Interval        string `yaml:"interval"`
	Incognito       *bool  `yaml:"incognito"`
	DisableImages   *bool  `yaml:"disable_images"`
	AdvancedStealth *bool  `yaml:"advanced_stealth"`
	Headless        *bool  `yaml:"headless"`
	ProxyServer     string `yaml:"proxy_server"`
	UserAgent       string `yaml:"user_agent"`
}

// manifestSession is one session entry in a manifest. Inline settings
// override the manifest defaults for this session only.
type manifestSession struct {
	URL              string `yaml:"url"`
	manifestSettings `yaml:",inline"`
}

// manifest describes a batch of sessions to start.
type manifest struct {
	Defaults manifestSettings  `yaml:"defaults"`
	Sessions []manifestSession `yaml:"sessions"`
}

// loadManifest loads and validates a session manifest from a YAML file.
func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

func (m *manifest) validate() error {
	if _, err := parseInterval(m.Defaults.Interval); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for i, s := range m.Sessions {
		if s.URL == "" {
			return fmt.Errorf("session %d: url is required", i+1)
		}
		if _, err := parseInterval(s.Interval); err != nil {
			return fmt.Errorf("session %d: %w", i+1, err)
		}
	}
	return nil
}

// parseInterval parses a manifest interval string. Empty means unset.
func parseInterval(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", raw, err)
	}
	return d, nil
}

// apply overlays the settings onto a session config. Unset fields leave
// the config untouched.
func (s manifestSettings) apply(cfg *session.Config) {
	if d, err := parseInterval(s.Interval); err == nil && d > 0 {
		cfg.KeepAliveInterval = d
	}
	if s.Incognito != nil {
		cfg.Incognito = *s.Incognito
	}
	if s.DisableImages != nil {
		cfg.DisableImages = *s.DisableImages
	}
	if s.AdvancedStealth != nil {
		cfg.AdvancedStealth = *s.AdvancedStealth
	}
	if s.Headless != nil {
		cfg.Headless = *s.Headless
	}
	if s.ProxyServer != "" {
		cfg.ProxyServer = s.ProxyServer
	}
	if s.UserAgent != "" {
		cfg.UserAgent = s.UserAgent
	}
}
