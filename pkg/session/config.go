// Package session implements the session lifecycle core: per-session
// configuration, the worker state machine that owns one browser handle
// end-to-end, and the coordinator that routes start/stop commands and
// aggregates status events for the control surface.
package session

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Keep-alive interval bounds. Anything shorter than a minute hammers the
// page for no anti-idle benefit; anything longer than an hour risks the
// remote service timing the session out between cycles.
const (
	DefaultKeepAliveInterval = 10 * time.Minute
	MinKeepAliveInterval     = time.Minute
	MaxKeepAliveInterval     = time.Hour
)

// Config describes one session. It is immutable once a session has been
// started; restart the session to change it.
type Config struct {
	// TargetURL is the address to open. A missing scheme is normalized
	// to https during validation.
	TargetURL string

	// KeepAliveInterval is the delay between activity cycles. Zero means
	// DefaultKeepAliveInterval.
	KeepAliveInterval time.Duration

	// Incognito uses an ephemeral browser context instead of a
	// per-session persistent profile directory.
	Incognito bool

	// DisableImages suppresses image loading to save bandwidth.
	DisableImages bool

	// ProxyServer is an optional "host:port" proxy address.
	ProxyServer string

	// UserAgent overrides the random user-agent draw when non-empty.
	UserAgent string

	// AdvancedStealth enables script-level anti-detection patches and a
	// window size drawn from common device resolutions.
	AdvancedStealth bool

	// Headless hides the browser window.
	Headless bool
}

// Validate checks the config and returns a normalized copy: target URL
// scheme-normalized, keep-alive interval defaulted and bounds-checked.
func (c Config) Validate() (Config, error) {
	normalized, err := NormalizeTargetURL(c.TargetURL)
	if err != nil {
		return c, err
	}
	c.TargetURL = normalized

	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if c.KeepAliveInterval < MinKeepAliveInterval || c.KeepAliveInterval > MaxKeepAliveInterval {
		return c, fmt.Errorf("keep-alive interval %s out of range [%s, %s]",
			c.KeepAliveInterval, MinKeepAliveInterval, MaxKeepAliveInterval)
	}

	return c, nil
}

// NormalizeTargetURL validates a target address, prepending "https://"
// when no scheme is present. Only absolute http/https addresses are
// accepted.
func NormalizeTargetURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("target address is required")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid target address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q (only http and https)", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("target address %q has no host", raw)
	}

	return u.String(), nil
}
