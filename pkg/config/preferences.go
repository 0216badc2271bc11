package config

import (
	"fmt"
	"time"
)

// SectionIDPreferences is the identifier for the session preferences section.
const SectionIDPreferences = "preferences"

// Preferences holds the last-used session settings. They seed the defaults
// for the next run so a user does not have to repeat flags between
// invocations.
type Preferences struct {
	// KeepAliveInterval is the last-used delay between activity cycles.
	KeepAliveInterval time.Duration

	// Incognito runs sessions without a persistent browser profile.
	Incognito bool

	// DisableImages suppresses image loading to save bandwidth.
	DisableImages bool

	// AdvancedStealth enables the fingerprint-masking init script and
	// randomized window sizing.
	AdvancedStealth bool

	// Headless runs browsers without a visible window.
	Headless bool

	// ProxyServer is the last-used proxy address, empty for none.
	ProxyServer string

	// UserAgent is the last-used user agent override, empty for the
	// built-in rotation.
	UserAgent string
}

// LoadPreferences reads the preferences section from the store. Missing or
// malformed fields fall back to zero values so a hand-edited config file
// cannot prevent startup.
func LoadPreferences(store Store) (Preferences, error) {
	data, err := store.GetSection(SectionIDPreferences)
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to read preferences: %w", err)
	}

	var p Preferences
	if raw, ok := data["keep_alive_interval"].(string); ok {
		if d, err := time.ParseDuration(raw); err == nil {
			p.KeepAliveInterval = d
		}
	}
	if v, ok := data["incognito"].(bool); ok {
		p.Incognito = v
	}
	if v, ok := data["disable_images"].(bool); ok {
		p.DisableImages = v
	}
	if v, ok := data["advanced_stealth"].(bool); ok {
		p.AdvancedStealth = v
	}
	if v, ok := data["headless"].(bool); ok {
		p.Headless = v
	}
	if v, ok := data["proxy_server"].(string); ok {
		p.ProxyServer = v
	}
	if v, ok := data["user_agent"].(string); ok {
		p.UserAgent = v
	}
	return p, nil
}

// SavePreferences writes the preferences section to the store and persists
// it to disk.
func SavePreferences(store Store, p Preferences) error {
	data := map[string]any{
		"incognito":        p.Incognito,
		"disable_images":   p.DisableImages,
		"advanced_stealth": p.AdvancedStealth,
		"headless":         p.Headless,
		"proxy_server":     p.ProxyServer,
		"user_agent":       p.UserAgent,
	}
	if p.KeepAliveInterval > 0 {
		data["keep_alive_interval"] = p.KeepAliveInterval.String()
	}

	if err := store.SetSection(SectionIDPreferences, data); err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	if err := store.Save(); err != nil {
		return fmt.Errorf("failed to persist preferences: %w", err)
	}
	return nil
}
