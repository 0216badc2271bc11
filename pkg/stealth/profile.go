// Package stealth builds browser launch profiles that reduce the signals
// commonly used to detect automated browsers: launch flags, a realistic
// user agent, an optional init script and a common window geometry.
//
// Building a profile has no side effects and requires no running browser;
// the random draws (user agent, window size) happen once at build time so
// a profile is stable for the lifetime of its session.
package stealth

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

// Options configures profile construction for one session.
type Options struct {
	// SessionID scopes the persistent user-data directory when Incognito
	// is false. Required in that mode.
	SessionID string

	// Incognito selects an ephemeral browser context instead of a
	// per-session persistent profile directory.
	Incognito bool

	// DisableImages suppresses image loading to reduce bandwidth.
	DisableImages bool

	// ProxyServer is an optional "host:port" proxy address.
	ProxyServer string

	// UserAgent overrides the randomly drawn user agent when non-empty.
	UserAgent string

	// AdvancedStealth enables the init script and window-size draw.
	AdvancedStealth bool

	// Headless runs the browser without a visible window.
	Headless bool
}

// Resolution is a window geometry in CSS pixels.
type Resolution struct {
	Width  int
	Height int
}

// Profile is the launch configuration handed to the browser layer.
type Profile struct {
	// Incognito selects an ephemeral context; when false UserDataDir is
	// a per-session directory that persists cookies between runs.
	Incognito   bool
	UserDataDir string

	// Flags are the Chromium launch arguments.
	Flags []string

	// UserAgent is always populated, either from the override or the pool.
	UserAgent string

	ProxyServer   string
	DisableImages bool
	Headless      bool

	// InitScript is injected before every document when non-empty.
	InitScript string

	// Window is nil unless advanced stealth selected a geometry.
	Window *Resolution
}

// userAgentPool holds realistic desktop Chrome user agents. Revised as
// browser releases age out; the draw is uniform.
var userAgentPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

// commonResolutions are window sizes matching widespread real devices.
// Advanced stealth draws uniformly from this set, never an arbitrary size.
var commonResolutions = []Resolution{
	{1366, 768},
	{1920, 1080},
	{1440, 900},
	{1536, 864},
	{1280, 720},
}

// baseFlags disable the launch-time signals that give automation away,
// plus a few noise sources (GPU, extensions, notification prompts).
var baseFlags = []string{
	"--disable-blink-features=AutomationControlled",
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--disable-extensions",
	"--disable-notifications",
	"--ignore-certificate-errors",
}

// Build assembles a launch profile from the options. Aside from the user
// agent and window-size draws it is a pure function of its input.
func Build(opts Options) *Profile {
	p := &Profile{
		Incognito:     opts.Incognito,
		Flags:         append([]string(nil), baseFlags...),
		ProxyServer:   opts.ProxyServer,
		DisableImages: opts.DisableImages,
		Headless:      opts.Headless,
	}

	if !opts.Incognito {
		p.UserDataDir = userDataDir(opts.SessionID)
	} else {
		p.Flags = append(p.Flags, "--incognito")
	}

	if opts.DisableImages {
		p.Flags = append(p.Flags, "--blink-settings=imagesEnabled=false")
	}

	if opts.UserAgent != "" {
		p.UserAgent = opts.UserAgent
	} else {
		p.UserAgent = userAgentPool[rand.Intn(len(userAgentPool))]
	}

	if opts.AdvancedStealth {
		p.InitScript = initScript
		res := commonResolutions[rand.Intn(len(commonResolutions))]
		p.Window = &res
	}

	return p
}

// UserAgentPool returns a copy of the current user agent pool.
func UserAgentPool() []string {
	return append([]string(nil), userAgentPool...)
}

// CommonResolutions returns a copy of the window-size set used under
// advanced stealth.
func CommonResolutions() []Resolution {
	return append([]Resolution(nil), commonResolutions...)
}

// userDataDir derives the per-session persistent profile directory. The
// path is opaque to every other component; only the browser parses it.
func userDataDir(sessionID string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fall back to a relative directory; the browser will create it.
		homeDir = "."
	}
	return filepath.Join(homeDir, ".vigil", "profiles", fmt.Sprintf("session-%s", sessionID))
}
