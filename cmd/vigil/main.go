// Package main provides the vigil CLI: it starts a pool of automated
// browser sessions, navigates each to a target URL, and keeps the pages
// alive with randomized human-like activity until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/entrhq/vigil/pkg/browser"
	"github.com/entrhq/vigil/pkg/config"
	"github.com/entrhq/vigil/pkg/session"
)

const (
	version         = "0.1.0"
	shutdownTimeout = 30 * time.Second
)

// urlList accumulates repeated -url flags.
type urlList []string

func (u *urlList) String() string { return strings.Join(*u, ",") }

func (u *urlList) Set(value string) error {
	*u = append(*u, value)
	return nil
}

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	URLs            urlList
	ManifestFile    string
	Interval        time.Duration
	Incognito       bool
	NoImages        bool
	AdvancedStealth bool
	Headless        bool
	ProxyServer     string
	UserAgent       string
	ConfigPath      string
	MaxSessions     int
	ShowVersion     bool

	// set records which flags were given explicitly, so defaults do not
	// override manifest or saved-preference values.
	set map[string]bool
}

func main() {
	// Best effort: a missing .env file is not an error
	_ = godotenv.Load()

	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("vigil v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "vigil: %v\n", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags.
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.Var(&cli.URLs, "url", "Target URL to keep alive (repeatable)")
	flag.StringVar(&cli.ManifestFile, "f", "", "Path to a session manifest file (YAML)")
	flag.DurationVar(&cli.Interval, "interval", session.DefaultKeepAliveInterval, "Delay between keep-alive activity cycles (1m to 1h)")
	flag.BoolVar(&cli.Incognito, "incognito", false, "Run without a persistent browser profile")
	flag.BoolVar(&cli.NoImages, "no-images", false, "Disable image loading to save bandwidth")
	flag.BoolVar(&cli.AdvancedStealth, "stealth", false, "Enable fingerprint masking and randomized window sizing")
	flag.BoolVar(&cli.Headless, "headless", false, "Run browsers without a visible window")
	flag.StringVar(&cli.ProxyServer, "proxy", "", "Proxy server address (host:port)")
	flag.StringVar(&cli.UserAgent, "user-agent", "", "User agent override (default: built-in rotation)")
	flag.StringVar(&cli.ConfigPath, "config", "", "Path to the config file (default: ~/.vigil/config.json)")
	flag.IntVar(&cli.MaxSessions, "max-sessions", session.DefaultMaxSessions, "Maximum concurrent sessions")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Vigil - Browser Keep-Alive Session Pool\n\n")
		fmt.Fprintf(os.Stderr, "Usage: vigil [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Keep one page alive, checking every 5 minutes\n")
		fmt.Fprintf(os.Stderr, "  vigil -url example.com -interval 5m\n\n")
		fmt.Fprintf(os.Stderr, "  # Several pages with stealth hardening\n")
		fmt.Fprintf(os.Stderr, "  vigil -url a.example.com -url b.example.com -stealth -headless\n\n")
		fmt.Fprintf(os.Stderr, "  # Batch of sessions from a manifest\n")
		fmt.Fprintf(os.Stderr, "  vigil -f sessions.yaml\n\n")
	}

	flag.Parse()

	cli.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { cli.set[f.Name] = true })

	return cli
}

// run starts the session pool and blocks until interrupted or every
// session has terminated.
func run(ctx context.Context, cli *CLIConfig) error {
	if len(cli.URLs) == 0 && cli.ManifestFile == "" {
		return fmt.Errorf("no sessions given: use -url or -f (see -help)")
	}

	store, err := config.NewFileStore(cli.ConfigPath)
	if err != nil {
		return err
	}
	prefs, err := config.LoadPreferences(store)
	if err != nil {
		return err
	}

	var m *manifest
	if cli.ManifestFile != "" {
		if m, err = loadManifest(cli.ManifestFile); err != nil {
			return err
		}
	}

	base := baseConfig(cli, prefs, m)
	configs, err := sessionConfigs(cli, base, m)
	if err != nil {
		return err
	}

	// Remember the effective settings for the next invocation
	if err := config.SavePreferences(store, preferencesFrom(base)); err != nil {
		fmt.Fprintf(os.Stderr, "vigil: could not save preferences: %v\n", err)
	}

	launcher := browser.NewLauncher()
	if err := launcher.Start(); err != nil {
		return fmt.Errorf("failed to start browser driver: %w", err)
	}
	defer launcher.Stop()

	coordinator := session.NewCoordinator(launcher,
		session.WithListener(printEvent),
		session.WithMaxSessions(cli.MaxSessions),
	)

	started := 0
	for _, cfg := range configs {
		if _, err := coordinator.Start(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "vigil: %s: %v\n", cfg.TargetURL, err)
			continue
		}
		started++
	}
	if started == 0 {
		return fmt.Errorf("no sessions could be started")
	}

	waitForExit(ctx, coordinator)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := coordinator.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// waitForExit blocks until the context is canceled or every session has
// terminated on its own.
func waitForExit(ctx context.Context, coordinator *session.Coordinator) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if coordinator.SessionCount() == 0 {
				return
			}
		}
	}
}

// baseConfig resolves shared session settings. Later layers win: built-in
// defaults, then saved preferences, then environment, then manifest
// defaults, then explicit flags.
func baseConfig(cli *CLIConfig, prefs config.Preferences, m *manifest) session.Config {
	cfg := session.Config{KeepAliveInterval: session.DefaultKeepAliveInterval}

	if prefs.KeepAliveInterval > 0 {
		cfg.KeepAliveInterval = prefs.KeepAliveInterval
	}
	cfg.Incognito = prefs.Incognito
	cfg.DisableImages = prefs.DisableImages
	cfg.AdvancedStealth = prefs.AdvancedStealth
	cfg.Headless = prefs.Headless
	cfg.ProxyServer = prefs.ProxyServer
	cfg.UserAgent = prefs.UserAgent

	applyEnv(&cfg)

	if m != nil {
		m.Defaults.apply(&cfg)
	}

	if cli.set["interval"] {
		cfg.KeepAliveInterval = cli.Interval
	}
	if cli.set["incognito"] {
		cfg.Incognito = cli.Incognito
	}
	if cli.set["no-images"] {
		cfg.DisableImages = cli.NoImages
	}
	if cli.set["stealth"] {
		cfg.AdvancedStealth = cli.AdvancedStealth
	}
	if cli.set["headless"] {
		cfg.Headless = cli.Headless
	}
	if cli.set["proxy"] {
		cfg.ProxyServer = cli.ProxyServer
	}
	if cli.set["user-agent"] {
		cfg.UserAgent = cli.UserAgent
	}

	return cfg
}

// applyEnv overlays VIGIL_* environment variables onto a config.
func applyEnv(cfg *session.Config) {
	if raw := os.Getenv("VIGIL_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.KeepAliveInterval = d
		}
	}
	if v := os.Getenv("VIGIL_PROXY"); v != "" {
		cfg.ProxyServer = v
	}
	if v := os.Getenv("VIGIL_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
}

// sessionConfigs builds one session config per -url flag and per manifest
// entry. Manifest entries may override the shared settings, but explicit
// flags win even over those.
func sessionConfigs(cli *CLIConfig, base session.Config, m *manifest) ([]session.Config, error) {
	var configs []session.Config

	for _, url := range cli.URLs {
		cfg := base
		cfg.TargetURL = url
		configs = append(configs, cfg)
	}

	if m != nil {
		for _, s := range m.Sessions {
			cfg := base
			s.manifestSettings.apply(&cfg)
			reapplyFlags(cli, &cfg)
			cfg.TargetURL = s.URL
			configs = append(configs, cfg)
		}
	}

	return configs, nil
}

// reapplyFlags restores explicitly-set flag values over per-session
// manifest overrides.
func reapplyFlags(cli *CLIConfig, cfg *session.Config) {
	if cli.set["interval"] {
		cfg.KeepAliveInterval = cli.Interval
	}
	if cli.set["incognito"] {
		cfg.Incognito = cli.Incognito
	}
	if cli.set["no-images"] {
		cfg.DisableImages = cli.NoImages
	}
	if cli.set["stealth"] {
		cfg.AdvancedStealth = cli.AdvancedStealth
	}
	if cli.set["headless"] {
		cfg.Headless = cli.Headless
	}
	if cli.set["proxy"] {
		cfg.ProxyServer = cli.ProxyServer
	}
	if cli.set["user-agent"] {
		cfg.UserAgent = cli.UserAgent
	}
}

// preferencesFrom extracts the savable settings from a resolved config.
func preferencesFrom(cfg session.Config) config.Preferences {
	return config.Preferences{
		KeepAliveInterval: cfg.KeepAliveInterval,
		Incognito:         cfg.Incognito,
		DisableImages:     cfg.DisableImages,
		AdvancedStealth:   cfg.AdvancedStealth,
		Headless:          cfg.Headless,
		ProxyServer:       cfg.ProxyServer,
		UserAgent:         cfg.UserAgent,
	}
}

// printEvent renders a session status event on the console.
func printEvent(ev session.StatusEvent) {
	id := ev.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	if ev.IsError {
		fmt.Fprintf(os.Stderr, "[%s] [%s] error: %s\n",
			ev.Timestamp.Format("15:04:05"), id, ev.Message)
		return
	}
	fmt.Printf("[%s] [%s] %s\n", ev.Timestamp.Format("15:04:05"), id, ev.Message)
}
