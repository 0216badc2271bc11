package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/vigil/pkg/stealth"
)

// Default values for launched browsers.
const (
	DefaultNavigationTimeout = 45000.0 // milliseconds
	DefaultViewportWidth     = 1280
	DefaultViewportHeight    = 720
)

// Launcher creates browser handles from stealth profiles using a shared
// Playwright driver instance. Start must be called before Launch.
type Launcher struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	started bool
}

// NewLauncher creates an unstarted launcher.
func NewLauncher() *Launcher {
	return &Launcher{}
}

// Start installs (if needed) and runs the Playwright driver. Idempotent.
func (l *Launcher) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return nil
	}

	// Discard driver output so it does not interleave with CLI output.
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.pw = pw
	l.started = true
	return nil
}

// Stop shuts the Playwright driver down. Handles launched from this
// launcher become unusable.
func (l *Launcher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return nil
	}
	l.started = false
	if err := l.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// Launch starts a Chromium instance configured by the profile and returns
// the handle owning it. Incognito profiles get an ephemeral context; other
// profiles reuse the per-session persistent directory.
func (l *Launcher) Launch(profile *stealth.Profile) (Handle, error) {
	l.mu.Lock()
	pw, started := l.pw, l.started
	l.mu.Unlock()

	if !started {
		return nil, fmt.Errorf("launcher not started")
	}

	width, height := DefaultViewportWidth, DefaultViewportHeight
	if profile.Window != nil {
		width, height = profile.Window.Width, profile.Window.Height
	}
	viewport := &playwright.Size{Width: width, Height: height}

	var proxy *playwright.Proxy
	if profile.ProxyServer != "" {
		proxy = &playwright.Proxy{Server: profile.ProxyServer}
	}

	var (
		browser playwright.Browser
		context playwright.BrowserContext
	)

	if profile.Incognito {
		var err error
		browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(profile.Headless),
			Args:     profile.Flags,
			Proxy:    proxy,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}

		context, err = browser.NewContext(playwright.BrowserNewContextOptions{
			UserAgent: playwright.String(profile.UserAgent),
			Viewport:  viewport,
		})
		if err != nil {
			_ = browser.Close()
			return nil, fmt.Errorf("failed to create context: %w", err)
		}
	} else {
		var err error
		context, err = pw.Chromium.LaunchPersistentContext(profile.UserDataDir,
			playwright.BrowserTypeLaunchPersistentContextOptions{
				Headless:  playwright.Bool(profile.Headless),
				Args:      profile.Flags,
				Proxy:     proxy,
				UserAgent: playwright.String(profile.UserAgent),
				Viewport:  viewport,
			})
		if err != nil {
			return nil, fmt.Errorf("failed to launch persistent context: %w", err)
		}
		browser = context.Browser()
	}

	if profile.InitScript != "" {
		if err := context.AddInitScript(playwright.Script{
			Content: playwright.String(profile.InitScript),
		}); err != nil {
			_ = context.Close()
			if browser != nil {
				_ = browser.Close()
			}
			return nil, fmt.Errorf("failed to inject stealth script: %w", err)
		}
	}

	// Persistent contexts open with an initial page; reuse it.
	var page playwright.Page
	if pages := context.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		var err error
		page, err = context.NewPage()
		if err != nil {
			_ = context.Close()
			if browser != nil {
				_ = browser.Close()
			}
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	return &playwrightHandle{
		browser: browser,
		context: context,
		page:    page,
		width:   width,
		height:  height,
	}, nil
}

// playwrightHandle implements Handle on top of a Playwright page.
type playwrightHandle struct {
	browser playwright.Browser // may be nil for persistent contexts
	context playwright.BrowserContext
	page    playwright.Page

	width  int
	height int

	closeOnce sync.Once
	closeErr  error
}

func (h *playwrightHandle) Navigate(url string) error {
	_, err := h.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(DefaultNavigationTimeout),
	})
	return classify(err)
}

func (h *playwrightHandle) URL() string {
	return h.page.URL()
}

func (h *playwrightHandle) Eval(js string) error {
	_, err := h.page.Evaluate(js)
	return classify(err)
}

func (h *playwrightHandle) QueryAll(selector string) ([]Element, error) {
	handles, err := h.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, classify(err)
	}
	elements := make([]Element, 0, len(handles))
	for _, eh := range handles {
		elements = append(elements, &playwrightElement{handle: eh})
	}
	return elements, nil
}

func (h *playwrightHandle) MouseMove(x, y float64) error {
	return classify(h.page.Mouse().Move(x, y))
}

func (h *playwrightHandle) MouseClick(x, y float64) error {
	return classify(h.page.Mouse().Click(x, y))
}

func (h *playwrightHandle) MouseDblclick(x, y float64) error {
	return classify(h.page.Mouse().Dblclick(x, y))
}

func (h *playwrightHandle) PressKey(key string) error {
	return classify(h.page.Keyboard().Press(key))
}

func (h *playwrightHandle) SetWindowSize(width, height int) error {
	if err := h.page.SetViewportSize(width, height); err != nil {
		return classify(err)
	}
	h.width, h.height = width, height
	return nil
}

func (h *playwrightHandle) WindowSize() (int, int) {
	return h.width, h.height
}

func (h *playwrightHandle) PageCount() int {
	return len(h.context.Pages())
}

func (h *playwrightHandle) MainPageIndex() int {
	for i, page := range h.context.Pages() {
		if page == h.page {
			return i
		}
	}
	return -1
}

func (h *playwrightHandle) FocusPage(index int) error {
	pages := h.context.Pages()
	if index < 0 || index >= len(pages) {
		return fmt.Errorf("page index %d out of range (%d pages)", index, len(pages))
	}
	return classify(pages[index].BringToFront())
}

func (h *playwrightHandle) FocusMain() error {
	return classify(h.page.BringToFront())
}

func (h *playwrightHandle) OpenBlankPage() (int, error) {
	page, err := h.context.NewPage()
	if err != nil {
		return 0, classify(err)
	}
	if err := page.BringToFront(); err != nil {
		return 0, classify(err)
	}
	return len(h.context.Pages()) - 1, nil
}

func (h *playwrightHandle) ClosePage(index int) error {
	pages := h.context.Pages()
	if index < 0 || index >= len(pages) {
		return fmt.Errorf("page index %d out of range (%d pages)", index, len(pages))
	}
	if pages[index] == h.page {
		return fmt.Errorf("refusing to close the primary page")
	}
	return classify(pages[index].Close())
}

// Health runs a trivial script as a liveness probe. It works for both
// ephemeral and persistent contexts, where no Browser object exists.
func (h *playwrightHandle) Health() error {
	if h.browser != nil && !h.browser.IsConnected() {
		return &SessionLostError{Err: fmt.Errorf("browser disconnected")}
	}
	_, err := h.page.Evaluate("1")
	return classify(err)
}

// Close tears down the page, context and browser. Errors from individual
// steps are collected but teardown always runs to completion.
func (h *playwrightHandle) Close() error {
	h.closeOnce.Do(func() {
		if err := h.page.Close(); err != nil && h.closeErr == nil {
			h.closeErr = err
		}
		if err := h.context.Close(); err != nil && h.closeErr == nil {
			h.closeErr = err
		}
		if h.browser != nil {
			if err := h.browser.Close(); err != nil && h.closeErr == nil {
				h.closeErr = err
			}
		}
	})
	return h.closeErr
}

// playwrightElement implements Element over an ElementHandle.
type playwrightElement struct {
	handle playwright.ElementHandle
}

func (e *playwrightElement) Visible() (bool, error) {
	visible, err := e.handle.IsVisible()
	return visible, classify(err)
}

func (e *playwrightElement) Text() (string, error) {
	text, err := e.handle.TextContent()
	return text, classify(err)
}

func (e *playwrightElement) Hover() error {
	return classify(e.handle.Hover())
}

func (e *playwrightElement) Click() error {
	return classify(e.handle.Click())
}

func (e *playwrightElement) SelectText() error {
	_, err := e.handle.Evaluate(`el => {
		const range = document.createRange();
		range.selectNodeContents(el);
		const selection = window.getSelection();
		selection.removeAllRanges();
		selection.addRange(range);
	}`)
	return classify(err)
}
