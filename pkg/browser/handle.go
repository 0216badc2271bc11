// Package browser wraps the Playwright automation layer behind the small
// surface a keep-alive session worker needs: launch from a stealth
// profile, navigate, run scripts, query and poke elements, juggle tabs,
// and tear down. Workers own exactly one Handle each and never share it.
package browser

import (
	"fmt"
	"strings"
)

// Handle is a controllable browser instance owned by a single session
// worker. Implementations are not safe for concurrent use; the owning
// worker is the only caller.
type Handle interface {
	// Navigate loads the given absolute URL in the primary page.
	Navigate(url string) error

	// URL reports the primary page's current address.
	URL() string

	// Eval runs a JavaScript expression in the primary page, discarding
	// its result.
	Eval(js string) error

	// QueryAll returns the elements matching a CSS selector. A selector
	// matching nothing yields an empty slice, not an error.
	QueryAll(selector string) ([]Element, error)

	// MouseMove, MouseClick and MouseDblclick act at page coordinates.
	MouseMove(x, y float64) error
	MouseClick(x, y float64) error
	MouseDblclick(x, y float64) error

	// PressKey sends a single key (Playwright key names) to the page.
	PressKey(key string) error

	// SetWindowSize resizes the viewport; WindowSize reports the current
	// size so callers can pick in-bounds coordinates.
	SetWindowSize(width, height int) error
	WindowSize() (width, height int)

	// Tab management. PageCount includes the primary page. FocusPage
	// brings the index-th page to front; FocusMain returns focus to the
	// primary page. MainPageIndex reports the primary page's current
	// index, or -1 if it is gone. ClosePage refuses to close the primary
	// page.
	PageCount() int
	MainPageIndex() int
	FocusPage(index int) error
	FocusMain() error
	OpenBlankPage() (index int, err error)
	ClosePage(index int) error

	// Health probes the underlying browser session and returns a
	// *SessionLostError once it is gone.
	Health() error

	// Close tears the browser down. Safe to call more than once.
	Close() error
}

// Element is one DOM element returned by Handle.QueryAll.
type Element interface {
	Visible() (bool, error)
	Text() (string, error)
	Hover() error
	Click() error

	// SelectText selects the element's full text content, as a user
	// dragging over it would.
	SelectText() error
}

// SessionLostError reports that the underlying browser session became
// invalid (process exited, window closed by the user, connection
// dropped). It is fatal to the owning session.
type SessionLostError struct {
	Err error
}

func (e *SessionLostError) Error() string {
	return fmt.Sprintf("browser session lost: %v", e.Err)
}

func (e *SessionLostError) Unwrap() error {
	return e.Err
}

// sessionLostMarkers are substrings of driver errors that indicate the
// browser itself is gone rather than a single operation failing.
var sessionLostMarkers = []string{
	"target closed",
	"browser has been closed",
	"context or browser has been closed",
	"page has been closed",
	"browser closed",
	"connection closed",
	"websocket: close",
}

// classify wraps driver errors that signal a dead browser session in
// *SessionLostError and passes everything else through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range sessionLostMarkers {
		if strings.Contains(msg, marker) {
			return &SessionLostError{Err: err}
		}
	}
	return err
}
