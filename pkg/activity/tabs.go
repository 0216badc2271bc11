package activity

import (
	"context"
	"time"

	"github.com/entrhq/vigil/pkg/browser"
)

// tabSwitch briefly moves focus to another tab and back. With a single
// tab it opens a blank one, lingers, closes it and refocuses the
// original, mimicking a user glancing at another tab.
func (e *Executor) tabSwitch(ctx context.Context, h browser.Handle) error {
	count := h.PageCount()

	if count > 1 {
		if err := h.FocusPage(e.otherPageIndex(count, h.MainPageIndex())); err != nil {
			return err
		}
		if err := e.pause(ctx, 500*time.Millisecond, time.Second); err != nil {
			return err
		}
		return h.FocusMain()
	}

	index, err := h.OpenBlankPage()
	if err != nil {
		return err
	}
	if err := e.pause(ctx, 500*time.Millisecond, time.Second); err != nil {
		// Still try to close the extra tab before bailing out.
		_ = h.ClosePage(index)
		_ = h.FocusMain()
		return err
	}
	if err := h.ClosePage(index); err != nil {
		return err
	}
	return h.FocusMain()
}

// otherPageIndex draws a random page index distinct from the currently
// focused main page, so a switch always lands on a different tab.
func (e *Executor) otherPageIndex(count, main int) int {
	idx := e.rng.Intn(count - 1)
	if main >= 0 && idx >= main {
		idx++
	}
	return idx
}
