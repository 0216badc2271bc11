package activity

import (
	"context"
	"time"

	"github.com/entrhq/vigil/pkg/browser"
)

// contentSelector matches the content-bearing elements a reader's pointer
// naturally drifts over.
const contentSelector = "p, h1, h2, h3, h4, h5, img, div[class], span[class]"

// safeClickSelector matches elements that are safe to click: text and
// container elements that are not interactive controls, so a click can
// never navigate away or submit a form. The exclusion set is a heuristic
// and may be tightened without changing the primitive's contract.
const safeClickSelector = "p, h1, h2, h3, h4, h5, li, " +
	"div:not(button):not(a):not(input):not(select):not(textarea):not([role='button']):not([onclick])"

// mouseMove hovers the pointer over 1-3 random content elements with
// pauses between them. When the page offers nothing to hover it falls
// back to 2-5 relative pointer offsets from the current position.
func (e *Executor) mouseMove(ctx context.Context, h browser.Handle) error {
	elements, err := h.QueryAll(contentSelector)
	if err != nil {
		if isFatal(err) {
			return err
		}
		elements = nil
	}

	if len(elements) > 0 {
		visits := e.between(1, 3)
		for i := 0; i < visits; i++ {
			element := elements[e.rng.Intn(len(elements))]
			if err := element.Hover(); err != nil {
				if isFatal(err) {
					return err
				}
				// Element may have detached; pick another next round.
			}
			if err := e.pause(ctx, 300*time.Millisecond, time.Second); err != nil {
				return err
			}
		}
		return nil
	}

	moves := e.between(2, 5)
	for i := 0; i < moves; i++ {
		x, y := e.offsetPoint(h)
		if err := h.MouseMove(x, y); err != nil {
			return err
		}
		if err := e.pause(ctx, 100*time.Millisecond, 500*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// safeClick clicks one randomly chosen non-interactive element. When no
// visible candidate exists it clicks a random in-page coordinate instead.
func (e *Executor) safeClick(ctx context.Context, h browser.Handle) error {
	elements, err := h.QueryAll(safeClickSelector)
	if err != nil {
		if isFatal(err) {
			return err
		}
		elements = nil
	}

	if len(elements) > 0 {
		element := elements[e.rng.Intn(len(elements))]
		visible, err := element.Visible()
		if err != nil {
			if isFatal(err) {
				return err
			}
			visible = false
		}
		if visible {
			if err := element.Hover(); err != nil && isFatal(err) {
				return err
			}
			if err := e.pause(ctx, 200*time.Millisecond, 500*time.Millisecond); err != nil {
				return err
			}
			return element.Click()
		}
	}

	x, y := e.randomPoint(h)
	if err := e.pause(ctx, 200*time.Millisecond, 500*time.Millisecond); err != nil {
		return err
	}
	return h.MouseClick(x, y)
}

// mouseEvent performs either a hover via a relative pointer offset or a
// double-click on the page body, chosen at random.
func (e *Executor) mouseEvent(ctx context.Context, h browser.Handle) error {
	if err := e.pause(ctx, 100*time.Millisecond, 300*time.Millisecond); err != nil {
		return err
	}

	if e.rng.Intn(2) == 0 {
		x, y := e.offsetPoint(h)
		return h.MouseMove(x, y)
	}
	x, y := e.randomPoint(h)
	return h.MouseDblclick(x, y)
}
