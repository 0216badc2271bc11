package activity

import (
	"context"
	"strings"
	"time"

	"github.com/entrhq/vigil/pkg/browser"
)

// textSelector matches elements likely to carry selectable text.
const textSelector = "p, span, div, h1, h2, h3, h4, h5, h6"

// textSelection selects the full text of one random visible text-bearing
// element, holds the selection briefly, then clears it. Without a
// suitable element it degrades to a pointer move so the cycle still
// produces observable input.
func (e *Executor) textSelection(ctx context.Context, h browser.Handle) error {
	elements, err := h.QueryAll(textSelector)
	if err != nil {
		if isFatal(err) {
			return err
		}
		elements = nil
	}

	// Random probe order; stop at the first visible element with text.
	for _, i := range e.rng.Perm(len(elements)) {
		element := elements[i]

		visible, err := element.Visible()
		if err != nil {
			if isFatal(err) {
				return err
			}
			continue
		}
		text, err := element.Text()
		if err != nil {
			if isFatal(err) {
				return err
			}
			continue
		}
		if !visible || strings.TrimSpace(text) == "" {
			continue
		}

		if err := element.SelectText(); err != nil {
			return err
		}
		if err := e.pause(ctx, 500*time.Millisecond, time.Second); err != nil {
			return err
		}
		return h.Eval("window.getSelection().removeAllRanges();")
	}

	x, y := e.randomPoint(h)
	return h.MouseMove(x, y)
}
