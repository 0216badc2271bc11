package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/vigil/pkg/browser"
)

// scroll performs 3-8 incremental vertical scroll steps summing to
// 100-300 pixels in a random direction, with short pauses so the motion
// reads as a person skimming. 30% of the time it scrolls back a little
// afterwards, like someone hunting for a passage they just passed.
func (e *Executor) scroll(ctx context.Context, h browser.Handle) error {
	total := e.between(100, 300)
	direction := 1
	if e.rng.Intn(2) == 0 {
		direction = -1
	}
	steps := e.between(3, 8)
	stepAmount := total / steps * direction

	for i := 0; i < steps; i++ {
		if err := h.Eval(fmt.Sprintf("window.scrollBy(0, %d);", stepAmount)); err != nil {
			return err
		}
		if err := e.pause(ctx, 100*time.Millisecond, 300*time.Millisecond); err != nil {
			return err
		}
	}

	if e.rng.Float64() < 0.3 {
		if err := e.pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
			return err
		}
		corrective := -direction * e.between(50, 150)
		if err := h.Eval(fmt.Sprintf("window.scrollBy(0, %d);", corrective)); err != nil {
			return err
		}
	}

	return nil
}
