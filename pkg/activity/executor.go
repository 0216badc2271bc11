package activity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/entrhq/vigil/pkg/browser"
)

// Result reports the outcome of one activity cycle. A primitive that hit
// a recoverable failure records it in Ignored instead of aborting; the
// keep-alive loop keeps running either way.
type Result struct {
	Kind    Kind
	Ignored error
}

// maxPointerOffset bounds a single relative pointer jump in pixels.
const maxPointerOffset = 120

// Executor runs activity primitives against a browser handle. Not safe
// for concurrent use; each worker owns one executor. It tracks the last
// pointer position so successive moves are relative offsets rather than
// teleports across the page.
type Executor struct {
	rng  *rand.Rand
	ptrX float64
	ptrY float64
}

// NewExecutor creates an executor seeded from the current time.
func NewExecutor() *Executor {
	return NewExecutorWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewExecutorWithRand creates an executor using the given random source.
func NewExecutorWithRand(rng *rand.Rand) *Executor {
	return &Executor{rng: rng}
}

// Run executes one primitive. The returned error is non-nil only when the
// browser session itself is lost or the context was canceled; every other
// failure is swallowed into Result.Ignored per the keep-alive contract.
func (e *Executor) Run(ctx context.Context, h browser.Handle, kind Kind) (Result, error) {
	var err error
	switch kind {
	case Scroll:
		err = e.scroll(ctx, h)
	case MouseMove:
		err = e.mouseMove(ctx, h)
	case SafeClick:
		err = e.safeClick(ctx, h)
	case KeyPress:
		err = e.keyPress(h)
	case MouseEvent:
		err = e.mouseEvent(ctx, h)
	case TouchSimulation:
		err = e.touchSimulation(h)
	case TabSwitch:
		err = e.tabSwitch(ctx, h)
	case TextSelection:
		err = e.textSelection(ctx, h)
	default:
		return Result{Kind: kind}, fmt.Errorf("unknown activity kind %q", kind)
	}

	if err != nil {
		if isFatal(err) || isCanceled(err) {
			return Result{Kind: kind}, err
		}
		return Result{Kind: kind, Ignored: err}, nil
	}
	return Result{Kind: kind}, nil
}

// isFatal reports whether the error means the browser session is gone.
func isFatal(err error) bool {
	var lost *browser.SessionLostError
	return errors.As(err, &lost)
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// pause sleeps a random duration in [min, max), returning early if the
// context is canceled. These short pauses model human reaction time
// between sub-steps of a primitive.
func (e *Executor) pause(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(e.rng.Int63n(int64(max - min)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// between returns a random int in [min, max].
func (e *Executor) between(min, max int) int {
	return min + e.rng.Intn(max-min+1)
}

// randomPoint picks page coordinates away from the window edges, where
// browser chrome and scrollbars live.
func (e *Executor) randomPoint(h browser.Handle) (float64, float64) {
	width, height := h.WindowSize()
	if width <= 40 || height <= 40 {
		return 10, 10
	}
	x := float64(e.between(20, width-20))
	y := float64(e.between(20, height-20))
	return x, y
}

// offsetPoint advances the tracked pointer position by a random relative
// offset, clamped to stay inside the window margins. The first call seeds
// the position with a random point.
func (e *Executor) offsetPoint(h browser.Handle) (float64, float64) {
	if e.ptrX == 0 && e.ptrY == 0 {
		e.ptrX, e.ptrY = e.randomPoint(h)
		return e.ptrX, e.ptrY
	}

	width, height := h.WindowSize()
	e.ptrX = clamp(e.ptrX+float64(e.between(-maxPointerOffset, maxPointerOffset)), 20, float64(width-20))
	e.ptrY = clamp(e.ptrY+float64(e.between(-maxPointerOffset, maxPointerOffset)), 20, float64(height-20))
	return e.ptrX, e.ptrY
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
