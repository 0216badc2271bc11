package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/vigil/pkg/activity"
	"github.com/entrhq/vigil/pkg/browser"
	"github.com/entrhq/vigil/pkg/logging"
	"github.com/entrhq/vigil/pkg/stealth"
)

// Launcher creates browser handles from stealth profiles. Satisfied by
// *browser.Launcher.
type Launcher interface {
	Launch(profile *stealth.Profile) (browser.Handle, error)
}

// blankPage is the placeholder address the keep-alive loop idles on
// without generating activity.
const blankPage = "about:blank"

// Worker drives one session end-to-end on its own goroutine: launch,
// navigate, keep-alive loop, teardown. It exclusively owns its browser
// handle; nothing else ever touches it.
type Worker struct {
	id       string
	config   Config
	launcher Launcher
	log      *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	selector *activity.Selector
	executor *activity.Executor

	onStatus func(StatusEvent)
	onClosed func(sessionID string)

	mu         sync.Mutex
	state      State
	handle     browser.Handle
	activities int

	cleanupOnce sync.Once
	done        chan struct{}
}

func newWorker(id string, config Config, launcher Launcher, onStatus func(StatusEvent), onClosed func(string)) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	log, _ := logging.NewLogger("worker")

	return &Worker{
		id:       id,
		config:   config,
		launcher: launcher,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		selector: activity.NewSelector(),
		executor: activity.NewExecutor(),
		onStatus: onStatus,
		onClosed: onClosed,
		state:    StateInitializing,
		done:     make(chan struct{}),
	}
}

// ID returns the session identifier, stable for the worker's lifetime.
func (w *Worker) ID() string {
	return w.id
}

// TargetURL returns the normalized address this session keeps alive.
func (w *Worker) TargetURL() string {
	return w.config.TargetURL
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Activities returns how many activity cycles have executed.
func (w *Worker) Activities() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activities
}

// Stop requests a cooperative shutdown. Idempotent; the request is
// observed at the next loop check or interruptible wait, never
// mid-interaction.
func (w *Worker) Stop() {
	w.cancel()
}

// Done is closed once the worker has terminated and released its browser.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// run is the worker goroutine body. Cleanup is deferred so the browser
// teardown is attempted exactly once on every exit path, normal or not.
func (w *Worker) run() {
	defer close(w.done)
	defer w.cleanup()

	w.emit("launching browser", false)
	w.log.Infof("session %s: launching browser for %s", w.id, w.config.TargetURL)

	profile := stealth.Build(stealth.Options{
		SessionID:       w.id,
		Incognito:       w.config.Incognito,
		DisableImages:   w.config.DisableImages,
		ProxyServer:     w.config.ProxyServer,
		UserAgent:       w.config.UserAgent,
		AdvancedStealth: w.config.AdvancedStealth,
		Headless:        w.config.Headless,
	})

	handle, err := w.launcher.Launch(profile)
	if err != nil {
		w.fail(&LaunchError{Err: err})
		return
	}
	w.mu.Lock()
	w.handle = handle
	w.mu.Unlock()

	if w.stopRequested() {
		w.setState(StateStopping)
		return
	}

	w.setState(StateOpening)
	w.emit(fmt.Sprintf("opening %s", w.config.TargetURL), false)
	if err := handle.Navigate(w.config.TargetURL); err != nil {
		w.fail(&NavigationError{URL: w.config.TargetURL, Err: err})
		return
	}

	w.setState(StateActive)
	w.emit(fmt.Sprintf("page open; keep-alive every %s", w.config.KeepAliveInterval), false)
	w.log.Infof("session %s: active", w.id)

	if err := w.keepAlive(handle); err != nil {
		w.fail(err)
		return
	}

	w.setState(StateStopping)
}

// keepAlive runs activity cycles until a stop request or a fatal browser
// error. A nil return means a clean stop; a non-nil return is fatal.
func (w *Worker) keepAlive(handle browser.Handle) error {
	for {
		if w.stopRequested() {
			return nil
		}

		if err := handle.Health(); err != nil {
			var lost *browser.SessionLostError
			if errors.As(err, &lost) {
				return err
			}
			w.log.Warnf("session %s: health probe failed: %v", w.id, err)
		}

		if handle.URL() != blankPage {
			kind := w.selector.Next()
			result, err := w.executor.Run(w.ctx, handle, kind)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil // stop observed mid-pause
				}
				return err
			}

			w.mu.Lock()
			w.activities++
			count := w.activities
			w.mu.Unlock()

			if result.Ignored != nil {
				w.log.Debugf("session %s: activity %d (%s) ignored error: %v", w.id, count, kind, result.Ignored)
			} else {
				w.log.Debugf("session %s: activity %d (%s)", w.id, count, kind)
			}
			w.emit(fmt.Sprintf("activity %d: %s", count, kind), false)
		}

		if err := w.sleep(w.config.KeepAliveInterval); err != nil {
			return nil // stop observed during the interval
		}
	}
}

// sleep waits for the keep-alive interval, returning early on a stop
// request so stop latency never exceeds one interval.
func (w *Worker) sleep(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
}

func (w *Worker) stopRequested() bool {
	select {
	case <-w.ctx.Done():
		return true
	default:
		return false
	}
}

// fail marks the session Failed and emits the single terminal error
// event for it. The deferred cleanup still runs afterwards.
func (w *Worker) fail(err error) {
	w.setState(StateFailed)
	w.log.Errorf("session %s: %v", w.id, err)
	w.emit(err.Error(), true)
}

// cleanup releases the browser exactly once regardless of which path led
// here. Teardown errors are swallowed: at this point the only goal is
// resource release, not correctness signaling.
func (w *Worker) cleanup() {
	w.cleanupOnce.Do(func() {
		w.mu.Lock()
		handle := w.handle
		w.handle = nil
		w.mu.Unlock()

		if handle != nil {
			if err := handle.Close(); err != nil {
				w.log.Warnf("session %s: browser teardown: %v", w.id, err)
			}
		}

		if w.State() != StateFailed {
			w.setState(StateClosed)
			w.emit("session closed", false)
		}
		w.log.Infof("session %s: terminated (%s)", w.id, w.State())

		if w.onClosed != nil {
			w.onClosed(w.id)
		}
	})
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Worker) emit(message string, isError bool) {
	if w.onStatus == nil {
		return
	}
	w.onStatus(StatusEvent{
		SessionID: w.id,
		Message:   message,
		IsError:   isError,
		Timestamp: time.Now(),
	})
}
