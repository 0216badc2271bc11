package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/entrhq/vigil/pkg/logging"
)

// DefaultMaxSessions caps concurrently running sessions. Each one is a
// full browser process; the cap keeps a typo in a manifest from forking
// hundreds of them.
const DefaultMaxSessions = 16

// Coordinator holds the registry of running session workers and routes
// start/stop commands. It is the only component shared between callers
// and workers; registration and deregistration are atomic with respect
// to concurrent Start/Stop calls.
type Coordinator struct {
	launcher    Launcher
	listener    Listener
	maxSessions int
	slots       *semaphore.Weighted
	log         *logging.Logger

	mu      sync.Mutex
	workers map[string]*Worker
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithListener sets the status event listener for the control surface.
func WithListener(l Listener) Option {
	return func(c *Coordinator) { c.listener = l }
}

// WithMaxSessions overrides the concurrent session cap.
func WithMaxSessions(n int) Option {
	return func(c *Coordinator) { c.maxSessions = n }
}

// NewCoordinator creates a coordinator that launches browsers through the
// given launcher.
func NewCoordinator(launcher Launcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		launcher:    launcher,
		maxSessions: DefaultMaxSessions,
		workers:     make(map[string]*Worker),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.slots = semaphore.NewWeighted(int64(c.maxSessions))
	c.log, _ = logging.NewLogger("coordinator")
	return c
}

// Start validates the config, registers a new session worker and spawns
// it. It returns the session id immediately; progress is reported through
// status events.
func (c *Coordinator) Start(config Config) (string, error) {
	config, err := config.Validate()
	if err != nil {
		return "", fmt.Errorf("invalid session config: %w", err)
	}

	if !c.slots.TryAcquire(1) {
		return "", fmt.Errorf("maximum number of sessions (%d) reached", c.maxSessions)
	}

	id := uuid.New().String()
	worker := newWorker(id, config, c.launcher, c.forward, c.deregister)

	c.mu.Lock()
	c.workers[id] = worker
	c.mu.Unlock()

	c.log.Infof("session %s: accepted for %s", id, config.TargetURL)
	c.forward(StatusEvent{
		SessionID: id,
		Message:   fmt.Sprintf("session accepted: %s", config.TargetURL),
		Timestamp: time.Now(),
	})

	go worker.run()
	return id, nil
}

// Stop signals the named session to shut down. Stopping an unknown or
// already-terminal session is a safe no-op.
func (c *Coordinator) Stop(id string) {
	c.mu.Lock()
	worker, ok := c.workers[id]
	c.mu.Unlock()

	if !ok {
		c.log.Warnf("stop requested for unknown session %s", id)
		return
	}
	worker.Stop()
}

// StopAll signals every registered session to shut down.
func (c *Coordinator) StopAll() {
	for _, worker := range c.snapshot() {
		worker.Stop()
	}
}

// Shutdown stops every session and waits for their browsers to be
// released, bounded by the context.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.StopAll()
	for _, worker := range c.snapshot() {
		select {
		case <-worker.Done():
		case <-ctx.Done():
			return fmt.Errorf("shutdown interrupted: %w", ctx.Err())
		}
	}
	return nil
}

// SessionInfo describes one running session for the control surface.
type SessionInfo struct {
	ID         string
	TargetURL  string
	State      State
	Activities int
}

// ListSessions returns a snapshot of all registered sessions.
func (c *Coordinator) ListSessions() []SessionInfo {
	workers := c.snapshot()
	infos := make([]SessionInfo, 0, len(workers))
	for _, w := range workers {
		infos = append(infos, SessionInfo{
			ID:         w.ID(),
			TargetURL:  w.TargetURL(),
			State:      w.State(),
			Activities: w.Activities(),
		})
	}
	return infos
}

// SessionCount returns the number of registered sessions.
func (c *Coordinator) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.workers)
}

// forward relays a worker event to the control surface listener. Workers
// emit synchronously, so per-session ordering is preserved end to end.
func (c *Coordinator) forward(ev StatusEvent) {
	if c.listener != nil {
		c.listener(ev)
	}
}

// deregister removes a terminated session and frees its pool slot. Called
// by the worker after its terminal event, so no new lookups can reach a
// dead worker.
func (c *Coordinator) deregister(id string) {
	c.mu.Lock()
	_, ok := c.workers[id]
	if ok {
		delete(c.workers, id)
	}
	c.mu.Unlock()

	if ok {
		c.slots.Release(1)
		c.log.Infof("session %s: deregistered", id)
	}
}

func (c *Coordinator) snapshot() []*Worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	workers := make([]*Worker, 0, len(c.workers))
	for _, w := range c.workers {
		workers = append(workers, w)
	}
	return workers
}
