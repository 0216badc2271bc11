package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/vigil/pkg/browser"
	"github.com/entrhq/vigil/pkg/stealth"
)

// stubHandle implements browser.Handle with per-operation failure
// injection and teardown accounting.
type stubHandle struct {
	mu        sync.Mutex
	url       string
	navErr    error
	healthErr error
	opErr     error
	closeErr  error
	closes    int
}

func newStubHandle() *stubHandle {
	return &stubHandle{url: "about:blank"}
}

func (s *stubHandle) Navigate(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.navErr != nil {
		return s.navErr
	}
	s.url = url
	return nil
}

func (s *stubHandle) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *stubHandle) Eval(js string) error { return s.op() }

func (s *stubHandle) QueryAll(selector string) ([]browser.Element, error) {
	return nil, s.op()
}

func (s *stubHandle) MouseMove(x, y float64) error          { return s.op() }
func (s *stubHandle) MouseClick(x, y float64) error         { return s.op() }
func (s *stubHandle) MouseDblclick(x, y float64) error      { return s.op() }
func (s *stubHandle) PressKey(key string) error             { return s.op() }
func (s *stubHandle) SetWindowSize(width, height int) error { return s.op() }
func (s *stubHandle) WindowSize() (int, int)                { return 1280, 720 }
func (s *stubHandle) PageCount() int                        { return 1 }
func (s *stubHandle) MainPageIndex() int                    { return 0 }
func (s *stubHandle) FocusPage(index int) error             { return s.op() }
func (s *stubHandle) FocusMain() error                      { return s.op() }

func (s *stubHandle) OpenBlankPage() (int, error) { return 1, s.op() }
func (s *stubHandle) ClosePage(index int) error   { return s.op() }

func (s *stubHandle) Health() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthErr
}

func (s *stubHandle) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.closeErr
}

func (s *stubHandle) op() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opErr
}

func (s *stubHandle) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *stubHandle) setHealthErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthErr = err
}

// stubLauncher hands out a prepared handle, or fails.
type stubLauncher struct {
	mu       sync.Mutex
	handle   *stubHandle
	err      error
	launches int
	profile  *stealth.Profile
}

func (l *stubLauncher) Launch(profile *stealth.Profile) (browser.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	l.profile = profile
	if l.err != nil {
		return nil, l.err
	}
	return l.handle, nil
}

// eventRecorder collects status events thread-safely.
type eventRecorder struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (r *eventRecorder) record(ev StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) all() []StatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StatusEvent(nil), r.events...)
}

func (r *eventRecorder) errorEvents() []StatusEvent {
	var out []StatusEvent
	for _, ev := range r.all() {
		if ev.IsError {
			out = append(out, ev)
		}
	}
	return out
}

func testConfig() Config {
	return Config{
		TargetURL:         "https://example.com",
		KeepAliveInterval: 30 * time.Millisecond,
		Incognito:         true,
	}
}

func startTestWorker(t *testing.T, launcher *stubLauncher, config Config) (*Worker, *eventRecorder, chan string) {
	t.Helper()
	recorder := &eventRecorder{}
	closed := make(chan string, 1)
	w := newWorker("test-session", config, launcher, recorder.record, func(id string) {
		closed <- id
	})
	go w.run()
	return w, recorder, closed
}

func waitDone(t *testing.T, w *Worker) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not terminate")
	}
}

func TestWorker_StartThenStopReachesClosed(t *testing.T) {
	handle := newStubHandle()
	launcher := &stubLauncher{handle: handle}
	w, _, closed := startTestWorker(t, launcher, testConfig())

	require.Eventually(t, func() bool { return w.State() == StateActive },
		2*time.Second, 5*time.Millisecond)

	w.Stop()
	waitDone(t, w)

	assert.Equal(t, StateClosed, w.State())
	assert.Equal(t, 1, handle.closeCount(), "browser must be released exactly once")

	select {
	case id := <-closed:
		assert.Equal(t, "test-session", id)
	default:
		t.Fatal("closed callback not invoked")
	}
}

func TestWorker_RunsActivityCyclesWhileActive(t *testing.T) {
	handle := newStubHandle()
	launcher := &stubLauncher{handle: handle}
	w, recorder, _ := startTestWorker(t, launcher, testConfig())

	// Activity cycles keep coming while the session stays active. The
	// ceiling is generous: primitives pause between sub-steps.
	require.Eventually(t, func() bool { return w.Activities() >= 2 },
		10*time.Second, 5*time.Millisecond)

	w.Stop()
	waitDone(t, w)

	assert.Equal(t, StateClosed, w.State())
	assert.Empty(t, recorder.errorEvents())
}

func TestWorker_LaunchFailure(t *testing.T) {
	launcher := &stubLauncher{err: errors.New("no chromium found")}
	w, recorder, closed := startTestWorker(t, launcher, testConfig())

	waitDone(t, w)

	assert.Equal(t, StateFailed, w.State())
	errs := recorder.errorEvents()
	require.Len(t, errs, 1, "exactly one terminal error event")
	assert.Contains(t, errs[0].Message, "failed to launch browser")

	select {
	case <-closed:
	default:
		t.Fatal("closed callback not invoked after launch failure")
	}
}

func TestWorker_NavigationFailure(t *testing.T) {
	handle := newStubHandle()
	handle.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	launcher := &stubLauncher{handle: handle}
	w, recorder, _ := startTestWorker(t, launcher, testConfig())

	waitDone(t, w)

	assert.Equal(t, StateFailed, w.State())
	errs := recorder.errorEvents()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "failed to open")
	assert.Equal(t, 1, handle.closeCount(), "browser released even after navigation failure")
}

func TestWorker_ReleaseAttemptedEvenWhenReleaseErrors(t *testing.T) {
	handle := newStubHandle()
	handle.navErr = errors.New("navigation timeout")
	handle.closeErr = errors.New("close failed too")
	launcher := &stubLauncher{handle: handle}
	w, recorder, _ := startTestWorker(t, launcher, testConfig())

	waitDone(t, w)

	assert.Equal(t, StateFailed, w.State())
	assert.Equal(t, 1, handle.closeCount())
	// Teardown errors are swallowed, not reported as extra error events.
	require.Len(t, recorder.errorEvents(), 1)
}

func TestWorker_InteractionErrorsDoNotStopLoop(t *testing.T) {
	handle := newStubHandle()
	handle.opErr = errors.New("element not interactable")
	launcher := &stubLauncher{handle: handle}
	w, _, _ := startTestWorker(t, launcher, testConfig())

	require.Eventually(t, func() bool { return w.Activities() >= 3 },
		3*time.Second, 5*time.Millisecond)
	assert.Equal(t, StateActive, w.State(), "interaction failures must not change state")

	w.Stop()
	waitDone(t, w)
	assert.Equal(t, StateClosed, w.State())
}

func TestWorker_SessionLostIsFatal(t *testing.T) {
	handle := newStubHandle()
	launcher := &stubLauncher{handle: handle}
	w, recorder, _ := startTestWorker(t, launcher, testConfig())

	require.Eventually(t, func() bool { return w.State() == StateActive },
		2*time.Second, 5*time.Millisecond)

	handle.setHealthErr(&browser.SessionLostError{Err: errors.New("target closed")})
	waitDone(t, w)

	assert.Equal(t, StateFailed, w.State())
	require.NotEmpty(t, recorder.errorEvents())
	assert.Equal(t, 1, handle.closeCount())
}

func TestWorker_BlankPageSkipsActivity(t *testing.T) {
	handle := newStubHandle()
	launcher := &stubLauncher{handle: handle}

	config := testConfig()
	config.TargetURL = "about:blank" // bypasses Validate on purpose
	w, _, _ := startTestWorker(t, launcher, config)

	require.Eventually(t, func() bool { return w.State() == StateActive },
		2*time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, w.Activities())

	w.Stop()
	waitDone(t, w)
}

func TestWorker_StopIsIdempotent(t *testing.T) {
	handle := newStubHandle()
	launcher := &stubLauncher{handle: handle}
	w, _, _ := startTestWorker(t, launcher, testConfig())

	w.Stop()
	w.Stop()
	w.Stop()
	waitDone(t, w)

	assert.Equal(t, StateClosed, w.State())
	assert.Equal(t, 1, handle.closeCount())
}

func TestWorker_EventOrdering(t *testing.T) {
	handle := newStubHandle()
	launcher := &stubLauncher{handle: handle}
	w, recorder, _ := startTestWorker(t, launcher, testConfig())

	require.Eventually(t, func() bool { return w.State() == StateActive },
		2*time.Second, 5*time.Millisecond)
	w.Stop()
	waitDone(t, w)

	events := recorder.all()
	require.GreaterOrEqual(t, len(events), 4)
	assert.Contains(t, events[0].Message, "launching browser")
	assert.Contains(t, events[1].Message, "opening")
	assert.Contains(t, events[2].Message, "page open")
	assert.Contains(t, events[len(events)-1].Message, "session closed")
}

func TestWorker_StealthProfileFromConfig(t *testing.T) {
	handle := newStubHandle()
	launcher := &stubLauncher{handle: handle}

	config := testConfig()
	config.AdvancedStealth = true
	config.UserAgent = "Mozilla/5.0 (test)"
	config.ProxyServer = "10.0.0.1:3128"
	w, _, _ := startTestWorker(t, launcher, config)

	require.Eventually(t, func() bool { return w.State() == StateActive },
		2*time.Second, 5*time.Millisecond)
	w.Stop()
	waitDone(t, w)

	launcher.mu.Lock()
	profile := launcher.profile
	launcher.mu.Unlock()

	require.NotNil(t, profile)
	assert.Equal(t, "Mozilla/5.0 (test)", profile.UserAgent)
	assert.Equal(t, "10.0.0.1:3128", profile.ProxyServer)
	assert.NotEmpty(t, profile.InitScript)
	assert.NotNil(t, profile.Window)
}
