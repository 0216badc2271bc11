package session

// State is the lifecycle phase of a session. Transitions run strictly
// forward: Initializing → Opening → Active → Stopping → Closed, except
// that any state may jump to Failed on an unrecoverable error. No state
// is ever re-entered.
type State int

const (
	// StateInitializing: building the stealth profile and launching the
	// browser.
	StateInitializing State = iota

	// StateOpening: applying stealth extras and navigating to the target.
	StateOpening

	// StateActive: keep-alive loop running.
	StateActive

	// StateStopping: stop observed; loop winding down cooperatively.
	StateStopping

	// StateClosed: terminal, normal exit. Resources released.
	StateClosed

	// StateFailed: terminal, abnormal exit. Resources released.
	StateFailed
)

var stateNames = map[State]string{
	StateInitializing: "initializing",
	StateOpening:      "opening",
	StateActive:       "active",
	StateStopping:     "stopping",
	StateClosed:       "closed",
	StateFailed:       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the session has finished, normally or not.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}
