package session

import "time"

// StatusEvent is one entry in a session's append-only status stream.
// Events for a given session are delivered in emission order; no ordering
// is guaranteed across sessions.
type StatusEvent struct {
	SessionID string
	Message   string
	IsError   bool
	Timestamp time.Time
}

// Listener receives status events from the coordinator. It is called
// synchronously on the emitting worker's goroutine and must not block.
type Listener func(StatusEvent)
