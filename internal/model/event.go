package model

// EventKind names a crawl or audit event surfaced to callers.
type EventKind string

const (
	EventAdd    EventKind = "add"
	EventIgnore EventKind = "ignore"
	EventError  EventKind = "error"
	EventDone   EventKind = "done"
)

// Event is emitted while an audit runs. Code and Message are set for error
// and ignore events, Report only for done.
type Event struct {
	Kind    EventKind      `json:"kind"`
	URL     string         `json:"url,omitempty"`
	Code    int            `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Report  *SummaryReport `json:"-"`
}

// EventHandler receives audit events. Implementations must be safe for
// concurrent use.
type EventHandler func(Event)

// ErrorResponse is the JSON shape returned on failure.
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}
