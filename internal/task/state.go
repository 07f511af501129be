package task

import "context"

// StreamEventKind enumerates the three shapes a proof-checker response
// stream may emit, per spec §4.4.
type StreamEventKind int

const (
	StreamYieldOK StreamEventKind = iota
	StreamYieldError
	StreamStop
)

// StreamEvent is one event delivered to a Connection's registered handler.
type StreamEvent struct {
	Kind     StreamEventKind
	Response Response // set when Kind == StreamYieldOK
	Err      error    // set when Kind == StreamYieldError
}

// Connection is a single active subscription to a proof-checker response
// stream, scoped to the lifetime of one SendRequest. On returns an
// unsubscribe function; the bridge calls it exactly once, when the stream
// emits StreamStop.
type Connection interface {
	On(handler func(StreamEvent)) (unsubscribe func())
}

// State is the embedder-supplied interface the core drives proof-checker
// and view requests through (spec §6). Implementations live outside this
// package — this is the contract, not the transport.
type State interface {
	// SendRequest opens (or reuses) the connection to the proof-checker and
	// issues req. A non-nil error means the connection could not be
	// established at all; the returned Connection streams everything after.
	SendRequest(ctx context.Context, req Request) (Connection, error)
	// SendRequestToView sends req to the view panel and waits for its reply.
	SendRequestToView(ctx context.Context, req ViewRequest) (Response, error)
	// Destroy tears the session down. Called exactly once, by a Terminate task.
	Destroy(ctx context.Context) error
}

// ConnectionError wraps a failure to reach the proof-checker (spec §7).
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return "connection error: " + e.Err.Error() }
func (e *ConnectionError) Unwrap() error { return e.Err }

// ParserError wraps a malformed response frame encountered mid-stream.
type ParserError struct {
	Err error
}

func (e *ParserError) Error() string { return "parser error: " + e.Err.Error() }
func (e *ParserError) Unwrap() error { return e.Err }
