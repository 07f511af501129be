// Package agda provides an in-memory reference implementation of
// task.State and task.Connection, standing in for a real proof-checker
// process connection. It exists for tests and the demo command — an
// embedder talking to a live Agda process would implement task.State
// against its own transport instead.
package agda

import (
	"context"
	"fmt"
	"sync"

	"github.com/agda-mode/agda-dispatch/internal/task"
)

// Responder computes the response stream for one request. It is called once
// per SendRequest, synchronously, on the caller's goroutine; the returned
// responses are delivered to the Connection's handler in order, followed by
// a single StreamStop.
type Responder func(req task.Request) ([]task.Response, error)

// ViewResponder answers one view request.
type ViewResponder func(req task.ViewRequest) (task.Response, error)

// MemoryState is a minimal, single-process task.State: every SendRequest is
// answered by calling Respond with the request and streaming back whatever
// responses it returns, one per tick, terminated by StreamStop. There is no
// real process, no I/O, and no persistence across Destroy.
type MemoryState struct {
	mu          sync.Mutex
	Respond     Responder
	RespondView ViewResponder
	destroyed   bool
}

// NewMemoryState builds a MemoryState. Either responder may be nil, in which
// case the corresponding call returns a connection/view error.
func NewMemoryState(respond Responder, respondView ViewResponder) *MemoryState {
	return &MemoryState{Respond: respond, RespondView: respondView}
}

func (m *MemoryState) SendRequest(ctx context.Context, req task.Request) (task.Connection, error) {
	m.mu.Lock()
	destroyed := m.destroyed
	m.mu.Unlock()
	if destroyed {
		return nil, fmt.Errorf("agda: session destroyed")
	}
	if m.Respond == nil {
		return nil, fmt.Errorf("agda: no responder configured")
	}
	responses, err := m.Respond(req)
	if err != nil {
		return nil, err
	}
	return &memoryConnection{responses: responses}, nil
}

func (m *MemoryState) SendRequestToView(ctx context.Context, req task.ViewRequest) (task.Response, error) {
	m.mu.Lock()
	destroyed := m.destroyed
	m.mu.Unlock()
	if destroyed {
		return task.Response{}, fmt.Errorf("agda: session destroyed")
	}
	if m.RespondView == nil {
		return task.Response{}, fmt.Errorf("agda: no view responder configured")
	}
	return m.RespondView(req)
}

func (m *MemoryState) Destroy(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = true
	return nil
}

// memoryConnection delivers a fixed, precomputed response slice to whatever
// handler subscribes to it, then a StreamStop, from a goroutine that On
// starts before returning. This is representative of the contract (every SendRequest eventually
// terminates its stream) without modeling real async I/O.
type memoryConnection struct {
	mu        sync.Mutex
	responses []task.Response
}

func (c *memoryConnection) On(handler func(task.StreamEvent)) func() {
	c.mu.Lock()
	responses := c.responses
	c.mu.Unlock()

	go func() {
		for _, r := range responses {
			handler(task.StreamEvent{Kind: task.StreamYieldOK, Response: r})
		}
		handler(task.StreamEvent{Kind: task.StreamStop})
	}()

	return func() {}
}
