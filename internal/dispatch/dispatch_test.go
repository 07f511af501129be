package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/agda-mode/agda-dispatch/internal/handler"
	"github.com/agda-mode/agda-dispatch/internal/task"
)

// recordingState is a task.State whose SendRequest/SendRequestToView calls
// are observable from tests without pulling in the agda package's goroutine
// timing.
type recordingState struct {
	mu           sync.Mutex
	sendCount    int
	connResponse []task.Response
	connErr      error
	viewResp     task.Response
	viewErr      error
	destroyed    bool
	destroyCount int
}

func (s *recordingState) SendRequest(ctx context.Context, req task.Request) (task.Connection, error) {
	s.mu.Lock()
	s.sendCount++
	s.mu.Unlock()
	if s.connErr != nil {
		return nil, s.connErr
	}
	return &fakeConn{responses: s.connResponse}, nil
}

func (s *recordingState) SendRequestToView(ctx context.Context, req task.ViewRequest) (task.Response, error) {
	return s.viewResp, s.viewErr
}

func (s *recordingState) Destroy(ctx context.Context) error {
	s.mu.Lock()
	s.destroyed = true
	s.destroyCount++
	s.mu.Unlock()
	return nil
}

type fakeConn struct {
	responses []task.Response
}

func (c *fakeConn) On(h func(task.StreamEvent)) func() {
	go func() {
		for _, r := range c.responses {
			h(task.StreamEvent{Kind: task.StreamYieldOK, Response: r})
		}
		h(task.StreamEvent{Kind: task.StreamStop})
	}()
	return func() {}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition never became true")
}

// TestProperty1_SingleInFlightAgdaRequest verifies invariant 2: a second
// SendRequest queued on the blocking lane while one is already in flight is
// held back behind the empty Agda head layer, not sent concurrently.
func TestProperty1_SingleInFlightAgdaRequest(t *testing.T) {
	block := make(chan struct{})

	var sendCalls int
	var mu sync.Mutex
	blockingState := &blockingConnState{
		onSend: func() {
			mu.Lock()
			sendCalls++
			mu.Unlock()
			<-block
		},
	}

	d := New(blockingState, handler.Set{}, nil)
	ctx := context.Background()

	d.AddTasks(task.LaneBlocking, task.SourceCommand, []task.Task{
		task.SendRequest{Request: task.Request{ID: "r1"}},
	})
	d.KickStart(ctx)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return sendCalls == 1
	})

	// Second request while the first is still blocked in SendRequest.
	d.AddTasks(task.LaneBlocking, task.SourceCommand, []task.Task{
		task.SendRequest{Request: task.Request{ID: "r2"}},
	})
	d.KickStart(ctx)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	got := sendCalls
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected the second SendRequest to be held back while the first is in flight, got %d sends", got)
	}
	close(block)
}

type blockingConnState struct {
	onSend func()
}

func (b *blockingConnState) SendRequest(ctx context.Context, req task.Request) (task.Connection, error) {
	b.onSend()
	return &fakeConn{}, nil
}
func (b *blockingConnState) SendRequestToView(ctx context.Context, req task.ViewRequest) (task.Response, error) {
	return task.Response{}, nil
}
func (b *blockingConnState) Destroy(ctx context.Context) error { return nil }

// TestScenario4_SendRequestDroppedWhileAgdaBusy exercises the same invariant
// through the public DispatchCommand/handler path instead of AddTasks directly.
func TestScenario4_SendRequestDroppedWhileAgdaBusy(t *testing.T) {
	gate := make(chan struct{})
	var sendCount int
	var mu sync.Mutex
	state := &blockingConnState{onSend: func() {
		mu.Lock()
		sendCount++
		mu.Unlock()
		<-gate
	}}

	handlers := handler.Set{
		Command: func(ctx context.Context, cmd task.Command) []task.Task {
			id, _ := cmd.(string)
			return []task.Task{task.SendRequest{Request: task.Request{ID: id}}}
		},
	}
	d := New(state, handlers, nil)
	ctx := context.Background()

	d.DispatchCommand(ctx, "first")

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return sendCount >= 1
	})

	// The second SendRequest runs on the critical lane while the Agda layer
	// from the first still exists on the blocking lane.
	d.DispatchCommand(ctx, "second")
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	got := sendCount
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected only the first SendRequest to reach State, got %d", got)
	}
	close(gate)
}

// TestScenario_TerminateCallsDestroyOnce verifies a Terminate task tears the
// session down exactly once.
func TestScenario_TerminateCallsDestroyOnce(t *testing.T) {
	state := &recordingState{}
	d := New(state, handler.Set{}, nil)
	ctx := context.Background()

	d.AddTasks(task.LaneCritical, task.SourceCommand, []task.Task{
		task.Terminate{},
		task.Debug{Message: "should not run after terminate"},
	})
	d.KickStart(ctx)

	waitFor(t, func() bool {
		state.mu.Lock()
		defer state.mu.Unlock()
		return state.destroyed
	})
	time.Sleep(20 * time.Millisecond)
	state.mu.Lock()
	got := state.destroyCount
	state.mu.Unlock()
	if got != 1 {
		t.Fatalf("expected Destroy to be called exactly once, got %d", got)
	}
}

// TestProperty6_IdempotentKickStartOnIdleQueue verifies that kicking an
// already-idle, empty dispatcher repeatedly is a no-op, not an error.
func TestProperty6_IdempotentKickStartOnIdleQueue(t *testing.T) {
	state := &recordingState{}
	d := New(state, handler.Set{}, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d.KickStart(ctx)
	}
	// No panics, no blocked goroutines — reaching here is the assertion.
}

// TestDispatchCommand_RoutesThroughCommandHandler verifies DispatchCommand
// runs the CommandHandler with the dispatched command.
func TestDispatchCommand_RoutesThroughCommandHandler(t *testing.T) {
	var seen task.Command
	var mu sync.Mutex
	handlers := handler.Set{
		Command: func(ctx context.Context, cmd task.Command) []task.Task {
			mu.Lock()
			seen = cmd
			mu.Unlock()
			return nil
		},
	}
	state := &recordingState{}
	d := New(state, handlers, nil)

	d.DispatchCommand(context.Background(), "do-a-thing")

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen != nil
	})
	mu.Lock()
	got := seen
	mu.Unlock()
	if got != "do-a-thing" {
		t.Fatalf("unexpected command payload: %v", got)
	}
}

// blockingViewState is a task.State whose SendRequestToView blocks until
// released, letting a test hold a prompting ViewReq "in flight".
type blockingViewState struct {
	onSendToView func()
}

func (b *blockingViewState) SendRequest(ctx context.Context, req task.Request) (task.Connection, error) {
	return &fakeConn{}, nil
}
func (b *blockingViewState) SendRequestToView(ctx context.Context, req task.ViewRequest) (task.Response, error) {
	b.onSendToView()
	return task.Response{}, nil
}
func (b *blockingViewState) Destroy(ctx context.Context) error { return nil }

// TestProperty3_SingleInFlightPromptingViewRequest verifies invariant 3: a
// second prompting ViewReq queued while one is already pending is held back
// (the blocking lane stays Busy until the first is answered), not sent
// concurrently, mirroring TestProperty1_SingleInFlightAgdaRequest for the View
// source instead of the Agda one (spec §9 Open Question #1).
func TestProperty3_SingleInFlightPromptingViewRequest(t *testing.T) {
	release := make(chan struct{})

	var viewCalls int
	var mu sync.Mutex
	state := &blockingViewState{onSendToView: func() {
		mu.Lock()
		viewCalls++
		mu.Unlock()
		<-release
	}}

	d := New(state, handler.Set{}, nil)
	ctx := context.Background()

	d.AddTasks(task.LaneBlocking, task.SourceCommand, []task.Task{
		task.ViewReq{Request: task.NewQueryView("v1", "first?")},
	})
	d.KickStart(ctx)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return viewCalls == 1
	})

	// Second prompting ViewReq while the first is still awaiting a response.
	d.AddTasks(task.LaneBlocking, task.SourceCommand, []task.Task{
		task.ViewReq{Request: task.NewQueryView("v2", "second?")},
	})
	d.KickStart(ctx)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	got := viewCalls
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected the second prompting ViewReq to be held back while the first is pending, got %d calls", got)
	}
	close(release)
}

// TestWithState_CallbackRunsAndResultRouted verifies a WithState task's
// callback runs with the dispatcher's State and its resulting tasks reach
// the lane.
func TestWithState_CallbackRunsAndResultRouted(t *testing.T) {
	state := &recordingState{}
	d := New(state, handler.Set{}, nil)
	ctx := context.Background()

	var ran bool
	var mu sync.Mutex
	d.AddTasks(task.LaneBlocking, task.SourceCommand, []task.Task{
		task.WithState{Callback: func(ctx context.Context, s task.State) ([]task.Task, error) {
			mu.Lock()
			ran = true
			mu.Unlock()
			return []task.Task{task.Terminate{}}, nil
		}},
	})
	d.KickStart(ctx)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ran
	})
	// The callback's Terminate reaches the lane and runs.
	waitFor(t, func() bool {
		state.mu.Lock()
		defer state.mu.Unlock()
		return state.destroyed
	})
}

// TestGoal_RoutesThroughGoalHandler verifies a Goal task invokes the
// handler set's GoalHandler with its action.
func TestGoal_RoutesThroughGoalHandler(t *testing.T) {
	var seen task.GoalAction
	var mu sync.Mutex
	handlers := handler.Set{
		Goal: func(ctx context.Context, action task.GoalAction) []task.Task {
			mu.Lock()
			seen = action
			mu.Unlock()
			return nil
		},
	}
	state := &recordingState{}
	d := New(state, handlers, nil)
	ctx := context.Background()

	d.AddTasks(task.LaneBlocking, task.SourceCommand, []task.Task{
		task.Goal{Action: "refine"},
	})
	d.KickStart(ctx)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen != nil
	})
	mu.Lock()
	got := seen
	mu.Unlock()
	if got != "refine" {
		t.Fatalf("unexpected goal action: %v", got)
	}
}

// TestErrorTask_RoutesThroughErrorHandler verifies an ErrorTask invokes the
// handler set's ErrorHandler with its error.
func TestErrorTask_RoutesThroughErrorHandler(t *testing.T) {
	var seen error
	var mu sync.Mutex
	handlers := handler.Set{
		Error: func(ctx context.Context, err error) []task.Task {
			mu.Lock()
			seen = err
			mu.Unlock()
			return nil
		},
	}
	state := &recordingState{}
	d := New(state, handlers, nil)
	ctx := context.Background()

	wantErr := fmt.Errorf("boom")
	d.AddTasks(task.LaneCritical, task.SourceCommand, []task.Task{
		task.ErrorTask{Err: wantErr},
	})
	d.KickStart(ctx)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen != nil
	})
	mu.Lock()
	got := seen
	mu.Unlock()
	if got != wantErr {
		t.Fatalf("unexpected error: %v", got)
	}
}
