package task

import "context"

// Command and GoalAction are opaque payloads owned by the
// embedder. The core never inspects them — it only routes them to the
// matching Handler. Keeping them as `any` instead of a closed type mirrors
// the external-collaborator boundary in spec §1: command parsing and goal
// manipulation are pluggable, not core concerns.
type Command = any
type GoalAction = any

// Request is one outbound proof-checker request.
type Request struct {
	ID      string
	Payload any
}

// Response is one inbound proof-checker response, either the reply to a
// Request or one of its streamed follow-ups.
type Response struct {
	ID      string
	Payload any
}

// ViewRequest is a request sent to the view panel. Prompting marks the
// "Plain(_, Query(_,_))" shape from the source system: a request whose
// answer the rest of the pipeline must wait for. Per spec §9 Open Questions,
// no other shape is treated as prompting — construct one with NewQueryView
// or NewPlainView rather than setting the field directly.
type ViewRequest struct {
	ID        string
	Prompting bool
	Payload   any
}

// NewQueryView builds a prompting view request — the only shape that
// occupies the singleton View layer on the blocking lane.
func NewQueryView(id string, payload any) ViewRequest {
	return ViewRequest{ID: id, Prompting: true, Payload: payload}
}

// NewPlainView builds a non-prompting view request. It runs on the critical
// lane and never contends for the blocking lane's View slot.
func NewPlainView(id string, payload any) ViewRequest {
	return ViewRequest{ID: id, Prompting: false, Payload: payload}
}

// ViewEventKind enumerates the only two ViewEvent shapes the executor gives
// dedicated handling (spec §4.3). There is no generic ViewEvent handler.
type ViewEventKind int

const (
	ViewEventInitialized ViewEventKind = iota
	ViewEventDestroyed
)

// Task is the sealed set of work items the dispatcher knows how to run.
// Concrete variants are unexported-method-gated so only this package (and
// code that only ever constructs the exported variant types below) can
// satisfy it — the "tagged sum" the source's heterogeneous Task union maps
// to, per spec §9 Design Notes.
type Task interface {
	isTask()
}

// DispatchCommand runs CommandHandler against Command and enqueues its
// output on the critical lane under SourceCommand.
type DispatchCommand struct {
	Command Command
}

// SendRequest issues one proof-checker request. It blocks the Agda layer on
// the blocking lane until the response stream terminates.
type SendRequest struct {
	Request Request
}

// ViewReq issues a view request. Callback is invoked once with the eventual
// Response; its result is enqueued under SourceView on whichever lane the
// request occupies (blocking for prompting requests, critical otherwise).
type ViewReq struct {
	Request  ViewRequest
	Callback func(Response) []Task
}

// WithState runs a state-reading/mutating callback and enqueues its result
// under SourceMisc on the blocking lane.
type WithState struct {
	Callback func(ctx context.Context, state State) ([]Task, error)
}

// Terminate destroys the session. The executor returns keepRunning=false.
type Terminate struct{}

// Goal delegates to GoalHandler, producing tasks routed through a one-shot
// Misc layer on the blocking lane.
type Goal struct {
	Action GoalAction
}

// ViewEvent delegates Initialized/Destroyed notifications from the view
// host. Initialized produces no tasks; Destroyed produces [Terminate].
type ViewEvent struct {
	Kind ViewEventKind
}

// ErrorTask delegates to ErrorHandler, producing tasks routed through a
// one-shot Misc layer on the critical lane.
type ErrorTask struct {
	Err error
}

// Debug emits msg to the diagnostic log and resolves keepRunning=true.
type Debug struct {
	Message string
}

func (DispatchCommand) isTask() {}
func (SendRequest) isTask()     {}
func (ViewReq) isTask()         {}
func (WithState) isTask()       {}
func (Terminate) isTask()       {}
func (Goal) isTask()            {}
func (ViewEvent) isTask()       {}
func (ErrorTask) isTask()       {}
func (Debug) isTask()           {}

// LaneID names one of the dispatcher's two independent lanes.
type LaneID int

const (
	LaneBlocking LaneID = iota
	LaneCritical
)

func (l LaneID) String() string {
	if l == LaneBlocking {
		return "blocking"
	}
	return "critical"
}

// LaneController is the slice of Dispatcher behavior the executor and
// request bridge need in order to spawn/remove layers, enqueue follow-up
// tasks, and resume the scheduler. Defining it here (rather than in the
// dispatch package that implements it) lets both the executor and bridge
// packages depend on the contract without depending on each other or on
// dispatch, avoiding an import cycle.
type LaneController interface {
	// TrySpawnExclusive atomically checks CountBySource(lane, s) == 0 and,
	// if so, spawns a new layer tagged s and returns true. It returns false
	// without mutating the lane otherwise. Used to enforce invariants 2 and
	// 3 (single in-flight Agda request / prompting View request) without a
	// check-then-act race.
	TrySpawnExclusive(lane LaneID, s Source) bool
	Spawn(lane LaneID, s Source)
	Remove(lane LaneID, s Source)
	AddTasks(lane LaneID, s Source, ts []Task)
	CountBySource(lane LaneID, s Source) int
	// KickStart resumes the scheduler. Safe to call from any goroutine at
	// any time, including from within a task's completion continuation.
	KickStart(ctx context.Context)
}
