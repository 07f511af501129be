// Package dispatch implements the two-lane Dispatcher: it holds the
// blocking and critical MultiQueues, their Idle/Busy status semaphores, and
// the kick_start run loop that advances both lanes (spec §4.2).
package dispatch

import (
	"context"
	"sync"

	"github.com/agda-mode/agda-dispatch/internal/diagnostic"
	"github.com/agda-mode/agda-dispatch/internal/executor"
	"github.com/agda-mode/agda-dispatch/internal/handler"
	"github.com/agda-mode/agda-dispatch/internal/multiqueue"
	"github.com/agda-mode/agda-dispatch/internal/task"
)

// status is a lane's re-entrancy semaphore: Busy means a task is mid-
// execution and the dispatcher must not start another on that lane.
type status int

const (
	idle status = iota
	busy
)

type laneState struct {
	mq     multiqueue.MultiQueue
	status status
}

// Dispatcher holds both lanes and drives the scheduler. The zero value is
// not usable — construct one with New. All exported methods are safe to
// call from any goroutine, including from within a task's own completion
// continuation (spec §5 re-entrancy).
type Dispatcher struct {
	mu       sync.Mutex
	blocking laneState
	critical laneState

	state    task.State
	handlers handler.Set
	diag     *diagnostic.Sink // optional; nil-safe
}

// New creates a Dispatcher with both lanes freshly made (spec invariant 1:
// each lane's bottom layer is (Command, empty)). diag may be nil.
func New(state task.State, handlers handler.Set, diag *diagnostic.Sink) *Dispatcher {
	return &Dispatcher{
		blocking: laneState{mq: multiqueue.Make()},
		critical: laneState{mq: multiqueue.Make()},
		state:    state,
		handlers: handlers,
		diag:     diag,
	}
}

func (d *Dispatcher) lane(id task.LaneID) *laneState {
	if id == task.LaneBlocking {
		return &d.blocking
	}
	return &d.critical
}

// DispatchCommand appends a DispatchCommand task to the critical lane's
// Command layer and kicks the scheduler (spec §4.2).
func (d *Dispatcher) DispatchCommand(ctx context.Context, cmd task.Command) {
	d.mu.Lock()
	d.critical.mq = d.critical.mq.AddTasks(task.SourceCommand, []task.Task{task.DispatchCommand{Command: cmd}})
	d.mu.Unlock()
	d.KickStart(ctx)
}

// InjectViewEvent appends a ViewEvent task to the critical lane's Command
// layer — the entry point for UI-host-originated events (spec §6's "Task
// lifecycle boundary").
func (d *Dispatcher) InjectViewEvent(ctx context.Context, kind task.ViewEventKind) {
	d.mu.Lock()
	d.critical.mq = d.critical.mq.AddTasks(task.SourceCommand, []task.Task{task.ViewEvent{Kind: kind}})
	d.mu.Unlock()
	d.KickStart(ctx)
}

// KickStart advances both lanes. Each lane independently: if Busy, it does
// nothing; otherwise it pops the next runnable task (blocking-mode peek for
// the blocking lane, non-blocking for critical), executes it, and on
// completion loops to pop the next one — an explicit run loop rather than
// the source's recursive kick_start, per spec §9's redesign note, so a long
// burst of synchronously-resolving tasks never grows the call stack.
func (d *Dispatcher) KickStart(ctx context.Context) {
	d.advance(ctx, task.LaneBlocking)
	d.advance(ctx, task.LaneCritical)
}

func (d *Dispatcher) advance(ctx context.Context, id task.LaneID) {
	for {
		d.mu.Lock()
		ls := d.lane(id)
		if ls.status == busy {
			d.mu.Unlock()
			return
		}
		t, rest, ok := ls.mq.GetNextTask(id == task.LaneBlocking)
		if !ok {
			d.mu.Unlock()
			return
		}
		ls.mq = rest
		ls.status = busy
		d.mu.Unlock()

		d.snapshot(id)

		onDone := func(keepRunning bool) {
			d.mu.Lock()
			d.lane(id).status = idle
			d.mu.Unlock()
			if keepRunning {
				d.advance(ctx, id)
			}
		}

		keepRunning, sync := executor.Execute(ctx, d, d.state, d.handlers, d.diag, t, onDone)
		if !sync {
			// onDone fires later from a goroutine; this call stops here.
			return
		}

		d.mu.Lock()
		d.lane(id).status = idle
		d.mu.Unlock()
		if !keepRunning {
			return
		}
		// keepRunning && sync: loop to pop this lane's next task.
	}
}

func (d *Dispatcher) snapshot(id task.LaneID) {
	if d.diag == nil {
		return
	}
	d.mu.Lock()
	summaries := toDiagSummaries(d.lane(id).mq.LayerSummaries())
	otherID := task.LaneCritical
	if id == task.LaneCritical {
		otherID = task.LaneBlocking
	}
	other := toDiagSummaries(d.lane(otherID).mq.LayerSummaries())
	d.mu.Unlock()
	d.diag.Publish(diagnostic.Snapshot(id.String(), summaries))
	d.diag.Publish(diagnostic.Snapshot(otherID.String(), other))
}

func toDiagSummaries(in []multiqueue.LayerSummary) []diagnostic.LayerSummary {
	out := make([]diagnostic.LayerSummary, len(in))
	for i, s := range in {
		out[i] = diagnostic.LayerSummary{Source: s.Source, TaskCount: s.TaskCount}
	}
	return out
}

// TrySpawnExclusive implements task.LaneController.
func (d *Dispatcher) TrySpawnExclusive(id task.LaneID, s task.Source) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	ls := d.lane(id)
	if ls.mq.CountBySource(s) > 0 {
		return false
	}
	ls.mq = ls.mq.Spawn(s)
	return true
}

// Spawn implements task.LaneController.
func (d *Dispatcher) Spawn(id task.LaneID, s task.Source) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lane(id).mq = d.lane(id).mq.Spawn(s)
}

// Remove implements task.LaneController.
func (d *Dispatcher) Remove(id task.LaneID, s task.Source) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lane(id).mq = d.lane(id).mq.Remove(s)
}

// AddTasks implements task.LaneController.
func (d *Dispatcher) AddTasks(id task.LaneID, s task.Source, ts []task.Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lane(id).mq = d.lane(id).mq.AddTasks(s, ts)
}

// CountBySource implements task.LaneController.
func (d *Dispatcher) CountBySource(id task.LaneID, s task.Source) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lane(id).mq.CountBySource(s)
}
