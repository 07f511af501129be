// Package executor interprets one task against a shared State, per spec
// §4.3. It depends on the task, handler, diagnostic and bridge packages
// (SendRequest hands its stream to bridge.Run). The dispatcher that owns the
// lanes is a consumer of this package, not a dependency of it: lanes are
// reached only through the task.LaneController it passes in.
package executor

import (
	"context"
	"log"

	"github.com/agda-mode/agda-dispatch/internal/bridge"
	"github.com/agda-mode/agda-dispatch/internal/diagnostic"
	"github.com/agda-mode/agda-dispatch/internal/handler"
	"github.com/agda-mode/agda-dispatch/internal/task"
)

// Execute runs t. Most variants resolve synchronously: sync is true and
// keepRunning is the scheduler's verdict immediately. ViewReq and WithState
// must await an external response; for those, Execute returns (false,
// false) right away and calls onDone(keepRunning) exactly once later, from
// a separate goroutine, once the await completes. The one exception is a
// prompting ViewReq dropped because a View layer is already pending: it
// resolves synchronously with (false, true) and onDone is never called.
// This split is what lets
// the dispatcher's run loop stay iterative for bursts of synchronous tasks
// (spec §9's "invert recursive kick_start to an explicit run-loop") while
// still supporting genuinely asynchronous variants. diag may be nil; it
// receives the spec §6 advisory lines (Debug, response, stream-stop) this
// variant produces.
func Execute(ctx context.Context, lc task.LaneController, state task.State, handlers handler.Set, diag *diagnostic.Sink, t task.Task, onDone func(keepRunning bool)) (keepRunning bool, sync bool) {
	switch v := t.(type) {

	case task.DispatchCommand:
		tasks := handlers.CallCommand(ctx, v.Command)
		lc.AddTasks(task.LaneCritical, task.SourceCommand, tasks)
		return true, true

	case task.SendRequest:
		if !lc.TrySpawnExclusive(task.LaneBlocking, task.SourceAgda) {
			log.Printf("[EXEC] dispatcher violation: dropping SendRequest id=%s, Agda already in flight", v.Request.ID)
			return false, true
		}
		bridge.Run(ctx, lc, state, handlers, diag, v.Request)
		return true, true

	case task.ViewReq:
		return executeViewReq(ctx, lc, state, handlers, v, onDone)

	case task.WithState:
		return executeWithState(ctx, lc, state, handlers, v, onDone)

	case task.Terminate:
		if err := state.Destroy(ctx); err != nil {
			log.Printf("[EXEC] error destroying state: %v", err)
		}
		return false, true

	case task.Goal:
		routeOneShot(lc, task.LaneBlocking, handlers.CallGoal(ctx, v.Action))
		return true, true

	case task.ViewEvent:
		var tasks []task.Task
		if v.Kind == task.ViewEventDestroyed {
			tasks = []task.Task{task.Terminate{}}
		}
		routeOneShot(lc, task.LaneCritical, tasks)
		return true, true

	case task.ErrorTask:
		routeOneShot(lc, task.LaneCritical, handlers.CallError(ctx, v.Err))
		return true, true

	case task.Debug:
		diag.Publish(diagnostic.Debug(v.Message))
		return true, true

	default:
		log.Printf("[EXEC] unknown task variant %T; dropping", t)
		return true, true
	}
}

// routeOneShot spawns a Misc layer, fills it, and immediately removes it —
// the "spawn, add, remove in one step" shorthand spec §4.3 prescribes for
// Goal, ViewEvent, and Error.
func routeOneShot(lc task.LaneController, lane task.LaneID, tasks []task.Task) {
	lc.Spawn(lane, task.SourceMisc)
	lc.AddTasks(lane, task.SourceMisc, tasks)
	lc.Remove(lane, task.SourceMisc)
}

func executeViewReq(ctx context.Context, lc task.LaneController, state task.State, handlers handler.Set, v task.ViewReq, onDone func(bool)) (bool, bool) {
	lane := task.LaneCritical
	if v.Request.Prompting {
		lane = task.LaneBlocking
		if !lc.TrySpawnExclusive(task.LaneBlocking, task.SourceView) {
			log.Printf("[EXEC] dispatcher violation: dropping prompting ViewReq id=%s, View already pending", v.Request.ID)
			return false, true
		}
	} else {
		lc.Spawn(lane, task.SourceView)
	}

	go func() {
		resp, err := state.SendRequestToView(ctx, v.Request)
		var tasks []task.Task
		if err != nil {
			tasks = handlers.CallError(ctx, err)
		} else if v.Callback != nil {
			tasks = v.Callback(resp)
		}
		lc.AddTasks(lane, task.SourceView, tasks)
		lc.Remove(lane, task.SourceView)
		onDone(true)
	}()
	return false, false
}

func executeWithState(ctx context.Context, lc task.LaneController, state task.State, handlers handler.Set, v task.WithState, onDone func(bool)) (bool, bool) {
	lc.Spawn(task.LaneBlocking, task.SourceMisc)
	go func() {
		tasks, err := v.Callback(ctx, state)
		if err != nil {
			tasks = handlers.CallError(ctx, err)
		}
		lc.AddTasks(task.LaneBlocking, task.SourceMisc, tasks)
		lc.Remove(task.LaneBlocking, task.SourceMisc)
		onDone(true)
	}()
	return false, false
}
