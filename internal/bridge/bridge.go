// Package bridge wraps one SendRequest into a subscribe/translate/inject
// loop against the proof-checker's response stream (spec §4.4). It depends
// on task, handler and diagnostic, not on executor or dispatch, so it can be
// called from the executor without an import cycle.
package bridge

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/agda-mode/agda-dispatch/internal/diagnostic"
	"github.com/agda-mode/agda-dispatch/internal/handler"
	"github.com/agda-mode/agda-dispatch/internal/task"
)

// Run issues req against state and streams its response into the Agda
// layer on the blocking lane until the stream terminates. It owns exactly
// one subscription handle for the lifetime of req: released on Stop, and on
// a connection failure (which never produces a subscription at all). Run
// returns immediately; all work happens on a background goroutine, and the
// Agda layer it removes on completion is the one the caller (executor's
// SendRequest case) already spawned before calling Run. diag may be nil; it
// receives the spec §6 ">>> <response>" and ">>| " lines this subscription
// produces.
func Run(ctx context.Context, lc task.LaneController, state task.State, handlers handler.Set, diag *diagnostic.Sink, req task.Request) {
	subID := uuid.NewString()
	go func() {
		conn, err := state.SendRequest(ctx, req)
		if err != nil {
			log.Printf("[BRIDGE] subscription %s: connection error for request id=%s: %v", subID, req.ID, err)
			tasks := handlers.CallError(ctx, &task.ConnectionError{Err: err})
			lc.AddTasks(task.LaneBlocking, task.SourceAgda, tasks)
			lc.Remove(task.LaneBlocking, task.SourceAgda)
			lc.KickStart(ctx)
			return
		}
		log.Printf("[BRIDGE] subscription %s opened for request id=%s", subID, req.ID)

		// The stream may deliver Stop before On has returned the handle, so
		// the handle is released by whichever of the two happens last.
		var (
			mu          sync.Mutex
			unsubscribe func()
			stopped     bool
		)
		unsub := conn.On(func(ev task.StreamEvent) {
			switch ev.Kind {
			case task.StreamYieldOK:
				diag.Publish(diagnostic.Response(ev.Response.Payload))
				tasks := handlers.CallResponse(ctx, ev.Response)
				lc.AddTasks(task.LaneBlocking, task.SourceAgda, tasks)
				lc.KickStart(ctx)

			case task.StreamYieldError:
				log.Printf("[BRIDGE] subscription %s: parser error for request id=%s: %v", subID, req.ID, ev.Err)
				tasks := handlers.CallError(ctx, &task.ParserError{Err: ev.Err})
				lc.AddTasks(task.LaneBlocking, task.SourceAgda, tasks)
				lc.KickStart(ctx)

			case task.StreamStop:
				diag.Publish(diagnostic.StreamStop(req.ID))
				mu.Lock()
				stopped = true
				u := unsubscribe
				mu.Unlock()
				if u != nil {
					u()
				}
				lc.Remove(task.LaneBlocking, task.SourceAgda)
				lc.KickStart(ctx)
			}
		})
		mu.Lock()
		unsubscribe = unsub
		release := stopped
		mu.Unlock()
		if release {
			unsub()
		}
	}()
}
