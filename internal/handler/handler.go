// Package handler declares the function types the embedder supplies to
// translate domain inputs into tasks (spec §6). The core never implements
// these itself — command parsing, response interpretation, error
// formatting, and goal manipulation are all external collaborators (§1).
package handler

import (
	"context"

	"github.com/agda-mode/agda-dispatch/internal/task"
)

// CommandHandler translates one editor command into the tasks that carry
// it out.
type CommandHandler func(ctx context.Context, cmd task.Command) []task.Task

// ResponseHandler translates one successfully parsed proof-checker response
// into follow-up tasks.
type ResponseHandler func(ctx context.Context, resp task.Response) []task.Task

// ErrorHandler translates a ConnectionError, ParserError, or any
// handler-produced error into tasks — errors never stop the pipeline on
// their own (spec §7).
type ErrorHandler func(ctx context.Context, err error) []task.Task

// GoalHandler translates one goal-manipulation action into tasks.
type GoalHandler func(ctx context.Context, action task.GoalAction) []task.Task

// Set bundles all four handlers the core needs. A zero-value field is
// treated as "produces no tasks" rather than panicking, so an embedder
// building up the set incrementally (or a test exercising one handler in
// isolation) never needs to stub the others.
type Set struct {
	Command  CommandHandler
	Response ResponseHandler
	Error    ErrorHandler
	Goal     GoalHandler
}

// CallCommand, CallResponse, CallError, and CallGoal are nil-safe entry
// points the executor and bridge call so they never need a nil check before
// invoking a Set's handlers.
func (s Set) CallCommand(ctx context.Context, cmd task.Command) []task.Task {
	if s.Command == nil {
		return nil
	}
	return s.Command(ctx, cmd)
}

func (s Set) CallResponse(ctx context.Context, resp task.Response) []task.Task {
	if s.Response == nil {
		return nil
	}
	return s.Response(ctx, resp)
}

func (s Set) CallError(ctx context.Context, err error) []task.Task {
	if s.Error == nil {
		return nil
	}
	return s.Error(ctx, err)
}

func (s Set) CallGoal(ctx context.Context, action task.GoalAction) []task.Task {
	if s.Goal == nil {
		return nil
	}
	return s.Goal(ctx, action)
}
