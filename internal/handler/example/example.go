// Package example is a minimal, LLM-free Handler implementation used by the
// dispatcher's tests and by cmd/agda-dispatch's demo REPL. It recognizes a
// handful of plain-text commands and a trivial response/error/goal shape —
// real command parsing, response interpretation, and goal manipulation are
// external collaborators per spec §1, so this exists only to exercise the
// dispatcher end to end, not to model Agda semantics.
package example

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/agda-mode/agda-dispatch/internal/handler"
	"github.com/agda-mode/agda-dispatch/internal/task"
)

// errMalformedCommand is returned via an ErrorTask for any command this
// package's CommandHandler recognizes the shape of but can't otherwise
// carry out.
type errMalformedCommand struct{ line string }

func (e *errMalformedCommand) Error() string { return "malformed command: " + e.line }

// TextCommand is the Command payload this package's CommandHandler expects:
// a raw line of editor input such as "load" or "goal 0 refine foo".
type TextCommand struct {
	Line string
}

// TextResponse is the Response payload ResponseHandler expects.
type TextResponse struct {
	Text string
}

// Handlers returns a handler.Set wired to this package's functions.
func Handlers() handler.Set {
	return handler.Set{
		Command:  CommandHandler,
		Response: ResponseHandler,
		Error:    ErrorHandler,
		Goal:     GoalHandler,
	}
}

// CommandHandler turns a TextCommand into tasks. "load" issues a
// proof-checker request, "ask <question>" raises a prompting view request,
// "state" runs a state-reading callback, "goal <action>" delegates to
// GoalHandler, "quit" produces a Terminate task, and "bad <reason>" demonstrates routing a malformed command
// through ErrorTask rather than formatting the message here. Anything else
// is echoed back as a Debug task so the demo REPL has something to show for
// every keystroke.
func CommandHandler(ctx context.Context, cmd task.Command) []task.Task {
	tc, ok := cmd.(TextCommand)
	if !ok {
		return []task.Task{task.Debug{Message: fmt.Sprintf("unrecognized command payload %T", cmd)}}
	}
	line := strings.TrimSpace(tc.Line)
	switch {
	case line == "":
		return nil
	case line == "load" || strings.HasPrefix(line, "load "):
		return []task.Task{task.SendRequest{Request: task.Request{ID: uuid.NewString(), Payload: line}}}
	case line == "quit":
		return []task.Task{task.Terminate{}}
	case strings.HasPrefix(line, "ask "):
		question := strings.TrimPrefix(line, "ask ")
		return []task.Task{task.ViewReq{
			Request: task.NewQueryView(uuid.NewString(), question),
			Callback: func(resp task.Response) []task.Task {
				return []task.Task{task.Debug{Message: fmt.Sprintf("view answered: %v", resp.Payload)}}
			},
		}}
	case line == "state":
		return []task.Task{task.WithState{
			Callback: func(ctx context.Context, state task.State) ([]task.Task, error) {
				return []task.Task{task.Debug{Message: "state callback ran"}}, nil
			},
		}}
	case strings.HasPrefix(line, "goal "):
		return []task.Task{task.Goal{Action: strings.TrimPrefix(line, "goal ")}}
	case strings.HasPrefix(line, "bad "):
		return []task.Task{task.ErrorTask{Err: &errMalformedCommand{line: line}}}
	default:
		return []task.Task{task.Debug{Message: "command: " + line}}
	}
}

// ResponseHandler turns a TextResponse into a Debug task describing it.
func ResponseHandler(ctx context.Context, resp task.Response) []task.Task {
	tr, ok := resp.Payload.(TextResponse)
	if !ok {
		return []task.Task{task.Debug{Message: fmt.Sprintf(">>> %v", resp.Payload)}}
	}
	return []task.Task{task.Debug{Message: ">>> " + tr.Text}}
}

// ErrorHandler turns any error into a Debug task; a real implementation
// would format a diagnostic for the editor's error panel instead.
func ErrorHandler(ctx context.Context, err error) []task.Task {
	if err == nil {
		return nil
	}
	return []task.Task{task.Debug{Message: "error: " + err.Error()}}
}

// GoalHandler turns a goal action into a Debug task describing it.
func GoalHandler(ctx context.Context, action task.GoalAction) []task.Task {
	return []task.Task{task.Debug{Message: fmt.Sprintf("goal action: %v", action)}}
}
