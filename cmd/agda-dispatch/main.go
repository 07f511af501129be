// Command agda-dispatch is a terminal REPL that drives a Dispatcher against
// the in-memory reference Agda connection. It exists to exercise the
// dispatcher end-to-end from a real terminal — editor integration itself
// is out of scope (spec §1's "Non-goal: UI rendering").
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/agda-mode/agda-dispatch/internal/agda"
	"github.com/agda-mode/agda-dispatch/internal/config"
	"github.com/agda-mode/agda-dispatch/internal/diagnostic"
	"github.com/agda-mode/agda-dispatch/internal/dispatch"
	"github.com/agda-mode/agda-dispatch/internal/handler/example"
	"github.com/agda-mode/agda-dispatch/internal/task"
)

func main() {
	cfg := config.Load()

	homeDir, _ := os.UserHomeDir()
	cacheDir := filepath.Join(homeDir, ".cache", "agda-dispatch")
	_ = os.MkdirAll(cacheDir, 0755)

	logPath := cfg.LogPath
	if logPath == "" {
		logPath = filepath.Join(cacheDir, "debug.log")
	}
	if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
		log.SetOutput(f)
		defer f.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	diag := diagnostic.NewSink()
	printer := diagnostic.NewPrinter(diag.Tap())
	go printer.Run(ctx)

	state := agda.NewMemoryState(
		func(req task.Request) ([]task.Response, error) {
			text, _ := req.Payload.(string)
			return []task.Response{{ID: req.ID, Payload: "checked: " + text}}, nil
		},
		func(req task.ViewRequest) (task.Response, error) {
			return task.Response{ID: req.ID, Payload: req.Payload}, nil
		},
	)

	handlers := example.Handlers()
	d := dispatch.New(state, handlers, diag)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "agda> ",
		HistoryFile: filepath.Join(cacheDir, "history"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init error: %v\n", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			cancel()
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			cancel()
			break
		}
		if input == "/init" {
			d.InjectViewEvent(ctx, task.ViewEventInitialized)
			continue
		}

		d.DispatchCommand(ctx, example.TextCommand{Line: input})

		if ctx.Err() != nil {
			return
		}
	}
}
