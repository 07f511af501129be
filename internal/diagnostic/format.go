package diagnostic

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/agda-mode/agda-dispatch/internal/task"
)

// LayerSummary is enough information about one queue layer to render a
// snapshot line without the diagnostic package depending on multiqueue.
type LayerSummary struct {
	Source    task.Source
	TaskCount int
}

// Snapshot renders one lane's part of the "both lanes before each task
// execution" output spec §6 calls for: one Source:count entry per layer,
// head layer first. The dispatcher calls it once per lane.
func Snapshot(laneName string, layers []LayerSummary) Line {
	parts := make([]string, 0, len(layers))
	for _, l := range layers {
		parts = append(parts, fmt.Sprintf("%s:%d", l.Source, l.TaskCount))
	}
	text := fmt.Sprintf("[%s] %s", laneName, strings.Join(parts, " > "))
	return Line{Kind: KindSnapshot, Text: clipWidth(text, 120)}
}

// Debug wraps a DEBUG-tagged line.
func Debug(msg string) Line {
	return Line{Kind: KindDebug, Text: "DEBUG " + clipWidth(msg, 200)}
}

// Response wraps a ">>> <response>" line.
func Response(payload any) Line {
	return Line{Kind: KindResponse, Text: clipWidth(fmt.Sprintf(">>> %v", payload), 200)}
}

// StreamStop wraps the ">>| " stream-terminator marker.
func StreamStop(requestID string) Line {
	return Line{Kind: KindStreamStop, Text: ">>| " + requestID}
}

// clipWidth truncates s to at most n terminal columns (not bytes/runes),
// appending an ellipsis when trimmed — CJK goal text and math symbols in
// Agda commands are commonly double-width, so a rune-count clip can still
// overflow a fixed-width log line.
func clipWidth(s string, n int) string {
	if runewidth.StringWidth(s) <= n {
		return s
	}
	return runewidth.Truncate(s, n-1, "") + "…"
}
