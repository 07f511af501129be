// Package task holds the data model shared by every layer of the dispatcher:
// the Source tags that own queue layers, the Task variants the executor
// interprets, and the State/Connection contract the embedder implements to
// talk to the proof-checker and the view panel.
package task

// Source identifies which producer owns a queue layer. Equality is by tag
// only — two layers with the same Source are interchangeable as far as the
// MultiQueue's spawn/remove/count operations are concerned.
type Source int

const (
	// SourceCommand is the bottom layer every MultiQueue is born with. It
	// carries interactive editor commands and never leaves the queue.
	SourceCommand Source = iota
	// SourceAgda carries one in-flight proof-checker request and the tasks
	// its response stream injects.
	SourceAgda
	// SourceView carries a pending view-panel request (prompting or not).
	SourceView
	// SourceMisc carries one-shot state callbacks, goal actions, and routed
	// errors/events.
	SourceMisc
)

func (s Source) String() string {
	switch s {
	case SourceCommand:
		return "Command"
	case SourceAgda:
		return "Agda"
	case SourceView:
		return "View"
	case SourceMisc:
		return "Misc"
	default:
		return "Unknown"
	}
}
