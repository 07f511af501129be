// Package multiqueue implements the ordered layer-of-FIFOs structure the
// dispatcher's two lanes are built from. It is a pure value type: every
// operation returns a new MultiQueue rather than mutating its receiver, so
// the dispatcher can hold the current value behind a single mutex without
// multiqueue itself needing any synchronization.
package multiqueue

import (
	"log"

	"github.com/agda-mode/agda-dispatch/internal/task"
)

type layer struct {
	source task.Source
	tasks  []task.Task
}

// MultiQueue is an ordered sequence of (Source, FIFO of Task) layers, head =
// highest priority.
type MultiQueue struct {
	layers []layer
}

// Make returns a queue containing a single layer (Command, empty) — the
// bottom layer every MultiQueue is born with and never loses (spec
// invariant 1).
func Make() MultiQueue {
	return MultiQueue{layers: []layer{{source: task.SourceCommand}}}
}

// Spawn prepends a new empty layer tagged s. Multiple layers with the same
// tag may coexist; every other operation always targets the topmost match.
func (q MultiQueue) Spawn(s task.Source) MultiQueue {
	nl := make([]layer, 0, len(q.layers)+1)
	nl = append(nl, layer{source: s})
	nl = append(nl, q.layers...)
	return MultiQueue{layers: nl}
}

// Remove removes the topmost layer tagged s. Its remaining tasks, if any,
// are prepended (in order) to the immediately-following layer's tasks. If no
// layer matches, q is returned unchanged. Removing the last remaining layer
// would violate invariant 1 ("the bottom layer is always present"); that
// case is refused (logged, queue unchanged) rather than honored, since it
// can only happen if a caller mismanages lifecycle and emptying the queue
// entirely would wedge every future GetNextTask call.
func (q MultiQueue) Remove(s task.Source) MultiQueue {
	idx := indexOf(q.layers, s)
	if idx == -1 {
		return q
	}
	if len(q.layers) == 1 {
		log.Printf("[MULTIQUEUE] ERROR: refusing to remove the only remaining layer (source=%s); %d tasks would be discarded", s, len(q.layers[idx].tasks))
		return q
	}
	if idx == len(q.layers)-1 {
		log.Printf("[MULTIQUEUE] ERROR: removed bottom layer (source=%s); %d tasks discarded", s, len(q.layers[idx].tasks))
		nl := make([]layer, idx)
		copy(nl, q.layers[:idx])
		return MultiQueue{layers: nl}
	}

	removed := q.layers[idx].tasks
	next := q.layers[idx+1]
	merged := make([]task.Task, 0, len(removed)+len(next.tasks))
	merged = append(merged, removed...)
	merged = append(merged, next.tasks...)

	nl := make([]layer, len(q.layers)-1)
	copy(nl, q.layers[:idx])
	nl[idx] = layer{source: next.source, tasks: merged}
	copy(nl[idx+1:], q.layers[idx+2:])
	return MultiQueue{layers: nl}
}

// AddTasks appends ts, in order, to the end of the topmost layer tagged s.
// If no such layer exists (or ts is empty), q is returned unchanged.
func (q MultiQueue) AddTasks(s task.Source, ts []task.Task) MultiQueue {
	idx := indexOf(q.layers, s)
	if idx == -1 || len(ts) == 0 {
		return q
	}
	nl := make([]layer, len(q.layers))
	copy(nl, q.layers)

	merged := make([]task.Task, len(nl[idx].tasks)+len(ts))
	copy(merged, nl[idx].tasks)
	copy(merged[len(nl[idx].tasks):], ts)
	nl[idx] = layer{source: nl[idx].source, tasks: merged}
	return MultiQueue{layers: nl}
}

// CountBySource counts how many layers bear tag s.
func (q MultiQueue) CountBySource(s task.Source) int {
	n := 0
	for _, l := range q.layers {
		if l.source == s {
			n++
		}
	}
	return n
}

// GetNextTask returns the next runnable task and the queue with it removed.
//
// In blocking mode, it only ever looks at the head layer: an empty head
// layer means "stuck waiting for this source" even when lower layers hold
// work — this is what lets an in-flight Agda or prompting View request halt
// the lane. In non-blocking mode, empty layers are skipped (left in place)
// and the first task found anywhere in the stack is returned.
//
// Returns ok=false when there is nothing runnable under the given mode.
func (q MultiQueue) GetNextTask(blockingMode bool) (t task.Task, rest MultiQueue, ok bool) {
	if len(q.layers) == 0 {
		return nil, q, false
	}
	if blockingMode {
		head := q.layers[0]
		if len(head.tasks) == 0 {
			return nil, q, false
		}
		nl := make([]layer, len(q.layers))
		copy(nl, q.layers)
		nl[0] = layer{source: head.source, tasks: head.tasks[1:]}
		return head.tasks[0], MultiQueue{layers: nl}, true
	}

	for i, l := range q.layers {
		if len(l.tasks) == 0 {
			continue
		}
		nl := make([]layer, len(q.layers))
		copy(nl, q.layers)
		nl[i] = layer{source: l.source, tasks: l.tasks[1:]}
		return l.tasks[0], MultiQueue{layers: nl}, true
	}
	return nil, q, false
}

// LayerSummary is the (Source, pending-count) projection of one layer,
// exported for diagnostic rendering without exposing the tasks themselves.
type LayerSummary struct {
	Source    task.Source
	TaskCount int
}

// LayerSummaries returns one summary per layer, head first.
func (q MultiQueue) LayerSummaries() []LayerSummary {
	out := make([]LayerSummary, len(q.layers))
	for i, l := range q.layers {
		out[i] = LayerSummary{Source: l.source, TaskCount: len(l.tasks)}
	}
	return out
}

func indexOf(layers []layer, s task.Source) int {
	for i, l := range layers {
		if l.source == s {
			return i
		}
	}
	return -1
}
