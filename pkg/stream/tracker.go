package stream

import (
	"fmt"
	"math"
)

// ToolStatus is the lifecycle state of one tool call. Transitions are
// monotonic: pending → executing → {completed, error}. They never regress.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolExecuting ToolStatus = "executing"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

// ToolCall is one remote sub-operation invoked during response generation.
// The id is assigned by the producer and is opaque and stable for the life
// of one response.
type ToolCall struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Result any            `json:"result,omitempty"`
	Status ToolStatus     `json:"status"`
}

// Tracker maintains per-call lifecycle state from decoder frames. Creation
// order is preserved as display order.
type Tracker struct {
	calls []*ToolCall
	byID  map[string]*ToolCall
	label string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{byID: make(map[string]*ToolCall)}
}

// Start registers a new pending call. A duplicate id is ignored; the first
// registration wins so the id stays stable.
func (t *Tracker) Start(id, name string) {
	if _, exists := t.byID[id]; exists {
		return
	}
	call := &ToolCall{ID: id, Name: name, Args: map[string]any{}, Status: ToolPending}
	t.calls = append(t.calls, call)
	t.byID[id] = call
	t.label = fmt.Sprintf("Calling tool: %s", name)
}

// ArgsDelta updates the progress label for a call whose arguments are still
// streaming in. No state transition happens here.
func (t *Tracker) ArgsDelta(id string) {
	if call, ok := t.byID[id]; ok {
		t.label = fmt.Sprintf("Building arguments for %s...", call.Name)
	}
}

// ArgsComplete stores the finished arguments and moves the call from
// pending to executing. Frames for unknown ids or calls past pending are
// ignored.
func (t *Tracker) ArgsComplete(id string, args map[string]any) {
	call, ok := t.byID[id]
	if !ok || call.Status != ToolPending {
		return
	}
	call.Args = args
	call.Status = ToolExecuting
	t.label = fmt.Sprintf("Executing %s...", call.Name)
}

// Result stores the call result and marks it completed. A call that never
// saw ArgsComplete moves straight from pending; terminal states are never
// overwritten.
func (t *Tracker) Result(id string, result any) {
	call, ok := t.byID[id]
	if !ok || call.Status == ToolCompleted || call.Status == ToolError {
		return
	}
	call.Result = result
	call.Status = ToolCompleted
	t.label = fmt.Sprintf("%s completed", call.Name)
}

// FailPending marks every call that has not reached a terminal state as
// errored. The assembler calls this when the stream terminates abnormally.
func (t *Tracker) FailPending() {
	for _, call := range t.calls {
		if call.Status == ToolPending || call.Status == ToolExecuting {
			call.Status = ToolError
		}
	}
}

// Progress reports round(100 * completed / total), or 0 with no calls.
// It is recomputed from current state on every invocation.
func (t *Tracker) Progress() int {
	if len(t.calls) == 0 {
		return 0
	}
	completed := 0
	for _, call := range t.calls {
		if call.Status == ToolCompleted {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(t.calls))))
}

// Snapshot returns a copy of the calls in creation order for UI binding.
func (t *Tracker) Snapshot() []ToolCall {
	out := make([]ToolCall, len(t.calls))
	for i, call := range t.calls {
		out[i] = *call
	}
	return out
}

// Len reports the number of tracked calls.
func (t *Tracker) Len() int { return len(t.calls) }

// Label is the human-readable description of the most recent transition.
func (t *Tracker) Label() string { return t.label }
