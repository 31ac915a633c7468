// Package runtime drives one chat request end to end: it applies decoded
// frames to streaming state, tracks tool invocations, and assembles the
// finished assistant message deterministically whether or not the stream's
// completion marker ever arrives.
package runtime

import (
	"fmt"
	"strings"

	"github.com/cropwise/kisan/pkg/chat"
	"github.com/cropwise/kisan/pkg/stream"
)

// StreamingState is a snapshot of an in-flight request for UI binding.
// Exactly one exists per request.
type StreamingState struct {
	CurrentStep   string             `json:"currentStep"`
	ToolCalls     []stream.ToolCall  `json:"toolCalls"`
	FinalResponse string             `json:"finalResponse"`
	Status        chat.RequestStatus `json:"requestStatus"`
}

// Assembler accumulates text and tool frames into a finished message and
// owns the request status. All mutation happens on sequential callback
// invocations, so it needs no locking.
type Assembler struct {
	status   chat.RequestStatus
	label    string
	tracker  *stream.Tracker
	final    strings.Builder
	sawFrame bool
}

// NewAssembler creates an idle assembler.
func NewAssembler() *Assembler {
	return &Assembler{status: chat.StatusIdle, tracker: stream.NewTracker()}
}

// Begin resets all streaming state for a freshly submitted request.
func (a *Assembler) Begin() {
	a.status = chat.StatusSubmitted
	a.label = "Connecting..."
	a.tracker = stream.NewTracker()
	a.final.Reset()
	a.sawFrame = false
}

// Apply folds one decoded frame into the state. The first frame of a
// request flips the status to streaming.
func (a *Assembler) Apply(frame stream.Frame) {
	if !a.sawFrame {
		a.sawFrame = true
		if a.status == chat.StatusSubmitted {
			a.status = chat.StatusStreaming
		}
	}

	switch f := frame.(type) {
	case stream.StepID:
		a.label = fmt.Sprintf("Step: %s", f.MessageID)
	case stream.ToolCallStart:
		a.tracker.Start(f.ToolCallID, f.ToolName)
		a.label = a.tracker.Label()
	case stream.ToolArgsDelta:
		a.tracker.ArgsDelta(f.ToolCallID)
		a.label = a.tracker.Label()
	case stream.ToolArgsComplete:
		a.tracker.ArgsComplete(f.ToolCallID, f.Args)
		a.label = a.tracker.Label()
	case stream.ToolResult:
		a.tracker.Result(f.ToolCallID, f.Result)
		a.label = a.tracker.Label()
	case stream.TextDelta:
		a.final.WriteString(f.Text)
		a.label = "Generating response..."
	case stream.StepEnd:
		a.label = fmt.Sprintf("Step finished: %s", f.FinishReason)
	case stream.StreamComplete:
		a.label = "Complete!"
		a.status = chat.StatusIdle
	}
}

// Finish finalizes the request. It is the safety net for transports that
// close without a completion frame: the status always ends at idle and the
// UI is never left loading. The assembled message is nil when the stream
// produced neither text nor tool calls.
//
// Message parts are ordered deterministically: one tool-call part per
// tracked call in creation order, each followed by its tool-result part if
// the call completed, then a single text part when any text accumulated.
func (a *Assembler) Finish() *chat.ChatMessage {
	a.status = chat.StatusIdle

	text := a.final.String()
	calls := a.tracker.Snapshot()
	if strings.TrimSpace(text) == "" && len(calls) == 0 {
		return nil
	}

	var parts []chat.MessagePart
	for _, call := range calls {
		parts = append(parts, chat.ToolCallPart(call.ID, call.Name, call.Args))
		if call.Status == stream.ToolCompleted {
			parts = append(parts, chat.ToolResultPart(call.ID, call.Result))
		}
	}
	if strings.TrimSpace(text) != "" {
		parts = append(parts, chat.TextPart(text))
	}

	msg := chat.NewAssistantMessage(text, parts...)
	return &msg
}

// Fail records a transport failure that happened before or during
// streaming. Calls still in flight are marked errored, and a synthetic
// assistant message carrying the error text is returned for the thread.
func (a *Assembler) Fail(err error) *chat.ChatMessage {
	a.status = chat.StatusError
	a.label = "Error"
	a.tracker.FailPending()

	content := fmt.Sprintf("Error: %v", err)
	msg := chat.NewAssistantMessage(content)
	return &msg
}

// State returns a point-in-time snapshot for UI binding.
func (a *Assembler) State() StreamingState {
	return StreamingState{
		CurrentStep:   a.label,
		ToolCalls:     a.tracker.Snapshot(),
		FinalResponse: a.final.String(),
		Status:        a.status,
	}
}

// Status reports the current request status.
func (a *Assembler) Status() chat.RequestStatus { return a.status }

// Progress reports the tool-call completion percentage.
func (a *Assembler) Progress() int { return a.tracker.Progress() }
