// Package stream decodes the line-delimited chat wire protocol into typed
// frames and tracks tool invocations through their lifecycle.
//
// The wire format is `prefix:JSON\n` per line. Each known prefix maps to one
// Frame variant; malformed lines and unknown prefixes are skipped so a bad
// line can never abort the rest of the stream.
package stream

// Frame is one decoded unit of the streaming wire protocol. It is a closed
// sum type: consumers dispatch with an exhaustive type switch.
type Frame interface {
	isFrame()
}

// StepID announces the id of the step (or message) the producer is working on.
// Wire prefix "f".
type StepID struct {
	MessageID string `json:"messageId"`
}

func (StepID) isFrame() {}

// ToolCallStart announces a new remote tool invocation.
// Wire prefix "b".
type ToolCallStart struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
}

func (ToolCallStart) isFrame() {}

// ToolArgsDelta carries a partial chunk of a tool call's argument text.
// It never changes call state, only the progress label.
// Wire prefix "c".
type ToolArgsDelta struct {
	ToolCallID    string `json:"toolCallId"`
	ArgsTextDelta string `json:"argsTextDelta"`
}

func (ToolArgsDelta) isFrame() {}

// ToolArgsComplete carries the finished argument object for a tool call.
// Wire prefix "9".
type ToolArgsComplete struct {
	ToolCallID string         `json:"toolCallId"`
	Args       map[string]any `json:"args"`
}

func (ToolArgsComplete) isFrame() {}

// ToolResult carries the result of a completed tool call.
// Wire prefix "a".
type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     any    `json:"result"`
}

func (ToolResult) isFrame() {}

// TextDelta carries a chunk of the assistant's response text.
// Wire prefix "0"; the payload is a bare JSON string literal.
type TextDelta struct {
	Text string
}

func (TextDelta) isFrame() {}

// StepEnd marks the end of one generation step.
// Wire prefix "e".
type StepEnd struct {
	FinishReason string `json:"finishReason"`
}

func (StepEnd) isFrame() {}

// StreamComplete is the expected terminal frame of a response.
// Wire prefix "d".
type StreamComplete struct {
	FinishReason string `json:"finishReason"`
}

func (StreamComplete) isFrame() {}
