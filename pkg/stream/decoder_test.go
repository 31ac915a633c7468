package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderFeedCompleteLines(t *testing.T) {
	t.Parallel()

	d := NewDecoder()
	frames := d.Feed("f:{\"messageId\":\"msg-1\"}\n0:\"Hello \"\n0:\"world\"\n")

	require.Len(t, frames, 3)
	assert.Equal(t, StepID{MessageID: "msg-1"}, frames[0])
	assert.Equal(t, TextDelta{Text: "Hello "}, frames[1])
	assert.Equal(t, TextDelta{Text: "world"}, frames[2])
}

func TestDecoderFeedSplitAcrossChunks(t *testing.T) {
	t.Parallel()

	d := NewDecoder()

	frames := d.Feed("0:\"Hel")
	assert.Empty(t, frames, "partial line must be held back")

	frames = d.Feed("lo\"\n9:{\"toolCallId\":\"t1\",")
	require.Len(t, frames, 1)
	assert.Equal(t, TextDelta{Text: "Hello"}, frames[0])

	frames = d.Feed("\"args\":{\"crop\":\"onion\"}}\n")
	require.Len(t, frames, 1)
	complete, ok := frames[0].(ToolArgsComplete)
	require.True(t, ok)
	assert.Equal(t, "t1", complete.ToolCallID)
	assert.Equal(t, map[string]any{"crop": "onion"}, complete.Args)
}

func TestDecoderFeedByteAtATime(t *testing.T) {
	t.Parallel()

	wire := "b:{\"toolCallId\":\"t1\",\"toolName\":\"getWeather\"}\nd:{\"finishReason\":\"stop\"}\n"

	d := NewDecoder()
	var frames []Frame
	for _, b := range []byte(wire) {
		frames = append(frames, d.Feed(string(b))...)
	}

	require.Len(t, frames, 2)
	assert.Equal(t, ToolCallStart{ToolCallID: "t1", ToolName: "getWeather"}, frames[0])
	assert.Equal(t, StreamComplete{FinishReason: "stop"}, frames[1])
}

func TestDecoderSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{name: "blank line", line: ""},
		{name: "whitespace only", line: "   "},
		{name: "no colon", line: "garbage"},
		{name: "leading colon", line: ":payload"},
		{name: "unknown prefix", line: "z:{\"x\":1}"},
		{name: "invalid json", line: "0:not-json"},
		{name: "tool start missing name", line: "b:{\"toolCallId\":\"t1\"}"},
		{name: "tool start missing id", line: "b:{\"toolName\":\"getWeather\"}"},
		{name: "args delta missing id", line: "c:{\"argsTextDelta\":\"{\"}"},
		{name: "result missing payload", line: "a:{\"toolCallId\":\"t1\"}"},
		{name: "step missing message id", line: "f:{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := NewDecoder()
			assert.Empty(t, d.Feed(tt.line+"\n"))
		})
	}
}

func TestDecoderMalformedLineDoesNotAbortStream(t *testing.T) {
	t.Parallel()

	d := NewDecoder()
	frames := d.Feed("0:\"a\"\nz:???\n0:not-json\n0:\"b\"\n")

	require.Len(t, frames, 2)
	assert.Equal(t, TextDelta{Text: "a"}, frames[0])
	assert.Equal(t, TextDelta{Text: "b"}, frames[1])
}

func TestDecoderFlushDecodesTrailingLine(t *testing.T) {
	t.Parallel()

	d := NewDecoder()
	assert.Empty(t, d.Feed("e:{\"finishReason\":\"stop\"}"))

	frames := d.Flush()
	require.Len(t, frames, 1)
	assert.Equal(t, StepEnd{FinishReason: "stop"}, frames[0])

	assert.Empty(t, d.Flush(), "flush must clear the carry")
}

func TestDecoderFullExchange(t *testing.T) {
	t.Parallel()

	wire := "f:{\"messageId\":\"m1\"}\n" +
		"b:{\"toolCallId\":\"t1\",\"toolName\":\"getWeather\"}\n" +
		"c:{\"toolCallId\":\"t1\",\"argsTextDelta\":\"{\\\"city\\\":\"}\n" +
		"9:{\"toolCallId\":\"t1\",\"args\":{\"city\":\"Cuttack\"}}\n" +
		"a:{\"toolCallId\":\"t1\",\"result\":{\"temp\":31}}\n" +
		"0:\"Rain expected \"\n" +
		"0:\"tomorrow.\"\n" +
		"e:{\"finishReason\":\"stop\"}\n" +
		"d:{\"finishReason\":\"stop\"}\n"

	d := NewDecoder()
	frames := d.Feed(wire)
	require.Len(t, frames, 9)

	assert.IsType(t, StepID{}, frames[0])
	assert.IsType(t, ToolCallStart{}, frames[1])
	assert.IsType(t, ToolArgsDelta{}, frames[2])
	assert.IsType(t, ToolArgsComplete{}, frames[3])
	assert.IsType(t, ToolResult{}, frames[4])
	assert.IsType(t, TextDelta{}, frames[5])
	assert.IsType(t, TextDelta{}, frames[6])
	assert.IsType(t, StepEnd{}, frames[7])
	assert.IsType(t, StreamComplete{}, frames[8])
}

func TestDecoderPayloadWithColons(t *testing.T) {
	t.Parallel()

	d := NewDecoder()
	frames := d.Feed("0:\"ratio is 2:1, roughly\"\n")

	require.Len(t, frames, 1)
	assert.Equal(t, TextDelta{Text: "ratio is 2:1, roughly"}, frames[0])
}
