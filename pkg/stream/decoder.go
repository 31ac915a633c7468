package stream

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Decoder turns raw transport chunks into frames. The transport may split a
// line across chunks, so the decoder keeps the trailing partial line in a
// carry-over buffer until the rest arrives. Decoding is a pure function of
// the bytes fed plus that carry state: it performs no I/O and surfaces no
// errors, malformed lines are logged and dropped.
type Decoder struct {
	carry string
}

// NewDecoder creates a decoder with an empty carry-over buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the carry-over buffer and returns every frame that
// became complete. The last line is held back when the chunk did not end in
// a newline.
func (d *Decoder) Feed(chunk string) []Frame {
	if chunk == "" {
		return nil
	}

	buf := d.carry + chunk
	lines := strings.Split(buf, "\n")

	// The final element is either "" (chunk ended in a newline) or an
	// incomplete line; either way it becomes the new carry.
	d.carry = lines[len(lines)-1]
	lines = lines[:len(lines)-1]

	var frames []Frame
	for _, line := range lines {
		if frame, ok := decodeLine(line); ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

// Flush decodes whatever remains in the carry-over buffer. Call it when the
// transport closes so a final line without a trailing newline still counts.
func (d *Decoder) Flush() []Frame {
	line := d.carry
	d.carry = ""
	if frame, ok := decodeLine(line); ok {
		return []Frame{frame}
	}
	return nil
}

// decodeLine maps one wire line to a frame. It reports false for blank
// lines, lines without a prefix, unknown prefixes, unparsable JSON and
// payloads missing their required fields.
func decodeLine(line string) (Frame, bool) {
	if strings.TrimSpace(line) == "" {
		return nil, false
	}

	colon := strings.Index(line, ":")
	if colon <= 0 {
		slog.Debug("Skipping wire line without prefix", "line", line)
		return nil, false
	}
	prefix := line[:colon]
	payload := line[colon+1:]

	switch prefix {
	case "f":
		var f StepID
		if err := json.Unmarshal([]byte(payload), &f); err != nil || f.MessageID == "" {
			return skip(prefix, payload, err)
		}
		return f, true
	case "b":
		var f ToolCallStart
		if err := json.Unmarshal([]byte(payload), &f); err != nil || f.ToolCallID == "" || f.ToolName == "" {
			return skip(prefix, payload, err)
		}
		return f, true
	case "c":
		var f ToolArgsDelta
		if err := json.Unmarshal([]byte(payload), &f); err != nil || f.ToolCallID == "" {
			return skip(prefix, payload, err)
		}
		return f, true
	case "9":
		var f ToolArgsComplete
		if err := json.Unmarshal([]byte(payload), &f); err != nil || f.ToolCallID == "" {
			return skip(prefix, payload, err)
		}
		return f, true
	case "a":
		var f ToolResult
		if err := json.Unmarshal([]byte(payload), &f); err != nil || f.ToolCallID == "" || f.Result == nil {
			return skip(prefix, payload, err)
		}
		return f, true
	case "0":
		// Payload is a bare JSON string literal.
		var text string
		if err := json.Unmarshal([]byte(payload), &text); err != nil {
			return skip(prefix, payload, err)
		}
		return TextDelta{Text: text}, true
	case "e":
		var f StepEnd
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			return skip(prefix, payload, err)
		}
		return f, true
	case "d":
		var f StreamComplete
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			return skip(prefix, payload, err)
		}
		return f, true
	default:
		// Unknown prefixes are ignored for forward compatibility.
		return nil, false
	}
}

func skip(prefix, payload string, err error) (Frame, bool) {
	slog.Debug("Skipping malformed wire line", "prefix", prefix, "payload", payload, "error", err)
	return nil, false
}
