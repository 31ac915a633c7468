package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/cropwise/kisan/pkg/chat"
	"github.com/cropwise/kisan/pkg/stream"
)

// ErrSuperseded is returned when a read loop detects that a newer request
// generation replaced it. The loop stops without mutating state further.
var ErrSuperseded = errors.New("request superseded by a newer generation")

const readBufferSize = 4096

// Request is one chat submission: the full conversation so far plus an
// optional flat profile/location object forwarded to the agent.
type Request struct {
	Messages    []chat.ChatMessage
	UserContext map[string]any
}

// Client streams a chat request against the agent endpoint, feeding the
// decoded frames into an assembler.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a chat client for the given agent endpoint.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// StreamOption configures one Stream call.
type StreamOption func(*streamOptions)

type streamOptions struct {
	gen   *Generation
	myGen int64
}

// WithGeneration ties the read loop to a generation token. The loop checks
// for staleness after every suspension point and abandons itself when a
// newer generation has started.
func WithGeneration(g *Generation, gen int64) StreamOption {
	return func(o *streamOptions) {
		o.gen = g
		o.myGen = gen
	}
}

// Stream submits the request and consumes the response stream to
// completion. It returns the assembled assistant message, or a synthetic
// error message when the transport fails. The returned message is nil only
// when the stream produced nothing, or when the loop was superseded.
func (c *Client) Stream(ctx context.Context, req Request, asm *Assembler, opts ...StreamOption) (*chat.ChatMessage, error) {
	var o streamOptions
	for _, opt := range opts {
		opt(&o)
	}

	asm.Begin()

	body, err := json.Marshal(buildPayload(req))
	if err != nil {
		return asm.Fail(err), err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return asm.Fail(err), err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return asm.Fail(err), err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("chat request failed: HTTP %d", resp.StatusCode)
		return asm.Fail(err), err
	}

	decoder := stream.NewDecoder()
	buf := make([]byte, readBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)

		if o.stale() {
			slog.Debug("Abandoning superseded stream read loop")
			return nil, ErrSuperseded
		}

		if n > 0 {
			for _, frame := range decoder.Feed(string(buf[:n])) {
				asm.Apply(frame)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				// Transport closed; a trailing line without a newline still
				// counts, and the assembler's safety net handles a missing
				// completion frame.
				for _, frame := range decoder.Flush() {
					asm.Apply(frame)
				}
				return asm.Finish(), nil
			}
			return asm.Fail(readErr), readErr
		}
	}
}

func (o *streamOptions) stale() bool {
	return o.gen != nil && o.gen.IsStale(o.myGen)
}

// wireMessage is the agent API's message shape. User messages with image
// parts use a content array; everything else sends a plain string.
type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type wireContentPart struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

type chatPayload struct {
	Messages    []wireMessage  `json:"messages"`
	UserContext map[string]any `json:"userContext,omitempty"`
}

func buildPayload(req Request) chatPayload {
	messages := make([]wireMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role != chat.MessageRoleUser {
			messages = append(messages, wireMessage{Role: string(msg.Role), Content: msg.Content})
			continue
		}

		var content []wireContentPart
		for _, part := range msg.Parts {
			switch part.Type {
			case chat.PartTypeText:
				if part.Text != "" {
					content = append(content, wireContentPart{Type: "text", Text: part.Text})
				}
			case chat.PartTypeImage:
				if part.ImageData != "" && part.ImageType != "" {
					content = append(content, wireContentPart{
						Type:  "image",
						Image: fmt.Sprintf("data:%s;base64,%s", part.ImageType, part.ImageData),
					})
				}
			}
		}

		switch {
		case len(content) == 1 && content[0].Type == "text":
			messages = append(messages, wireMessage{Role: "user", Content: content[0].Text})
		case len(content) > 0:
			messages = append(messages, wireMessage{Role: "user", Content: content})
		default:
			messages = append(messages, wireMessage{Role: "user", Content: msg.Content})
		}
	}
	return chatPayload{Messages: messages, UserContext: req.UserContext}
}
