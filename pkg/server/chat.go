package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cropwise/kisan/pkg/chat"
)

// proxyMessage keeps the wire shape loose: clients send content either as
// a plain string or as a part array, and both must pass through intact.
type proxyMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	ID      string          `json:"id,omitempty"`
}

type chatProxyRequest struct {
	Messages    []proxyMessage    `json:"messages"`
	UserContext *chat.UserContext `json:"userContext,omitempty"`
}

// postChat enriches the conversation with the USER CONTEXT system message
// and streams the agent's reply through unmodified, flushing per chunk so
// the client sees tokens as they arrive.
func (s *Server) postChat(c echo.Context) error {
	var req chatProxyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	if len(req.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no messages provided")
	}

	messages := req.Messages
	if req.UserContext != nil && !req.UserContext.IsZero() {
		messages = injectUserContext(messages, req.UserContext.SystemMessage())
	}

	payload, err := json.Marshal(map[string]any{"messages": messages})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal upstream payload: %v", err))
	}

	upstream, err := http.NewRequestWithContext(c.Request().Context(), http.MethodPost, s.agentEndpoint, bytes.NewReader(payload))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to build upstream request: %v", err))
	}
	upstream.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(upstream)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("agent unreachable: %v", err))
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		c.Response().Header().Set("Content-Type", ct)
	}
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().WriteHeader(resp.StatusCode)

	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := c.Response().Write(buf[:n]); werr != nil {
				return nil
			}
			c.Response().Flush()
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return nil
		}
	}
}

// injectUserContext replaces a previously injected USER CONTEXT system
// message or prepends a fresh one.
func injectUserContext(messages []proxyMessage, systemContent string) []proxyMessage {
	encoded, _ := json.Marshal(systemContent)

	for i, m := range messages {
		if m.Role != string(chat.MessageRoleSystem) {
			continue
		}
		var content string
		if json.Unmarshal(m.Content, &content) == nil && strings.HasPrefix(content, chat.UserContextPrefix) {
			out := make([]proxyMessage, len(messages))
			copy(out, messages)
			out[i].Content = encoded
			return out
		}
	}

	out := make([]proxyMessage, 0, len(messages)+1)
	out = append(out, proxyMessage{Role: string(chat.MessageRoleSystem), Content: encoded})
	return append(out, messages...)
}
