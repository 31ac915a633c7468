package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cropwise/kisan/pkg/chat"
	"github.com/cropwise/kisan/pkg/suggest"
	"github.com/cropwise/kisan/pkg/thread"
)

type suggestMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// text flattens the content field: plain strings pass through, part
// arrays are kept as their JSON text so keyword and script detection can
// still look inside them.
func (m suggestMessage) text() string {
	var s string
	if json.Unmarshal(m.Content, &s) == nil {
		return s
	}
	return string(m.Content)
}

type suggestedQueriesRequest struct {
	Messages        []suggestMessage      `json:"messages"`
	UserProfile     *chat.UserProfile     `json:"userProfile,omitempty"`
	LocationContext *chat.LocationContext `json:"locationContext,omitempty"`
	ThreadID        string                `json:"threadId,omitempty"`
	Force           bool                  `json:"force,omitempty"`
}

type suggestedQueriesResponse struct {
	SuggestedQueries []string `json:"suggestedQueries"`
	Success          bool     `json:"success"`
	Fallback         bool     `json:"fallback,omitempty"`
	UpstreamStatus   int      `json:"upstreamStatus,omitempty"`
	UpstreamBody     string   `json:"upstreamBody,omitempty"`
}

func (s *Server) postSuggestedQueries(c echo.Context) error {
	var req suggestedQueriesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	if len(req.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no messages provided")
	}

	messages := make([]chat.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, chat.ChatMessage{
			Role:    chat.MessageRole(m.Role),
			Content: m.text(),
		})
	}

	result, err := s.orch.Generate(c.Request().Context(), suggest.Request{
		Messages: messages,
		Profile:  req.UserProfile,
		Location: req.LocationContext,
		ThreadID: req.ThreadID,
		Force:    req.Force,
	})
	if errors.Is(err, suggest.ErrRateLimited) {
		// Carry the heuristic fallback so the UI keeps showing questions
		// even while the upstream cools down.
		resp := resultResponse(result)
		resp.Success = false
		return c.JSON(http.StatusTooManyRequests, resp)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to generate suggestions: %v", err))
	}

	return c.JSON(http.StatusOK, resultResponse(result))
}

func (s *Server) postOnboardingSuggestions(c echo.Context) error {
	var req struct {
		UserProfile     *chat.UserProfile     `json:"userProfile,omitempty"`
		LocationContext *chat.LocationContext `json:"locationContext,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	result, err := s.orch.Bootstrap(c.Request().Context(), req.UserProfile, req.LocationContext)
	if errors.Is(err, suggest.ErrRateLimited) {
		resp := resultResponse(result)
		resp.Success = false
		return c.JSON(http.StatusTooManyRequests, resp)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to bootstrap suggestions: %v", err))
	}

	return c.JSON(http.StatusOK, resultResponse(result))
}

func (s *Server) getSuggestions(c echo.Context) error {
	id := c.Param("id")
	if id == thread.DefaultScope {
		id = ""
	}

	sq, err := s.store.GetSuggestedQueries(c.Request().Context(), id)
	if errors.Is(err, thread.ErrNotFound) {
		return c.JSON(http.StatusOK, suggestedQueriesResponse{SuggestedQueries: []string{}, Success: true})
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to load suggestions: %v", err))
	}

	queries := sq.Queries
	if queries == nil {
		queries = []string{}
	}
	return c.JSON(http.StatusOK, suggestedQueriesResponse{
		SuggestedQueries: queries,
		Success:          true,
	})
}

func resultResponse(result suggest.Result) suggestedQueriesResponse {
	queries := result.Queries
	if queries == nil {
		queries = []string{}
	}
	return suggestedQueriesResponse{
		SuggestedQueries: queries,
		Success:          true,
		Fallback:         result.Fallback,
		UpstreamStatus:   result.UpstreamStatus,
		UpstreamBody:     result.UpstreamBody,
	}
}
