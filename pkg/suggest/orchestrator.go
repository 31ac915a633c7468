package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cropwise/kisan/pkg/chat"
	"github.com/cropwise/kisan/pkg/thread"
)

// Request describes one suggestion generation run.
type Request struct {
	Messages []chat.ChatMessage
	Profile  *chat.UserProfile
	Location *chat.LocationContext
	// ThreadID scopes persistence; empty means the default scope.
	ThreadID string
	// Force bypasses the context-hash staleness check.
	Force bool
}

// Result is what a generation run produced. Queries may come from the
// upstream model or, when Fallback is set, from the keyword heuristic.
type Result struct {
	Queries  []string
	Fallback bool
	// Skipped is set when the run was elided: a run for the same scope
	// was already in flight, or the conversation fingerprint matched the
	// stored one.
	Skipped bool
	// UpstreamStatus and UpstreamBody carry diagnostics when the
	// upstream failed after retries.
	UpstreamStatus int
	UpstreamBody   string
	ContextHash    string

	err error
}

// Orchestrator runs the suggestion pipeline: guard, staleness check,
// upstream completion with retries, parsing, heuristic fallback and
// persistence. At most one run per scope is in flight; concurrent
// requests for the same scope are skipped, not queued.
type Orchestrator struct {
	completer Completer
	store     thread.Store

	// locationFn supplies a location when the request carries none.
	locationFn func() *chat.LocationContext

	inflight sync.Map
}

type Option func(*Orchestrator)

// WithLocationSource registers a callback that provides the current farm
// location for requests that do not include one.
func WithLocationSource(fn func() *chat.LocationContext) Option {
	return func(o *Orchestrator) { o.locationFn = fn }
}

func NewOrchestrator(completer Completer, store thread.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{completer: completer, store: store}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate runs the pipeline for one conversation. It never panics and
// never returns more than four queries. The only error callers need to
// branch on is ErrRateLimited, and even then the result carries heuristic
// fallback queries; every other upstream failure is absorbed into a
// heuristic fallback result carrying the diagnostics.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (Result, error) {
	if len(req.Messages) == 0 {
		return Result{}, nil
	}
	if !hasRolePair(req.Messages) {
		slog.Debug("Insufficient context for suggestions", "messages", len(req.Messages))
		return Result{Fallback: true}, nil
	}

	scope := req.ThreadID
	if scope == "" {
		scope = thread.DefaultScope
	}
	if _, loaded := o.inflight.LoadOrStore(scope, struct{}{}); loaded {
		slog.Debug("Suggestion run already in flight", "scope", scope)
		return Result{Skipped: true}, nil
	}
	defer o.inflight.Delete(scope)

	hash := ContextHash(req.Messages)
	if !req.Force && o.isFresh(ctx, scope, hash) {
		slog.Debug("Suggestions up to date", "scope", scope, "hash", hash)
		return Result{Skipped: true, ContextHash: hash}, nil
	}

	if req.Location == nil && o.locationFn != nil {
		req.Location = o.locationFn()
	}

	result := o.generate(ctx, req)
	result.ContextHash = hash
	if errors.Is(result.err, ErrRateLimited) {
		return result, result.err
	}

	if len(result.Queries) > 0 {
		o.persist(ctx, result.Queries, hash, scope)
	}
	return result, nil
}

// generate calls the upstream and falls back to the heuristic whenever it
// yields nothing usable.
func (o *Orchestrator) generate(ctx context.Context, req Request) Result {
	systemPrompt := buildSystemPrompt(req.Profile, req.Location)
	userPrompt := fmt.Sprintf("Context:\n%s\n\nJSON array:", buildConversationContext(req.Messages))

	content, err := o.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			// Surfaced as an error so callers can report the rate limit,
			// but the UI still gets something to show.
			return Result{Queries: o.heuristic(req.Messages), Fallback: true, err: err}
		}
		res := Result{Fallback: true, err: err}
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) {
			res.UpstreamStatus = upstreamErr.Status
			res.UpstreamBody = upstreamErr.Body
		}
		slog.Warn("Suggestion upstream failed, using heuristic", "error", err)
		res.Queries = o.heuristic(req.Messages)
		return res
	}

	queries := Parse(content)
	if len(queries) == 0 {
		slog.Debug("No queries parsed from completion, using heuristic")
		return Result{Queries: o.heuristic(req.Messages), Fallback: true}
	}
	return Result{Queries: queries}
}

func (o *Orchestrator) heuristic(messages []chat.ChatMessage) []string {
	assistant, _ := chat.LastByRole(messages, chat.MessageRoleAssistant)
	user, _ := chat.LastByRole(messages, chat.MessageRoleUser)
	return Heuristic(assistant.Content, user.Content)
}

// isFresh reports whether stored suggestions for scope already cover this
// conversation fingerprint.
func (o *Orchestrator) isFresh(ctx context.Context, scope, hash string) bool {
	stored, err := o.store.GetSuggestedQueries(ctx, scope)
	if err != nil {
		return false
	}
	return stored.ContextHash == hash && len(stored.Queries) > 0
}

// persist saves to the thread scope and mirrors to the default scope so
// the home surface always has something current to show.
func (o *Orchestrator) persist(ctx context.Context, queries []string, hash, scope string) {
	if err := o.store.SaveSuggestedQueries(ctx, queries, hash, scope); err != nil {
		slog.Error("Failed to save suggested queries", "scope", scope, "error", err)
	}
	if scope != thread.DefaultScope {
		if err := o.store.SaveSuggestedQueries(ctx, queries, hash, thread.DefaultScope); err != nil {
			slog.Error("Failed to mirror suggested queries", "error", err)
		}
	}
}

func hasRolePair(messages []chat.ChatMessage) bool {
	if len(messages) < 2 {
		return false
	}
	var user, assistant bool
	for _, m := range messages {
		switch m.Role {
		case chat.MessageRoleUser:
			user = true
		case chat.MessageRoleAssistant:
			assistant = true
		}
	}
	return user && assistant
}
