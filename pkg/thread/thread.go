// Package thread persists chat threads and suggested-query records. Storage
// is keyed by logical id with whole-record overwrite semantics: no partial
// merges, no cross-record transactions, last writer wins.
package thread

import (
	"time"

	"github.com/google/uuid"

	"github.com/cropwise/kisan/pkg/chat"
)

// DefaultScope is the reserved suggestion-storage id for the
// non-thread-specific, always-available view (e.g. a landing page).
const DefaultScope = "global"

// DefaultTitle is used for threads whose first message carries no text.
const DefaultTitle = "New Chat"

// titleLimit caps derived titles before the ellipsis is appended.
const titleLimit = 50

// Thread is a persisted, titled sequence of messages. A thread with zero
// messages is never persisted; its id may exist in memory before the thread
// exists in storage.
type Thread struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Messages  []chat.ChatMessage `json:"messages"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// SuggestedQueries is a bounded list of follow-up questions stored per
// thread or under DefaultScope. ContextHash fingerprints the conversation
// the queries were generated from.
type SuggestedQueries struct {
	ID          string    `json:"id"`
	Queries     []string  `json:"queries"`
	LastUpdated time.Time `json:"lastUpdated"`
	ContextHash string    `json:"contextHash"`
}

// NewThreadID mints a fresh thread id. The id is opaque to every consumer.
func NewThreadID() string {
	return uuid.New().String()
}

// DeriveTitle builds a thread title from the first user message's content:
// truncated to 50 runes plus an ellipsis, or DefaultTitle when empty.
func DeriveTitle(content string) string {
	if content == "" {
		return DefaultTitle
	}
	runes := []rune(content)
	if len(runes) > titleLimit {
		return string(runes[:titleLimit]) + "..."
	}
	return content
}
