package thread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cropwise/kisan/pkg/chat"
)

// saveDebounce coalesces bursts of updates into a single write.
const saveDebounce = 100 * time.Millisecond

// Coordinator manages the active thread lifecycle on top of a Store.
// Threads are materialized lazily: a new thread id exists only in memory
// until its first message arrives, so abandoned empty threads never hit
// the store.
type Coordinator struct {
	store Store

	mu      sync.Mutex
	current *Thread
	dirty   bool
	timer   *time.Timer
}

func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store}
}

// NewThread starts a fresh in-memory thread and returns its id. Nothing
// is persisted until the thread receives its first message.
func (c *Coordinator) NewThread() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.current = &Thread{
		ID:        NewThreadID(),
		Title:     DefaultTitle,
		Messages:  []chat.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.dirty = false
	return c.current.ID
}

// SwitchTo loads an existing thread from the store and makes it current.
func (c *Coordinator) SwitchTo(ctx context.Context, id string) (*Thread, error) {
	t, err := c.store.GetThread(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
	c.dirty = false
	return copyThread(t), nil
}

// Current returns a copy of the active thread, or nil if none.
func (c *Coordinator) Current() *Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return copyThread(c.current)
}

// Append adds a message to the current thread (creating one on demand),
// re-derives the title from the first user message, restamps UpdatedAt
// and schedules a debounced save.
func (c *Coordinator) Append(msg chat.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		now := time.Now()
		c.current = &Thread{
			ID:        NewThreadID(),
			Title:     DefaultTitle,
			Messages:  []chat.ChatMessage{},
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	c.current.Messages = append(c.current.Messages, msg)
	c.current.UpdatedAt = time.Now()
	if first := firstUserText(c.current.Messages); first != "" {
		c.current.Title = DeriveTitle(first)
	}
	c.markDirtyLocked()
}

// ReplaceMessages swaps the current thread's full message list, used when
// a streaming response finalizes and rewrites the assistant placeholder.
func (c *Coordinator) ReplaceMessages(messages []chat.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return
	}

	c.current.Messages = make([]chat.ChatMessage, len(messages))
	copy(c.current.Messages, messages)
	c.current.UpdatedAt = time.Now()
	if first := firstUserText(c.current.Messages); first != "" {
		c.current.Title = DeriveTitle(first)
	}
	c.markDirtyLocked()
}

// markDirtyLocked arms the debounce timer. Threads with no messages are
// never scheduled: they only exist in memory.
func (c *Coordinator) markDirtyLocked() {
	if len(c.current.Messages) == 0 {
		return
	}
	c.dirty = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(saveDebounce, func() {
		if err := c.Flush(context.Background()); err != nil {
			slog.Error("Failed to persist thread", "error", err)
		}
	})
}

// Flush writes the current thread immediately if it has unsaved changes.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	if !c.dirty || c.current == nil {
		c.mu.Unlock()
		return nil
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	snapshot := copyThread(c.current)
	c.dirty = false
	c.mu.Unlock()

	if err := c.store.SaveThread(ctx, snapshot); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return err
	}
	return nil
}

// Delete removes a thread from the store; if it was current, the
// coordinator resets to no active thread.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if err := c.store.DeleteThread(ctx, id); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.ID == id {
		c.current = nil
		c.dirty = false
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
	}
	return nil
}

// ExportThreads returns every stored thread, most recently updated first.
func (c *Coordinator) ExportThreads(ctx context.Context) ([]*Thread, error) {
	if err := c.Flush(ctx); err != nil {
		return nil, err
	}
	return c.store.GetAllThreads(ctx)
}

// ImportThreads validates and persists a batch of threads, typically from
// an export taken on another device. Threads without an id or with no
// messages are rejected.
func (c *Coordinator) ImportThreads(ctx context.Context, threads []*Thread) error {
	for i, t := range threads {
		if t == nil || t.ID == "" {
			return fmt.Errorf("thread %d: %w", i, ErrEmptyID)
		}
		if len(t.Messages) == 0 {
			return fmt.Errorf("thread %d (%s): %w", i, t.ID, errors.New("no messages"))
		}
		if t.Title == "" {
			if first := firstUserText(t.Messages); first != "" {
				t.Title = DeriveTitle(first)
			} else {
				t.Title = DefaultTitle
			}
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now()
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
	}
	return c.store.SaveThreads(ctx, threads)
}

func firstUserText(messages []chat.ChatMessage) string {
	for _, m := range messages {
		if m.Role == chat.MessageRoleUser && m.Content != "" {
			return m.Content
		}
	}
	return ""
}
