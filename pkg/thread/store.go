package thread

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cropwise/kisan/pkg/chat"
)

var (
	// ErrEmptyID is returned for operations missing their record id.
	ErrEmptyID = errors.New("thread ID cannot be empty")
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("thread not found")
)

// maxQueries bounds every stored suggestion list.
const maxQueries = 4

// Store is the persistence contract shared by the message assembler, the
// suggestion orchestrator and the HTTP API.
type Store interface {
	// GetAllThreads returns every stored thread, most recently updated first.
	GetAllThreads(ctx context.Context) ([]*Thread, error)
	GetThread(ctx context.Context, id string) (*Thread, error)
	// SaveThread upserts a whole thread record.
	SaveThread(ctx context.Context, t *Thread) error
	SaveThreads(ctx context.Context, threads []*Thread) error
	DeleteThread(ctx context.Context, id string) error
	ClearAllThreads(ctx context.Context) error

	// GetSuggestedQueries returns the record for id, falling back to the
	// DefaultScope record when the specific id is absent.
	GetSuggestedQueries(ctx context.Context, id string) (*SuggestedQueries, error)
	// SaveSuggestedQueries overwrites the record for id. Queries are trimmed,
	// empties dropped, and the list capped at four entries.
	SaveSuggestedQueries(ctx context.Context, queries []string, contextHash, id string) error
	// ClearSuggestedQueries deletes the record for id, or every record when
	// id is empty.
	ClearSuggestedQueries(ctx context.Context, id string) error
}

// sanitizeQueries enforces the stored-list invariants: non-empty after
// trimming, at most four entries.
func sanitizeQueries(queries []string) []string {
	out := make([]string, 0, maxQueries)
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == maxQueries {
			break
		}
	}
	return out
}

// MemoryStore is a map-backed Store for tests and ephemeral runs.
type MemoryStore struct {
	mu          sync.RWMutex
	threads     map[string]*Thread
	suggestions map[string]*SuggestedQueries
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads:     make(map[string]*Thread),
		suggestions: make(map[string]*SuggestedQueries),
	}
}

func (s *MemoryStore) GetAllThreads(_ context.Context) ([]*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]*Thread, 0, len(s.threads))
	for _, t := range s.threads {
		threads = append(threads, copyThread(t))
	}
	sort.Slice(threads, func(i, j int) bool {
		return threads[i].UpdatedAt.After(threads[j].UpdatedAt)
	})
	return threads, nil
}

func (s *MemoryStore) GetThread(_ context.Context, id string) (*Thread, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyThread(t), nil
}

func (s *MemoryStore) SaveThread(_ context.Context, t *Thread) error {
	if t.ID == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads[t.ID] = copyThread(t)
	return nil
}

func (s *MemoryStore) SaveThreads(ctx context.Context, threads []*Thread) error {
	for _, t := range threads {
		if err := s.SaveThread(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) DeleteThread(_ context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[id]; !ok {
		return ErrNotFound
	}
	delete(s.threads, id)
	return nil
}

func (s *MemoryStore) ClearAllThreads(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads = make(map[string]*Thread)
	return nil
}

func (s *MemoryStore) GetSuggestedQueries(_ context.Context, id string) (*SuggestedQueries, error) {
	if id == "" {
		id = DefaultScope
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sq, ok := s.suggestions[id]; ok {
		return copySuggestions(sq), nil
	}
	if id != DefaultScope {
		if sq, ok := s.suggestions[DefaultScope]; ok {
			return copySuggestions(sq), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SaveSuggestedQueries(_ context.Context, queries []string, contextHash, id string) error {
	if id == "" {
		id = DefaultScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.suggestions[id] = &SuggestedQueries{
		ID:          id,
		Queries:     sanitizeQueries(queries),
		LastUpdated: time.Now(),
		ContextHash: contextHash,
	}
	return nil
}

func (s *MemoryStore) ClearSuggestedQueries(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		s.suggestions = make(map[string]*SuggestedQueries)
		return nil
	}
	delete(s.suggestions, id)
	return nil
}

func copyThread(t *Thread) *Thread {
	c := *t
	c.Messages = append([]chat.ChatMessage(nil), t.Messages...)
	return &c
}

func copySuggestions(sq *SuggestedQueries) *SuggestedQueries {
	c := *sq
	c.Queries = append([]string(nil), sq.Queries...)
	return &c
}
