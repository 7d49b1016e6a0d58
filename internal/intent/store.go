package intent

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by stores when no intent exists for an id.
var ErrNotFound = errors.New("payment intent not found")

// Store abstracts intent persistence so the service can be tested in
// isolation and swapped onto a durable backend later.
type Store interface {
	Get(ctx context.Context, id string) (Intent, error)
	Insert(ctx context.Context, in Intent) error
	Update(ctx context.Context, in Intent) error
}

// MemoryStore keeps intents in a process-local map.
type MemoryStore struct {
	mu      sync.RWMutex
	intents map[string]Intent
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{intents: make(map[string]Intent)}
}

// Get returns the intent for id or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.intents[id]
	if !ok {
		return Intent{}, ErrNotFound
	}
	return in, nil
}

// Insert stores a freshly created intent.
func (s *MemoryStore) Insert(_ context.Context, in Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.intents[in.ID]; exists {
		return errors.New("duplicate intent id")
	}
	s.intents[in.ID] = in
	return nil
}

// Update replaces the stored record for an existing intent.
func (s *MemoryStore) Update(_ context.Context, in Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.intents[in.ID]; !exists {
		return ErrNotFound
	}
	s.intents[in.ID] = in
	return nil
}
