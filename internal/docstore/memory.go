package docstore

import (
	"context"
	"sync"
)

// Compile-time check that MemoryStore satisfies Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps documents in process memory. It is used by tests and by
// ephemeral deployments (STORE_BACKEND=memory).
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]Document
	hub    *watchHub
	writes int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]Document),
		hub:  newWatchHub(),
	}
}

func (s *MemoryStore) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[path]
	if !ok {
		return Snapshot{Path: path}, nil
	}
	return Snapshot{Path: path, Exists: true, Data: CloneDocument(doc)}, nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, doc Document, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	existing, ok := s.docs[path]
	if merge && ok {
		MergeInto(existing, doc)
	} else {
		s.docs[path] = CloneDocument(doc)
		if s.docs[path] == nil {
			s.docs[path] = Document{}
		}
	}
	s.writes++
	s.mu.Unlock()

	s.hub.changed(path)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, path string, updates []Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	existing, ok := s.docs[path]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}

	// Apply to a copy so a bad path leaves the stored document untouched.
	next := CloneDocument(existing)
	if err := ApplyUpdates(next, updates); err != nil {
		s.mu.Unlock()
		return err
	}
	s.docs[path] = next
	s.writes++
	s.mu.Unlock()

	s.hub.changed(path)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, path string, onChange func(Snapshot), onError func(error)) func() {
	return s.hub.watch(ctx, path, s.Get, onChange, onError)
}

// Writes reports how many successful Set and Update calls the store has seen.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *MemoryStore) Close() error {
	return nil
}
