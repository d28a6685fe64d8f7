package session

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process. Records are copied on the way in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		locks:   make(map[string]chan struct{}),
	}
}

func (s *MemoryStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return ErrExists
	}
	s.records[rec.ID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return ErrNotFound
	}
	s.records[rec.ID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)

	s.locksMu.Lock()
	delete(s.locks, id)
	s.locksMu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Lock uses a one slot channel per id so waiting can be abandoned when ctx ends
func (s *MemoryStore) Lock(ctx context.Context, id string) (func(), error) {
	s.locksMu.Lock()
	sem, ok := s.locks[id]
	if !ok {
		sem = make(chan struct{}, 1)
		s.locks[id] = sem
	}
	s.locksMu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-sem })
	}, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
