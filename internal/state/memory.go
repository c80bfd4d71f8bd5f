package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and standalone runs.
type MemoryStore struct {
	mu      sync.RWMutex
	states  map[string]string
	history map[string][]Sample
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:  make(map[string]string),
		history: make(map[string][]Sample),
	}
}

// SetState records an entity's current value.
func (s *MemoryStore) SetState(id, value string) {
	s.mu.Lock()
	s.states[id] = value
	s.mu.Unlock()
}

// AddSample appends a history sample for an entity.
func (s *MemoryStore) AddSample(id string, at time.Time, value float64) {
	s.mu.Lock()
	s.history[id] = append(s.history[id], Sample{At: at, Value: value})
	s.mu.Unlock()
}

// GetState implements Store.
func (s *MemoryStore) GetState(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.states[id]
	if !ok {
		return "", &NotFoundError{ID: id}
	}
	return val, nil
}

// GetHistory implements Store.
func (s *MemoryStore) GetHistory(_ context.Context, id string, start, end time.Time) ([]Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Sample
	for _, sample := range s.history[id] {
		if !sample.At.Before(start) && !sample.At.After(end) {
			out = append(out, sample)
		}
	}
	return out, nil
}
