package graph

import (
	"context"
	"sync"
)

// Checkpointer stores the state of each conversation thread.
type Checkpointer interface {
	Get(ctx context.Context, threadID string) (State, bool, error)
	Put(ctx context.Context, threadID string, state State) error
}

// MemorySaver keeps thread state in memory.
//
// MemorySaver is safe for concurrent use by multiple goroutines.
type MemorySaver struct {
	mu      sync.RWMutex
	threads map[string]State
}

// NewMemorySaver returns an empty MemorySaver.
func NewMemorySaver() *MemorySaver {
	return &MemorySaver{threads: make(map[string]State)}
}

// Get returns a copy of the saved state of threadID.
func (m *MemorySaver) Get(_ context.Context, threadID string) (State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.threads[threadID]
	if !ok {
		return State{}, false, nil
	}
	return state.clone(), true, nil
}

// Put replaces the saved state of threadID with a copy of state.
func (m *MemorySaver) Put(_ context.Context, threadID string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.threads[threadID] = state.clone()
	return nil
}

// Threads returns the ids of all saved threads.
func (m *MemorySaver) Threads() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.threads))
	for id := range m.threads {
		ids = append(ids, id)
	}
	return ids
}

// Delete forgets threadID.
func (m *MemorySaver) Delete(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.threads, threadID)
}
