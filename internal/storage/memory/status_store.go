package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// StatusStore holds the latest run state. The zero state is idle.
type StatusStore struct {
	mu    sync.RWMutex
	state creative.RunState
}

// NewStatusStore constructs an idle StatusStore.
func NewStatusStore() *StatusStore {
	return &StatusStore{state: creative.RunState{State: creative.RunIdle}}
}

// Load returns a copy of the current state.
func (s *StatusStore) Load(_ context.Context) (creative.RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone(), nil
}

// Save replaces the current state.
func (s *StatusStore) Save(_ context.Context, state creative.RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	return nil
}
