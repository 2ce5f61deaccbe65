package service

import (
	"sync"
	"sync/atomic"

	"fieldservice_backend/internal/pm/repository"

	"github.com/google/uuid"
)

// VisitState holds a tenant's in-memory visit collection, ordered newest
// first. The realtime reconciler is the sole writer; UI-facing readers take
// snapshots. Writers build an updated copy and publish it with a single
// atomic swap, so readers never observe a partially-applied batch.
type VisitState struct {
	visits atomic.Pointer[[]repository.PMVisit]
}

// NewVisitState creates an empty visit collection.
func NewVisitState() *VisitState {
	s := &VisitState{}
	empty := make([]repository.PMVisit, 0)
	s.visits.Store(&empty)
	return s
}

// Snapshot returns the current collection. The returned slice is shared and
// must be treated as immutable by callers.
func (s *VisitState) Snapshot() []repository.PMVisit {
	return *s.visits.Load()
}

// Replace publishes a new collection, making all of its changes visible to
// readers at once.
func (s *VisitState) Replace(visits []repository.PMVisit) {
	s.visits.Store(&visits)
}

// Len returns the current collection size.
func (s *VisitState) Len() int {
	return len(s.Snapshot())
}

// StateRegistry hands out one VisitState per tenant session.
type StateRegistry struct {
	mu     sync.Mutex
	states map[uuid.UUID]*VisitState
}

// NewStateRegistry creates an empty registry.
func NewStateRegistry() *StateRegistry {
	return &StateRegistry{states: make(map[uuid.UUID]*VisitState)}
}

// For returns the tenant's visit state, creating it on first use.
func (r *StateRegistry) For(tenantID uuid.UUID) *VisitState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[tenantID]; ok {
		return st
	}
	st := NewVisitState()
	r.states[tenantID] = st
	return st
}

// Drop releases the tenant's visit state when its session ends.
func (r *StateRegistry) Drop(tenantID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, tenantID)
}
