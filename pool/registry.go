package pool

import "sync"

// registry is the concurrency-safe set of live session records. It is
// the only shared mutable structure in the pool; records enter via
// insert and leave via remove/removeAll, never changing in place.
// Iteration works on snapshots, so concurrent mutation never invalidates
// an in-flight scan.
type registry struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

func newRegistry() *registry {
	return &registry{sessions: make(map[*Session]struct{})}
}

func (r *registry) insert(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s] = struct{}{}
}

func (r *registry) remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s)
}

// removeAll deletes a batch of records in one critical section, so bulk
// teardown callers pay for the lock once.
func (r *registry) removeAll(list []*Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range list {
		delete(r.sessions, s)
	}
}

// snapshot returns a copied slice of the current records. The copy is
// safe to iterate while other workers mutate the registry.
func (r *registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
