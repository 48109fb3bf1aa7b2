package game

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks the live matches hosted by this process. Completed matches
// are removed once their end callback has run; their records live on in the
// database and their action history in Redis.
type Registry struct {
	mu      sync.RWMutex
	matches map[uuid.UUID]*UnoMatch
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{matches: make(map[uuid.UUID]*UnoMatch)}
}

// Add registers a match.
func (r *Registry) Add(g *UnoMatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[g.ID] = g
}

// Get returns the live match with the given ID, if hosted here.
func (r *Registry) Get(id uuid.UUID) (*UnoMatch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.matches[id]
	return g, ok
}

// Remove drops a match from the registry.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.matches, id)
}

// Len reports how many matches are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}
