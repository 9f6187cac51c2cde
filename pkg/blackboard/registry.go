package blackboard

import (
	"sort"
	"sync"
)

// Registry is the explicit set of boards in the world.
type Registry struct {
	mu     sync.RWMutex
	boards map[string]*Board
}

// NewRegistry creates an empty board registry.
func NewRegistry() *Registry {
	return &Registry{boards: make(map[string]*Board)}
}

// Add registers a board, replacing any board with the same id.
func (r *Registry) Add(b *Board) {
	if b == nil || b.ID() == "" {
		return
	}
	r.mu.Lock()
	r.boards[b.ID()] = b
	r.mu.Unlock()
}

// Remove unregisters a board.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.boards[id]
	delete(r.boards, id)
	return ok
}

// Get returns the board with id.
func (r *Registry) Get(id string) (*Board, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.boards[id]
	return b, ok
}

// All returns the boards sorted by id.
func (r *Registry) All() []*Board {
	r.mu.RLock()
	out := make([]*Board, 0, len(r.boards))
	for _, b := range r.boards {
		out = append(out, b)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ClearAll empties every board but keeps them registered.
func (r *Registry) ClearAll() {
	for _, b := range r.All() {
		b.Clear()
	}
}
