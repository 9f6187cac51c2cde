// Package registry holds the explicit list of simulated actors. Components
// look actors up here instead of discovering them through the scene.
package registry

import (
	"sort"
	"sync"

	"github.com/dyluth/vigil/pkg/event"
)

// Well-known roles.
const (
	RolePlayer       = "player"
	RoleCitizen      = "citizen"
	RoleInvestigator = "investigator"
)

// Actor is a registered simulated entity.
type Actor struct {
	ID           string
	Role         string
	Position     event.Vec3
	Forward      event.Vec3
	Investigator bool
}

// IsInvestigator reports whether the actor adjudicates rather than witnesses.
func (a Actor) IsInvestigator() bool {
	return a.Investigator || a.Role == RoleInvestigator
}

// Registry is a concurrency-safe actor table.
type Registry struct {
	mu        sync.RWMutex
	actors    map[string]Actor
	listeners []func()
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{actors: make(map[string]Actor)}
}

// OnChange registers fn to run after every register or unregister.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Register adds or replaces an actor. Actors without an id are ignored.
func (r *Registry) Register(a Actor) bool {
	if a.ID == "" {
		return false
	}
	r.mu.Lock()
	r.actors[a.ID] = a
	r.mu.Unlock()
	r.notify()
	return true
}

// Unregister removes an actor. Returns false when it was not registered.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	_, ok := r.actors[id]
	delete(r.actors, id)
	r.mu.Unlock()
	if ok {
		r.notify()
	}
	return ok
}

// Get returns the actor with id.
func (r *Registry) Get(id string) (Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[id]
	return a, ok
}

// SetPose updates position and facing. A zero forward keeps the previous one.
func (r *Registry) SetPose(id string, position, forward event.Vec3) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[id]
	if !ok {
		return false
	}
	a.Position = position
	if !forward.IsZero() {
		a.Forward = forward
	}
	r.actors[id] = a
	return true
}

// All returns every actor sorted by id.
func (r *Registry) All() []Actor {
	r.mu.RLock()
	out := make([]Actor, 0, len(r.actors))
	for _, a := range r.actors {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered actors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actors)
}

func (r *Registry) notify() {
	r.mu.RLock()
	listeners := make([]func(), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}
