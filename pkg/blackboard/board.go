package blackboard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/vigil/pkg/event"
)

// Board is a capacity and TTL bounded entry store bound to a location.
// Safe for concurrent use.
type Board struct {
	id       string
	position event.Vec3
	capacity int
	ttl      TTL

	mu      sync.Mutex
	entries []Entry // oldest first
}

// NewBoard creates a board at position.
func NewBoard(id string, position event.Vec3, opts Options) *Board {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	return &Board{
		id:       id,
		position: position,
		capacity: opts.Capacity,
		ttl:      opts.TTL.withDefaults(),
	}
}

func (b *Board) ID() string {
	return b.id
}

func (b *Board) Position() event.Vec3 {
	return b.position
}

// Add stamps the entry with now, appends it, prunes expired entries and
// trims the oldest ones beyond capacity. Returns the stored entry.
func (b *Board) Add(e Entry, now time.Duration) Entry {
	e.At = now
	if e.SourceID == "" {
		e.SourceID = uuid.New().String()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, e)
	b.pruneLocked(now)
	if over := len(b.entries) - b.capacity; over > 0 {
		b.entries = append([]Entry(nil), b.entries[over:]...)
	}
	return e
}

// Entries prunes expired entries and returns a copy of the rest, oldest first.
func (b *Board) Entries(now time.Duration) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneLocked(now)
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of stored entries without pruning.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Clear drops every entry.
func (b *Board) Clear() {
	b.mu.Lock()
	b.entries = nil
	b.mu.Unlock()
}

// pruneLocked removes entries whose age reached their category TTL.
func (b *Board) pruneLocked(now time.Duration) {
	keep := b.entries[:0]
	for _, e := range b.entries {
		if now-e.At < b.ttl.For(e.Category) {
			keep = append(keep, e)
		}
	}
	for i := len(keep); i < len(b.entries); i++ {
		b.entries[i] = Entry{}
	}
	b.entries = keep
}
