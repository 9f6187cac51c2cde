package blackboard

import (
	"time"

	"github.com/dyluth/vigil/pkg/event"
)

// Entry is one remembered fact on a board.
// Entries are values; a board never modifies an entry after insertion.
type Entry struct {
	At       time.Duration  `json:"at"`        // Insertion time, stamped by the board
	Text     string         `json:"text"`      // Human-readable summary
	ActorID  string         `json:"actor_id"`  // Who the entry is about
	Topic    string         `json:"topic"`     // Rule or subject, used for topic cooldowns
	RuleID   string         `json:"rule_id"`   // Rule the entry concerns, if any
	Category event.Category `json:"category"`  // Category of the originating event
	Severity int            `json:"severity"`  // 0..3
	Delta    float64        `json:"delta"`     // Numeric payload carried from the event
	Position event.Vec3     `json:"position"`  // Where it happened
	Trust    float64        `json:"trust"`     // 0..1
	SourceID string         `json:"source_id"` // Originating event id, generated when empty
}

// TTL holds per-category retention.
type TTL struct {
	Evidence  time.Duration
	Procedure time.Duration
	Gossip    time.Duration
	Default   time.Duration
}

// DefaultTTL returns the stock retention: evidence and procedures 180s,
// gossip 45s, everything else 60s.
func DefaultTTL() TTL {
	return TTL{
		Evidence:  180 * time.Second,
		Procedure: 180 * time.Second,
		Gossip:    45 * time.Second,
		Default:   60 * time.Second,
	}
}

// For returns the retention for an entry category.
func (t TTL) For(c event.Category) time.Duration {
	switch c {
	case event.CategoryEvidence:
		return t.Evidence
	case event.CategoryProcedure:
		return t.Procedure
	case event.CategoryGossip:
		return t.Gossip
	default:
		return t.Default
	}
}

// Longest returns the largest retention of any category, after defaults.
func (t TTL) Longest() time.Duration {
	t = t.withDefaults()
	return max(t.Evidence, t.Procedure, t.Gossip, t.Default)
}

func (t TTL) withDefaults() TTL {
	d := DefaultTTL()
	if t.Evidence <= 0 {
		t.Evidence = d.Evidence
	}
	if t.Procedure <= 0 {
		t.Procedure = d.Procedure
	}
	if t.Gossip <= 0 {
		t.Gossip = d.Gossip
	}
	if t.Default <= 0 {
		t.Default = d.Default
	}
	return t
}

// DefaultCapacity is the entry limit of a board.
const DefaultCapacity = 32

// Options configures a board. Zero values fall back to defaults.
type Options struct {
	Capacity int
	TTL      TTL
}
