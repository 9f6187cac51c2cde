package perception

import (
	"math"
	"sync"
	"time"

	"github.com/dyluth/vigil/pkg/blackboard"
	"github.com/dyluth/vigil/pkg/event"
)

// ContextConfig tunes an actor context. Zero fields take defaults.
type ContextConfig struct {
	MemoryCapacity      int
	TopicCooldown       time.Duration // ordinary entries
	FastTopicCooldown   time.Duration // evidence and procedure entries
	SevereTopicCooldown time.Duration // severity >= 2
	ActorCooldown       time.Duration
	BaseDelta           float64
	// SeenRetention is how long after its board insertion a seen event id is
	// kept. It must be at least the longest board TTL so a live entry is never
	// accepted twice. Zero keeps every id for the life of the context.
	SeenRetention time.Duration
}

// DefaultContextConfig returns the stock context tuning. Seen ids are never
// forgotten.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		MemoryCapacity:      5,
		TopicCooldown:       20 * time.Second,
		FastTopicCooldown:   8 * time.Second,
		SevereTopicCooldown: 15 * time.Second,
		ActorCooldown:       6 * time.Second,
		BaseDelta:           4,
	}
}

func (c ContextConfig) withDefaults() ContextConfig {
	d := DefaultContextConfig()
	if c.MemoryCapacity <= 0 {
		c.MemoryCapacity = d.MemoryCapacity
	}
	if c.MemoryCapacity > d.MemoryCapacity {
		c.MemoryCapacity = d.MemoryCapacity
	}
	if c.TopicCooldown <= 0 {
		c.TopicCooldown = d.TopicCooldown
	}
	if c.FastTopicCooldown <= 0 {
		c.FastTopicCooldown = d.FastTopicCooldown
	}
	if c.SevereTopicCooldown <= 0 {
		c.SevereTopicCooldown = d.SevereTopicCooldown
	}
	if c.ActorCooldown <= 0 {
		c.ActorCooldown = d.ActorCooldown
	}
	if c.BaseDelta <= 0 {
		c.BaseDelta = d.BaseDelta
	}
	if c.SeenRetention < 0 {
		c.SeenRetention = 0
	}
	return c
}

// topicCooldown picks the anti-repetition window for an entry.
func (c ContextConfig) topicCooldown(e blackboard.Entry) time.Duration {
	switch {
	case e.Category == event.CategoryEvidence || e.Category == event.CategoryProcedure:
		return c.FastTopicCooldown
	case e.Severity >= 2:
		return c.SevereTopicCooldown
	default:
		return c.TopicCooldown
	}
}

// SuspicionSink applies suspicion deltas. Implemented by the suspicion aggregator.
type SuspicionSink interface {
	AddSuspicion(actorID string, delta float64, ruleID, sourceEventID string) bool
}

// Context is what one actor has picked up from the boards around them.
type Context struct {
	actorID   string
	cfg       ContextConfig
	suspicion SuspicionSink

	mu      sync.Mutex
	seen    map[string]time.Duration
	topicAt map[string]time.Duration
	actorAt map[string]time.Duration
	memory  []blackboard.Entry
}

// NewContext creates an empty context for actorID. suspicion may be nil.
func NewContext(actorID string, cfg ContextConfig, suspicion SuspicionSink) *Context {
	return &Context{
		actorID:   actorID,
		cfg:       cfg.withDefaults(),
		suspicion: suspicion,
		seen:      make(map[string]time.Duration),
		topicAt:   make(map[string]time.Duration),
		actorAt:   make(map[string]time.Duration),
	}
}

// ActorID returns the owner of the context.
func (c *Context) ActorID() string {
	return c.actorID
}

// Receive offers an entry to the actor. It is rejected when its event was
// already seen, its topic is cooling down or its actor is cooling down.
// Accepted Rule, Gossip and Evidence entries raise the actor's suspicion.
func (c *Context) Receive(e blackboard.Entry, now time.Duration) bool {
	c.mu.Lock()

	c.forgetLocked(now)
	if e.SourceID != "" {
		if _, ok := c.seen[e.SourceID]; ok {
			c.mu.Unlock()
			return false
		}
	}
	if e.Topic != "" {
		if at, ok := c.topicAt[e.Topic]; ok && now-at < c.cfg.topicCooldown(e) {
			c.mu.Unlock()
			return false
		}
	}
	if e.ActorID != "" {
		if at, ok := c.actorAt[e.ActorID]; ok && now-at < c.cfg.ActorCooldown {
			c.mu.Unlock()
			return false
		}
	}

	if e.SourceID != "" {
		c.seen[e.SourceID] = e.At
	}
	if e.Topic != "" {
		c.topicAt[e.Topic] = now
	}
	if e.ActorID != "" {
		c.actorAt[e.ActorID] = now
	}
	c.memory = append(c.memory, e)
	if over := len(c.memory) - c.cfg.MemoryCapacity; over > 0 {
		c.memory = append([]blackboard.Entry(nil), c.memory[over:]...)
	}
	c.mu.Unlock()

	if c.suspicion != nil && raisesSuspicion(e.Category) {
		rule := e.RuleID
		if rule == "" {
			rule = e.Topic
		}
		c.suspicion.AddSuspicion(c.actorID, SuspicionDelta(c.cfg.BaseDelta, e), rule, e.SourceID)
	}
	return true
}

// forgetLocked drops seen ids whose entries have aged off every board.
func (c *Context) forgetLocked(now time.Duration) {
	if c.cfg.SeenRetention == 0 {
		return
	}
	for id, at := range c.seen {
		if now-at >= c.cfg.SeenRetention {
			delete(c.seen, id)
		}
	}
}

// Memory returns the remembered entries, oldest first.
func (c *Context) Memory() []blackboard.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]blackboard.Entry, len(c.memory))
	copy(out, c.memory)
	return out
}

func raisesSuspicion(c event.Category) bool {
	return c == event.CategoryRule || c == event.CategoryGossip || c == event.CategoryEvidence
}

// SuspicionDelta is (base + severity*2) scaled by clamp(0.5 + trust, 0, 1).
func SuspicionDelta(base float64, e blackboard.Entry) float64 {
	scale := math.Max(0, math.Min(1, 0.5+e.Trust))
	return (base + float64(e.Severity)*2) * scale
}
