// Package perception feeds blackboard entries into the actors standing near
// or looking at the boards. Scanning happens on a fixed interval, in three
// tiers: near, field of view, and loud noise.
package perception

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/vigil/internal/clock"
	"github.com/dyluth/vigil/internal/metrics"
	"github.com/dyluth/vigil/internal/registry"
	"github.com/dyluth/vigil/pkg/blackboard"
)

// Config tunes the injector. Zero fields take defaults; caps below their
// floors are raised to them.
type Config struct {
	Interval         time.Duration
	NearRadius       float64
	FovRadius        float64
	FovAngle         float64 // full cone angle in degrees
	NoiseRadius      float64
	NoiseMinSeverity int
	NearCap          int
	FovCap           int
	NoiseCap         int
	ExcludedRoles    []string
	Context          ContextConfig
}

// Tier cap floors.
const (
	MinNearCap  = 3
	MinFovCap   = 5
	MinNoiseCap = 1
)

// DefaultConfig returns the stock perception tuning.
func DefaultConfig() Config {
	return Config{
		Interval:         500 * time.Millisecond,
		NearRadius:       3,
		FovRadius:        12,
		FovAngle:         90,
		NoiseRadius:      20,
		NoiseMinSeverity: 2,
		NearCap:          MinNearCap,
		FovCap:           MinFovCap,
		NoiseCap:         MinNoiseCap,
		ExcludedRoles:    []string{registry.RolePlayer, registry.RoleInvestigator},
		Context:          DefaultContextConfig(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.NearRadius <= 0 {
		c.NearRadius = d.NearRadius
	}
	if c.FovRadius <= 0 {
		c.FovRadius = d.FovRadius
	}
	if c.FovAngle <= 0 {
		c.FovAngle = d.FovAngle
	}
	if c.NoiseRadius <= 0 {
		c.NoiseRadius = d.NoiseRadius
	}
	if c.NoiseMinSeverity <= 0 {
		c.NoiseMinSeverity = d.NoiseMinSeverity
	}
	c.NearCap = max(c.NearCap, MinNearCap)
	c.FovCap = max(c.FovCap, MinFovCap)
	c.NoiseCap = max(c.NoiseCap, MinNoiseCap)
	if c.ExcludedRoles == nil {
		c.ExcludedRoles = d.ExcludedRoles
	}
	c.Context = c.Context.withDefaults()
	return c
}

// Tier names a perception tier.
type Tier string

const (
	TierNear  Tier = "near"
	TierFov   Tier = "fov"
	TierNoise Tier = "noise"
)

// Injector scans boards against actor poses and delivers entries to contexts.
type Injector struct {
	cfg       Config
	clock     clock.Clock
	actors    *registry.Registry
	boards    *blackboard.Registry
	suspicion SuspicionSink
	logger    *zap.Logger
	metrics   *metrics.Metrics
	excluded  map[string]bool

	mu       sync.Mutex
	elapsed  time.Duration
	contexts map[string]*Context
}

// New creates an injector scanning boards around the registered actors.
func New(cfg Config, clk clock.Clock, actors *registry.Registry, boards *blackboard.Registry, suspicion SuspicionSink, logger *zap.Logger, m *metrics.Metrics) *Injector {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	excluded := make(map[string]bool, len(cfg.ExcludedRoles))
	for _, r := range cfg.ExcludedRoles {
		excluded[r] = true
	}
	return &Injector{
		cfg:       cfg,
		clock:     clk,
		actors:    actors,
		boards:    boards,
		suspicion: suspicion,
		logger:    logger.Named("perception"),
		metrics:   metrics.OrNew(m),
		excluded:  excluded,
		contexts:  make(map[string]*Context),
	}
}

// Config returns the effective tuning.
func (in *Injector) Config() Config {
	return in.cfg
}

// Tick accumulates dt and scans once a full interval has passed.
// Returns true when a scan ran.
func (in *Injector) Tick(dt time.Duration) bool {
	if dt <= 0 {
		return false
	}
	in.mu.Lock()
	in.elapsed += dt
	if in.elapsed < in.cfg.Interval {
		in.mu.Unlock()
		return false
	}
	in.elapsed = 0
	in.mu.Unlock()

	in.Scan()
	return true
}

// Scan runs one perception pass over every eligible actor.
func (in *Injector) Scan() {
	now := in.clock.Now()
	boards := in.boards.All()

	for _, actor := range in.actors.All() {
		if in.excluded[actor.Role] || actor.IsInvestigator() {
			continue
		}
		ctx := in.Context(actor.ID)

		near, fov, noise := in.candidates(actor, boards, now)
		in.deliver(ctx, TierNear, near, now)
		in.deliver(ctx, TierFov, fov, now)
		in.deliver(ctx, TierNoise, noise, now)
	}
	in.dropDeparted()
}

func (in *Injector) deliver(ctx *Context, tier Tier, entries []blackboard.Entry, now time.Duration) {
	for _, e := range entries {
		if ctx.Receive(e, now) {
			in.metrics.EntriesInjected.WithLabelValues(string(tier)).Inc()
		}
	}
}

// candidates builds the three tier sets for one actor.
func (in *Injector) candidates(actor registry.Actor, boards []*blackboard.Board, now time.Duration) (near, fov, noise []blackboard.Entry) {
	halfAngle := in.cfg.FovAngle / 2

	for _, b := range boards {
		dist := actor.Position.Dist(b.Position())
		inNear := dist <= in.cfg.NearRadius
		inFov := false
		if dist <= in.cfg.FovRadius {
			if angle, ok := actor.Forward.AngleTo(b.Position().Sub(actor.Position)); ok && angle <= halfAngle {
				inFov = true
			}
		}
		inNoise := dist <= in.cfg.NoiseRadius
		if !inNear && !inFov && !inNoise {
			continue
		}

		for _, e := range b.Entries(now) {
			if inNear {
				near = append(near, e)
			}
			if inFov {
				fov = append(fov, e)
			}
			if inNoise && e.Severity >= in.cfg.NoiseMinSeverity {
				noise = append(noise, e)
			}
		}
	}

	return rank(near, in.cfg.NearCap), rank(fov, in.cfg.FovCap), rank(noise, in.cfg.NoiseCap)
}

// rank sorts by category priority, then recency, and truncates to limit.
func rank(entries []blackboard.Entry, limit int) []blackboard.Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := entries[i].Category.Priority(), entries[j].Category.Priority()
		if pi != pj {
			return pi > pj
		}
		if entries[i].At != entries[j].At {
			return entries[i].At > entries[j].At
		}
		return entries[i].SourceID < entries[j].SourceID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Context returns the context of an actor, creating it on first use.
func (in *Injector) Context(actorID string) *Context {
	in.mu.Lock()
	defer in.mu.Unlock()
	ctx, ok := in.contexts[actorID]
	if !ok {
		ctx = NewContext(actorID, in.cfg.Context, in.suspicion)
		in.contexts[actorID] = ctx
	}
	return ctx
}

// dropDeparted forgets contexts of actors no longer registered.
func (in *Injector) dropDeparted() {
	in.mu.Lock()
	defer in.mu.Unlock()
	for id := range in.contexts {
		if _, ok := in.actors.Get(id); !ok {
			delete(in.contexts, id)
		}
	}
}

// Reset forgets every context and the interval accumulator.
func (in *Injector) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.contexts = make(map[string]*Context)
	in.elapsed = 0
}
