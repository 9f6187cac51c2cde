// Package suspicion tracks how suspicious each actor currently is, decays
// that suspicion over time and files a report once an actor's suspicion
// crosses the report threshold.
package suspicion

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/vigil/internal/clock"
	"github.com/dyluth/vigil/internal/eventlog"
	"github.com/dyluth/vigil/internal/metrics"
	"github.com/dyluth/vigil/internal/registry"
	"github.com/dyluth/vigil/pkg/event"
)

// Config holds aggregator tuning. Zero fields take defaults.
type Config struct {
	Max             float64       // upper bound of a score
	DecayPerSecond  float64       // score lost per simulated second
	ReportThreshold float64       // score at which an actor files a report
	ReportCooldown  time.Duration // minimum time between two reports by the same actor
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Max:             100,
		DecayPerSecond:  1,
		ReportThreshold: 60,
		ReportCooldown:  20 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Max <= 0 {
		c.Max = d.Max
	}
	if c.DecayPerSecond <= 0 {
		c.DecayPerSecond = d.DecayPerSecond
	}
	if c.ReportThreshold <= 0 {
		c.ReportThreshold = d.ReportThreshold
	}
	if c.ReportCooldown <= 0 {
		c.ReportCooldown = d.ReportCooldown
	}
	return c
}

// ReportFiler receives the reports this aggregator files.
type ReportFiler interface {
	FileReport(reporterID, ruleID string, snapshot float64, eventID string, position event.Vec3)
}

// Tracker is the per-actor suspicion state.
type Tracker struct {
	Score        float64
	LastSourceID string
	Armed        bool
	LastReportAt time.Duration
	hasReported  bool
}

// Aggregator owns every actor's tracker and the global aggregate.
type Aggregator struct {
	cfg      Config
	clock    clock.Clock
	log      eventlog.Recorder
	actors   *registry.Registry
	reporter ReportFiler
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	trackers map[string]*Tracker
	global   float64
}

// New creates an aggregator and hooks it to registry changes so the global
// aggregate follows registrations.
func New(cfg Config, clk clock.Clock, log eventlog.Recorder, actors *registry.Registry, logger *zap.Logger, m *metrics.Metrics) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{
		cfg:      cfg.withDefaults(),
		clock:    clk,
		log:      log,
		actors:   actors,
		logger:   logger.Named("suspicion"),
		metrics:  metrics.OrNew(m),
		trackers: make(map[string]*Tracker),
	}
	actors.OnChange(a.recomputeGlobal)
	return a
}

// SetReportFiler wires the collector that receives filed reports.
func (a *Aggregator) SetReportFiler(r ReportFiler) {
	a.mu.Lock()
	a.reporter = r
	a.mu.Unlock()
}

// Config returns the effective tuning.
func (a *Aggregator) Config() Config {
	return a.cfg
}

func (a *Aggregator) tracker(actorID string) *Tracker {
	t, ok := a.trackers[actorID]
	if !ok {
		t = &Tracker{}
		a.trackers[actorID] = t
	}
	return t
}

// AddSuspicion changes an actor's score by delta on behalf of the event
// sourceEventID. A source event applies at most once in a row per actor;
// the repeated call returns false and changes nothing.
func (a *Aggregator) AddSuspicion(actorID string, delta float64, ruleID, sourceEventID string) bool {
	if actorID == "" || math.IsNaN(delta) || math.IsInf(delta, 0) {
		return false
	}

	a.mu.Lock()
	t := a.tracker(actorID)
	if sourceEventID != "" && sourceEventID == t.LastSourceID {
		a.mu.Unlock()
		return false
	}
	t.LastSourceID = sourceEventID
	t.Score = clamp(t.Score+delta, 0, a.cfg.Max)
	score := t.Score
	a.mu.Unlock()

	actor, _ := a.actors.Get(actorID)
	severity := 1
	if score >= a.cfg.ReportThreshold {
		severity = 2
	}
	a.log.Record(event.Event{
		Kind:      event.KindSuspicionUpdated,
		ActorID:   actorID,
		ActorRole: actor.Role,
		RuleID:    ruleID,
		CauseID:   sourceEventID,
		Position:  actor.Position,
		Delta:     delta,
		Severity:  severity,
	})

	a.recomputeGlobal()
	a.checkReport(actorID, ruleID, sourceEventID)
	return true
}

// checkReport files a report when the actor is unarmed, over threshold and
// past its cooldown.
func (a *Aggregator) checkReport(actorID, ruleID, sourceEventID string) {
	now := a.clock.Now()

	a.mu.Lock()
	t := a.tracker(actorID)
	if t.Armed || t.Score < a.cfg.ReportThreshold {
		a.mu.Unlock()
		return
	}
	if t.hasReported && now-t.LastReportAt < a.cfg.ReportCooldown {
		a.mu.Unlock()
		return
	}
	t.Armed = true
	t.hasReported = true
	t.LastReportAt = now
	snapshot := t.Score
	reporter := a.reporter
	a.mu.Unlock()

	if reporter == nil {
		return
	}
	actor, _ := a.actors.Get(actorID)
	a.logger.Debug("filing report",
		zap.String("reporter", actorID),
		zap.String("rule", ruleID),
		zap.Float64("score", snapshot),
	)
	reporter.FileReport(actorID, ruleID, snapshot, sourceEventID, actor.Position)
}

// Tick decays every score by DecayPerSecond * dt.
func (a *Aggregator) Tick(dt time.Duration) {
	if dt <= 0 {
		return
	}
	loss := a.cfg.DecayPerSecond * dt.Seconds()
	if loss <= 0 {
		return
	}

	changed := false
	a.mu.Lock()
	for _, t := range a.trackers {
		if t.Score > 0 {
			t.Score = math.Max(0, t.Score-loss)
			changed = true
		}
	}
	a.mu.Unlock()

	if changed {
		a.recomputeGlobal()
	}
}

// ResolveInterrogation disarms the given actors, or every actor when none are named.
func (a *Aggregator) ResolveInterrogation(actorIDs ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(actorIDs) == 0 {
		for _, t := range a.trackers {
			t.Armed = false
		}
		return
	}
	for _, id := range actorIDs {
		if t, ok := a.trackers[id]; ok {
			t.Armed = false
		}
	}
}

// Score returns an actor's current score.
func (a *Aggregator) Score(actorID string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.trackers[actorID]; ok {
		return t.Score
	}
	return 0
}

// Tracker returns a copy of an actor's state.
func (a *Aggregator) Tracker(actorID string) (Tracker, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.trackers[actorID]
	if !ok {
		return Tracker{}, false
	}
	return *t, true
}

// Global is the mean normalized score over registered actors, in [0,1].
func (a *Aggregator) Global() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.global
}

func (a *Aggregator) recomputeGlobal() {
	registered := a.actors.All()

	a.mu.Lock()
	g := 0.0
	if len(registered) > 0 {
		sum := 0.0
		for _, actor := range registered {
			if t, ok := a.trackers[actor.ID]; ok {
				sum += t.Score / a.cfg.Max
			}
		}
		g = clamp(sum/float64(len(registered)), 0, 1)
	}
	a.global = g
	a.mu.Unlock()

	a.metrics.GlobalSuspicion.Set(g)
}

// Reset drops every tracker.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.trackers = make(map[string]*Tracker)
	a.mu.Unlock()
	a.recomputeGlobal()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
