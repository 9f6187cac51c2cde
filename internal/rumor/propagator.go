// Package rumor turns violations into delayed secondhand rumors and later
// confirms or debunks them once evidence or a verdict arrives.
package rumor

import (
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/vigil/internal/clock"
	"github.com/dyluth/vigil/internal/eventlog"
	"github.com/dyluth/vigil/internal/metrics"
	"github.com/dyluth/vigil/internal/registry"
	"github.com/dyluth/vigil/pkg/event"
)

// Config holds propagator tuning. Zero fields take defaults.
type Config struct {
	Delay          time.Duration // violation to rumor
	Cooldown       time.Duration // minimum time between two rumors, globally
	TalkDistance   float64       // speaker to listener
	ConfirmWindow  time.Duration // how long an open rumor can still be confirmed by evidence
	TrustShared    float64
	TrustConfirmed float64
	TrustDebunked  float64
}

// DefaultConfig returns the stock rumor tuning.
func DefaultConfig() Config {
	return Config{
		Delay:          6 * time.Second,
		Cooldown:       10 * time.Second,
		TalkDistance:   4,
		ConfirmWindow:  180 * time.Second,
		TrustShared:    0.45,
		TrustConfirmed: 0.9,
		TrustDebunked:  0.1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Delay <= 0 {
		c.Delay = d.Delay
	}
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	if c.TalkDistance <= 0 {
		c.TalkDistance = d.TalkDistance
	}
	if c.ConfirmWindow <= 0 {
		c.ConfirmWindow = d.ConfirmWindow
	}
	if c.TrustShared <= 0 {
		c.TrustShared = d.TrustShared
	}
	if c.TrustConfirmed <= 0 {
		c.TrustConfirmed = d.TrustConfirmed
	}
	if c.TrustDebunked <= 0 {
		c.TrustDebunked = d.TrustDebunked
	}
	return c
}

// Verdict note directives understood by the propagator.
const (
	DirectiveEscalate   = "escalate"
	DirectiveStrengthen = "strengthen-suspicion"
	DirectiveNoGrounds  = "no grounds"
)

// Key returns the rumor key of an event. See event.Event.TopicKey.
func Key(e event.Event) string {
	return e.TopicKey()
}

type pendingRumor struct {
	key       string
	fireAt    time.Duration
	violation event.Event
}

type openRumor struct {
	at          time.Duration
	violatorID  string
	violationID string
	rumorID     string
	ruleID      string
	topic       string
	placeID     string
	zoneID      string
}

// Propagator owns the per-key rumor state machine.
type Propagator struct {
	cfg     Config
	clock   clock.Clock
	log     eventlog.Recorder
	actors  *registry.Registry
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	pending    []pendingRumor // ordered by fireAt
	pendingKey map[string]bool
	open       map[string]openRumor
	lastEmit   time.Duration
	haveEmit   bool
}

// New creates a propagator that records rumor events to log.
func New(cfg Config, clk clock.Clock, log eventlog.Recorder, actors *registry.Registry, logger *zap.Logger, m *metrics.Metrics) *Propagator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Propagator{
		cfg:        cfg.withDefaults(),
		clock:      clk,
		log:        log,
		actors:     actors,
		logger:     logger.Named("rumor"),
		metrics:    metrics.OrNew(m),
		pendingKey: make(map[string]bool),
		open:       make(map[string]openRumor),
	}
}

// Observe is the event log subscriber.
func (p *Propagator) Observe(e event.Event) {
	switch e.Kind {
	case event.KindViolationDetected:
		p.onViolation(e)
	case event.KindEvidenceCaptured, event.KindCctvCaptured, event.KindTicketIssued:
		p.onEvidence(e)
	case event.KindVerdictGiven:
		p.onVerdict(e)
	}
}

func (p *Propagator) onViolation(e event.Event) {
	key := Key(e)
	if key == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pendingKey[key] {
		return
	}
	if _, ok := p.open[key]; ok {
		return
	}
	p.pendingKey[key] = true
	// Delay is constant, so appending keeps pending ordered by fire time.
	p.pending = append(p.pending, pendingRumor{
		key:       key,
		fireAt:    p.clock.Now() + p.cfg.Delay,
		violation: e,
	})
}

func (p *Propagator) onEvidence(e event.Event) {
	key := Key(e)
	now := p.clock.Now()

	p.mu.Lock()
	open, ok := p.open[key]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.open, key)
	p.mu.Unlock()

	if now-open.at > p.cfg.ConfirmWindow {
		p.logger.Debug("stale rumor dropped", zap.String("key", key))
		return
	}
	p.emit(event.KindRumorConfirmed, open, e, p.cfg.TrustConfirmed, 2)
}

func (p *Propagator) onVerdict(e event.Event) {
	key := Key(e)

	p.mu.Lock()
	open, ok := p.open[key]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.open, key)
	p.mu.Unlock()

	note := strings.ToLower(e.Note)
	switch {
	case strings.Contains(note, DirectiveEscalate), strings.Contains(note, DirectiveStrengthen):
		p.emit(event.KindRumorConfirmed, open, e, p.cfg.TrustConfirmed, 2)
	case strings.Contains(note, DirectiveNoGrounds):
		p.emit(event.KindRumorDebunked, open, e, p.cfg.TrustDebunked, 1)
	}
}

func (p *Propagator) emit(kind event.Kind, open openRumor, cause event.Event, trust float64, severity int) {
	p.metrics.Rumors.WithLabelValues(string(kind)).Inc()
	p.log.Record(event.Event{
		Kind:     kind,
		ActorID:  cause.ActorID,
		TargetID: open.violatorID,
		SourceID: open.violatorID,
		CauseID:  cause.ID,
		RuleID:   open.ruleID,
		Topic:    open.topic,
		PlaceID:  open.placeID,
		ZoneID:   open.zoneID,
		Position: cause.Position,
		Trust:    trust,
		Severity: severity,
		Note:     "rumor " + open.rumorID,
	})
}

// Tick fires at most one due rumor, provided the global cooldown has passed.
// A rumor without a speaker and a listener is dropped, not retried.
func (p *Propagator) Tick() {
	now := p.clock.Now()

	p.mu.Lock()
	if len(p.pending) == 0 || p.pending[0].fireAt > now {
		p.mu.Unlock()
		return
	}
	if p.haveEmit && now-p.lastEmit < p.cfg.Cooldown {
		p.mu.Unlock()
		return
	}
	item := p.pending[0]
	p.pending[0] = pendingRumor{}
	p.pending = p.pending[1:]
	delete(p.pendingKey, item.key)
	p.mu.Unlock()

	speaker, listener, ok := p.pickSpeakers(item.violation)
	if !ok {
		p.logger.Debug("rumor dropped, nobody to tell",
			zap.String("key", item.key),
			zap.String("violation_id", item.violation.ID),
		)
		return
	}

	v := item.violation
	shared, recorded := p.log.Record(event.Event{
		Kind:      event.KindRumorShared,
		ActorID:   speaker.ID,
		ActorRole: speaker.Role,
		TargetID:  listener.ID,
		SourceID:  v.ActorID,
		CauseID:   v.ID,
		RuleID:    v.RuleID,
		Topic:     v.Topic,
		PlaceID:   v.PlaceID,
		ZoneID:    v.ZoneID,
		Position:  speaker.Position,
		Trust:     p.cfg.TrustShared,
		Severity:  1,
		Note:      "heard that " + v.ActorID + " broke " + v.Topic,
	})
	if !recorded {
		return
	}
	p.metrics.Rumors.WithLabelValues(string(event.KindRumorShared)).Inc()

	p.mu.Lock()
	p.open[item.key] = openRumor{
		at:          now,
		violatorID:  v.ActorID,
		violationID: v.ID,
		rumorID:     shared.ID,
		ruleID:      v.RuleID,
		topic:       v.Topic,
		placeID:     v.PlaceID,
		zoneID:      v.ZoneID,
	}
	p.lastEmit = now
	p.haveEmit = true
	p.mu.Unlock()
}

// pickSpeakers finds the non-investigator nearest the violation (other than
// the violator) and a second non-investigator within talk distance of them.
func (p *Propagator) pickSpeakers(v event.Event) (speaker, listener registry.Actor, ok bool) {
	candidates := make([]registry.Actor, 0)
	for _, a := range p.actors.All() {
		if a.IsInvestigator() || a.ID == v.ActorID {
			continue
		}
		candidates = append(candidates, a)
	}

	best := math.Inf(1)
	found := false
	for _, a := range candidates {
		if d := a.Position.Dist(v.Position); d < best {
			best, speaker, found = d, a, true
		}
	}
	if !found {
		return registry.Actor{}, registry.Actor{}, false
	}

	best = math.Inf(1)
	found = false
	for _, a := range candidates {
		if a.ID == speaker.ID {
			continue
		}
		if d := a.Position.Dist(speaker.Position); d <= p.cfg.TalkDistance && d < best {
			best, listener, found = d, a, true
		}
	}
	return speaker, listener, found
}

// Pending returns the number of rumors waiting to fire.
func (p *Propagator) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// IsOpen reports whether a rumor is circulating under key.
func (p *Propagator) IsOpen(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.open[key]
	return ok
}

// Reset forgets every pending and open rumor.
func (p *Propagator) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = nil
	p.pendingKey = make(map[string]bool)
	p.open = make(map[string]openRumor)
	p.lastEmit = 0
	p.haveEmit = false
}
