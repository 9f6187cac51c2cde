// Package report collects citizen reports inside a sliding window and decides
// when enough of them have piled up to start an interrogation.
package report

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/vigil/internal/clock"
	"github.com/dyluth/vigil/internal/metrics"
	"github.com/dyluth/vigil/pkg/event"
)

// Config holds collector tuning. Zero fields take defaults, except MinGlobal
// where zero disables the gate.
type Config struct {
	Window         time.Duration // reports older than this are pruned
	Required       int           // reports needed to trigger
	SocialPressure float64       // global suspicion at which one fewer report is needed
	MinGlobal      float64       // global suspicion gate below which nothing triggers
	Cooldown       time.Duration // minimum time between two envelopes
	AttachmentCap  int           // event ids carried by an envelope
}

// DefaultConfig returns the stock report tuning.
func DefaultConfig() Config {
	return Config{
		Window:         60 * time.Second,
		Required:       2,
		SocialPressure: 0.6,
		MinGlobal:      0.1,
		Cooldown:       30 * time.Second,
		AttachmentCap:  8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.Required <= 0 {
		c.Required = d.Required
	}
	if c.SocialPressure <= 0 {
		c.SocialPressure = d.SocialPressure
	}
	if c.MinGlobal < 0 {
		c.MinGlobal = d.MinGlobal
	}
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	if c.AttachmentCap <= 0 {
		c.AttachmentCap = d.AttachmentCap
	}
	return c
}

// Log is the slice of the event log the collector needs.
type Log interface {
	Record(e event.Event) (event.Event, bool)
	ByID(id string) (event.Event, bool)
}

// GlobalSource provides the current global suspicion.
type GlobalSource interface {
	Global() float64
}

// Report is one filed complaint.
type Report struct {
	At         time.Duration
	ReporterID string
	RuleID     string
	EventID    string
	TargetID   string // actor of the originating event
	PlaceID    string
	ZoneID     string
	Topic      string
	Position   event.Vec3
	Snapshot   float64
}

// Envelope is a consumed batch of reports ready for adjudication.
type Envelope struct {
	ReporterIDs []string
	EventIDs    []string
	RuleID      string
	Topic       string
	PlaceID     string
	ZoneID      string
	TargetID    string
	TriggeredAt time.Duration
}

// Collector accumulates reports and produces envelopes.
type Collector struct {
	cfg     Config
	clock   clock.Clock
	log     Log
	global  GlobalSource
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu            sync.Mutex
	pending       []Report
	lastTrigger   time.Duration
	haveTriggered bool
}

// New creates a collector. global supplies the suspicion total that gates a trigger.
func New(cfg Config, clk clock.Clock, log Log, global GlobalSource, logger *zap.Logger, m *metrics.Metrics) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		cfg:     cfg.withDefaults(),
		clock:   clk,
		log:     log,
		global:  global,
		logger:  logger.Named("report"),
		metrics: metrics.OrNew(m),
	}
}

// Config returns the effective tuning.
func (c *Collector) Config() Config {
	return c.cfg
}

// FileReport files a report about eventID. Place, zone and topic come from
// the originating event when it is still buffered; so does the position
// when the given one is zero.
func (c *Collector) FileReport(reporterID, ruleID string, snapshot float64, eventID string, position event.Vec3) {
	now := c.clock.Now()
	r := Report{
		At:         now,
		ReporterID: reporterID,
		RuleID:     ruleID,
		EventID:    eventID,
		Position:   position,
		Snapshot:   snapshot,
		Topic:      ruleID,
	}
	if origin, ok := c.log.ByID(eventID); ok {
		r.PlaceID = origin.PlaceID
		r.ZoneID = origin.ZoneID
		r.TargetID = origin.ActorID
		if origin.Topic != "" {
			r.Topic = origin.Topic
		}
		if r.RuleID == "" {
			r.RuleID = origin.RuleID
		}
		if r.Position.IsZero() {
			r.Position = origin.Position
		}
	}

	c.mu.Lock()
	c.pending = append(c.pending, r)
	c.pruneLocked(now)
	n := len(c.pending)
	c.mu.Unlock()

	c.metrics.ReportsFiled.Inc()
	c.metrics.PendingReports.Set(float64(n))

	c.log.Record(event.Event{
		Kind:     event.KindReportFiled,
		ActorID:  reporterID,
		TargetID: r.TargetID,
		RuleID:   r.RuleID,
		Topic:    r.Topic,
		PlaceID:  r.PlaceID,
		ZoneID:   r.ZoneID,
		Position: r.Position,
		CauseID:  eventID,
		Delta:    snapshot,
		Severity: 2,
	})
}

func (c *Collector) pruneLocked(now time.Duration) {
	keep := c.pending[:0]
	for _, r := range c.pending {
		if now-r.At <= c.cfg.Window {
			keep = append(keep, r)
		}
	}
	for i := len(keep); i < len(c.pending); i++ {
		c.pending[i] = Report{}
	}
	c.pending = keep
}

// required returns the report count needed under the current global suspicion.
func (c *Collector) required(global float64) int {
	n := c.cfg.Required
	if global >= c.cfg.SocialPressure {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}

// shouldTriggerLocked prunes and evaluates the trigger. Returns the number of
// reports to consume.
func (c *Collector) shouldTriggerLocked(now time.Duration) (int, bool) {
	if c.haveTriggered && now-c.lastTrigger < c.cfg.Cooldown {
		return 0, false
	}
	c.pruneLocked(now)

	global := c.global.Global()
	if global < c.cfg.MinGlobal {
		return 0, false
	}
	need := c.required(global)
	if len(c.pending) < need {
		return 0, false
	}
	return need, true
}

// ShouldTrigger reports whether TryConsume would produce an envelope now.
func (c *Collector) ShouldTrigger() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.shouldTriggerLocked(c.clock.Now())
	return ok
}

// TryConsume takes the newest required reports and turns them into an
// envelope. At most one envelope is produced per cooldown.
func (c *Collector) TryConsume() (Envelope, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	need, ok := c.shouldTriggerLocked(now)
	if !ok {
		c.mu.Unlock()
		return Envelope{}, false
	}

	cut := len(c.pending) - need
	taken := make([]Report, need)
	copy(taken, c.pending[cut:])
	for i := cut; i < len(c.pending); i++ {
		c.pending[i] = Report{}
	}
	c.pending = c.pending[:cut]
	c.lastTrigger = now
	c.haveTriggered = true
	remaining := len(c.pending)
	c.mu.Unlock()

	first := taken[0]
	env := Envelope{
		RuleID:      first.RuleID,
		Topic:       first.Topic,
		PlaceID:     first.PlaceID,
		ZoneID:      first.ZoneID,
		TargetID:    first.TargetID,
		TriggeredAt: now,
	}
	seenReporter := make(map[string]bool)
	seenEvent := make(map[string]bool)
	for _, r := range taken {
		if r.ReporterID != "" && !seenReporter[r.ReporterID] {
			seenReporter[r.ReporterID] = true
			env.ReporterIDs = append(env.ReporterIDs, r.ReporterID)
		}
		if r.EventID != "" && !seenEvent[r.EventID] && len(env.EventIDs) < c.cfg.AttachmentCap {
			seenEvent[r.EventID] = true
			env.EventIDs = append(env.EventIDs, r.EventID)
		}
	}

	c.metrics.PendingReports.Set(float64(remaining))
	c.logger.Info("report envelope consumed",
		zap.Strings("reporters", env.ReporterIDs),
		zap.String("rule", env.RuleID),
		zap.String("place", env.PlaceID),
	)
	return env, true
}

// Pending returns the number of reports inside the window.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.clock.Now())
	return len(c.pending)
}

// Reset drops every pending report and the trigger cooldown.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.pending = nil
	c.lastTrigger = 0
	c.haveTriggered = false
	c.mu.Unlock()
	c.metrics.PendingReports.Set(0)
}
