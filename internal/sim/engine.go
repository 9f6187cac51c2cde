// Package sim wires the suspicion engine together and drives it one tick at
// a time.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/vigil/internal/casefile"
	"github.com/dyluth/vigil/internal/clock"
	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/eventlog"
	"github.com/dyluth/vigil/internal/metrics"
	"github.com/dyluth/vigil/internal/perception"
	"github.com/dyluth/vigil/internal/recorder"
	"github.com/dyluth/vigil/internal/registry"
	"github.com/dyluth/vigil/internal/report"
	"github.com/dyluth/vigil/internal/rumor"
	"github.com/dyluth/vigil/internal/suspicion"
	"github.com/dyluth/vigil/pkg/blackboard"
	"github.com/dyluth/vigil/pkg/event"
)

// InvestigatorID is the actor id stamped on adjudication events.
const InvestigatorID = "investigator"

// Options configures an Engine. Only Config is required.
type Options struct {
	Config   *config.Config
	Instance string
	// Clock defaults to a fresh simulation clock at zero.
	Clock *clock.Sim
	// Sink receives every recorded event as a JSON line. Nil keeps the log in memory only.
	Sink    eventlog.Sink
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Engine owns every component and runs them in a fixed order each tick.
//
// Engine is meant to be driven from a single update goroutine. Inbound calls
// from that goroutine may be interleaved freely with Tick.
type Engine struct {
	cfg      *config.Config
	instance string
	logger   *zap.Logger
	metrics  *metrics.Metrics

	clock      *clock.Sim
	log        *eventlog.Log
	actors     *registry.Registry
	boards     *blackboard.Registry
	suspicion  *suspicion.Aggregator
	reports    *report.Collector
	rumors     *rumor.Propagator
	perception *perception.Injector
	bundler    *casefile.Bundler

	boardOpts blackboard.Options
	verdicts  []Adjudication
}

// Adjudication is the outcome of one consumed report envelope.
type Adjudication struct {
	Envelope       report.Envelope
	Bundle         casefile.Bundle
	Verdict        casefile.Verdict
	InterrogatedAt time.Duration
	VerdictEventID string
}

// New builds an engine from opts.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, errors.New("sim: config is required")
	}
	cfg := *opts.Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	if opts.Instance == "" {
		opts.Instance = config.DefaultInstance
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewSim()
	}
	m := metrics.OrNew(opts.Metrics)
	logger := opts.Logger.With(zap.String("instance", opts.Instance))

	e := &Engine{
		cfg:       &cfg,
		instance:  opts.Instance,
		logger:    logger.Named("engine"),
		metrics:   m,
		clock:     opts.Clock,
		actors:    registry.New(),
		boards:    blackboard.NewRegistry(),
		boardOpts: boardOptions(&cfg),
	}

	e.log = eventlog.New(e.clock, eventlog.Options{
		Capacity:    cfg.EventLog.Capacity,
		DedupWindow: cfg.EventLog.DedupWindow,
		Sink:        opts.Sink,
		Logger:      logger,
		Metrics:     m,
	})
	e.suspicion = suspicion.New(suspicionTuning(&cfg), e.clock, e.log, e.actors, logger, m)
	e.reports = report.New(reportTuning(&cfg), e.clock, e.log, e.suspicion, logger, m)
	e.suspicion.SetReportFiler(e.reports)
	e.rumors = rumor.New(rumorTuning(&cfg), e.clock, e.log, e.actors, logger, m)
	e.perception = perception.New(perceptionTuning(&cfg), e.clock, e.actors, e.boards, e.suspicion, logger, m)
	e.bundler = casefile.NewBundler(e.log, cfg.Casefile.Window)

	e.log.Subscribe(e.rumors.Observe)
	e.log.Subscribe(recorder.New(e.clock, e.boards).Observe)

	for _, p := range cfg.Boards.Places {
		e.AddBoard(p.ID, vec(p.Position))
	}

	return e, nil
}

// Tick advances simulated time by dt and runs one update: suspicion decay,
// rumor emission, perception and adjudication. Nothing happens while the
// clock is paused.
func (e *Engine) Tick(dt time.Duration) {
	if !e.clock.Advance(dt) {
		return
	}
	e.suspicion.Tick(dt)
	e.rumors.Tick()
	e.perception.Tick(dt)
	e.adjudicate()
}

// adjudicate runs at most one interrogation per tick.
func (e *Engine) adjudicate() {
	env, ok := e.reports.TryConsume()
	if !ok {
		return
	}

	e.logEvent("interrogation_started",
		zap.Strings("reporters", env.ReporterIDs),
		zap.Strings("attached_events", env.EventIDs),
		zap.String("rule", env.RuleID),
		zap.String("place", env.PlaceID),
	)
	e.log.Record(event.Event{
		Kind:     event.KindInterrogationStarted,
		ActorID:  InvestigatorID,
		TargetID: env.TargetID,
		RuleID:   env.RuleID,
		Topic:    env.Topic,
		PlaceID:  env.PlaceID,
		ZoneID:   env.ZoneID,
		Severity: 2,
	})

	bundle := e.bundler.Build(env)
	verdict := casefile.Judge(bundle)

	recorded, _ := e.log.Record(event.Event{
		Kind:     event.KindVerdictGiven,
		ActorID:  InvestigatorID,
		TargetID: env.TargetID,
		RuleID:   env.RuleID,
		Topic:    env.Topic,
		PlaceID:  env.PlaceID,
		ZoneID:   env.ZoneID,
		Delta:    float64(verdict.Score),
		Severity: verdictSeverity(verdict.Outcome),
		Note:     verdict.Note(),
	})
	e.metrics.Verdicts.WithLabelValues(string(verdict.Outcome)).Inc()
	e.logEvent("verdict_given",
		zap.String("verdict_id", recorded.ID),
		zap.String("outcome", string(verdict.Outcome)),
		zap.Int("score", verdict.Score),
		zap.String("reason", verdict.Reason),
	)

	e.suspicion.ResolveInterrogation(env.ReporterIDs...)

	e.verdicts = append(e.verdicts, Adjudication{
		Envelope:       env,
		Bundle:         bundle,
		Verdict:        verdict,
		InterrogatedAt: e.clock.Now(),
		VerdictEventID: recorded.ID,
	})
}

func verdictSeverity(o casefile.Outcome) int {
	switch o {
	case casefile.OutcomeExpelled:
		return event.MaxSeverity
	case casefile.OutcomeReinforced:
		return 2
	default:
		return 1
	}
}

// logEvent logs one structured adjudication step.
func (e *Engine) logEvent(eventType string, fields ...zap.Field) {
	e.logger.Info("adjudication",
		append([]zap.Field{
			zap.String("event_type", eventType),
			zap.Duration("sim_time", e.clock.Now()),
		}, fields...)...,
	)
}

// Record ingests an externally produced event.
func (e *Engine) Record(ev event.Event) (event.Event, bool) {
	return e.log.Record(ev)
}

// RegisterActor adds or replaces an actor.
func (e *Engine) RegisterActor(a registry.Actor) bool {
	return e.actors.Register(a)
}

// UnregisterActor removes an actor.
func (e *Engine) UnregisterActor(id string) bool {
	return e.actors.Unregister(id)
}

// SetPose moves an actor.
func (e *Engine) SetPose(id string, position, forward event.Vec3) bool {
	return e.actors.SetPose(id, position, forward)
}

// AddBoard registers a place blackboard using the configured capacity and
// retention, replacing any board with the same id.
func (e *Engine) AddBoard(id string, position event.Vec3) *blackboard.Board {
	b := blackboard.NewBoard(id, position, e.boardOpts)
	e.boards.Add(b)
	return b
}

// AddSuspicion changes an actor's score directly.
func (e *Engine) AddSuspicion(actorID string, delta float64, ruleID, sourceEventID string) bool {
	return e.suspicion.AddSuspicion(actorID, delta, ruleID, sourceEventID)
}

// FileReport files a report on behalf of reporterID.
func (e *Engine) FileReport(reporterID, ruleID string, snapshot float64, eventID string, position event.Vec3) {
	e.reports.FileReport(reporterID, ruleID, snapshot, eventID, position)
}

// Build assembles a case bundle for env against the current log.
func (e *Engine) Build(env report.Envelope) casefile.Bundle {
	return e.bundler.Build(env)
}

// Subscribe registers fn for every recorded event.
func (e *Engine) Subscribe(fn func(event.Event)) (unsubscribe func()) {
	return e.log.Subscribe(fn)
}

// Recent returns up to n of the newest events, oldest first.
func (e *Engine) Recent(n int) []event.Event {
	return e.log.Recent(n)
}

// ByID looks up a buffered event.
func (e *Engine) ByID(id string) (event.Event, bool) {
	return e.log.ByID(id)
}

// Stats reports the event log counters.
func (e *Engine) Stats() eventlog.Stats {
	return e.log.Stats()
}

// Adjudications returns every interrogation run since the last reset.
func (e *Engine) Adjudications() []Adjudication {
	out := make([]Adjudication, len(e.verdicts))
	copy(out, e.verdicts)
	return out
}

// Clock exposes the simulation clock for pausing and inspection.
func (e *Engine) Clock() *clock.Sim { return e.clock }

// Actors exposes the actor registry.
func (e *Engine) Actors() *registry.Registry { return e.actors }

// Boards exposes the board registry.
func (e *Engine) Boards() *blackboard.Registry { return e.boards }

// Suspicion exposes the suspicion aggregator.
func (e *Engine) Suspicion() *suspicion.Aggregator { return e.suspicion }

// Reports exposes the report collector.
func (e *Engine) Reports() *report.Collector { return e.reports }

// Rumors exposes the rumor propagator.
func (e *Engine) Rumors() *rumor.Propagator { return e.rumors }

// Perception exposes the perception injector.
func (e *Engine) Perception() *perception.Injector { return e.perception }

// Reset clears the in-memory state of every component and rewinds the
// clock. Registered actors and boards stay registered; board entries are
// dropped. Lines already queued for persistence are still written.
func (e *Engine) Reset() {
	e.log.Reset()
	e.suspicion.Reset()
	e.reports.Reset()
	e.rumors.Reset()
	e.perception.Reset()
	e.boards.ClearAll()
	e.clock.Reset()
	e.verdicts = nil
	e.logger.Info("engine reset")
}

// Flush waits for queued event lines to be persisted.
func (e *Engine) Flush(ctx context.Context) error {
	return e.log.Flush(ctx)
}

// Close drains pending writes and closes the sink.
func (e *Engine) Close(ctx context.Context) error {
	return e.log.Close(ctx)
}
