// Package replay feeds a persisted event log back through an event log or a
// full engine.
package replay

import (
	"context"
	"errors"
	"time"

	"github.com/dyluth/vigil/internal/clock"
	"github.com/dyluth/vigil/internal/eventlog"
	"github.com/dyluth/vigil/pkg/event"
)

// DefaultStep is the tick length used while resimulating.
const DefaultStep = 100 * time.Millisecond

var (
	// ErrRecorderRequired indicates a missing replay target.
	ErrRecorderRequired = errors.New("recorder is required")
	// ErrClockRequired indicates a missing clock.
	ErrClockRequired = errors.New("clock is required")
	// ErrPaused indicates the engine clock is paused and cannot be driven.
	ErrPaused = errors.New("engine clock is paused")
)

// Engine is what a resimulation drives.
type Engine interface {
	eventlog.Recorder
	Tick(dt time.Duration)
	Clock() *clock.Sim
	Subscribe(fn func(event.Event)) (unsubscribe func())
}

// Options configures replay behavior.
type Options struct {
	// Step is the tick length while resimulating. Zero uses DefaultStep.
	Step time.Duration
	// Tail keeps ticking this long after the last event so pending
	// rumors and interrogations can complete.
	Tail time.Duration
	// OnEvent, when set, is called with every event as it is recorded.
	OnEvent func(event.Event)
}

// Gap is a hole in the persisted sequence numbers.
type Gap struct {
	After uint64
	Next  uint64
}

// Result captures replay outcomes.
type Result struct {
	Read     int // events in the input
	Applied  int // events accepted by the target
	Skipped  int // derived events left for the engine to regenerate
	Deduped  int // events collapsed by the target's dedup window
	Segments int // runs of consecutive sequence numbers; a log reset starts a new one
	Gaps     []Gap
	LastAt   time.Duration
	Verdicts []event.Event
}

// Derived reports whether the engine itself produces events of kind k.
// Resimulation skips these and lets the engine regenerate them.
func Derived(k event.Kind) bool {
	switch k {
	case event.KindSuspicionUpdated, event.KindReportFiled,
		event.KindInterrogationStarted, event.KindVerdictGiven,
		event.KindRumorShared, event.KindRumorConfirmed, event.KindRumorDebunked:
		return true
	}
	return false
}

// Replay records events into rec in order, setting clk to each event's
// timestamp first. Nothing is ticked, so no derived events are produced.
func Replay(ctx context.Context, rec eventlog.Recorder, clk *clock.Sim, events []event.Event, opts Options) (Result, error) {
	if rec == nil {
		return Result{}, ErrRecorderRequired
	}
	if clk == nil {
		return Result{}, ErrClockRequired
	}

	result := scan(events)
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		clk.Set(e.At)
		recorded, ok := rec.Record(e)
		if !ok {
			result.Deduped++
			continue
		}
		result.Applied++
		result.LastAt = recorded.At
		if recorded.Kind == event.KindVerdictGiven {
			result.Verdicts = append(result.Verdicts, recorded)
		}
		if opts.OnEvent != nil {
			opts.OnEvent(recorded)
		}
	}
	return result, nil
}

// Resimulate feeds only primary events into eng, ticking it up to each
// event's timestamp so the engine regenerates every derived event.
func Resimulate(ctx context.Context, eng Engine, events []event.Event, opts Options) (Result, error) {
	if eng == nil {
		return Result{}, ErrRecorderRequired
	}
	step := opts.Step
	if step <= 0 {
		step = DefaultStep
	}

	result := scan(events)
	unsubscribe := eng.Subscribe(func(e event.Event) {
		if e.Kind == event.KindVerdictGiven {
			result.Verdicts = append(result.Verdicts, e)
		}
		if opts.OnEvent != nil {
			opts.OnEvent(e)
		}
	})
	defer unsubscribe()

	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if Derived(e.Kind) {
			result.Skipped++
			continue
		}
		if err := advance(ctx, eng, e.At, step); err != nil {
			return result, err
		}
		if _, ok := eng.Record(e); !ok {
			result.Deduped++
			continue
		}
		result.Applied++
	}

	if opts.Tail > 0 {
		if err := advance(ctx, eng, eng.Clock().Now()+opts.Tail, step); err != nil {
			return result, err
		}
	}
	result.LastAt = eng.Clock().Now()
	return result, nil
}

// advance ticks eng in steps until its clock reaches target.
func advance(ctx context.Context, eng Engine, target, step time.Duration) error {
	clk := eng.Clock()
	for {
		now := clk.Now()
		if now >= target {
			return nil
		}
		if clk.Paused() {
			return ErrPaused
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		eng.Tick(min(step, target-now))
	}
}

// scan counts the input and finds holes in its sequence numbers.
func scan(events []event.Event) Result {
	result := Result{Read: len(events)}
	var prev uint64
	for i, e := range events {
		switch {
		case i == 0 || e.Seq <= prev:
			result.Segments++
		case e.Seq != prev+1:
			result.Gaps = append(result.Gaps, Gap{After: prev, Next: e.Seq})
		}
		prev = e.Seq
	}
	return result
}
