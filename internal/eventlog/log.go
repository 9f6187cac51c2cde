// Package eventlog is the append-only, bounded, deduplicating event log at
// the centre of the engine. Every component publishes through Record and
// observes through Subscribe; persistence happens asynchronously behind an
// Appender.
package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dyluth/vigil/internal/clock"
	"github.com/dyluth/vigil/internal/metrics"
	"github.com/dyluth/vigil/pkg/event"
)

const (
	// DefaultCapacity is the ring buffer size of a log.
	DefaultCapacity = 512
	// DefaultDedupWindow is how long an identical event key is collapsed.
	DefaultDedupWindow = 250 * time.Millisecond
)

// alwaysRecord kinds bypass the dedup window.
var alwaysRecord = map[event.Kind]bool{
	event.KindVerdictGiven:         true,
	event.KindInterrogationStarted: true,
	event.KindReportFiled:          true,
	event.KindUtterance:            true,
	event.KindStatementGiven:       true,
	event.KindExplanationGiven:     true,
	event.KindRebuttalGiven:        true,
}

// alwaysRecorded reports whether kind is exempt from deduplication.
func alwaysRecorded(kind event.Kind) bool {
	return alwaysRecord[kind]
}

// Recorder is the write side of the log, as seen by components that emit events.
type Recorder interface {
	Record(e event.Event) (event.Event, bool)
}

// Reader is the query side of the log.
type Reader interface {
	Recent(n int) []event.Event
	ByID(id string) (event.Event, bool)
}

// Options configures a Log. Zero values fall back to defaults.
type Options struct {
	Capacity    int
	DedupWindow time.Duration
	// Sink receives one serialized line per recorded event. Nil disables persistence.
	Sink    Sink
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Stats is a snapshot of the log counters.
type Stats struct {
	Total    uint64 // events accepted since the last reset; also the latest Seq
	Dropped  uint64 // events evicted from the ring buffer
	Deduped  uint64 // record calls collapsed by the dedup window
	Buffered int    // events currently held
}

type dedupKey struct {
	kind  event.Kind
	actor string
	topic string
	place string
}

type subscriber struct {
	id uint64
	fn func(event.Event)
}

// Log is the in-memory event log.
//
// Subscribers are called synchronously, in registration order, before Record
// returns. A subscriber that records while being notified does not recurse:
// its event is buffered and delivered after the current delivery completes,
// so every subscriber sees events in exactly the order they were recorded.
type Log struct {
	clock       clock.Clock
	capacity    int
	dedupWindow time.Duration
	appender    *Appender
	logger      *zap.Logger
	metrics     *metrics.Metrics

	mu       sync.Mutex
	ring     []event.Event
	head     int // index of the oldest event
	size     int
	total    uint64
	dropped  uint64
	deduped  uint64
	lastSeen map[dedupKey]time.Duration
	pruneAt  int // dedup table size that triggers the next prune

	subs        []subscriber
	nextSubID   uint64
	outbox      []event.Event
	dispatching bool
}

// New creates a log reading time from clk.
func New(clk clock.Clock, opts Options) *Log {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = DefaultDedupWindow
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := metrics.OrNew(opts.Metrics)

	l := &Log{
		clock:       clk,
		capacity:    opts.Capacity,
		dedupWindow: opts.DedupWindow,
		logger:      opts.Logger.Named("eventlog"),
		metrics:     m,
		ring:        make([]event.Event, opts.Capacity),
		lastSeen:    make(map[dedupKey]time.Duration),
		pruneAt:     2 * opts.Capacity,
	}
	if opts.Sink != nil {
		l.appender = NewAppender(opts.Sink, opts.Logger, m)
	}
	return l
}

// Record ingests an event and returns it as stored.
//
// The log assigns the id (when empty), the timestamp, the sequence number and
// the category, and backfills place from zone and topic from rule or kind.
// Returns (Event{}, false) when the call was collapsed by the dedup window.
func (l *Log) Record(e event.Event) (event.Event, bool) {
	l.mu.Lock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.At = l.clock.Now()
	e.Normalize()
	if e.PlaceID == "" {
		e.PlaceID = e.ZoneID
	}
	if e.Topic == "" {
		if e.RuleID != "" {
			e.Topic = e.RuleID
		} else {
			e.Topic = string(e.Kind)
		}
	}

	key := dedupKey{kind: e.Kind, actor: e.ActorID, topic: e.Topic, place: e.PlaceID}
	if !alwaysRecorded(e.Kind) {
		if last, ok := l.lastSeen[key]; ok && e.At-last < l.dedupWindow {
			l.deduped++
			l.mu.Unlock()
			l.metrics.EventsDeduped.Inc()
			return event.Event{}, false
		}
	}
	l.lastSeen[key] = e.At
	if len(l.lastSeen) >= l.pruneAt {
		l.pruneDedupLocked(e.At)
	}

	l.total++
	e.Seq = l.total
	l.push(e)
	l.persist(e)

	l.outbox = append(l.outbox, e)
	deliver := !l.dispatching
	l.dispatching = true
	l.mu.Unlock()

	l.metrics.EventsRecorded.WithLabelValues(string(e.Kind)).Inc()

	if deliver {
		l.drain()
	}
	return e, true
}

// push appends to the ring, evicting the oldest event when full. Caller holds mu.
func (l *Log) push(e event.Event) {
	if l.size < l.capacity {
		l.ring[(l.head+l.size)%l.capacity] = e
		l.size++
		return
	}
	l.ring[l.head] = e
	l.head = (l.head + 1) % l.capacity
	l.dropped++
	l.metrics.EventsEvicted.Inc()
}

// pruneDedupLocked drops keys whose window has closed. The next prune waits
// until the table doubles so the cost stays amortized. Caller holds mu.
func (l *Log) pruneDedupLocked(now time.Duration) {
	for k, at := range l.lastSeen {
		if now-at >= l.dedupWindow {
			delete(l.lastSeen, k)
		}
	}
	l.pruneAt = max(2*l.capacity, 2*len(l.lastSeen))
}

// persist serializes and enqueues the event line. Caller holds mu so lines
// are enqueued in sequence order.
func (l *Log) persist(e event.Event) {
	if l.appender == nil {
		return
	}
	line, err := event.MarshalLine(e)
	if err != nil {
		l.metrics.PersistDropped.WithLabelValues("unserializable").Inc()
		l.logger.Warn("dropping unserializable event",
			zap.String("event_id", e.ID),
			zap.String("kind", string(e.Kind)),
			zap.Error(err),
		)
		return
	}
	l.appender.Enqueue(line)
}

// drain delivers queued events until the outbox is empty. A panicking
// subscriber is re-raised to the caller, and later records deliver again.
func (l *Log) drain() {
	defer func() {
		if r := recover(); r != nil {
			l.mu.Lock()
			l.dispatching = false
			l.mu.Unlock()
			panic(r)
		}
	}()
	for {
		l.mu.Lock()
		if len(l.outbox) == 0 {
			l.dispatching = false
			l.mu.Unlock()
			return
		}
		e := l.outbox[0]
		l.outbox[0] = event.Event{}
		l.outbox = l.outbox[1:]
		subs := make([]subscriber, len(l.subs))
		copy(subs, l.subs)
		l.mu.Unlock()

		for _, s := range subs {
			s.fn(e)
		}
	}
}

// Subscribe registers fn to observe every recorded event. The returned
// function removes the subscription; calling it more than once is harmless.
func (l *Log) Subscribe(fn func(event.Event)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSubID++
	id := l.nextSubID
	l.subs = append(l.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, s := range l.subs {
				if s.id == id {
					l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Recent returns up to n of the newest events, oldest first.
func (l *Log) Recent(n int) []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 {
		return nil
	}
	if n > l.size {
		n = l.size
	}
	out := make([]event.Event, n)
	start := l.size - n
	for i := 0; i < n; i++ {
		out[i] = l.ring[(l.head+start+i)%l.capacity]
	}
	return out
}

// ByID finds a buffered event, scanning newest first.
func (l *Log) ByID(id string) (event.Event, bool) {
	if id == "" {
		return event.Event{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := l.size - 1; i >= 0; i-- {
		e := l.ring[(l.head+i)%l.capacity]
		if e.ID == id {
			return e, true
		}
	}
	return event.Event{}, false
}

// Stats returns a snapshot of the counters.
func (l *Log) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Total:    l.total,
		Dropped:  l.dropped,
		Deduped:  l.deduped,
		Buffered: l.size,
	}
}

// Reset clears the buffer, counters and dedup table. Subscribers stay
// registered. Lines already handed to the appender are still written.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.ring {
		l.ring[i] = event.Event{}
	}
	l.head = 0
	l.size = 0
	l.total = 0
	l.dropped = 0
	l.deduped = 0
	l.lastSeen = make(map[dedupKey]time.Duration)
	l.pruneAt = 2 * l.capacity
	l.outbox = nil
}

// Flush waits for queued lines to reach the sink.
func (l *Log) Flush(ctx context.Context) error {
	if l.appender == nil {
		return nil
	}
	return l.appender.Flush(ctx)
}

// Close flushes and closes the sink.
func (l *Log) Close(ctx context.Context) error {
	if l.appender == nil {
		return nil
	}
	return l.appender.Close(ctx)
}
