package eventlog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dyluth/vigil/internal/metrics"
)

const defaultWriteTimeout = 5 * time.Second

// Appender is the single-writer FIFO between the tick thread and a Sink.
//
// Enqueue never blocks on I/O. A worker goroutine is started on the first
// enqueue and exits as soon as the queue is empty; the next enqueue starts a
// new one. Only one worker exists at a time, so lines reach the sink in
// enqueue order. A line the sink rejects is logged and dropped, never requeued.
type Appender struct {
	sink         Sink
	logger       *zap.Logger
	metrics      *metrics.Metrics
	errLimiter   *rate.Limiter
	writeTimeout time.Duration

	mu      sync.Mutex
	queue   [][]byte
	running bool
	idle    chan struct{} // closed when the current worker exits
	closed  bool
}

// NewAppender creates an appender over sink. Sink errors are logged at most
// a few times per second so a dead backend cannot flood the log.
func NewAppender(sink Sink, logger *zap.Logger, m *metrics.Metrics) *Appender {
	if sink == nil {
		sink = discardSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Appender{
		sink:         sink,
		logger:       logger.Named("appender"),
		metrics:      metrics.OrNew(m),
		errLimiter:   rate.NewLimiter(rate.Limit(2), 5),
		writeTimeout: defaultWriteTimeout,
	}
}

// Enqueue queues a line for writing and returns immediately.
func (a *Appender) Enqueue(line []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		a.metrics.PersistDropped.WithLabelValues("closed").Inc()
		return
	}

	a.queue = append(a.queue, line)
	a.metrics.AppenderBacklog.Set(float64(len(a.queue)))
	if !a.running {
		a.running = true
		a.idle = make(chan struct{})
		go a.run(a.idle)
	}
}

// Pending returns the number of queued lines not yet handed to the sink.
func (a *Appender) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

func (a *Appender) run(idle chan struct{}) {
	for {
		a.mu.Lock()
		if len(a.queue) == 0 {
			a.running = false
			close(idle)
			a.mu.Unlock()
			return
		}
		line := a.queue[0]
		a.queue[0] = nil
		a.queue = a.queue[1:]
		a.metrics.AppenderBacklog.Set(float64(len(a.queue)))
		a.mu.Unlock()

		a.write(line)
	}
}

func (a *Appender) write(line []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
	defer cancel()

	if err := a.sink.Append(ctx, line); err != nil {
		a.metrics.PersistDropped.WithLabelValues("sink_error").Inc()
		if a.errLimiter.Allow() {
			a.logger.Warn("failed to persist event line, dropping it",
				zap.Error(err),
				zap.Int("bytes", len(line)),
			)
		}
	}
}

// Flush waits until the queue has drained and no worker is running.
func (a *Appender) Flush(ctx context.Context) error {
	for {
		a.mu.Lock()
		if !a.running {
			a.mu.Unlock()
			return nil
		}
		idle := a.idle
		a.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close flushes outstanding lines, then closes the sink.
// Lines enqueued after Close are dropped.
func (a *Appender) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	if err := a.Flush(ctx); err != nil {
		return err
	}
	return a.sink.Close()
}
