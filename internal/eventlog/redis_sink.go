package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const maxRetryDelay = 250 * time.Millisecond

// RedisSinkOptions tunes RedisSink. Zero values fall back to defaults.
type RedisSinkOptions struct {
	// MaxLen trims the events list to the newest MaxLen lines. Zero keeps everything.
	MaxLen int64
	// Attempts per line before the failure counts against the breaker.
	Attempts uint
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
	// TripAfter consecutive failed lines opens the breaker.
	TripAfter uint32
}

// RedisSink appends each line to vigil:{instance}:events and publishes it on
// vigil:{instance}:event_stream for live watchers.
//
// Writes go through a circuit breaker wrapping a bounded retry. Once the
// breaker is open lines fail immediately, so an unreachable Redis costs the
// appender nothing but the drop.
type RedisSink struct {
	rdb          *redis.Client
	instanceName string
	opts         RedisSinkOptions
	cb           *gobreaker.CircuitBreaker
	ownsClient   bool
}

// NewRedisSink creates a sink over an existing client. The caller keeps ownership of rdb.
func NewRedisSink(rdb *redis.Client, instanceName string, opts RedisSinkOptions) (*RedisSink, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	if opts.TripAfter == 0 {
		opts.TripAfter = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-sink:" + instanceName,
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.TripAfter
		},
	})

	return &RedisSink{
		rdb:          rdb,
		instanceName: instanceName,
		opts:         opts,
		cb:           cb,
	}, nil
}

// OpenRedisSink parses a redis:// URL and creates a sink owning its client.
func OpenRedisSink(redisURL, instanceName string, opts RedisSinkOptions) (*RedisSink, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	s, err := NewRedisSink(redis.NewClient(redisOpts), instanceName, opts)
	if err != nil {
		return nil, err
	}
	s.ownsClient = true
	return s, nil
}

func (s *RedisSink) Append(ctx context.Context, line []byte) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(s.opts.Attempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				if d := retry.BackOffDelay(n, err, config); d < maxRetryDelay {
					return d
				}
				return maxRetryDelay
			}),
		)
		return nil, r.Do(func() error {
			return s.write(ctx, line)
		})
	})
	if err != nil {
		return fmt.Errorf("redis sink: %w", err)
	}
	return nil
}

func (s *RedisSink) write(ctx context.Context, line []byte) error {
	key := EventsKey(s.instanceName)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, line)
	if s.opts.MaxLen > 0 {
		pipe.LTrim(ctx, key, -s.opts.MaxLen, -1)
	}
	pipe.Publish(ctx, EventStreamChannel(s.instanceName), line)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write event line: %w", err)
	}
	return nil
}

// State exposes the breaker state for health reporting.
func (s *RedisSink) State() gobreaker.State {
	return s.cb.State()
}

func (s *RedisSink) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.rdb.Close()
}
