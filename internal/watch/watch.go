// Package watch tails the live event stream an engine publishes to Redis.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/vigil/internal/eventlog"
	"github.com/dyluth/vigil/pkg/event"
)

// Subscription delivers decoded events from an instance's event stream.
type Subscription struct {
	events <-chan event.Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan event.Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors are decode failures; the offending message is skipped and the
// subscription continues.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe subscribes to the event stream of instanceName. It returns once
// the subscription is confirmed by the server.
// Caller must call subscription.Close() when done.
func Subscribe(ctx context.Context, rdb *redis.Client, instanceName string) (*Subscription, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	channel := eventlog.EventStreamChannel(instanceName)
	pubsub := rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	eventsChan := make(chan event.Event, 64)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				e, err := event.UnmarshalLine([]byte(msg.Payload))
				if err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to decode stream message: %w", err):
					case <-subCtx.Done():
						return
					default:
						// Nobody is draining errors; drop it rather than stall the stream.
					}
					continue
				}

				select {
				case eventsChan <- e:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
