package eventlog

import (
	"context"
	"errors"
	"fmt"
)

// Sink is durable storage for serialized event lines.
// Append is only ever called from the appender worker, one line at a time,
// in record order.
type Sink interface {
	Append(ctx context.Context, line []byte) error
	Close() error
}

// MultiSink fans every line out to several sinks.
// A failing sink does not stop the others; errors are joined.
type MultiSink []Sink

// NewMultiSink drops nil sinks and returns the remaining fan-out.
func NewMultiSink(sinks ...Sink) MultiSink {
	m := make(MultiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m MultiSink) Append(ctx context.Context, line []byte) error {
	var errs []error
	for i, s := range m {
		if err := s.Append(ctx, line); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// discardSink accepts and forgets every line.
type discardSink struct{}

func (discardSink) Append(context.Context, []byte) error { return nil }
func (discardSink) Close() error                         { return nil }
