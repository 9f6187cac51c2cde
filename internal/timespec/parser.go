// Package timespec parses simulation timestamps given on the command line.
//
// Persisted events carry simulation time, measured from the start of the
// run, so every bound here is an offset rather than a wall-clock instant.
package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse parses a simulation time specification.
// Supports three formats:
//   - Go duration format: "90s", "1m30s", "250ms"
//   - Plain seconds: "90", "12.5"
//   - Clock format: "mm:ss" or "hh:mm:ss"
func Parse(spec string) (time.Duration, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return nonNegative(spec, d)
	}

	if secs, err := strconv.ParseFloat(spec, 64); err == nil {
		return nonNegative(spec, time.Duration(secs*float64(time.Second)))
	}

	if d, ok := parseClock(spec); ok {
		return d, nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1m30s', seconds like '90' or a clock like '01:30')", spec)
}

func nonNegative(spec string, d time.Duration) (time.Duration, error) {
	if d < 0 {
		return 0, fmt.Errorf("invalid time specification: %s (must not be negative)", spec)
	}
	return d, nil
}

func parseClock(spec string) (time.Duration, bool) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var total time.Duration
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		if i > 0 && n >= 60 {
			return 0, false
		}
		total = total*60 + time.Duration(n)
	}
	return total * time.Second, true
}

// Range is an optional pair of bounds; Since is inclusive, Until exclusive.
type Range struct {
	Since    time.Duration
	Until    time.Duration
	HasSince bool
	HasUntil bool
}

// Contains reports whether at falls within the range.
func (r Range) Contains(at time.Duration) bool {
	if r.HasSince && at < r.Since {
		return false
	}
	if r.HasUntil && at >= r.Until {
		return false
	}
	return true
}

// ParseRange parses both --since and --until flags into a range. An empty
// flag leaves that end unbounded.
//
// Validates that since < until if both are specified.
func ParseRange(since, until string) (Range, error) {
	var r Range
	var err error

	if since != "" {
		if r.Since, err = Parse(since); err != nil {
			return Range{}, fmt.Errorf("invalid --since: %w", err)
		}
		r.HasSince = true
	}

	if until != "" {
		if r.Until, err = Parse(until); err != nil {
			return Range{}, fmt.Errorf("invalid --until: %w", err)
		}
		r.HasUntil = true
	}

	if r.HasSince && r.HasUntil && r.Since >= r.Until {
		return Range{}, fmt.Errorf("--since must be before --until")
	}

	return r, nil
}
