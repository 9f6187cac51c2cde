// Package logview lists persisted events for the CLI.
package logview

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dyluth/vigil/internal/replay"
	"github.com/dyluth/vigil/internal/timespec"
	"github.com/dyluth/vigil/pkg/event"
)

// OutputFormat specifies how to format the event list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated details
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete events as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputFormatDefault:
		return OutputFormatDefault, nil
	case OutputFormatJSONL:
		return OutputFormatJSONL, nil
	}
	return "", fmt.Errorf("invalid output format '%s' (must be 'default' or 'jsonl')", s)
}

// FilterCriteria defines filtering options for the log command.
// All filters are ANDed together.
type FilterCriteria struct {
	Range    timespec.Range
	KindGlob string // Glob pattern for the event kind, empty = no filter
	ActorID  string // Exact match on the actor, empty = no filter
	PlaceID  string // Exact match on the place, empty = no filter
}

// Matches returns true if the event matches all filter criteria.
func (fc *FilterCriteria) Matches(e event.Event) bool {
	if !fc.Range.Contains(e.At) {
		return false
	}

	if fc.KindGlob != "" {
		matched, err := filepath.Match(fc.KindGlob, string(e.Kind))
		if err != nil || !matched {
			return false
		}
	}

	if fc.ActorID != "" && e.ActorID != fc.ActorID {
		return false
	}
	if fc.PlaceID != "" && e.PlaceID != fc.PlaceID {
		return false
	}

	return true
}

// Filter returns the events matching fc, keeping their order.
func Filter(events []event.Event, fc *FilterCriteria) []event.Event {
	if fc == nil {
		return events
	}
	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if fc.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// List loads every event from src, applies the filters and writes them in
// chronological order.
func List(ctx context.Context, src replay.Source, label string, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	if filters != nil && filters.KindGlob != "" {
		if _, err := filepath.Match(filters.KindGlob, ""); err != nil {
			return fmt.Errorf("invalid --kind pattern '%s': %w", filters.KindGlob, err)
		}
	}

	events, err := replay.Load(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	events = Filter(events, filters)

	switch format {
	case OutputFormatJSONL:
		return FormatJSONL(w, events)
	default:
		FormatTable(w, events, label)
		return nil
	}
}
