package logview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dyluth/vigil/internal/replay"
	"github.com/dyluth/vigil/internal/resolver"
	"github.com/dyluth/vigil/pkg/event"
)

// Get loads src, resolves shortID against it and writes the single matching
// event as pretty-printed JSON. Resolver errors are returned unwrapped so
// callers can inspect them.
func Get(ctx context.Context, src replay.Source, shortID string, w io.Writer) error {
	events, err := replay.Load(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	e, err := resolver.ResolveEventID(events, shortID)
	if err != nil {
		return err
	}
	return FormatSingleJSON(w, e)
}

// FormatSingleJSON writes a single event as pretty-printed JSON to the provided writer.
func FormatSingleJSON(w io.Writer, e event.Event) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal event to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	// Add newline for clean output
	_, err = fmt.Fprintln(w)
	return err
}
