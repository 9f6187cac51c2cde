package logview

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/vigil/internal/recorder"
	"github.com/dyluth/vigil/pkg/event"
)

// FormatTable writes events as a formatted table to the provided writer.
// The table includes columns: SEQ, AT, KIND, ACTOR, PLACE and DETAIL (truncated).
// Returns the number of events formatted.
func FormatTable(w io.Writer, events []event.Event, source string) int {
	if len(events) == 0 {
		fmt.Fprintf(w, "No events found in '%s'\n", source)
		return 0
	}

	fmt.Fprintf(w, "Events in '%s':\n\n", source)

	fmt.Fprintf(w, "%-6s %-10s %-22s %-14s %-12s %s\n",
		"SEQ", "AT", "KIND", "ACTOR", "PLACE", "DETAIL")
	fmt.Fprintf(w, "%-6s %-10s %-22s %-14s %-12s %s\n",
		"------", "----------", "----------------------", "--------------", "------------", "----------------------------------------")

	for _, e := range events {
		fmt.Fprintf(w, "%-6d %-10s %-22s %-14s %-12s %s\n",
			e.Seq,
			formatAt(e.At),
			formatKind(e.Kind),
			orDash(truncate(e.ActorID, 14)),
			orDash(truncate(e.PlaceID, 12)),
			formatDetail(e),
		)
	}

	countMsg := "event"
	if len(events) != 1 {
		countMsg = "events"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(events), countMsg)

	return len(events)
}

// FormatJSONL writes events as line-delimited JSON (JSONL) to the provided writer,
// in the same encoding the event log persists.
func FormatJSONL(w io.Writer, events []event.Event) error {
	for _, e := range events {
		line, err := event.MarshalLine(e)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", line); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// formatAt renders simulation time as m:ss.mmm.
func formatAt(at time.Duration) string {
	if at < 0 {
		at = 0
	}
	minutes := int(at / time.Minute)
	rest := at % time.Minute
	return fmt.Sprintf("%d:%02d.%03d", minutes, int(rest/time.Second), int(rest%time.Second/time.Millisecond))
}

// formatKind shortens the longest kind names for compact display.
func formatKind(k event.Kind) string {
	switch k {
	case event.KindProcedureArtifactInserted:
		return "ArtifactInserted"
	case event.KindInterrogationStarted:
		return "Interrogation"
	}
	return truncate(string(k), 22)
}

// formatDetail summarizes the event on one line, max 40 characters.
func formatDetail(e event.Event) string {
	line := recorder.Summarize(e)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return orDash(truncate(strings.TrimSpace(line), 40))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
