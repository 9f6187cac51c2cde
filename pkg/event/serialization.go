package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Serialization helpers for the persisted line log.
//
// Each event is one compact JSON object on its own line. Lines are meant to be
// human-inspectable and replayable, so the encoding is stable field order JSON
// (struct order) with no trailing newline; writers add the newline.

// MarshalLine encodes an event as a single JSON line without trailing newline.
// Fails for values JSON cannot represent (NaN or infinite floats).
func MarshalLine(e Event) ([]byte, error) {
	if !finite(e.Trust) || !finite(e.Delta) || !finite(e.Position.X) || !finite(e.Position.Y) || !finite(e.Position.Z) {
		return nil, fmt.Errorf("event %s has non-finite numeric field", e.ID)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// UnmarshalLine decodes a single JSON line. The stored category is discarded and derived again.
func UnmarshalLine(line []byte) (Event, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Event{}, fmt.Errorf("empty event line")
	}

	var e Event
	if err := json.Unmarshal(line, &e); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event line: %w", err)
	}
	if err := e.Kind.Validate(); err != nil {
		return Event{}, fmt.Errorf("invalid event line: %w", err)
	}

	e.Normalize()
	return e, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
