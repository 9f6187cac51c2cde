// Package resolver turns user-typed event id prefixes into events.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/dyluth/vigil/pkg/event"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
// Set to 6 characters to balance usability with collision avoidance.
const MinShortIDLength = 6

// ResolveEventID finds the single event in events whose id is shortID or
// starts with it.
//
// The function handles three cases:
// 1. Input is a full UUID or an exact id - returned if present
// 2. Input is too short (< 6 chars) - returns validation error
// 3. Input is a prefix - scans for matches and returns the unique result
func ResolveEventID(events []event.Event, shortID string) (event.Event, error) {
	for _, e := range events {
		if e.ID == shortID {
			return e, nil
		}
	}
	if _, err := uuid.Parse(shortID); err == nil {
		return event.Event{}, &NotFoundError{ShortID: shortID}
	}

	if len(shortID) < MinShortIDLength {
		return event.Event{}, fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	var matches []event.Event
	for _, e := range events {
		if strings.HasPrefix(e.ID, shortID) {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 0:
		return event.Event{}, &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		sort.Strings(ids)
		return event.Event{}, &AmbiguousError{ShortID: shortID, Matches: ids}
	}
}

// NotFoundError indicates no events matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no events found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple events matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d events", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous short IDs.
// Lists all matching ids (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	msg := fmt.Sprintf("Error: ambiguous short ID '%s' matches %d events:\n", err.ShortID, len(err.Matches))

	displayCount := min(len(err.Matches), 10)
	for i := 0; i < displayCount; i++ {
		msg += fmt.Sprintf("  %s\n", err.Matches[i])
	}

	if len(err.Matches) > 10 {
		msg += fmt.Sprintf("  ...and %d more\n", len(err.Matches)-10)
	}

	msg += "\nUse a longer prefix to uniquely identify the event."
	return msg
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
