// Package recorder copies recorded events onto the blackboard of the place
// they happened at, turning the event stream into spatial memory.
package recorder

import (
	"fmt"

	"github.com/dyluth/vigil/internal/clock"
	"github.com/dyluth/vigil/pkg/blackboard"
	"github.com/dyluth/vigil/pkg/event"
)

// Recorder is an event log subscriber.
type Recorder struct {
	clock  clock.Clock
	boards *blackboard.Registry
}

// New creates a recorder posting to boards.
func New(clk clock.Clock, boards *blackboard.Registry) *Recorder {
	return &Recorder{clock: clk, boards: boards}
}

// Observe appends e to the board registered under its place. System events
// and events at places without a board are ignored.
func (r *Recorder) Observe(e event.Event) {
	if e.Category == event.CategorySystem || e.PlaceID == "" {
		return
	}
	b, ok := r.boards.Get(e.PlaceID)
	if !ok {
		return
	}
	b.Add(EntryFor(e), r.clock.Now())
}

// EntryFor maps an event onto a blackboard entry.
func EntryFor(e event.Event) blackboard.Entry {
	return blackboard.Entry{
		Text:     Summarize(e),
		ActorID:  e.ActorID,
		Topic:    e.Topic,
		RuleID:   e.RuleID,
		Category: e.Category,
		Severity: e.Severity,
		Delta:    e.Delta,
		Position: e.Position,
		Trust:    e.Trust,
		SourceID: e.ID,
	}
}

// Summarize renders a short line describing an event.
func Summarize(e event.Event) string {
	actor := e.ActorID
	if actor == "" {
		actor = "someone"
	}
	switch e.Kind {
	case event.KindViolationDetected:
		return fmt.Sprintf("%s broke %s", actor, e.Topic)
	case event.KindReportFiled:
		return fmt.Sprintf("%s reported %s for %s", actor, orUnknown(e.TargetID), e.Topic)
	case event.KindRumorShared:
		return fmt.Sprintf("%s says %s broke %s", actor, orUnknown(e.SourceID), e.Topic)
	case event.KindRumorConfirmed:
		return fmt.Sprintf("rumor about %s confirmed", orUnknown(e.SourceID))
	case event.KindRumorDebunked:
		return fmt.Sprintf("rumor about %s debunked", orUnknown(e.SourceID))
	case event.KindVerdictGiven:
		return fmt.Sprintf("verdict on %s: %s", e.Topic, e.Note)
	case event.KindUtterance, event.KindStatementGiven, event.KindExplanationGiven, event.KindRebuttalGiven:
		if e.Note != "" {
			return fmt.Sprintf("%s: %q", actor, e.Note)
		}
	}
	if e.Note != "" {
		return fmt.Sprintf("%s %s (%s)", actor, e.Kind, e.Note)
	}
	return fmt.Sprintf("%s %s", actor, e.Kind)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
