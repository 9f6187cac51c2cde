package watch

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/vigil/internal/logview"
	"github.com/dyluth/vigil/internal/metrics"
	"github.com/dyluth/vigil/internal/recorder"
	"github.com/dyluth/vigil/pkg/event"
)

// FormatEvent renders one live event as a single human-readable line.
func FormatEvent(e event.Event) string {
	at := fmt.Sprintf("[%7.2fs]", e.At.Seconds())
	switch e.Kind {
	case event.KindViolationDetected:
		return fmt.Sprintf("%s 🚨 Violation: %s broke %s%s", at, orUnknown(e.ActorID), orUnknown(e.Topic), where(e))
	case event.KindReportFiled:
		return fmt.Sprintf("%s 📣 Report: %s reported %s for %s%s", at, orUnknown(e.ActorID), orUnknown(e.TargetID), orUnknown(e.Topic), where(e))
	case event.KindInterrogationStarted:
		return fmt.Sprintf("%s 🔎 Interrogation: %s about %s%s", at, orUnknown(e.TargetID), orUnknown(e.Topic), where(e))
	case event.KindVerdictGiven:
		return fmt.Sprintf("%s ⚖️  Verdict: %s on %s (score %.0f)", at, directive(e.Note), orUnknown(e.TargetID), e.Delta)
	case event.KindRumorShared:
		return fmt.Sprintf("%s 🗣️  Rumor: %s told %s about %s", at, orUnknown(e.ActorID), orUnknown(e.TargetID), orUnknown(e.SourceID))
	case event.KindRumorConfirmed:
		return fmt.Sprintf("%s ✅ Rumor Confirmed: %s about %s", at, orUnknown(e.Topic), orUnknown(e.SourceID))
	case event.KindRumorDebunked:
		return fmt.Sprintf("%s ❌ Rumor Debunked: %s about %s", at, orUnknown(e.Topic), orUnknown(e.SourceID))
	case event.KindSuspicionUpdated:
		return fmt.Sprintf("%s 👀 Suspicion: %s %+.1f (%s)", at, orUnknown(e.ActorID), e.Delta, orUnknown(e.RuleID))
	}
	return fmt.Sprintf("%s • %s", at, recorder.Summarize(e))
}

func where(e event.Event) string {
	if e.PlaceID == "" {
		return ""
	}
	return " at " + e.PlaceID
}

// directive is the part of a verdict note before the first colon.
func directive(note string) string {
	if i := strings.Index(note, ":"); i >= 0 {
		return note[:i]
	}
	return orUnknown(note)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// Stream copies events from sub to w until ctx is cancelled or the
// subscription ends. Events failing filters are skipped. When m is not nil,
// every delivered event is counted in it.
func Stream(ctx context.Context, sub *Subscription, format logview.OutputFormat, filters *logview.FilterCriteria, m *metrics.Metrics, w io.Writer) error {
	errs := sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(w, "⚠️  %v\n", err)

		case e, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if m != nil {
				count(m, e)
			}
			if filters != nil && !filters.Matches(e) {
				continue
			}
			if format == logview.OutputFormatJSONL {
				if err := logview.FormatJSONL(w, []event.Event{e}); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintln(w, FormatEvent(e)); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
		}
	}
}

func count(m *metrics.Metrics, e event.Event) {
	m.EventsRecorded.WithLabelValues(string(e.Kind)).Inc()
	switch e.Kind {
	case event.KindReportFiled:
		m.ReportsFiled.Inc()
	case event.KindRumorShared, event.KindRumorConfirmed, event.KindRumorDebunked:
		m.Rumors.WithLabelValues(string(e.Kind)).Inc()
	}
}
