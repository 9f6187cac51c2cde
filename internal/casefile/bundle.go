// Package casefile gathers the events relevant to an interrogation into a
// scored case bundle and maps the score to a verdict.
package casefile

import (
	"github.com/dyluth/vigil/internal/eventlog"
	"github.com/dyluth/vigil/internal/report"
	"github.com/dyluth/vigil/pkg/event"
)

// DefaultWindow is how many recent events a build looks at.
const DefaultWindow = 40

// Bundle is the classified, scored evidence for one adjudication.
type Bundle struct {
	Reports      []event.Event
	Violations   []event.Event
	Evidence     []event.Event
	Procedures   []event.Event
	Statements   []event.Event
	Explanations []event.Event
	Rebuttals    []event.Event
	Gossip       []event.Event // informational only, never scored

	Score    int
	RuleID   string
	Topic    string
	PlaceID  string
	ZoneID   string
	TargetID string
}

// Score weighs the buckets: two per report, one per violation, three per
// piece of evidence and one if any procedure happened.
func Score(reports, violations, evidence, procedures int) int {
	s := 2*reports + violations + 3*evidence
	if procedures > 0 {
		s++
	}
	return s
}

// Bundler builds case bundles from the event log.
type Bundler struct {
	log    eventlog.Reader
	window int
}

// NewBundler creates a bundler looking at the last window events. A
// non-positive window uses DefaultWindow.
func NewBundler(log eventlog.Reader, window int) *Bundler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Bundler{log: log, window: window}
}

// Build classifies the recent events correlated with env.
//
// When env carries attached event ids, events outside that set are skipped
// unless their topic matches the envelope topic. When env names a place,
// events at other places are skipped.
func (b *Bundler) Build(env report.Envelope) Bundle {
	bundle := Bundle{
		RuleID:   env.RuleID,
		Topic:    env.Topic,
		PlaceID:  env.PlaceID,
		ZoneID:   env.ZoneID,
		TargetID: env.TargetID,
	}

	attached := make(map[string]bool, len(env.EventIDs))
	for _, id := range env.EventIDs {
		attached[id] = true
	}

	for _, e := range b.log.Recent(b.window) {
		if len(attached) > 0 && !attached[e.ID] && e.Topic != env.Topic {
			continue
		}
		if env.PlaceID != "" && e.PlaceID != env.PlaceID {
			continue
		}
		bundle.classify(e)
	}

	bundle.Score = Score(len(bundle.Reports), len(bundle.Violations), len(bundle.Evidence), len(bundle.Procedures))
	return bundle
}

func (bundle *Bundle) classify(e event.Event) {
	switch e.Kind {
	case event.KindReportFiled:
		bundle.Reports = append(bundle.Reports, e)
	case event.KindViolationDetected:
		bundle.Violations = append(bundle.Violations, e)
	case event.KindEvidenceCaptured, event.KindCctvCaptured, event.KindTicketIssued:
		bundle.Evidence = append(bundle.Evidence, e)
	case event.KindTaskStarted, event.KindTaskCompleted, event.KindApprovalGranted, event.KindProcedureArtifactInserted:
		bundle.Procedures = append(bundle.Procedures, e)
	case event.KindStatementGiven:
		bundle.Statements = append(bundle.Statements, e)
	case event.KindExplanationGiven:
		bundle.Explanations = append(bundle.Explanations, e)
	case event.KindRebuttalGiven:
		bundle.Rebuttals = append(bundle.Rebuttals, e)
	case event.KindRumorShared, event.KindRumorConfirmed, event.KindRumorDebunked:
		bundle.Gossip = append(bundle.Gossip, e)
	}
}
