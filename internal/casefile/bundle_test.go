package casefile

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/vigil/internal/clock"
	"github.com/dyluth/vigil/internal/eventlog"
	"github.com/dyluth/vigil/internal/report"
	"github.com/dyluth/vigil/pkg/event"
)

func TestScore(t *testing.T) {
	assert.Equal(t, 0, Score(0, 0, 0, 0))
	assert.Equal(t, 5, Score(2, 1, 0, 0))
	assert.Equal(t, 3, Score(0, 0, 1, 0))
	assert.Equal(t, 1, Score(0, 0, 0, 4), "procedures count once")
}

func TestBuild_Scenario(t *testing.T) {
	clk := clock.NewSim()
	log := eventlog.New(clk, eventlog.Options{})
	violation, _ := log.Record(event.Event{Kind: event.KindViolationDetected, ActorID: "player", RuleID: "R_QUEUE", PlaceID: "Store"})
	for _, reporter := range []string{"npc-1", "npc-2"} {
		log.Record(event.Event{Kind: event.KindReportFiled, ActorID: reporter, TargetID: "player", RuleID: "R_QUEUE", PlaceID: "Store", CauseID: violation.ID})
	}
	log.Record(event.Event{Kind: event.KindRumorShared, ActorID: "npc-3", RuleID: "R_QUEUE", PlaceID: "Store"})

	b := NewBundler(log, 0)
	bundle := b.Build(report.Envelope{
		ReporterIDs: []string{"npc-1", "npc-2"},
		EventIDs:    []string{violation.ID},
		RuleID:      "R_QUEUE",
		Topic:       "R_QUEUE",
		PlaceID:     "Store",
	})

	assert.Len(t, bundle.Reports, 2)
	assert.Len(t, bundle.Violations, 1)
	assert.Len(t, bundle.Gossip, 1)
	assert.Equal(t, 5, bundle.Score, "gossip is not scored")
	assert.Equal(t, OutcomeReinforced, Judge(bundle).Outcome)
}

func TestBuild_Filters(t *testing.T) {
	clk := clock.NewSim()
	log := eventlog.New(clk, eventlog.Options{})

	attached, _ := log.Record(event.Event{Kind: event.KindCctvCaptured, ActorID: "cam", Topic: "other", PlaceID: "Store"})
	log.Record(event.Event{Kind: event.KindEvidenceCaptured, ActorID: "cam", Topic: "other", PlaceID: "Store"})
	log.Record(event.Event{Kind: event.KindTicketIssued, ActorID: "warden", Topic: "R_QUEUE", PlaceID: "Store"})
	log.Record(event.Event{Kind: event.KindTicketIssued, ActorID: "warden", Topic: "R_QUEUE", PlaceID: "Cafe"})

	b := NewBundler(log, 0)

	t.Run("attachments are topic permissive", func(t *testing.T) {
		bundle := b.Build(report.Envelope{EventIDs: []string{attached.ID}, Topic: "R_QUEUE", PlaceID: "Store"})
		require.Len(t, bundle.Evidence, 2)
		assert.Equal(t, attached.ID, bundle.Evidence[0].ID)
		assert.Equal(t, event.KindTicketIssued, bundle.Evidence[1].Kind)
	})

	t.Run("no attachments keeps every topic", func(t *testing.T) {
		bundle := b.Build(report.Envelope{Topic: "R_QUEUE", PlaceID: "Store"})
		assert.Len(t, bundle.Evidence, 3)
	})

	t.Run("no place keeps every place", func(t *testing.T) {
		bundle := b.Build(report.Envelope{})
		assert.Len(t, bundle.Evidence, 4)
		assert.Equal(t, 12, bundle.Score)
	})
}

func TestBuild_WindowLimitsLookback(t *testing.T) {
	clk := clock.NewSim()
	log := eventlog.New(clk, eventlog.Options{})
	log.Record(event.Event{Kind: event.KindViolationDetected, ActorID: "player"})
	for i := 0; i < 3; i++ {
		log.Record(event.Event{Kind: event.KindUtterance})
	}

	bundle := NewBundler(log, 3).Build(report.Envelope{})
	assert.Empty(t, bundle.Violations, "violation is outside the window")
}

func TestBuild_Buckets(t *testing.T) {
	clk := clock.NewSim()
	log := eventlog.New(clk, eventlog.Options{})
	kinds := []event.Kind{
		event.KindTaskStarted, event.KindTaskCompleted, event.KindApprovalGranted, event.KindProcedureArtifactInserted,
		event.KindStatementGiven, event.KindExplanationGiven, event.KindRebuttalGiven,
		event.KindRumorConfirmed, event.KindRumorDebunked,
		event.KindLabelChanged, event.KindNoiseObserved,
	}
	for _, k := range kinds {
		log.Record(event.Event{Kind: k})
	}

	bundle := NewBundler(log, 0).Build(report.Envelope{})
	assert.Len(t, bundle.Procedures, 4)
	assert.Len(t, bundle.Statements, 1)
	assert.Len(t, bundle.Explanations, 1)
	assert.Len(t, bundle.Rebuttals, 1)
	assert.Len(t, bundle.Gossip, 2)
	assert.Equal(t, 1, bundle.Score)
}

var scoredKinds = []event.Kind{
	event.KindReportFiled, event.KindViolationDetected, event.KindEvidenceCaptured,
	event.KindTaskStarted, event.KindRumorShared, event.KindUtterance, event.KindCctvCaptured,
}

func TestBuild_DeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("two builds over the same log state are identical", prop.ForAll(
		func(picks []int, places []bool) bool {
			clk := clock.NewSim()
			log := eventlog.New(clk, eventlog.Options{})
			for i, p := range picks {
				place := "Store"
				if i < len(places) && places[i] {
					place = "Cafe"
				}
				clk.Advance(time.Second)
				log.Record(event.Event{Kind: scoredKinds[p], ActorID: "a", RuleID: "R_QUEUE", PlaceID: place})
			}

			b := NewBundler(log, 0)
			env := report.Envelope{Topic: "R_QUEUE", PlaceID: "Store"}
			first := b.Build(env)
			second := b.Build(env)
			return reflect.DeepEqual(first, second) && Judge(first) == Judge(second)
		},
		gen.SliceOf(gen.IntRange(0, len(scoredKinds)-1)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestScore_MonotonicInEvidenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("more evidence never lowers the score or the verdict", prop.ForAll(
		func(reports, violations, evidence, procedures, extra int) bool {
			before := Score(reports, violations, evidence, procedures)
			after := Score(reports, violations, evidence+extra, procedures)
			return after >= before && rank(outcomeOf(after)) >= rank(outcomeOf(before))
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
		gen.IntRange(0, 5),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}

func outcomeOf(score int) Outcome {
	o, _ := outcomeFor(score)
	return o
}

func rank(o Outcome) int {
	switch o {
	case OutcomeExpelled:
		return 3
	case OutcomeReinforced:
		return 2
	case OutcomeHeld:
		return 1
	}
	return 0
}
