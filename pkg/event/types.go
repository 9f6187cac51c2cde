package event

import (
	"fmt"
	"time"
)

// Kind identifies what happened. The set of kinds is closed.
type Kind string

const (
	KindEnteredZone               Kind = "EnteredZone"
	KindExitedZone                Kind = "ExitedZone"
	KindViolationDetected         Kind = "ViolationDetected"
	KindSuspicionUpdated          Kind = "SuspicionUpdated"
	KindReportFiled               Kind = "ReportFiled"
	KindInterrogationStarted      Kind = "InterrogationStarted"
	KindVerdictGiven              Kind = "VerdictGiven"
	KindStatementGiven            Kind = "StatementGiven"
	KindExplanationGiven          Kind = "ExplanationGiven"
	KindRebuttalGiven             Kind = "RebuttalGiven"
	KindUtterance                 Kind = "Utterance"
	KindRumorShared               Kind = "RumorShared"
	KindRumorConfirmed            Kind = "RumorConfirmed"
	KindRumorDebunked             Kind = "RumorDebunked"
	KindEvidenceCaptured          Kind = "EvidenceCaptured"
	KindTicketIssued              Kind = "TicketIssued"
	KindTaskStarted               Kind = "TaskStarted"
	KindTaskCompleted             Kind = "TaskCompleted"
	KindApprovalGranted           Kind = "ApprovalGranted"
	KindProcedureArtifactInserted Kind = "ProcedureArtifactInserted"
	KindLabelChanged              Kind = "LabelChanged"
	KindPaymentProcessed          Kind = "PaymentProcessed"
	KindQueueUpdated              Kind = "QueueUpdated"
	KindSeatClaimed               Kind = "SeatClaimed"
	KindNoiseObserved             Kind = "NoiseObserved"
	KindCctvCaptured              Kind = "CctvCaptured"
	KindExposureUpdated           Kind = "ExposureUpdated"
)

// Kinds lists every valid kind in declaration order.
var Kinds = []Kind{
	KindEnteredZone, KindExitedZone, KindViolationDetected, KindSuspicionUpdated,
	KindReportFiled, KindInterrogationStarted, KindVerdictGiven, KindStatementGiven,
	KindExplanationGiven, KindRebuttalGiven, KindUtterance, KindRumorShared,
	KindRumorConfirmed, KindRumorDebunked, KindEvidenceCaptured, KindTicketIssued,
	KindTaskStarted, KindTaskCompleted, KindApprovalGranted, KindProcedureArtifactInserted,
	KindLabelChanged, KindPaymentProcessed, KindQueueUpdated, KindSeatClaimed,
	KindNoiseObserved, KindCctvCaptured, KindExposureUpdated,
}

// Validate checks if the Kind is a member of the closed enum.
func (k Kind) Validate() error {
	if _, ok := categories[k]; ok {
		return nil
	}
	return fmt.Errorf("unknown event kind: %q", k)
}

// Category groups kinds by how the rest of the engine treats them.
type Category string

const (
	CategoryZone         Category = "Zone"
	CategoryRule         Category = "Rule"
	CategoryAdjudication Category = "Adjudication"
	CategoryDialogue     Category = "Dialogue"
	CategoryGossip       Category = "Gossip"
	CategoryEvidence     Category = "Evidence"
	CategoryProcedure    Category = "Procedure"
	CategoryAmbient      Category = "Ambient"
	CategorySystem       Category = "System"
	CategoryOther        Category = "Other"
)

var categories = map[Kind]Category{
	KindEnteredZone:  CategoryZone,
	KindExitedZone:   CategoryZone,
	KindQueueUpdated: CategoryZone,
	KindSeatClaimed:  CategoryZone,

	KindViolationDetected: CategoryRule,
	KindReportFiled:       CategoryRule,

	KindInterrogationStarted: CategoryAdjudication,
	KindVerdictGiven:         CategoryAdjudication,

	KindStatementGiven:   CategoryDialogue,
	KindExplanationGiven: CategoryDialogue,
	KindRebuttalGiven:    CategoryDialogue,
	KindUtterance:        CategoryDialogue,

	KindRumorShared:    CategoryGossip,
	KindRumorConfirmed: CategoryGossip,
	KindRumorDebunked:  CategoryGossip,

	KindEvidenceCaptured: CategoryEvidence,
	KindCctvCaptured:     CategoryEvidence,
	KindTicketIssued:     CategoryEvidence,

	KindTaskStarted:               CategoryProcedure,
	KindTaskCompleted:             CategoryProcedure,
	KindApprovalGranted:           CategoryProcedure,
	KindProcedureArtifactInserted: CategoryProcedure,
	KindLabelChanged:              CategoryProcedure,
	KindPaymentProcessed:          CategoryProcedure,

	KindNoiseObserved: CategoryAmbient,

	KindSuspicionUpdated: CategorySystem,
	KindExposureUpdated:  CategorySystem,
}

// CategoryOf derives the category of a kind. Unknown kinds map to CategoryOther.
func CategoryOf(k Kind) Category {
	if c, ok := categories[k]; ok {
		return c
	}
	return CategoryOther
}

// Priority ranks categories for memory injection: Evidence > Procedure > Rule > Gossip > everything else.
func (c Category) Priority() int {
	switch c {
	case CategoryEvidence:
		return 4
	case CategoryProcedure:
		return 3
	case CategoryRule:
		return 2
	case CategoryGossip:
		return 1
	default:
		return 0
	}
}

// MaxSeverity is the highest severity an event may carry.
const MaxSeverity = 3

// Event is an immutable record of something that happened in the simulation.
type Event struct {
	ID        string        `json:"id"`                   // UUID, generated by the log when empty
	Seq       uint64        `json:"seq"`                  // Monotonic log sequence, assigned on record
	At        time.Duration `json:"at"`                   // Simulation time, assigned on record
	Kind      Kind          `json:"kind"`                 // Closed enum
	Category  Category      `json:"category"`             // Always CategoryOf(Kind)
	ActorID   string        `json:"actor_id,omitempty"`   // Who acted
	ActorRole string        `json:"actor_role,omitempty"` // Role of the actor (player, citizen, investigator...)
	TargetID  string        `json:"target_id,omitempty"`  // Who or what was affected
	ZoneID    string        `json:"zone_id,omitempty"`
	PlaceID   string        `json:"place_id,omitempty"` // Backfilled from ZoneID when empty
	Topic     string        `json:"topic,omitempty"`    // Backfilled from RuleID, then Kind
	Position  Vec3          `json:"position"`
	Trust     float64       `json:"trust,omitempty"`     // 0..1
	SourceID  string        `json:"source_id,omitempty"` // Origin of the information (e.g. the violator a rumor is about)
	CauseID   string        `json:"cause_id,omitempty"`  // Event this one was derived from
	RuleID    string        `json:"rule_id,omitempty"`
	Delta     float64       `json:"delta,omitempty"`
	Note      string        `json:"note,omitempty"`
	Severity  int           `json:"severity,omitempty"` // 0..3
}

// Normalize clamps trust and severity into range and derives the category.
// It never rejects an event.
func (e *Event) Normalize() {
	e.Category = CategoryOf(e.Kind)
	if e.Trust < 0 {
		e.Trust = 0
	} else if e.Trust > 1 {
		e.Trust = 1
	}
	if e.Severity < 0 {
		e.Severity = 0
	} else if e.Severity > MaxSeverity {
		e.Severity = MaxSeverity
	}
}

// TopicKey returns the topic, falling back to the place when the topic is
// empty or only the kind name the event log backfills.
func (e Event) TopicKey() string {
	if e.Topic != "" && e.Topic != string(e.Kind) {
		return e.Topic
	}
	return e.PlaceID
}
