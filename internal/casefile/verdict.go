package casefile

import "fmt"

// Outcome is the verdict label.
type Outcome string

const (
	OutcomeExpelled   Outcome = "expelled"
	OutcomeReinforced Outcome = "suspicion reinforced"
	OutcomeHeld       Outcome = "held"
	OutcomeNoGrounds  Outcome = "no grounds"
)

// Score thresholds, inclusive.
const (
	ExpelThreshold     = 6
	ReinforceThreshold = 3
	HoldThreshold      = 2
)

// Verdict is the deterministic result of a case bundle.
type Verdict struct {
	Outcome   Outcome
	Score     int
	Directive string // consumed by rumor resolution
	Reason    string // descriptive only
}

// Note is the text carried by the VerdictGiven event: directive first, then the reason.
func (v Verdict) Note() string {
	return v.Directive + ": " + v.Reason
}

// Judge maps a bundle score to a verdict.
func Judge(b Bundle) Verdict {
	v := Verdict{
		Score: b.Score,
		Reason: fmt.Sprintf("%d reports, %d violations, %d evidence, %d procedures",
			len(b.Reports), len(b.Violations), len(b.Evidence), len(b.Procedures)),
	}
	v.Outcome, v.Directive = outcomeFor(b.Score)
	return v
}

func outcomeFor(score int) (Outcome, string) {
	switch {
	case score >= ExpelThreshold:
		return OutcomeExpelled, "escalate"
	case score >= ReinforceThreshold:
		return OutcomeReinforced, "strengthen-suspicion"
	case score >= HoldThreshold:
		return OutcomeHeld, "hold"
	default:
		return OutcomeNoGrounds, "no grounds"
	}
}
