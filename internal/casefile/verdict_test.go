package casefile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dyluth/vigil/pkg/event"
)

func TestJudge(t *testing.T) {
	tests := []struct {
		score     int
		outcome   Outcome
		directive string
	}{
		{0, OutcomeNoGrounds, "no grounds"},
		{1, OutcomeNoGrounds, "no grounds"},
		{2, OutcomeHeld, "hold"},
		{3, OutcomeReinforced, "strengthen-suspicion"},
		{5, OutcomeReinforced, "strengthen-suspicion"},
		{6, OutcomeExpelled, "escalate"},
		{40, OutcomeExpelled, "escalate"},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			v := Judge(Bundle{Score: tt.score})
			assert.Equal(t, tt.outcome, v.Outcome)
			assert.Equal(t, tt.score, v.Score)
			assert.True(t, strings.HasPrefix(v.Note(), tt.directive+": "), v.Note())
		})
	}
}

func TestJudge_ReasonIsDescriptive(t *testing.T) {
	v := Judge(Bundle{Score: 5, Reports: make([]event.Event, 2), Violations: make([]event.Event, 1)})
	assert.Equal(t, "2 reports, 1 violations, 0 evidence, 0 procedures", v.Reason)
	assert.Equal(t, "strengthen-suspicion: 2 reports, 1 violations, 0 evidence, 0 procedures", v.Note())
}
