package replay

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/vigil/internal/clock"
	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/eventlog"
	"github.com/dyluth/vigil/internal/registry"
	"github.com/dyluth/vigil/internal/sim"
	"github.com/dyluth/vigil/pkg/event"
)

func TestScan_FindsGapsAndSegments(t *testing.T) {
	r := scan([]event.Event{{Seq: 1}, {Seq: 2}, {Seq: 5}, {Seq: 6}, {Seq: 1}, {Seq: 2}})
	assert.Equal(t, 6, r.Read)
	assert.Equal(t, 2, r.Segments)
	assert.Equal(t, []Gap{{After: 2, Next: 5}}, r.Gaps)

	assert.Zero(t, scan(nil).Segments)
}

func TestDerived(t *testing.T) {
	assert.True(t, Derived(event.KindVerdictGiven))
	assert.True(t, Derived(event.KindRumorShared))
	assert.False(t, Derived(event.KindViolationDetected))
	assert.False(t, Derived(event.KindEvidenceCaptured))
}

func TestReplay_PreservesIdentityAndTime(t *testing.T) {
	events := []event.Event{
		{ID: "v1", Seq: 1, At: time.Second, Kind: event.KindViolationDetected, ActorID: "player", RuleID: "R_QUEUE"},
		{ID: "v1-dup", Seq: 2, At: time.Second, Kind: event.KindViolationDetected, ActorID: "player", RuleID: "R_QUEUE"},
		{ID: "verdict", Seq: 3, At: 3 * time.Second, Kind: event.KindVerdictGiven, Note: "hold: 0 reports"},
	}

	clk := clock.NewSim()
	log := eventlog.New(clk, eventlog.Options{})
	var seen []string
	result, err := Replay(context.Background(), log, clk, events, Options{
		OnEvent: func(e event.Event) { seen = append(seen, e.ID) },
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Read)
	assert.Equal(t, 2, result.Applied)
	assert.Equal(t, 1, result.Deduped)
	assert.Equal(t, 3*time.Second, result.LastAt)
	require.Len(t, result.Verdicts, 1)
	assert.Equal(t, "verdict", result.Verdicts[0].ID)
	assert.Equal(t, []string{"v1", "verdict"}, seen)

	stored, ok := log.ByID("v1")
	require.True(t, ok)
	assert.Equal(t, time.Second, stored.At)
	assert.Equal(t, 3*time.Second, clk.Now())
}

func TestReplay_RequiresTarget(t *testing.T) {
	_, err := Replay(context.Background(), nil, clock.NewSim(), nil, Options{})
	assert.ErrorIs(t, err, ErrRecorderRequired)

	_, err = Replay(context.Background(), eventlog.New(clock.NewSim(), eventlog.Options{}), nil, nil, Options{})
	assert.ErrorIs(t, err, ErrClockRequired)
}

func newEngine(t *testing.T) *sim.Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Perception.BaseDelta = 120
	cfg.Boards.Places = []config.PlaceConfig{{ID: "Store"}}
	e, err := sim.New(sim.Options{Config: cfg})
	require.NoError(t, err)
	e.RegisterActor(registry.Actor{ID: "player", Role: registry.RolePlayer})
	e.RegisterActor(registry.Actor{ID: "npc-1", Role: registry.RoleCitizen, Position: event.Vec3{X: 1}})
	e.RegisterActor(registry.Actor{ID: "npc-2", Role: registry.RoleCitizen, Position: event.Vec3{Z: 1}})
	return e
}

func TestResimulate_RegeneratesDerivedEvents(t *testing.T) {
	original := newEngine(t)
	var recorded []event.Event
	original.Subscribe(func(e event.Event) { recorded = append(recorded, e) })

	original.Record(event.Event{
		Kind: event.KindViolationDetected, ActorID: "player", RuleID: "R_QUEUE",
		PlaceID: "Store", Severity: 3, Trust: 1,
	})
	for i := 0; i < 5; i++ {
		original.Tick(100 * time.Millisecond)
	}
	require.Len(t, original.Adjudications(), 1)

	derived := 0
	for _, e := range recorded {
		if Derived(e.Kind) {
			derived++
		}
	}
	require.Positive(t, derived)

	fresh := newEngine(t)
	result, err := Resimulate(context.Background(), fresh, recorded, Options{Tail: time.Second})
	require.NoError(t, err)

	assert.Equal(t, len(recorded), result.Read)
	assert.Equal(t, derived, result.Skipped)
	assert.Equal(t, len(recorded)-derived, result.Applied)
	require.Len(t, result.Verdicts, 1)
	assert.True(t, strings.HasPrefix(result.Verdicts[0].Note, "strengthen-suspicion"))
	assert.Equal(t, time.Second, result.LastAt)
	assert.Len(t, fresh.Adjudications(), 1)
}

func TestResimulate_RefusesPausedClock(t *testing.T) {
	e := newEngine(t)
	e.Clock().Pause()

	_, err := Resimulate(context.Background(), e, []event.Event{{Seq: 1, At: time.Second, Kind: event.KindUtterance}}, Options{})
	assert.ErrorIs(t, err, ErrPaused)
}
