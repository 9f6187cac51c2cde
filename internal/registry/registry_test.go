package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/vigil/pkg/event"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := New()
	changes := 0
	r.OnChange(func() { changes++ })

	assert.False(t, r.Register(Actor{}), "actor without id is ignored")
	assert.True(t, r.Register(Actor{ID: "npc-1", Role: RoleCitizen}))
	assert.True(t, r.Register(Actor{ID: "inv", Role: RoleInvestigator}))

	a, ok := r.Get("npc-1")
	require.True(t, ok)
	assert.Equal(t, RoleCitizen, a.Role)
	assert.Equal(t, 2, changes)

	inv, _ := r.Get("inv")
	assert.True(t, inv.IsInvestigator())
	assert.True(t, Actor{Investigator: true}.IsInvestigator())
	assert.False(t, a.IsInvestigator())
}

func TestRegistry_Unregister(t *testing.T) {
	r := New()
	changes := 0
	r.OnChange(func() { changes++ })
	r.Register(Actor{ID: "npc-1"})

	assert.True(t, r.Unregister("npc-1"))
	assert.False(t, r.Unregister("npc-1"))
	assert.Equal(t, 2, changes, "missing actor must not notify")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_SetPose(t *testing.T) {
	r := New()
	r.Register(Actor{ID: "npc-1", Forward: event.Vec3{Z: 1}})

	assert.True(t, r.SetPose("npc-1", event.Vec3{X: 2}, event.Vec3{}))
	a, _ := r.Get("npc-1")
	assert.Equal(t, event.Vec3{X: 2}, a.Position)
	assert.Equal(t, event.Vec3{Z: 1}, a.Forward, "zero forward keeps the previous facing")

	r.SetPose("npc-1", event.Vec3{X: 2}, event.Vec3{X: 1})
	a, _ = r.Get("npc-1")
	assert.Equal(t, event.Vec3{X: 1}, a.Forward)

	assert.False(t, r.SetPose("ghost", event.Vec3{}, event.Vec3{}))
}

func TestRegistry_AllSorted(t *testing.T) {
	r := New()
	for _, id := range []string{"c", "a", "b"} {
		r.Register(Actor{ID: id})
	}

	var ids []string
	for _, a := range r.All() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
