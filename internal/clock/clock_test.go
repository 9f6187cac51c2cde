package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSim_Advance(t *testing.T) {
	c := NewSim()
	assert.Equal(t, time.Duration(0), c.Now())

	assert.True(t, c.Advance(500*time.Millisecond))
	assert.True(t, c.Advance(time.Second))
	assert.Equal(t, 1500*time.Millisecond, c.Now())

	assert.False(t, c.Advance(-time.Second), "negative dt must be ignored")
	assert.False(t, c.Advance(0))
	assert.Equal(t, 1500*time.Millisecond, c.Now())
}

func TestSim_Pause(t *testing.T) {
	c := NewSim()
	c.Advance(time.Second)
	c.Pause()
	assert.True(t, c.Paused())

	assert.False(t, c.Advance(10*time.Second))
	assert.Equal(t, time.Second, c.Now(), "paused clock must not move")

	c.Resume()
	assert.False(t, c.Paused())
	c.Advance(time.Second)
	assert.Equal(t, 2*time.Second, c.Now())
}

func TestSim_SetIsMonotonic(t *testing.T) {
	c := NewSim()
	c.Set(5 * time.Second)
	assert.Equal(t, 5*time.Second, c.Now())

	c.Set(2 * time.Second)
	assert.Equal(t, 5*time.Second, c.Now(), "set must never rewind")

	c.Reset()
	assert.Equal(t, time.Duration(0), c.Now())
}

func TestFixed(t *testing.T) {
	var c Clock = Fixed(3 * time.Second)
	assert.Equal(t, 3*time.Second, c.Now())
}
