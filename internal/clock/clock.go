// Package clock provides the simulation clock every component measures its
// windows, cooldowns and TTLs against.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current simulation time.
type Clock interface {
	Now() time.Duration
}

// Sim is a pausable, monotonic simulation clock. Time only moves when the
// owner advances it, and never while paused.
type Sim struct {
	mu     sync.RWMutex
	now    time.Duration
	paused bool
}

// NewSim creates a clock starting at zero.
func NewSim() *Sim {
	return &Sim{}
}

// Now returns the current simulation time.
func (s *Sim) Now() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now
}

// Advance moves time forward by dt. Returns false when paused or dt is not positive.
func (s *Sim) Advance(dt time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || dt <= 0 {
		return false
	}
	s.now += dt
	return true
}

// Set jumps to t if t is later than the current time. Used by replay.
// Ignores the paused flag.
func (s *Sim) Set(t time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t > s.now {
		s.now = t
	}
}

// Reset rewinds to zero and resumes.
func (s *Sim) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = 0
	s.paused = false
}

// Pause stops time until Resume.
func (s *Sim) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume lets Advance move time again.
func (s *Sim) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Paused reports whether the clock is paused.
func (s *Sim) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// Fixed is a clock frozen at a single instant, handy in tests.
type Fixed time.Duration

func (f Fixed) Now() time.Duration { return time.Duration(f) }
