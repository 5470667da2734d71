// Package clock abstracts wall-clock reads so countdowns can be tested
// without sleeping.
package clock

import (
	"sync"
	"time"
)

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// Mock is a manually driven Clock. The zero value reports the zero time.
type Mock struct {
	mu sync.Mutex
	t  time.Time
}

// NewMock returns a Mock frozen at t.
func NewMock(t time.Time) *Mock {
	return &Mock{t: t}
}

// Now returns the frozen time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

// Advance moves the clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.t = m.t.Add(d)
	m.mu.Unlock()
}

// Set moves the clock to t.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.t = t
	m.mu.Unlock()
}
