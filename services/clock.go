package services

import "time"

// Clock supplies "now" so TTL comparisons and window checks are testable
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock returns the wall clock
func SystemClock() Clock {
	return systemClock{}
}

// FixedClock is a settable clock for tests
type FixedClock struct {
	Current time.Time
}

func (c *FixedClock) Now() time.Time {
	return c.Current
}

// Advance moves the fixed clock forward
func (c *FixedClock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}
