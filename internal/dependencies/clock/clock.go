package clock

import "time"

// Clock supplies the timestamps stamped onto players and games
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time in UTC, with the monotonic reading stripped so
// stored and reloaded timestamps compare equal
func (c *RealClock) Now() time.Time {
	return time.Now().UTC().Round(0)
}
