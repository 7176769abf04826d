package engine

import "time"

// Clock supplies the current time and tickers so that tests can control
// note durations and loop cadence.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) *time.Ticker
}

// RealClock implements Clock with the system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// NewTicker creates a standard library ticker.
func (RealClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}
