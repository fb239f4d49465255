// Package race tracks the session clock and the checkpoint state machine
// that turns telemetry positions into laps and races.
package race

import "github.com/aarondl/opt/null"

const (
	secondsPerDay = 86400.0
	// A backwards step larger than half a day is read as a midnight rollover.
	rolloverThreshold = -43200.0
)

// Clock accumulates elapsed simulation time from a local time-of-day reading
// that resets to zero at midnight.
type Clock struct {
	elapsed float64
	last    null.Val[float64]
}

// Advance consumes the next clock reading and returns the delta since the
// previous one. The first reading of a session yields zero. Forward jumps
// (time acceleration, pause/resume) pass through unchanged.
func (c *Clock) Advance(sampleClock float64) float64 {
	last, ok := c.last.Get()
	c.last = null.From(sampleClock)
	if !ok {
		return 0
	}

	delta := sampleClock - last
	if delta < rolloverThreshold {
		delta += secondsPerDay
	}
	c.elapsed += delta
	return delta
}

// Elapsed returns the accumulated session time in seconds.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

// Started reports whether a reading has been consumed since the last reset.
func (c *Clock) Started() bool {
	return c.last.IsSet()
}

// Reset clears the clock for a new session.
func (c *Clock) Reset() {
	c.elapsed = 0
	c.last = null.Val[float64]{}
}
