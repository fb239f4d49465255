// Package engine accumulates engine over-limit exposure into a failure risk
// and fires a one-shot failure when the risk crosses a per-session threshold.
package engine

import "math/rand"

const (
	thresholdMin  = 50.0
	thresholdSpan = 10.0
)

// Limits are the engine operating limits and the width of the band above
// each limit over which risk scales from zero to full rate.
type Limits struct {
	MaxRPM         float64
	RPMBuffer      float64
	MaxOilTemp     float64
	MaxCoolantTemp float64
	TempBuffer     float64
}

// DefaultLimits returns the limits of the stock racing engine.
func DefaultLimits() Limits {
	return Limits{
		MaxRPM:         3300,
		RPMBuffer:      100,
		MaxOilTemp:     140,
		MaxCoolantTemp: 95,
		TempBuffer:     10,
	}
}

// Actuator triggers an engine failure in the host simulator.
type Actuator interface {
	FailEngine()
}

// ActuatorFunc adapts a function to Actuator.
type ActuatorFunc func()

// FailEngine calls f.
func (f ActuatorFunc) FailEngine() { f() }

// Damage is the per-session engine damage state.
type Damage struct {
	limits    Limits
	actuator  Actuator
	risk      float64
	threshold float64
	failed    bool
}

// NewDamage creates a damage accumulator. A nil actuator only records the
// failure.
func NewDamage(limits Limits, actuator Actuator) *Damage {
	return &Damage{limits: limits, actuator: actuator}
}

// Reset clears the risk and draws a new failure threshold in [50, 60).
func (d *Damage) Reset(rng *rand.Rand) {
	d.risk = 0
	d.failed = false
	d.threshold = thresholdMin + rng.Float64()*thresholdSpan
}

// Accumulate adds the risk of one sample spanning delta seconds. It returns
// true only for the sample that fails the engine.
func (d *Damage) Accumulate(delta, rpm, oilTemp, coolantTemp float64) bool {
	if d.failed {
		return false
	}

	d.risk += exceedance(rpm, d.limits.MaxRPM, d.limits.RPMBuffer) * delta
	d.risk += exceedance(oilTemp, d.limits.MaxOilTemp, d.limits.TempBuffer) * delta
	d.risk += exceedance(coolantTemp, d.limits.MaxCoolantTemp, d.limits.TempBuffer) * delta

	if d.risk < d.threshold {
		return false
	}
	d.failed = true
	if d.actuator != nil {
		d.actuator.FailEngine()
	}
	return true
}

// exceedance scales a reading above limit into [0, 1] across buffer.
func exceedance(reading, limit, buffer float64) float64 {
	if reading <= limit || buffer <= 0 {
		return 0
	}
	return min((reading-limit)/buffer, 1)
}

// Risk returns the accumulated risk in seconds.
func (d *Damage) Risk() float64 { return d.risk }

// Threshold returns the risk at which the engine fails.
func (d *Damage) Threshold() float64 { return d.threshold }

// Failed reports whether the engine has failed this session.
func (d *Damage) Failed() bool { return d.failed }
