package race

import (
	"context"
	"time"

	"github.com/verte-zerg/schneider/internal/course"
	"github.com/verte-zerg/schneider/internal/model"
	"github.com/verte-zerg/schneider/internal/records"
)

// Recorder receives completed lap and race times and reports whether they
// improved the stored best.
type Recorder interface {
	Consider(ctx context.Context, v course.Variant, kind records.Kind, d time.Duration) bool
}

// State is the checkpoint state of a session.
type State struct {
	// Index of the next checkpoint expected, in [0, layout length).
	Index    int
	Lap      int
	LapStart float64
	RaceTime float64
	Practice bool
	RaceLaps int
}

// Outcome describes what a single sample did to the race state.
type Outcome struct {
	Passed       *course.Checkpoint
	FirstStart   bool
	LapCompleted bool
	Lap          int
	LapTime      time.Duration
	LapRecord    bool
	RaceFinished bool
	RaceTime     time.Duration
	RaceRecord   bool
}

// Race is the checkpoint state machine.
type Race struct {
	state   State
	started bool
}

// Reset reinitializes the state for a new session.
func (r *Race) Reset(practice bool, raceLaps int) {
	r.state = State{Practice: practice, RaceLaps: raceLaps}
	r.started = false
}

// State returns a copy of the current state.
func (r *Race) State() State {
	return r.state
}

// Finished reports whether a race session has run its lap target.
func (r *Race) Finished() bool {
	return !r.state.Practice && r.state.Lap >= r.state.RaceLaps
}

// Rewind moves the expected checkpoint back to the start gate without
// touching lap counters or times. Used when the layout changes mid-session.
func (r *Race) Rewind() {
	r.state.Index = 0
}

// Step evaluates one sample against the expected checkpoint. At most one
// checkpoint is consumed per sample. elapsed is the session clock after the
// sample's delta was applied.
func (r *Race) Step(ctx context.Context, layout course.Layout, s model.TelemetrySample, elapsed float64, rec Recorder) Outcome {
	var out Outcome
	if r.Finished() || layout.Len() == 0 {
		return out
	}
	if r.state.Index >= layout.Len() {
		r.state.Index = 0
	}

	cp := layout.At(r.state.Index)
	if !cp.Hit(s.Latitude, s.Longitude, s.Altitude) {
		return out
	}
	out.Passed = &cp

	if cp.Kind == course.Start {
		out.FirstStart = !r.started
		r.started = true
		r.state.LapStart = elapsed
	}

	r.state.Index++
	if r.state.Index < layout.Len() {
		return out
	}

	r.state.Index = 0
	r.state.Lap++
	lapTime := elapsed - r.state.LapStart
	r.state.RaceTime += lapTime

	out.LapCompleted = true
	out.Lap = r.state.Lap
	out.LapTime = RoundTime(lapTime)
	if rec != nil {
		out.LapRecord = rec.Consider(ctx, layout.Variant, records.Lap, out.LapTime)
	}

	if !r.state.Practice && r.state.Lap == r.state.RaceLaps {
		out.RaceFinished = true
		out.RaceTime = RoundTime(r.state.RaceTime)
		if rec != nil {
			out.RaceRecord = rec.Consider(ctx, layout.Variant, records.Race, out.RaceTime)
		}
	}
	return out
}
