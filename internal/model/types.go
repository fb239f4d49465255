// Package model defines shared data structures.
package model

import (
	"time"

	"github.com/verte-zerg/schneider/internal/course"
)

// TelemetrySample is one reading pushed by the telemetry source.
type TelemetrySample struct {
	RPM         float64
	OilTemp     float64 // celsius
	OilPressure float64 // psi
	CoolantTemp float64 // celsius
	Latitude    float64
	Longitude   float64
	Altitude    float64 // feet
	LocalTime   float64 // seconds since local midnight, [0, 86400)
}

// SessionConfig defines the settings applied at session reset.
type SessionConfig struct {
	Variant  course.Variant
	Practice bool
	RaceLaps int
	// Seed for the session's random source; zero picks a time-based seed.
	Seed int64
}

// EventKind identifies a race event emitted while processing a sample.
type EventKind int

const (
	EventCheckpointPassed EventKind = iota
	EventLapCompleted
	EventRaceFinished
	EventEngineFailure
)

func (k EventKind) String() string {
	switch k {
	case EventCheckpointPassed:
		return "checkpoint_passed"
	case EventLapCompleted:
		return "lap_completed"
	case EventRaceFinished:
		return "race_finished"
	case EventEngineFailure:
		return "engine_failure"
	default:
		return "unknown"
	}
}

// Event is emitted by a session for its caller to render or act on.
type Event struct {
	Kind       EventKind
	Checkpoint course.Checkpoint // set for EventCheckpointPassed
	FirstStart bool              // first start gate of the session
	Practice   bool              // session runs without a lap target
	Lap        int
	Duration   time.Duration // lap or race time, rounded to 10ms
	Record     bool          // duration improved the stored best
	Elapsed    float64       // session clock seconds when emitted
}

// LapResult stores one completed lap.
type LapResult struct {
	Lap     int
	LapTime time.Duration
	Record  bool
}

// SessionStats captures a session for history persistence.
type SessionStats struct {
	ID           string
	StartedAt    time.Time
	EndedAt      time.Time
	Variant      course.Variant
	Practice     bool
	RaceLaps     int
	Laps         []LapResult
	RaceTime     time.Duration
	Finished     bool
	EngineFailed bool
}

// HistoryFilter selects sessions for reporting.
type HistoryFilter struct {
	Variant course.Variant // zero means all courses
	Since   *time.Time
	Last    int
	Window  int
}

// SessionAggregate summarizes a stored session.
type SessionAggregate struct {
	SessionID    int64
	UUID         string
	EndedAt      time.Time
	Variant      course.Variant
	Practice     bool
	Laps         int
	RaceTime     time.Duration
	Finished     bool
	EngineFailed bool
}

// StoredLap is a lap row joined to its session.
type StoredLap struct {
	SessionID int64
	Lap       int
	LapTime   time.Duration
	Record    bool
}
