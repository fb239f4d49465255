// Package session bundles the race clock, checkpoint state machine, engine
// damage and best-time tracker of one flying session and feeds telemetry
// samples through them in order.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/schneider/internal/course"
	"github.com/verte-zerg/schneider/internal/engine"
	"github.com/verte-zerg/schneider/internal/metrics"
	"github.com/verte-zerg/schneider/internal/model"
	"github.com/verte-zerg/schneider/internal/race"
	"github.com/verte-zerg/schneider/internal/records"
)

// DefaultRaceLaps is the lap target of a race when none is configured.
const DefaultRaceLaps = 7

// ErrInvalidLapTarget is returned when a race session has no laps to fly.
var ErrInvalidLapTarget = errors.New("race lap target must be at least 1")

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithActuator sets the host binding fired on engine failure.
func WithActuator(a engine.Actuator) Option {
	return func(s *Session) {
		s.actuator = a
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithLimits overrides the engine limits.
func WithLimits(l engine.Limits) Option {
	return func(s *Session) {
		s.limits = l
	}
}

// WithNow sets the wall clock used for session timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session is the state of one session. It is not safe for concurrent use;
// samples must be processed one at a time.
type Session struct {
	cfg      model.SessionConfig
	layout   course.Layout
	clock    race.Clock
	race     race.Race
	damage   *engine.Damage
	tracker  *records.Tracker
	rng      *rand.Rand
	actuator engine.Actuator
	limits   engine.Limits
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time

	id        string
	startedAt time.Time
	laps      []model.LapResult
	raceTime  time.Duration
}

// New creates a session around tracker. Samples are ignored until the first
// Reset. A nil tracker disables records.
func New(tracker *records.Tracker, opts ...Option) *Session {
	s := &Session{
		tracker: tracker,
		limits:  engine.DefaultLimits(),
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.damage = engine.NewDamage(s.limits, engine.ActuatorFunc(s.failEngine))
	return s
}

// Reset starts a new session with cfg. On error the previous session is
// left untouched.
func (s *Session) Reset(cfg model.SessionConfig) error {
	layout, err := course.BuildLayout(cfg.Variant)
	if err != nil {
		return err
	}
	if !cfg.Practice && cfg.RaceLaps < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidLapTarget, cfg.RaceLaps)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = s.now().UnixNano()
	}

	s.cfg = cfg
	s.layout = layout
	s.rng = rand.New(rand.NewSource(seed))
	s.clock.Reset()
	s.race.Reset(cfg.Practice, cfg.RaceLaps)
	s.damage.Reset(s.rng)
	s.id = uuid.NewString()
	s.startedAt = s.now()
	s.laps = nil
	s.raceTime = 0
	s.metrics.UpdateEngineRisk(0)

	s.log.Info("session reset",
		zap.String("session", s.id),
		zap.Stringer("course", cfg.Variant),
		zap.Bool("practice", cfg.Practice),
		zap.Int("race_laps", cfg.RaceLaps),
		zap.Int64("seed", seed),
		zap.Float64("engine_threshold", s.damage.Threshold()),
	)
	return nil
}

// SelectLayout switches the active course. The next expected checkpoint
// returns to the start gate; laps and times already flown are kept. An
// invalid variant leaves the current layout in place.
func (s *Session) SelectLayout(v course.Variant) error {
	layout, err := course.BuildLayout(v)
	if err != nil {
		return err
	}
	s.layout = layout
	s.cfg.Variant = v
	s.race.Rewind()
	s.log.Info("course selected", zap.Stringer("course", v))
	return nil
}

// Layout returns the active course layout.
func (s *Session) Layout() course.Layout {
	return s.layout
}

// Config returns the configuration of the current session.
func (s *Session) Config() model.SessionConfig {
	return s.cfg
}

// State returns the checkpoint state.
func (s *Session) State() race.State {
	return s.race.State()
}

// Finished reports whether the race has reached its lap target.
func (s *Session) Finished() bool {
	return s.race.Finished()
}

// EngineFailed reports whether the engine failed this session.
func (s *Session) EngineFailed() bool {
	return s.damage.Failed()
}

// EngineRisk returns the accumulated engine risk and the failure threshold.
func (s *Session) EngineRisk() (risk, threshold float64) {
	return s.damage.Risk(), s.damage.Threshold()
}

// Process runs one telemetry sample through the clock, the checkpoint state
// machine and the engine damage model, in that order, and returns the
// events it produced.
func (s *Session) Process(ctx context.Context, sample model.TelemetrySample) []model.Event {
	if s.rng == nil {
		return nil
	}
	delta := s.clock.Advance(sample.LocalTime)
	elapsed := s.clock.Elapsed()
	s.metrics.RecordSample(delta)

	var events []model.Event
	out := s.race.Step(ctx, s.layout, sample, elapsed, s.recorder())
	if out.Passed != nil {
		s.metrics.RecordCheckpoint(out.Passed.Kind.String())
		events = append(events, model.Event{
			Kind:       model.EventCheckpointPassed,
			Checkpoint: *out.Passed,
			FirstStart: out.FirstStart,
			Practice:   s.cfg.Practice,
			Elapsed:    elapsed,
		})
	}
	if out.LapCompleted {
		s.metrics.RecordLap()
		s.laps = append(s.laps, model.LapResult{Lap: out.Lap, LapTime: out.LapTime, Record: out.LapRecord})
		events = append(events, model.Event{
			Kind:     model.EventLapCompleted,
			Lap:      out.Lap,
			Duration: out.LapTime,
			Record:   out.LapRecord,
			Elapsed:  elapsed,
		})
	}
	if out.RaceFinished {
		s.metrics.RecordRaceFinished()
		s.raceTime = out.RaceTime
		s.log.Info("race finished",
			zap.String("session", s.id),
			zap.Duration("race_time", out.RaceTime),
			zap.Bool("record", out.RaceRecord),
		)
		events = append(events, model.Event{
			Kind:     model.EventRaceFinished,
			Lap:      out.Lap,
			Duration: out.RaceTime,
			Record:   out.RaceRecord,
			Elapsed:  elapsed,
		})
	}

	if s.damage.Accumulate(delta, sample.RPM, sample.OilTemp, sample.CoolantTemp) {
		s.metrics.RecordEngineFailure()
		events = append(events, model.Event{
			Kind:    model.EventEngineFailure,
			Elapsed: elapsed,
		})
	}
	s.metrics.UpdateEngineRisk(s.damage.Risk())
	return events
}

func (s *Session) recorder() race.Recorder {
	if s.tracker == nil {
		return nil
	}
	return s.tracker
}

func (s *Session) failEngine() {
	risk, threshold := s.damage.Risk(), s.damage.Threshold()
	s.log.Warn("engine failure",
		zap.String("session", s.id),
		zap.Float64("risk", risk),
		zap.Float64("threshold", threshold),
	)
	if s.actuator != nil {
		s.actuator.FailEngine()
	}
}

// Summary describes the session so far for history persistence.
func (s *Session) Summary() model.SessionStats {
	laps := make([]model.LapResult, len(s.laps))
	copy(laps, s.laps)
	return model.SessionStats{
		ID:           s.id,
		StartedAt:    s.startedAt,
		EndedAt:      s.now(),
		Variant:      s.cfg.Variant,
		Practice:     s.cfg.Practice,
		RaceLaps:     s.cfg.RaceLaps,
		Laps:         laps,
		RaceTime:     s.raceTime,
		Finished:     s.race.Finished(),
		EngineFailed: s.damage.Failed(),
	}
}
