// Package records keeps the fastest lap and race per course layout.
package records

import (
	"context"
	"strconv"
	"time"

	"github.com/aarondl/opt/null"
	"go.uber.org/zap"

	"github.com/verte-zerg/schneider/internal/course"
	"github.com/verte-zerg/schneider/internal/metrics"
)

// Kind selects the lap or the race record.
type Kind int

const (
	Lap Kind = iota
	Race
)

// Kinds lists both record kinds.
var Kinds = []Kind{Lap, Race}

func (k Kind) String() string {
	switch k {
	case Lap:
		return "lap"
	case Race:
		return "race"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// BestTimes holds the lap and race record of each course variant. A null
// entry means no record has been set yet.
type BestTimes struct {
	lap  [3]null.Val[time.Duration]
	race [3]null.Val[time.Duration]
}

func (b *BestTimes) slot(v course.Variant, k Kind) *null.Val[time.Duration] {
	if !v.Valid() {
		return nil
	}
	switch k {
	case Lap:
		return &b.lap[v-1]
	case Race:
		return &b.race[v-1]
	}
	return nil
}

// Get returns the record for v and k, and whether one exists.
func (b BestTimes) Get(v course.Variant, k Kind) (time.Duration, bool) {
	s := b.slot(v, k)
	if s == nil {
		return 0, false
	}
	return s.Get()
}

// Set stores d as the record for v and k. Invalid keys are ignored.
func (b *BestTimes) Set(v course.Variant, k Kind, d time.Duration) {
	if s := b.slot(v, k); s != nil {
		*s = null.From(d)
	}
}

// Clear removes the record for v and k.
func (b *BestTimes) Clear(v course.Variant, k Kind) {
	if s := b.slot(v, k); s != nil {
		*s = null.Val[time.Duration]{}
	}
}

// Store loads and persists best times.
type Store interface {
	Load(ctx context.Context) (BestTimes, error)
	Save(ctx context.Context, times BestTimes) error
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// Tracker owns the in-memory best times and persists every improvement.
type Tracker struct {
	times   BestTimes
	store   Store
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewTracker loads the records from store. Load failures are logged and the
// tracker starts without records; a nil store keeps records in memory only.
func NewTracker(ctx context.Context, store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if store == nil {
		return t
	}
	times, err := store.Load(ctx)
	if err != nil {
		t.log.Warn("failed to load best times; starting without records", zap.Error(err))
		return t
	}
	t.times = times
	return t
}

// Consider records d when it beats the current record for v and k, or when
// there is none yet. Returns true on improvement.
func (t *Tracker) Consider(ctx context.Context, v course.Variant, k Kind, d time.Duration) bool {
	if !v.Valid() {
		return false
	}
	if cur, ok := t.times.Get(v, k); ok && d >= cur {
		return false
	}
	t.times.Set(v, k, d)
	t.metrics.RecordImprovement(k.String())
	t.log.Info("new record",
		zap.Stringer("course", v),
		zap.Stringer("kind", k),
		zap.Duration("time", d),
	)
	t.persist(ctx)
	return true
}

func (t *Tracker) persist(ctx context.Context) {
	if t.store == nil {
		return
	}
	if err := t.store.Save(ctx, t.times); err != nil {
		t.metrics.RecordPersistError()
		t.log.Warn("failed to persist best times", zap.Error(err))
	}
}

// Best returns the record for v and k.
func (t *Tracker) Best(v course.Variant, k Kind) (time.Duration, bool) {
	return t.times.Get(v, k)
}

// Snapshot returns a copy of the records.
func (t *Tracker) Snapshot() BestTimes {
	return t.times
}
