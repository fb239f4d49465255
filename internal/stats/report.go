package stats

import (
	"context"

	"github.com/samber/lo"

	"github.com/verte-zerg/schneider/internal/model"
)

// HistoryStore lists stored sessions and their laps.
type HistoryStore interface {
	ListSessions(ctx context.Context, filter model.HistoryFilter) ([]model.SessionAggregate, error)
	ListLaps(ctx context.Context, sessionIDs []int64) ([]model.StoredLap, error)
}

// Report contains precomputed data for history rendering.
type Report struct {
	Sessions         []model.SessionAggregate
	Laps             map[int64][]model.StoredLap
	WindowSessionIDs []int64
	Window           int
}

// BuildReport loads sessions matching filter together with their laps.
func BuildReport(ctx context.Context, st HistoryStore, filter model.HistoryFilter) (Report, error) {
	sessions, err := st.ListSessions(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	if filter.Last > 0 && len(sessions) > filter.Last {
		sessions = sessions[len(sessions)-filter.Last:]
	}

	ids := sessionIDs(sessions)
	laps, err := st.ListLaps(ctx, ids)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Sessions: sessions,
		Laps: lo.GroupBy(laps, func(l model.StoredLap) int64 {
			return l.SessionID
		}),
		WindowSessionIDs: lastSessionIDs(sessions, filter.Window),
		Window:           filter.Window,
	}, nil
}

func sessionIDs(sessions []model.SessionAggregate) []int64 {
	return lo.Map(sessions, func(s model.SessionAggregate, _ int) int64 {
		return s.SessionID
	})
}

func lastSessionIDs(sessions []model.SessionAggregate, window int) []int64 {
	if window <= 0 || len(sessions) <= window {
		return sessionIDs(sessions)
	}
	return sessionIDs(sessions[len(sessions)-window:])
}
