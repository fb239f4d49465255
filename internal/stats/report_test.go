package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/schneider/internal/course"
	"github.com/verte-zerg/schneider/internal/model"
	"github.com/verte-zerg/schneider/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "schneider.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Hour)
		stats := model.SessionStats{
			ID:        uuid.NewString(),
			StartedAt: start,
			EndedAt:   start.Add(10 * time.Minute),
			Variant:   course.Medium,
			Practice:  true,
			Laps: []model.LapResult{
				{Lap: 1, LapTime: 150 * time.Second},
				{Lap: 2, LapTime: 148 * time.Second, Record: true},
			},
		}
		id, err := st.InsertSession(ctx, stats)
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, id)
	}

	filter := model.HistoryFilter{
		Variant: course.Medium,
		Last:    2,
		Window:  1,
	}
	report, err := BuildReport(ctx, st, filter)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != ids[1] || report.Sessions[1].SessionID != ids[2] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.WindowSessionIDs) != 1 || report.WindowSessionIDs[0] != ids[2] {
		t.Fatalf("unexpected window session ids: %v", report.WindowSessionIDs)
	}
	if len(report.Laps[ids[2]]) != 2 {
		t.Fatalf("expected laps for the latest session, got %+v", report.Laps)
	}
	if _, ok := report.Laps[ids[0]]; ok {
		t.Fatalf("laps of sessions outside the filter should not load")
	}

	other, err := BuildReport(ctx, st, model.HistoryFilter{Variant: course.Full})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(other.Sessions) != 0 || len(other.Laps) != 0 {
		t.Fatalf("expected empty report, got %+v", other)
	}
}
