package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/schneider/internal/course"
	"github.com/verte-zerg/schneider/internal/model"
	"github.com/verte-zerg/schneider/internal/records"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MovingAverage()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	same := MovingAverage([]float64{1, 5}, 0)
	if same[0] != 1 || same[1] != 5 {
		t.Fatalf("window 0 should copy input, got %v", same)
	}
	if len(MovingAverage(nil, 3)) != 0 {
		t.Fatalf("expected empty output for empty input")
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{1, 2, 3}); got != " +@" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{4, 4, 4}); got != "+++" {
		t.Fatalf("flat series should use the middle level, got %q", got)
	}
	if Sparkline(nil) != "" {
		t.Fatalf("empty series should render empty")
	}
}

func TestBestAndAverageLap(t *testing.T) {
	laps := []model.StoredLap{
		{LapTime: 92 * time.Second},
		{LapTime: 90 * time.Second},
		{LapTime: 91*time.Second + 5*time.Millisecond},
	}
	best, ok := BestLap(laps)
	if !ok || best != 90*time.Second {
		t.Fatalf("BestLap = %v, %v", best, ok)
	}
	avg, ok := AverageLap(laps)
	if !ok || avg != 91*time.Second {
		t.Fatalf("AverageLap = %v, %v", avg, ok)
	}
	if _, ok := BestLap(nil); ok {
		t.Fatalf("BestLap(nil) should report no lap")
	}
}

func sampleReport() Report {
	ended := time.Date(2026, 4, 2, 18, 30, 0, 0, time.UTC)
	return Report{
		Sessions: []model.SessionAggregate{
			{SessionID: 1, EndedAt: ended, Variant: course.Short, Laps: 2, RaceTime: 181 * time.Second, Finished: true},
			{SessionID: 2, EndedAt: ended.Add(time.Hour), Variant: course.Short, Practice: true, Laps: 1},
			{SessionID: 3, EndedAt: ended.Add(2 * time.Hour), Variant: course.Full, Laps: 0, EngineFailed: true},
		},
		Laps: map[int64][]model.StoredLap{
			1: {{SessionID: 1, Lap: 1, LapTime: 91 * time.Second}, {SessionID: 1, Lap: 2, LapTime: 90 * time.Second}},
			2: {{SessionID: 2, Lap: 1, LapTime: 89 * time.Second, Record: true}},
		},
		WindowSessionIDs: []int64{2, 3},
		Window:           2,
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, sampleReport()); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	lines := strings.Split(out, "\n")
	if lines[0] != "Summary" {
		t.Fatalf("missing title:\n%s", out)
	}
	var short, full string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "SHORT"):
			short = line
		case strings.HasPrefix(line, "FULL"):
			full = line
		}
	}
	if !strings.Contains(short, "00:01:29.00") || !strings.Contains(short, "00:03:01.00") {
		t.Fatalf("short course row missing best lap or race: %q", short)
	}
	if !strings.HasSuffix(full, "1") || !strings.Contains(full, noTime) {
		t.Fatalf("full course row should show a failure and no times: %q", full)
	}
	if strings.Contains(out, "MEDIUM") {
		t.Fatalf("courses without sessions should be omitted:\n%s", out)
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, Report{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "No sessions found.\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderLapTableUsesWindow(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderLapTable(&buf, sampleReport()); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "\n") != 5 {
		t.Fatalf("expected title, header, two rows and a blank line:\n%s", out)
	}
	if !strings.Contains(out, "practice") || !strings.Contains(out, "engine failure") {
		t.Fatalf("window rows missing:\n%s", out)
	}
}

func TestRenderTrend(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTrend(&buf, sampleReport()); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Best Lap Trend") || !strings.Contains(out, "last 00:01:29.50") {
		t.Fatalf("unexpected trend:\n%s", out)
	}
	if strings.Contains(out, "FULL") {
		t.Fatalf("courses without laps should be omitted:\n%s", out)
	}
}

func TestRenderRecords(t *testing.T) {
	var times records.BestTimes
	times.Set(course.Full, records.Race, 25*time.Minute)
	var buf bytes.Buffer
	if err := RenderRecords(&buf, times); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if lines[0] != "Course Fastest Lap Fastest Race" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[3], "FULL") || !strings.HasSuffix(lines[3], "00:25:00.00") {
		t.Fatalf("unexpected full row %q", lines[3])
	}
	if !strings.HasSuffix(lines[1], noTime) {
		t.Fatalf("missing record should print %q: %q", noTime, lines[1])
	}
}
