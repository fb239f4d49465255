package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/schneider/internal/course"
	"github.com/verte-zerg/schneider/internal/model"
	"github.com/verte-zerg/schneider/internal/records"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00.00"},
		{61*time.Second + 10*time.Millisecond, "00:01:01.01"},
		{time.Hour + 2*time.Minute + 3*time.Second + 450*time.Millisecond, "01:02:03.45"},
		{999 * time.Millisecond, "00:00:00.99"},
		{-time.Second, "00:00:00.00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	layout, err := course.BuildLayout(course.Short)
	if err != nil {
		t.Fatalf("build layout: %v", err)
	}

	p.Banner(model.SessionConfig{Variant: course.Short, RaceLaps: 7}, layout)
	p.Event(model.Event{Kind: model.EventCheckpointPassed, Checkpoint: layout.At(1)})
	p.Event(model.Event{Kind: model.EventLapCompleted, Lap: 1, Duration: 95*time.Second + 20*time.Millisecond, Record: true})
	p.Event(model.Event{Kind: model.EventRaceFinished, Duration: 11 * time.Minute})
	p.Event(model.Event{Kind: model.EventEngineFailure})

	out := buf.String()
	for _, want := range []string{
		"Race started!",
		"Course Layout [SHORT]: Start - Hotel Excelsior | Turnpoint - San Nicolo lighthouse | Finish - Hotel Excelsior",
		"Race laps: 7",
		"Passed: Turnpoint - San Nicolo lighthouse",
		"Lap: 1 00:01:35.02",
		"New Lap Record!",
		"Race finished! 00:11:00.00",
		"Engine Failure!",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "New Race Record!") {
		t.Fatalf("unexpected race record line:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("plain output contains escape codes:\n%s", out)
	}
}

func TestPrinterPracticeBannerOmitsLaps(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	layout, err := course.BuildLayout(course.Full)
	if err != nil {
		t.Fatalf("build layout: %v", err)
	}
	p.Banner(model.SessionConfig{Variant: course.Full, Practice: true}, layout)
	if strings.Contains(buf.String(), "Race laps") {
		t.Fatalf("practice banner shows lap target:\n%s", buf.String())
	}
}

func TestPrinterRecords(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	var times records.BestTimes
	times.Set(course.Medium, records.Lap, 2*time.Minute)
	p.Records(times)

	out := buf.String()
	if !strings.Contains(out, "Medium Course Records\nFastest Lap Time: 00:02:00.00") {
		t.Fatalf("medium lap record missing:\n%s", out)
	}
	if strings.Count(out, "Fastest Race Time: 00:00:00.00") != 3 {
		t.Fatalf("absent records should print as zero:\n%s", out)
	}
}

func TestPrinterSound(t *testing.T) {
	start := course.Checkpoint{Name: "Start", Kind: course.Start}
	turn := course.Checkpoint{Name: "Turn", Kind: course.Turn}
	finish := course.Checkpoint{Name: "Finish", Kind: course.Finish}
	tests := []struct {
		name  string
		event model.Event
		bells int
	}{
		{"first start", model.Event{Kind: model.EventCheckpointPassed, Checkpoint: start, FirstStart: true}, 2},
		{"practice start", model.Event{Kind: model.EventCheckpointPassed, Checkpoint: start, Practice: true}, 1},
		{"race start after first lap", model.Event{Kind: model.EventCheckpointPassed, Checkpoint: start}, 0},
		{"turn", model.Event{Kind: model.EventCheckpointPassed, Checkpoint: turn}, 1},
		{"finish gate", model.Event{Kind: model.EventCheckpointPassed, Checkpoint: finish}, 1},
		{"lap", model.Event{Kind: model.EventLapCompleted, Lap: 1}, 0},
		{"race finished", model.Event{Kind: model.EventRaceFinished, Lap: 7}, 1},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		NewPrinter(&buf, false).WithSound(true).Event(tt.event)
		if got := strings.Count(buf.String(), "\a"); got != tt.bells {
			t.Fatalf("%s: expected %d bells, got %d in %q", tt.name, tt.bells, got, buf.String())
		}
	}

	var buf bytes.Buffer
	NewPrinter(&buf, false).WithSound(false).Event(model.Event{Kind: model.EventCheckpointPassed, Checkpoint: start, FirstStart: true})
	if strings.Contains(buf.String(), "\a") {
		t.Fatalf("bell rung with sound off: %q", buf.String())
	}
}
