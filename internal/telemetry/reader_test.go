package telemetry

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/schneider/internal/model"
)

const recording = `rpm,oil_temp,oil_pressure,coolant_temp,lat,lon,alt,local_time
3000,120,85,90,45.40,12.37,150,43200.5
3350.5,141,80,96,45.41,12.38,160,43200.6

3100,125,82,91,45.42,12.39,170,43200.7`

func readAll(t *testing.T, r *Reader) []model.TelemetrySample {
	t.Helper()
	var out []model.TelemetrySample
	for {
		s, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, s)
	}
}

func TestReaderParsesRows(t *testing.T) {
	r, err := NewReader(strings.NewReader(recording))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	samples := readAll(t, r)
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	want := model.TelemetrySample{
		RPM: 3350.5, OilTemp: 141, OilPressure: 80, CoolantTemp: 96,
		Latitude: 45.41, Longitude: 12.38, Altitude: 160, LocalTime: 43200.6,
	}
	if samples[1] != want {
		t.Fatalf("sample 1 = %+v, want %+v", samples[1], want)
	}
	if samples[2].LocalTime != 43200.7 {
		t.Fatalf("last row without newline not read: %+v", samples[2])
	}
}

func TestReaderHeaderAnyOrderAndOptionalPressure(t *testing.T) {
	in := "Local_Time, ALT ,longitude,latitude,coolant_temp,oil_temp,rpm\r\n10,25,12.3,45.4,80,100,2500\r\n"
	r, err := NewReader(strings.NewReader(in))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	s, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if s.LocalTime != 10 || s.Altitude != 25 || s.Longitude != 12.3 || s.Latitude != 45.4 || s.RPM != 2500 || s.OilPressure != 0 {
		t.Fatalf("unexpected sample %+v", s)
	}
}

func TestReaderMissingColumn(t *testing.T) {
	_, err := NewReader(strings.NewReader("rpm,oil_temp,coolant_temp,lat,lon,alt\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if !strings.Contains(err.Error(), "local_time") {
		t.Fatalf("error should name the column: %v", err)
	}
}

func TestReaderEmpty(t *testing.T) {
	if _, err := NewReader(strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestReaderBadValueReportsLine(t *testing.T) {
	in := "rpm,oil_temp,coolant_temp,lat,lon,alt,local_time\n1,2,3,4,5,6,7\n1,hot,3,4,5,6,8\n"
	r, err := NewReader(strings.NewReader(in))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	if _, err := r.Next(); err != nil {
		t.Fatalf("first row: %v", err)
	}
	_, err = r.Next()
	if err == nil || !strings.Contains(err.Error(), "line 3") || !strings.Contains(err.Error(), "oil_temp") {
		t.Fatalf("expected line 3 oil_temp error, got %v", err)
	}
}

func TestReaderShortRow(t *testing.T) {
	in := "rpm,oil_temp,coolant_temp,lat,lon,alt,local_time\n1,2,3\n"
	r, err := NewReader(strings.NewReader(in))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	if _, err := r.Next(); err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestFollowReadsAppendedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.csv")
	if err := os.WriteFile(path, []byte("rpm,oil_temp,coolant_temp,lat,lon,alt,local_time\n1,0,0,0,0,0,100\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got := make(chan model.TelemetrySample, 8)
	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, path, func(s model.TelemetrySample) error {
			got <- s
			return nil
		})
	}()

	next := func() model.TelemetrySample {
		t.Helper()
		select {
		case s := <-got:
			return s
		case <-ctx.Done():
			t.Fatalf("timed out waiting for sample")
		}
		return model.TelemetrySample{}
	}

	if s := next(); s.LocalTime != 100 {
		t.Fatalf("first sample = %+v", s)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// A partial row is held back until its newline arrives.
	if _, err := f.WriteString("2,0,0,0,0,0,1"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := f.WriteString("01\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if s := next(); s.LocalTime != 101 || s.RPM != 2 {
		t.Fatalf("appended sample = %+v", s)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("follow returned %v", err)
		}
	case <-ctx.Done():
		t.Fatalf("follow did not stop after removal")
	}
}

func TestFollowStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idle.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Follow(ctx, path, func(model.TelemetrySample) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFollowMissingFile(t *testing.T) {
	err := Follow(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), func(model.TelemetrySample) error { return nil })
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
