package geo

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestDistance(t *testing.T) {
	if got := Distance(0, 0, 3, 4); math.Abs(got-5) > eps {
		t.Fatalf("expected 5, got %v", got)
	}
	if got := Distance(1, 1, 1, 1); got != 0 {
		t.Fatalf("expected 0 for identical points, got %v", got)
	}
}

func TestDistanceAndBearingTranslationInvariant(t *testing.T) {
	points := [][4]float64{
		{45.400642, 12.372607, 45.398, 12.371},
		{0, 0, -2, 5},
		{10, -3, 10, -3.5},
	}
	for _, k := range []float64{-100, -0.25, 7, 1000.5} {
		for _, p := range points {
			d1 := Distance(p[0], p[1], p[2], p[3])
			d2 := Distance(p[0]+k, p[1]+k, p[2]+k, p[3]+k)
			if math.Abs(d1-d2) > 1e-6 {
				t.Fatalf("distance changed under translation %v: %v vs %v", k, d1, d2)
			}
			b1 := Bearing(p[0], p[1], p[2], p[3])
			b2 := Bearing(p[0]+k, p[1]+k, p[2]+k, p[3]+k)
			if math.Abs(b1-b2) > 1e-4 {
				t.Fatalf("bearing changed under translation %v: %v vs %v", k, b1, b2)
			}
		}
	}
}

func TestBearing(t *testing.T) {
	cases := []struct {
		dx, dy float64
		want   float64
	}{
		{1, 0, 0},
		{0, 1, 90},
		{-1, 0, 180},
		{0, -1, -90},
		{1, 1, 45},
		{-1, -1, -135},
	}
	for _, tc := range cases {
		if got := Bearing(0, 0, tc.dx, tc.dy); math.Abs(got-tc.want) > eps {
			t.Fatalf("bearing(%v,%v): expected %v, got %v", tc.dx, tc.dy, tc.want, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		180:  -180,
		-180: -180,
		190:  -170,
		-190: 170,
		360:  0,
		725:  5,
		-540: -180,
	}
	for in, want := range cases {
		if got := Normalize(in); math.Abs(got-want) > eps {
			t.Fatalf("normalize(%v): expected %v, got %v", in, want, got)
		}
	}
}

func TestAngleInRangeSimpleInterval(t *testing.T) {
	for a := -180.0; a < 180; a += 5 {
		want := a >= -80 && a <= -64
		if got := AngleInRange(a, -80, -64); got != want {
			t.Fatalf("angle %v in [-80,-64]: expected %v, got %v", a, want, got)
		}
	}
}

func TestAngleInRangeWrapsAcross180(t *testing.T) {
	// Chioggia lighthouse window: min 145, max -116.
	for a := -180.0; a < 180; a += 5 {
		want := a >= 145 || a <= -116
		if got := AngleInRange(a, 145, -116); got != want {
			t.Fatalf("angle %v in wrap window: expected %v, got %v", a, want, got)
		}
	}
	if !AngleInRange(180, 145, -116) {
		t.Fatalf("expected 180 to be inside the wrapped window")
	}
	if AngleInRange(0, 145, -116) {
		t.Fatalf("expected 0 to be outside the wrapped window")
	}
}

func TestAngleInRangeDegenerateWindow(t *testing.T) {
	for _, m := range []float64{-170, -45, 0, 30, 179} {
		for a := -360.0; a <= 360; a++ {
			got := AngleInRange(a, m, m)
			want := math.Mod(math.Abs(a-m), 360) == 0
			if got != want {
				t.Fatalf("angle %v in [%v,%v]: expected %v, got %v", a, m, m, want, got)
			}
		}
	}
}

func TestAngleInRangeNormalizesInputs(t *testing.T) {
	if !AngleInRange(-290, 34, 102) {
		t.Fatalf("expected -290 (= 70) inside [34, 102]")
	}
	if !AngleInRange(70, 394, 462) {
		t.Fatalf("expected window bounds to be normalized")
	}
	// min > max by almost a full turn: the complement of (max, min) is tiny.
	if !AngleInRange(-179.5, 179.999, -179.0) {
		t.Fatalf("expected -179.5 inside the narrow wrapped window")
	}
	if AngleInRange(0, 179.999, -179.0) {
		t.Fatalf("expected 0 outside the narrow wrapped window")
	}
}
