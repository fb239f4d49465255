// Package course defines the checkpoint template and the selectable layouts
// built from it.
package course

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/verte-zerg/schneider/internal/geo"
)

// MinGateAltitude is the lowest altitude (feet) at which a start or finish
// gate registers, so a parked aircraft does not trigger it.
const MinGateAltitude = 20.0

// ErrInvalidVariant is returned for a layout variant outside Short..Full.
var ErrInvalidVariant = errors.New("invalid course variant")

// Kind classifies a checkpoint.
type Kind int

const (
	Start Kind = iota
	Finish
	Turn
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "start"
	case Finish:
		return "finish"
	case Turn:
		return "turn"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Checkpoint is a gate the racer passes in order. X/Y are latitude and
// longitude degrees; Radius uses the same units.
type Checkpoint struct {
	Name     string
	Kind     Kind
	X        float64
	Y        float64
	Radius   float64
	AngleMin float64
	AngleMax float64
}

// Hit reports whether a sample at (x, y, alt) passes the checkpoint.
func (c Checkpoint) Hit(x, y, alt float64) bool {
	if (c.Kind == Start || c.Kind == Finish) && alt < MinGateAltitude {
		return false
	}
	if geo.Distance(c.X, c.Y, x, y) >= c.Radius {
		return false
	}
	return geo.AngleInRange(geo.Bearing(c.X, c.Y, x, y), c.AngleMin, c.AngleMax)
}

// Variant selects one of the three course layouts.
type Variant int

const (
	Short  Variant = 1
	Medium Variant = 2
	Full   Variant = 3
)

// Variants lists every valid variant in menu order.
var Variants = []Variant{Short, Medium, Full}

func (v Variant) String() string {
	switch v {
	case Short:
		return "SHORT"
	case Medium:
		return "MEDIUM"
	case Full:
		return "FULL"
	default:
		return "VARIANT(" + strconv.Itoa(int(v)) + ")"
	}
}

// Valid reports whether v is one of Short, Medium or Full.
func (v Variant) Valid() bool {
	return v >= Short && v <= Full
}

// ParseVariant accepts a course name (short, medium, full) or its number.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short", "1":
		return Short, nil
	case "medium", "2":
		return Medium, nil
	case "full", "3":
		return Full, nil
	}
	return 0, fmt.Errorf("%w: %q (expected short, medium or full)", ErrInvalidVariant, s)
}

// template holds the fixed Venice Lido checkpoints.
var template = [...]Checkpoint{
	{
		Name:     "Start - Hotel Excelsior",
		Kind:     Start,
		X:        45.400642,
		Y:        12.372607,
		Radius:   0.004976,
		AngleMin: -80,
		AngleMax: -64,
	},
	{
		Name:     "Turnpoint - Alberoni lighthouse",
		Kind:     Turn,
		X:        45.333908,
		Y:        12.343131,
		Radius:   0.014267,
		AngleMin: -97,
		AngleMax: -45,
	},
	{
		Name:     "Turnpoint - Chioggia lighthouse",
		Kind:     Turn,
		X:        45.228628,
		Y:        12.313616,
		Radius:   0.014267,
		AngleMin: 145,
		AngleMax: -116,
	},
	{
		Name:     "Turnpoint - San Nicolo lighthouse",
		Kind:     Turn,
		X:        45.417894,
		Y:        12.427183,
		Radius:   0.014267,
		AngleMin: 34,
		AngleMax: 102,
	},
	{
		Name:     "Finish - Hotel Excelsior",
		Kind:     Finish,
		X:        45.400642,
		Y:        12.372607,
		Radius:   0.004976,
		AngleMin: -80,
		AngleMax: -64,
	},
}

// Template returns a copy of the five-point checkpoint template.
func Template() []Checkpoint {
	out := make([]Checkpoint, len(template))
	copy(out, template[:])
	return out
}

// template indices per variant; start (0) and finish (4) are always present.
var variantPoints = map[Variant][]int{
	Short:  {0, 3, 4},
	Medium: {0, 1, 3, 4},
	Full:   {0, 1, 2, 3, 4},
}
