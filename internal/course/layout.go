package course

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// Layout is the ordered checkpoint sequence of one course variant.
type Layout struct {
	Variant     Variant
	Checkpoints []Checkpoint
}

// BuildLayout assembles the layout for v and checks its shape. Variants
// outside Short..Full are rejected rather than clamped.
func BuildLayout(v Variant) (Layout, error) {
	points, ok := variantPoints[v]
	if !ok {
		return Layout{}, fmt.Errorf("%w: %d", ErrInvalidVariant, int(v))
	}
	layout := Layout{
		Variant: v,
		Checkpoints: lo.Map(points, func(idx int, _ int) Checkpoint {
			return template[idx]
		}),
	}
	if err := layout.Validate(); err != nil {
		return Layout{}, fmt.Errorf("course %s: %w", v, err)
	}
	return layout, nil
}

// Len returns the number of checkpoints.
func (l Layout) Len() int {
	return len(l.Checkpoints)
}

// At returns the checkpoint at index i.
func (l Layout) At(i int) Checkpoint {
	return l.Checkpoints[i]
}

// Names returns the checkpoint names in order.
func (l Layout) Names() []string {
	return lo.Map(l.Checkpoints, func(c Checkpoint, _ int) string {
		return c.Name
	})
}

// Validate checks the layout shape: at least two checkpoints, opening with a
// start and closing with a finish.
func (l Layout) Validate() error {
	if len(l.Checkpoints) < 2 {
		return errors.New("layout needs at least two checkpoints")
	}
	if first := l.Checkpoints[0]; first.Kind != Start {
		return fmt.Errorf("layout must open with a start checkpoint, got %s", first.Kind)
	}
	if last := l.Checkpoints[len(l.Checkpoints)-1]; last.Kind != Finish {
		return fmt.Errorf("layout must close with a finish checkpoint, got %s", last.Kind)
	}
	return nil
}
