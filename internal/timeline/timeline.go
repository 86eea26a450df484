// Package timeline builds the time axis of an export run and advances every
// reader pipeline to one instant of it.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ensigniasec/render-vtps/internal/engine"
)

// Instant is one point of the time axis. A synthetic instant carries no time
// value and leaves every reader at its default step.
type Instant struct {
	Index     int
	Value     float64
	Synthetic bool
}

// At returns the time to pin pipelines to, or nil for a synthetic instant.
func (i Instant) At() *float64 {
	if i.Synthetic {
		return nil
	}
	v := i.Value
	return &v
}

func (i Instant) String() string {
	if i.Synthetic {
		return "static"
	}
	return fmt.Sprintf("t=%g", i.Value)
}

// Axis is the ordered list of instants an export visits.
type Axis struct {
	Instants []Instant
}

// NewAxis sorts and dedupes the time values, dropping non-finite ones. When
// nothing remains the axis holds a single synthetic instant so that a still
// export is still possible.
func NewAxis(values []float64) Axis {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		clean = append(clean, v)
	}
	sort.Float64s(clean)

	var ax Axis
	for _, v := range clean {
		if n := len(ax.Instants); n > 0 && ax.Instants[n-1].Value == v {
			continue
		}
		ax.Instants = append(ax.Instants, Instant{Index: len(ax.Instants), Value: v})
	}
	if len(ax.Instants) == 0 {
		ax.Instants = []Instant{{Index: 0, Synthetic: true}}
	}
	return ax
}

// Len returns the number of instants (always at least one for a built axis).
func (a Axis) Len() int { return len(a.Instants) }

// Synthetic reports whether the axis collapsed to the single synthetic instant.
func (a Axis) Synthetic() bool {
	return len(a.Instants) == 1 && a.Instants[0].Synthetic
}

// Values returns the real time values of the axis.
func (a Axis) Values() []float64 {
	out := make([]float64, 0, len(a.Instants))
	for _, in := range a.Instants {
		if !in.Synthetic {
			out = append(out, in.Value)
		}
	}
	return out
}

// Stepper is what Advance needs from an engine.
type Stepper interface {
	SetTime(ctx context.Context, t float64) error
	Update(ctx context.Context, p engine.Pipeline, at *float64) error
}

// Sync asks the time keeper for the union of every attached pipeline's time
// steps and builds the axis from it.
func Sync(ctx context.Context, tk engine.TimeKeeper) (Axis, error) {
	values, err := tk.SyncTimeSteps(ctx)
	if err != nil {
		return NewAxis(nil), err
	}
	return NewAxis(values), nil
}

// Advance moves the time keeper and then every pipeline, in order, to the
// instant. Pipeline failures do not stop the others; they are joined into the
// returned error for the caller to log. Only a canceled context aborts early.
func Advance(ctx context.Context, s Stepper, pipelines []engine.Pipeline, in Instant) error {
	var errs []error
	if !in.Synthetic {
		if err := s.SetTime(ctx, in.Value); err != nil {
			errs = append(errs, fmt.Errorf("set time %s: %w", in, err))
		}
	}
	for _, p := range pipelines {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Update(ctx, p, in.At()); err != nil {
			errs = append(errs, fmt.Errorf("update %s at %s: %w", p.Name, in, err))
		}
	}
	return errors.Join(errs...)
}
