// Package colorrange reconciles one colour scale for a whole animation, either
// from a user-fixed range or by sweeping every time step of every dataset.
package colorrange

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/timeline"
)

// Sweeper is the part of an engine a range sweep drives.
type Sweeper interface {
	timeline.Stepper
	ArrayRange(ctx context.Context, p engine.Pipeline, f engine.FieldRef) (engine.Range, error)
}

// StepRange is the folded range of all datasets at one instant.
type StepRange struct {
	Instant timeline.Instant `json:"instant"`
	Range   engine.Range     `json:"range"`
	Samples int              `json:"samples"`
}

// Result is the colour scale chosen for an animation.
type Result struct {
	Range engine.Range `json:"range"`
	// Fixed is set when the range came from the user and no sweep ran.
	Fixed bool `json:"fixed"`
	// Observed is set when the sweep saw at least one valid range.
	Observed bool        `json:"observed"`
	Steps    []StepRange `json:"steps,omitempty"`
	Skipped  int         `json:"skipped"`
}

// Usable reports whether the result should be applied to the transfer functions.
func (r Result) Usable() bool { return r.Fixed || r.Observed }

// Reconcile determines the colour range of field over the axis. A usable fixed
// range wins outright; otherwise every pipeline is advanced through every
// instant and its range folded into a running min/max. Failed reads and
// non-finite ranges are skipped with a warning. The only error returned is the
// context's.
func Reconcile(
	ctx context.Context,
	src Sweeper,
	axis timeline.Axis,
	field engine.FieldRef,
	pipelines []engine.Pipeline,
	fixed *engine.Range,
) (Result, error) {
	if field.IsZero() {
		return Result{}, nil
	}
	if fixed != nil {
		if fixed.Valid() && fixed.Min < fixed.Max {
			return Result{Range: *fixed, Fixed: true}, nil
		}
		logrus.WithField("range", fixed.String()).Warn("Ignoring unusable fixed range; sweeping data ranges instead.")
	}

	log := logrus.WithField("field", field.Name)
	lo, hi := math.Inf(1), math.Inf(-1)
	var res Result

	for _, in := range axis.Instants {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := timeline.Advance(ctx, src, pipelines, in); err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return res, cerr
			}
			log.WithField("time", in.String()).Warnf("Advancing readers failed: %v", err)
		}

		step := StepRange{Instant: in, Range: engine.Range{Min: math.Inf(1), Max: math.Inf(-1)}}
		for _, p := range pipelines {
			r, err := src.ArrayRange(ctx, p, field)
			entry := log.WithFields(logrus.Fields{"dataset": p.Name, "time": in.String()})
			if err != nil {
				entry.Warnf("Skipping range: %v", err)
				res.Skipped++
				continue
			}
			if !r.Valid() {
				entry.Warnf("Skipping non-finite range %s", r)
				res.Skipped++
				continue
			}
			step.Range = step.Range.Union(r)
			step.Samples++
		}
		if step.Samples > 0 {
			lo = math.Min(lo, step.Range.Min)
			hi = math.Max(hi, step.Range.Max)
			res.Steps = append(res.Steps, step)
		}
	}

	if lo <= hi {
		res.Range = engine.Range{Min: lo, Max: hi}
		res.Observed = true
	}
	return res, nil
}

// Apply rescales field's colour and opacity functions to a usable result once
// and locks them. Otherwise nothing is changed and the export falls back to
// per-frame data rescaling.
func Apply(ctx context.Context, tf engine.TransferFunctions, field engine.FieldRef, res Result) engine.Outcome {
	const op = "rescale transfer function"
	if field.IsZero() || !res.Usable() {
		return engine.Outcome{Op: op, Status: engine.NotApplicable}
	}
	return engine.Try(op, tf.RescaleTransferFunction(ctx, field.Name, res.Range, true))
}
