// Package animation renders every instant of a session's time axis into an
// offscreen view and hands the frames to the engine's movie writer.
package animation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/render-vtps/internal/colorrange"
	"github.com/ensigniasec/render-vtps/internal/config"
	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/session"
	"github.com/ensigniasec/render-vtps/internal/timeline"
)

// ErrExport is returned when the movie writer fails. The run has no output then.
var ErrExport = errors.New("movie export failed")

// Options configure one export.
type Options struct {
	Output     config.Output
	Size       engine.Size
	FPS        int
	FixedRange *engine.Range
	// Progress is called after every rendered frame.
	Progress func(done, total int)
}

// Report summarises a finished export.
type Report struct {
	RunID     uuid.UUID     `json:"run_id"`
	Path      string        `json:"path"`
	Datasets  []string      `json:"datasets"`
	Frames    int           `json:"frames"`
	FPS       int           `json:"fps"`
	Field     string        `json:"field,omitempty"`
	Range     *engine.Range `json:"range,omitempty"`
	Fixed     bool          `json:"fixed"`
	Observed  bool          `json:"observed"`
	Skipped   int           `json:"skipped"`
	Synthetic bool          `json:"synthetic"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

type exporter struct {
	sess     *session.Session
	eng      engine.Engine
	opts     Options
	log      *logrus.Entry
	view     engine.View
	displays []engine.Display
}

// Export renders the whole animation. The colour range is reconciled once
// before the first frame and stays frozen for the run.
func Export(ctx context.Context, sess *session.Session, opts Options) (Report, error) {
	rep := Report{
		RunID:     uuid.New(),
		Path:      opts.Output.Path(),
		FPS:       opts.FPS,
		StartedAt: time.Now(),
	}
	x := &exporter{
		sess: sess,
		eng:  sess.Engine(),
		opts: opts,
		log:  logrus.WithField("run", rep.RunID.String()),
	}
	for _, l := range sess.Datasets {
		rep.Datasets = append(rep.Datasets, l.Name)
	}

	if err := os.MkdirAll(opts.Output.Folder, 0o755); err != nil {
		return rep, fmt.Errorf("create output folder: %w", err)
	}

	caps := sess.Capabilities()
	view, err := x.eng.CreateView(ctx, engine.ViewOptions{Size: opts.Size, Offscreen: caps.Offscreen})
	if err != nil {
		return rep, fmt.Errorf("create export view: %w", err)
	}
	x.view = view
	defer func() {
		engine.Try("delete export view", x.eng.DeleteView(context.WithoutCancel(ctx), view)).Log(x.log)
	}()

	if err := x.buildScene(ctx); err != nil {
		return rep, err
	}

	field := sess.Field
	axis, err := sess.TimeAxis(ctx)
	if err != nil {
		x.log.Warnf("Time keeper sync failed, exporting a single frame: %v", err)
	}
	rep.Synthetic = axis.Synthetic()

	res, err := colorrange.Reconcile(ctx, x.eng, axis, field, sess.Pipelines(), opts.FixedRange)
	if err != nil {
		return rep, err
	}
	applied := colorrange.Apply(ctx, x.eng, field, res).Log(x.log)
	rep.Field = field.Name
	rep.Fixed, rep.Observed, rep.Skipped = res.Fixed, res.Observed, res.Skipped
	switch {
	case res.Fixed:
		rng := res.Range
		rep.Range = &rng
		x.log.Infof("Fixed colour range set to %s", rng)
	case res.Observed:
		rng := res.Range
		rep.Range = &rng
		x.log.Infof("Colour range over %d steps: %s", len(res.Steps), rng)
	case !field.IsZero():
		x.log.Warn("No valid data range observed; rescaling to each frame's data.")
	}
	if res.Usable() && !field.IsZero() && !applied.OK() {
		if !colorrange.Apply(ctx, x.eng, field, res).Log(x.log).OK() {
			x.log.Warnf("Colour range %s could not be applied; frames keep the engine's current range.", res.Range)
		}
	}
	perFrameRescale := !field.IsZero() && !res.Usable()

	if err := x.renderFrames(ctx, axis, perFrameRescale, &rep); err != nil {
		return rep, err
	}

	movie := engine.MovieOptions{
		Path:       rep.Path,
		Size:       opts.Size,
		FrameRate:  opts.FPS,
		FirstFrame: 0,
		LastFrame:  rep.Frames - 1,
	}
	if err := x.eng.SaveAnimation(ctx, view, movie); err != nil {
		rep.Duration = time.Since(rep.StartedAt)
		return rep, fmt.Errorf("%w: %s: %w", ErrExport, rep.Path, err)
	}
	rep.Duration = time.Since(rep.StartedAt)
	x.log.WithField("path", rep.Path).Infof("Movie saved: %d frames @ %d fps", rep.Frames, opts.FPS)
	return rep, nil
}

// buildScene mirrors the interactive scene into the export view.
func (x *exporter) buildScene(ctx context.Context) error {
	sopts := x.sess.Options()
	caps := x.sess.Capabilities()
	engine.Try("set background", x.eng.SetBackground(ctx, x.view, sopts.Background)).Log(x.log)

	if cam, err := x.sess.Camera(ctx); err != nil {
		x.log.Warnf("Could not read the session camera: %v", err)
	} else {
		if !caps.ParallelScale {
			cam.ParallelScale, cam.HasParallelScale = 0, false
		}
		engine.Try("set camera", x.eng.SetCamera(ctx, x.view, cam)).Log(x.log)
	}

	field := x.sess.Field
	for _, l := range x.sess.Datasets {
		d, err := x.eng.Show(ctx, l.Pipeline, x.view)
		if err != nil {
			return fmt.Errorf("show %s in export view: %w", l.Name, err)
		}
		x.displays = append(x.displays, d)
		log := x.log.WithField("dataset", l.Name)
		engine.Try("style", x.eng.Style(ctx, d, x.sess.StyleFor(field))).Log(log)
		engine.Try("color by", x.eng.ColorBy(ctx, d, field)).Log(log)
	}
	if ref := x.sess.Reference; ref != nil {
		d, err := x.eng.Show(ctx, ref.Pipeline, x.view)
		if err != nil {
			return fmt.Errorf("show reference %s in export view: %w", ref.Name, err)
		}
		engine.Try("color reference", x.eng.ColorBy(ctx, d, engine.FieldRef{})).Log(x.log)
		engine.Try("style reference", x.eng.Style(ctx, d, x.sess.StyleFor(engine.FieldRef{}))).Log(x.log)
	}

	if !field.IsZero() && len(x.displays) > 0 {
		if !caps.ScalarBar {
			engine.Try("scalar bar", engine.ErrNotSupported).Log(x.log)
		} else {
			engine.Try("scalar bar", x.eng.ShowScalarBar(ctx, x.displays[0], field.Name)).Log(x.log)
		}
	}
	return nil
}

func (x *exporter) renderFrames(ctx context.Context, axis timeline.Axis, perFrameRescale bool, rep *Report) error {
	total := axis.Len()
	pipelines := x.sess.Pipelines()
	for _, in := range axis.Instants {
		if err := ctx.Err(); err != nil {
			return err
		}
		log := x.log.WithField("time", in.String())
		if err := timeline.Advance(ctx, x.eng, pipelines, in); err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			log.Warnf("Advancing readers failed: %v", err)
		}
		if perFrameRescale {
			for _, d := range x.displays {
				engine.Try("rescale to data", x.eng.RescaleToData(ctx, d)).Log(log)
			}
		}
		engine.Try("render", x.eng.Render(ctx, x.view)).Log(log)
		rep.Frames++
		log.Debugf("Frame %d/%d", rep.Frames, total)
		if x.opts.Progress != nil {
			x.opts.Progress(rep.Frames, total)
		}
	}
	return nil
}
