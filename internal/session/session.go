// Package session bootstraps the reader pipelines and the interactive view of
// one render run and owns them until Close.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/render-vtps/internal/discovery"
	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/fields"
	"github.com/ensigniasec/render-vtps/internal/timeline"
)

// Options are the visual settings shared by every view of a session.
type Options struct {
	Size           engine.Size
	Background     engine.Color
	Representation engine.Representation
	// Field is the requested colouring field; empty picks one automatically.
	Field string
	// Camera overrides the reset-to-fit camera when set.
	Camera *engine.Camera
}

// Layer is one pipeline shown in the interactive view.
type Layer struct {
	Name     string
	Pipeline engine.Pipeline
	Display  engine.Display
}

// Session holds the engine state of a run: one pipeline per dataset, an
// optional reference mesh and the interactive view.
type Session struct {
	eng  engine.Engine
	opts Options
	caps engine.Capabilities
	view engine.View

	Datasets  []Layer
	Reference *Layer
	// Arrays describes the first dataset, which drives field selection.
	Arrays engine.Arrays
	Field  engine.FieldRef
	// FieldWarning is set when the requested field was not usable.
	FieldWarning string

	camera *engine.Camera
	log    *logrus.Entry
}

// Open resets the engine and builds the interactive scene. Errors opening or
// showing a dataset are fatal; optional styling calls are logged and skipped.
func Open(
	ctx context.Context,
	eng engine.Engine,
	opts Options,
	datasets []discovery.Dataset,
	reference string,
) (_ *Session, err error) {
	if len(datasets) == 0 {
		return nil, discovery.ErrNoMeshFiles
	}
	if err := eng.ResetSession(ctx); err != nil {
		return nil, fmt.Errorf("reset engine session: %w", err)
	}

	s := &Session{
		eng:  eng,
		opts: opts,
		caps: eng.Capabilities(),
		log:  logrus.WithField("component", "session"),
	}
	logrus.WithField("capabilities", fmt.Sprintf("%+v", s.caps)).Debug("Engine capabilities")

	view, err := eng.CreateView(ctx, engine.ViewOptions{Size: opts.Size})
	if err != nil {
		return nil, fmt.Errorf("create render view: %w", err)
	}
	s.view = view
	// Pipelines opened so far are dropped by the next ResetSession.
	defer func() {
		if err != nil {
			engine.Try("delete view", eng.DeleteView(context.WithoutCancel(ctx), view)).Log(s.log)
		}
	}()
	engine.Try("set background", eng.SetBackground(ctx, view, opts.Background)).Log(s.log)

	for _, ds := range datasets {
		layer, err := s.openLayer(ctx, engine.Series{Name: ds.Name, Files: ds.Files(), Times: ds.Times()})
		if err != nil {
			return nil, fmt.Errorf("dataset %s (%s): %w", ds.Name, ds.Root, err)
		}
		s.Datasets = append(s.Datasets, layer)
	}

	arrays, err := eng.Arrays(ctx, s.Datasets[0].Pipeline)
	if err != nil {
		s.log.WithField("dataset", s.Datasets[0].Name).Warnf("Could not read arrays: %v", err)
	}
	s.Arrays = arrays
	sel := fields.Select(arrays, opts.Field)
	s.FieldWarning = sel.Warning
	s.SetField(ctx, sel.Field)

	if reference != "" {
		name := strings.TrimSuffix(filepath.Base(reference), filepath.Ext(reference))
		layer, err := s.openLayer(ctx, engine.Series{Name: name, Files: []string{reference}})
		if err != nil {
			return nil, fmt.Errorf("reference mesh %s: %w", reference, err)
		}
		grey := engine.NeutralGrey
		engine.Try("color reference", eng.ColorBy(ctx, layer.Display, engine.FieldRef{})).Log(s.log)
		engine.Try("style reference", eng.Style(ctx, layer.Display, s.style(&grey))).Log(s.log)
		s.Reference = &layer
	}

	engine.Try("reset camera", eng.ResetCamera(ctx, view)).Log(s.log)
	if opts.Camera != nil {
		if err := s.SetCamera(ctx, *opts.Camera); err != nil {
			return nil, err
		}
	}
	engine.Try("render", eng.Render(ctx, view)).Log(s.log)
	return s, nil
}

func (s *Session) openLayer(ctx context.Context, series engine.Series) (Layer, error) {
	p, err := s.eng.OpenSeries(ctx, series)
	if err != nil {
		return Layer{}, err
	}
	if err := s.eng.Update(ctx, p, nil); err != nil {
		return Layer{}, err
	}
	d, err := s.eng.Show(ctx, p, s.view)
	if err != nil {
		return Layer{}, err
	}
	engine.Try("style", s.eng.Style(ctx, d, s.style(nil))).Log(s.log.WithField("dataset", series.Name))
	return Layer{Name: series.Name, Pipeline: p, Display: d}, nil
}

// style returns the display style for the session representation. Edges are
// always drawn black.
func (s *Session) style(diffuse *engine.Color) engine.DisplayStyle {
	st := engine.DisplayStyle{Representation: s.opts.Representation, DiffuseColor: diffuse}
	if s.opts.Representation.ShowsEdges() {
		black := engine.Black
		st.EdgeColor = &black
	}
	return st
}

// StyleFor returns the style a dataset display gets for the current field.
func (s *Session) StyleFor(field engine.FieldRef) engine.DisplayStyle {
	if field.IsZero() {
		grey := engine.NeutralGrey
		return s.style(&grey)
	}
	return s.style(nil)
}

// SetField colours every dataset display by field and rescales to the current
// data. A zero field switches the displays to solid grey.
func (s *Session) SetField(ctx context.Context, field engine.FieldRef) {
	s.Field = field
	for _, l := range s.Datasets {
		log := s.log.WithField("dataset", l.Name)
		engine.Try("color by", s.eng.ColorBy(ctx, l.Display, field)).Log(log)
		if field.IsZero() {
			engine.Try("style", s.eng.Style(ctx, l.Display, s.StyleFor(field))).Log(log)
			continue
		}
		engine.Try("rescale to data", s.eng.RescaleToData(ctx, l.Display)).Log(log)
	}
}

// SetCamera applies cam to the interactive view and keeps it for exports.
func (s *Session) SetCamera(ctx context.Context, cam engine.Camera) error {
	if err := s.eng.SetCamera(ctx, s.view, cam); err != nil {
		return fmt.Errorf("set camera: %w", err)
	}
	s.camera = &cam
	return nil
}

// Camera returns the explicit or captured camera, falling back to the live
// camera of the interactive view.
func (s *Session) Camera(ctx context.Context) (engine.Camera, error) {
	if s.camera != nil {
		return *s.camera, nil
	}
	return s.eng.Camera(ctx, s.view)
}

// Engine returns the engine the session drives.
func (s *Session) Engine() engine.Engine { return s.eng }

// Capabilities returns the capabilities probed when the session opened.
func (s *Session) Capabilities() engine.Capabilities { return s.caps }

// Options returns the session's visual settings.
func (s *Session) Options() Options { return s.opts }

// Pipelines returns the dataset pipelines in order, without the reference mesh.
func (s *Session) Pipelines() []engine.Pipeline {
	out := make([]engine.Pipeline, 0, len(s.Datasets))
	for _, l := range s.Datasets {
		out = append(out, l.Pipeline)
	}
	return out
}

// TimeAxis syncs the engine time keeper and returns the animation axis.
func (s *Session) TimeAxis(ctx context.Context) (timeline.Axis, error) {
	return timeline.Sync(ctx, s.eng)
}

// Close deletes the interactive view.
func (s *Session) Close(ctx context.Context) error {
	return s.eng.DeleteView(ctx, s.view)
}
