// Package enginetest provides an in-memory engine that records every call, for
// tests of the orchestration packages.
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ensigniasec/render-vtps/internal/engine"
)

var _ engine.Engine = (*Fake)(nil)

// Dataset is the canned content behind one series name.
type Dataset struct {
	// Times of the series steps; empty means a static dataset with one step.
	Times  []float64
	Arrays engine.Arrays
	// Ranges holds per-step ranges keyed by array name, indexed like Times.
	Ranges map[string][]engine.Range
	// FailAt makes ArrayRange fail at the given step indexes.
	FailAt map[int]bool
}

// LUT is the recorded state of one field's transfer functions.
type LUT struct {
	Range        engine.Range
	Locked       bool
	Rescales     int
	DataRescales int
}

// ViewState is the recorded state of one view.
type ViewState struct {
	Options    engine.ViewOptions
	Background engine.Color
	Camera     engine.Camera
	Renders    int
	Deleted    bool
}

// DisplayState is the recorded state of one display.
type DisplayState struct {
	Display        engine.Display
	Style          engine.DisplayStyle
	Field          engine.FieldRef
	ScalarBarTitle string
}

// Movie is one SaveAnimation request.
type Movie struct {
	View    engine.View
	Options engine.MovieOptions
	// Renders is the view's render count when the movie was requested.
	Renders int
}

type pipelineState struct {
	series engine.Series
	data   Dataset
	step   int
}

// Fake is a call-recording engine. It is not safe for concurrent use.
type Fake struct {
	Caps engine.Capabilities
	// ExportErr is returned by SaveAnimation.
	ExportErr error
	// OnInteract runs inside Interact, standing in for the user.
	OnInteract func(f *Fake, v engine.View)
	// OnRescale, when set, can fail RescaleTransferFunction before it takes effect.
	OnRescale func(field string, r engine.Range) error

	Calls    []string
	Time     *float64
	LUTs     map[string]*LUT
	Movies   []Movie
	Resets   int
	Closed   bool
	datasets map[string]Dataset
	pipes    map[string]*pipelineState
	order    []string
	views    map[string]*ViewState
	displays map[string]*DisplayState
	nextID   int
}

// New returns a fake with every optional capability available.
func New() *Fake {
	return &Fake{
		Caps: engine.Capabilities{
			ParallelScale: true,
			Offscreen:     true,
			ScalarBar:     true,
			Interactive:   true,
		},
		LUTs:     map[string]*LUT{},
		datasets: map[string]Dataset{},
		pipes:    map[string]*pipelineState{},
		views:    map[string]*ViewState{},
		displays: map[string]*DisplayState{},
	}
}

// Define registers the content served for series opened under name.
func (f *Fake) Define(name string, d Dataset) {
	f.datasets[name] = d
}

// View returns the recorded state of v.
func (f *Fake) View(v engine.View) *ViewState { return f.views[v.ID] }

// Displays returns the displays shown in v, in creation order.
func (f *Fake) Displays(v engine.View) []*DisplayState {
	var out []*DisplayState
	for _, d := range f.displays {
		if d.Display.View == v {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Display.ID < out[j].Display.ID })
	return out
}

// ViewCount returns how many views were created.
func (f *Fake) ViewCount() int { return len(f.views) }

// Step returns the step index p is currently positioned at.
func (f *Fake) Step(p engine.Pipeline) int { return f.pipes[p.ID].step }

func (f *Fake) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%03d", prefix, f.nextID)
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *Fake) Capabilities() engine.Capabilities { return f.Caps }

func (f *Fake) ResetSession(context.Context) error {
	f.record("reset")
	f.Resets++
	f.pipes = map[string]*pipelineState{}
	f.order = nil
	f.views = map[string]*ViewState{}
	f.displays = map[string]*DisplayState{}
	f.LUTs = map[string]*LUT{}
	f.Time = nil
	return nil
}

func (f *Fake) OpenSeries(_ context.Context, s engine.Series) (engine.Pipeline, error) {
	if len(s.Files) == 0 {
		return engine.Pipeline{}, errors.New("series has no files")
	}
	p := engine.Pipeline{ID: f.id("p"), Name: s.Name}
	f.pipes[p.ID] = &pipelineState{series: s, data: f.datasets[s.Name]}
	f.order = append(f.order, p.ID)
	f.record("open %s", s.Name)
	return p, nil
}

func (f *Fake) pipe(p engine.Pipeline) (*pipelineState, error) {
	ps, ok := f.pipes[p.ID]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q", p.ID)
	}
	return ps, nil
}

// Update snaps to the last step whose time is <= at, or the first step.
func (f *Fake) Update(_ context.Context, p engine.Pipeline, at *float64) error {
	ps, err := f.pipe(p)
	if err != nil {
		return err
	}
	ps.step = 0
	if at != nil {
		for i, t := range ps.data.Times {
			if t <= *at {
				ps.step = i
			}
		}
		f.record("update %s t=%g", p.Name, *at)
	} else {
		f.record("update %s", p.Name)
	}
	return nil
}

func (f *Fake) Arrays(_ context.Context, p engine.Pipeline) (engine.Arrays, error) {
	ps, err := f.pipe(p)
	if err != nil {
		return engine.Arrays{}, err
	}
	return ps.data.Arrays, nil
}

func (f *Fake) ArrayRange(_ context.Context, p engine.Pipeline, field engine.FieldRef) (engine.Range, error) {
	ps, err := f.pipe(p)
	if err != nil {
		return engine.Range{}, err
	}
	if ps.data.FailAt[ps.step] {
		return engine.Range{}, fmt.Errorf("%s: read failed at step %d", p.Name, ps.step)
	}
	ranges, ok := ps.data.Ranges[field.Name]
	if !ok || ps.step >= len(ranges) {
		return engine.Range{}, fmt.Errorf("%s: no array %q", p.Name, field.Name)
	}
	return ranges[ps.step], nil
}

// SyncTimeSteps returns the sorted union of the opened series' times.
func (f *Fake) SyncTimeSteps(context.Context) ([]float64, error) {
	seen := map[float64]bool{}
	var out []float64
	for _, id := range f.order {
		for _, t := range f.pipes[id].data.Times {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Float64s(out)
	return out, nil
}

func (f *Fake) SetTime(_ context.Context, t float64) error {
	f.Time = &t
	f.record("time %g", t)
	return nil
}

func (f *Fake) lut(field string) *LUT {
	l, ok := f.LUTs[field]
	if !ok {
		l = &LUT{}
		f.LUTs[field] = l
	}
	return l
}

func (f *Fake) RescaleTransferFunction(_ context.Context, field string, r engine.Range, lock bool) error {
	if f.OnRescale != nil {
		if err := f.OnRescale(field, r); err != nil {
			f.record("lut %s %s failed", field, r)
			return err
		}
	}
	l := f.lut(field)
	l.Range = r
	l.Locked = lock
	l.Rescales++
	f.record("lut %s %s lock=%t", field, r, lock)
	return nil
}

func (f *Fake) RescaleToData(ctx context.Context, d engine.Display) error {
	ds, ok := f.displays[d.ID]
	if !ok {
		return fmt.Errorf("unknown display %q", d.ID)
	}
	if ds.Field.IsZero() {
		return nil
	}
	l := f.lut(ds.Field.Name)
	l.DataRescales++
	if l.Locked {
		return nil
	}
	if r, err := f.ArrayRange(ctx, d.Pipeline, ds.Field); err == nil {
		l.Range = r
	}
	return nil
}

func (f *Fake) CreateView(_ context.Context, opts engine.ViewOptions) (engine.View, error) {
	if opts.Offscreen && !f.Caps.Offscreen {
		return engine.View{}, engine.ErrNotSupported
	}
	v := engine.View{ID: f.id("v")}
	f.views[v.ID] = &ViewState{Options: opts}
	f.record("view %s %s offscreen=%t", v.ID, opts.Size, opts.Offscreen)
	return v, nil
}

func (f *Fake) view(v engine.View) (*ViewState, error) {
	vs, ok := f.views[v.ID]
	if !ok || vs.Deleted {
		return nil, fmt.Errorf("unknown view %q", v.ID)
	}
	return vs, nil
}

func (f *Fake) DeleteView(_ context.Context, v engine.View) error {
	vs, err := f.view(v)
	if err != nil {
		return err
	}
	vs.Deleted = true
	f.record("delete %s", v.ID)
	return nil
}

func (f *Fake) SetBackground(_ context.Context, v engine.View, c engine.Color) error {
	vs, err := f.view(v)
	if err != nil {
		return err
	}
	vs.Background = c
	return nil
}

func (f *Fake) Camera(_ context.Context, v engine.View) (engine.Camera, error) {
	vs, err := f.view(v)
	if err != nil {
		return engine.Camera{}, err
	}
	return vs.Camera, nil
}

func (f *Fake) SetCamera(_ context.Context, v engine.View, c engine.Camera) error {
	vs, err := f.view(v)
	if err != nil {
		return err
	}
	if !f.Caps.ParallelScale {
		c.ParallelScale, c.HasParallelScale = 0, false
	}
	vs.Camera = c
	return nil
}

func (f *Fake) ResetCamera(_ context.Context, v engine.View) error {
	vs, err := f.view(v)
	if err != nil {
		return err
	}
	vs.Camera = engine.Camera{
		Position:         engine.Vec3{0, 0, 10},
		ViewUp:           engine.Vec3{0, 1, 0},
		ParallelScale:    1,
		HasParallelScale: f.Caps.ParallelScale,
	}
	return nil
}

func (f *Fake) Render(_ context.Context, v engine.View) error {
	vs, err := f.view(v)
	if err != nil {
		return err
	}
	vs.Renders++
	return nil
}

func (f *Fake) Interact(_ context.Context, v engine.View) error {
	if !f.Caps.Interactive {
		return engine.ErrNotSupported
	}
	if _, err := f.view(v); err != nil {
		return err
	}
	f.record("interact %s", v.ID)
	if f.OnInteract != nil {
		f.OnInteract(f, v)
	}
	return nil
}

func (f *Fake) Show(_ context.Context, p engine.Pipeline, v engine.View) (engine.Display, error) {
	if _, err := f.pipe(p); err != nil {
		return engine.Display{}, err
	}
	if _, err := f.view(v); err != nil {
		return engine.Display{}, err
	}
	d := engine.Display{ID: f.id("d"), Pipeline: p, View: v}
	f.displays[d.ID] = &DisplayState{Display: d}
	return d, nil
}

func (f *Fake) display(d engine.Display) (*DisplayState, error) {
	ds, ok := f.displays[d.ID]
	if !ok {
		return nil, fmt.Errorf("unknown display %q", d.ID)
	}
	return ds, nil
}

func (f *Fake) Style(_ context.Context, d engine.Display, s engine.DisplayStyle) error {
	ds, err := f.display(d)
	if err != nil {
		return err
	}
	ds.Style = s
	return nil
}

func (f *Fake) ColorBy(_ context.Context, d engine.Display, field engine.FieldRef) error {
	ds, err := f.display(d)
	if err != nil {
		return err
	}
	ds.Field = field
	return nil
}

func (f *Fake) ShowScalarBar(_ context.Context, d engine.Display, title string) error {
	if !f.Caps.ScalarBar {
		return engine.ErrNotSupported
	}
	ds, err := f.display(d)
	if err != nil {
		return err
	}
	ds.ScalarBarTitle = title
	return nil
}

func (f *Fake) SaveAnimation(_ context.Context, v engine.View, opts engine.MovieOptions) error {
	vs, err := f.view(v)
	if err != nil {
		return err
	}
	f.Movies = append(f.Movies, Movie{View: v, Options: opts, Renders: vs.Renders})
	f.record("save %s", opts.Path)
	return f.ExportErr
}

func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
