package pvpython

import (
	"context"
	"fmt"

	"github.com/ensigniasec/render-vtps/internal/engine"
)

var _ engine.Engine = (*Engine)(nil)

type handle struct {
	ID string `json:"id"`
}

type wireField struct {
	Association string `json:"association"`
	Name        string `json:"name"`
}

func toWire(f engine.FieldRef) wireField {
	if f.IsZero() {
		return wireField{}
	}
	return wireField{Association: f.Assoc.String(), Name: f.Name}
}

type wireArrays struct {
	Point []engine.ArrayInfo `json:"point"`
	Cell  []engine.ArrayInfo `json:"cell"`
}

type hello struct {
	Version      string              `json:"version"`
	Capabilities engine.Capabilities `json:"capabilities"`
}

func (e *Engine) Capabilities() engine.Capabilities { return e.caps }

// Version returns the ParaView version reported by the bridge.
func (e *Engine) Version() string { return e.version }

func (e *Engine) handshake(ctx context.Context) error {
	var h hello
	if err := e.client.Call(ctx, "hello", nil, &h); err != nil {
		return err
	}
	e.caps, e.version = h.Capabilities, h.Version
	return nil
}

func (e *Engine) ResetSession(ctx context.Context) error {
	return e.client.Call(ctx, "reset_session", nil, nil)
}

func (e *Engine) OpenSeries(ctx context.Context, s engine.Series) (engine.Pipeline, error) {
	params := openSeriesParams{Series: s}
	if len(s.Times) > 0 {
		dir, err := e.workDir()
		if err != nil {
			return engine.Pipeline{}, fmt.Errorf("series %s: %w", s.Name, err)
		}
		if params.SeriesFile, err = writeSeriesFile(dir, s); err != nil {
			return engine.Pipeline{}, fmt.Errorf("series %s: %w", s.Name, err)
		}
	}
	var h handle
	if err := e.client.Call(ctx, "open_series", params, &h); err != nil {
		return engine.Pipeline{}, err
	}
	return engine.Pipeline{ID: h.ID, Name: s.Name}, nil
}

func (e *Engine) Update(ctx context.Context, p engine.Pipeline, at *float64) error {
	return e.client.Call(ctx, "update", map[string]any{"pipeline": p.ID, "time": at}, nil)
}

func (e *Engine) Arrays(ctx context.Context, p engine.Pipeline) (engine.Arrays, error) {
	var a wireArrays
	if err := e.client.Call(ctx, "arrays", map[string]any{"pipeline": p.ID}, &a); err != nil {
		return engine.Arrays{}, err
	}
	return engine.Arrays{Point: a.Point, Cell: a.Cell}, nil
}

func (e *Engine) ArrayRange(ctx context.Context, p engine.Pipeline, f engine.FieldRef) (engine.Range, error) {
	var r engine.Range
	err := e.client.Call(ctx, "array_range", map[string]any{"pipeline": p.ID, "field": toWire(f)}, &r)
	return r, err
}

func (e *Engine) SyncTimeSteps(ctx context.Context) ([]float64, error) {
	var times []float64
	err := e.client.Call(ctx, "sync_time_steps", nil, &times)
	return times, err
}

func (e *Engine) SetTime(ctx context.Context, t float64) error {
	return e.client.Call(ctx, "set_time", map[string]any{"time": t}, nil)
}

func (e *Engine) RescaleTransferFunction(ctx context.Context, field string, r engine.Range, lock bool) error {
	return e.client.Call(ctx, "rescale_transfer_function",
		map[string]any{"field": field, "min": r.Min, "max": r.Max, "lock": lock}, nil)
}

func (e *Engine) RescaleToData(ctx context.Context, d engine.Display) error {
	return e.client.Call(ctx, "rescale_to_data", map[string]any{"display": d.ID}, nil)
}

func (e *Engine) CreateView(ctx context.Context, opts engine.ViewOptions) (engine.View, error) {
	var h handle
	err := e.client.Call(ctx, "create_view", map[string]any{
		"width":     opts.Size.Width,
		"height":    opts.Size.Height,
		"offscreen": opts.Offscreen,
	}, &h)
	return engine.View{ID: h.ID}, err
}

func (e *Engine) DeleteView(ctx context.Context, v engine.View) error {
	return e.client.Call(ctx, "delete_view", map[string]any{"view": v.ID}, nil)
}

func (e *Engine) SetBackground(ctx context.Context, v engine.View, c engine.Color) error {
	return e.client.Call(ctx, "set_background", map[string]any{"view": v.ID, "color": c}, nil)
}

func (e *Engine) Camera(ctx context.Context, v engine.View) (engine.Camera, error) {
	var cam engine.Camera
	err := e.client.Call(ctx, "get_camera", map[string]any{"view": v.ID}, &cam)
	return cam, err
}

func (e *Engine) SetCamera(ctx context.Context, v engine.View, c engine.Camera) error {
	return e.client.Call(ctx, "set_camera", map[string]any{"view": v.ID, "camera": c}, nil)
}

func (e *Engine) ResetCamera(ctx context.Context, v engine.View) error {
	return e.client.Call(ctx, "reset_camera", map[string]any{"view": v.ID}, nil)
}

func (e *Engine) Render(ctx context.Context, v engine.View) error {
	return e.client.Call(ctx, "render", map[string]any{"view": v.ID}, nil)
}

func (e *Engine) Interact(ctx context.Context, v engine.View) error {
	if !e.caps.Interactive {
		return engine.ErrNotSupported
	}
	return e.client.Call(ctx, "interact", map[string]any{"view": v.ID}, nil)
}

func (e *Engine) Show(ctx context.Context, p engine.Pipeline, v engine.View) (engine.Display, error) {
	var h handle
	if err := e.client.Call(ctx, "show", map[string]any{"pipeline": p.ID, "view": v.ID}, &h); err != nil {
		return engine.Display{}, err
	}
	return engine.Display{ID: h.ID, Pipeline: p, View: v}, nil
}

func (e *Engine) Style(ctx context.Context, d engine.Display, s engine.DisplayStyle) error {
	return e.client.Call(ctx, "style", map[string]any{
		"display":        d.ID,
		"representation": s.Representation.String(),
		"edge_color":     s.EdgeColor,
		"diffuse_color":  s.DiffuseColor,
	}, nil)
}

func (e *Engine) ColorBy(ctx context.Context, d engine.Display, f engine.FieldRef) error {
	return e.client.Call(ctx, "color_by", map[string]any{"display": d.ID, "field": toWire(f)}, nil)
}

func (e *Engine) ShowScalarBar(ctx context.Context, d engine.Display, title string) error {
	if !e.caps.ScalarBar {
		return engine.ErrNotSupported
	}
	return e.client.Call(ctx, "show_scalar_bar", map[string]any{"display": d.ID, "title": title}, nil)
}

func (e *Engine) SaveAnimation(ctx context.Context, v engine.View, opts engine.MovieOptions) error {
	return e.client.Call(ctx, "save_animation", map[string]any{
		"view":        v.ID,
		"path":        opts.Path,
		"width":       opts.Size.Width,
		"height":      opts.Size.Height,
		"frame_rate":  opts.FrameRate,
		"first_frame": opts.FirstFrame,
		"last_frame":  opts.LastFrame,
	}, nil)
}
