package session

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/render-vtps/internal/discovery"
	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/engine/enginetest"
)

func dataset(name string, times ...float64) discovery.Dataset {
	ds := discovery.Dataset{Name: name, Root: "/case", Filename: name + ".vtp"}
	for _, t := range times {
		ds.Steps = append(ds.Steps, discovery.Step{Time: t, Path: "/case/" + name + ".vtp"})
	}
	return ds
}

func newFake() *enginetest.Fake {
	f := enginetest.New()
	f.Define("wall", enginetest.Dataset{
		Times: []float64{0, 1},
		Arrays: engine.Arrays{
			Point: []engine.ArrayInfo{{Name: "p", Components: 1}, {Name: "U", Components: 3}},
			Cell:  []engine.ArrayInfo{{Name: "rho", Components: 1}},
		},
		Ranges: map[string][]engine.Range{"p": {{Min: 0, Max: 1}, {Min: 1, Max: 2}}},
	})
	f.Define("inlet", enginetest.Dataset{Times: []float64{0.5}})
	return f
}

func TestOpen(t *testing.T) {
	f := newFake()
	opts := Options{
		Size:           engine.Size{Width: 640, Height: 480},
		Background:     engine.Black,
		Representation: engine.SurfaceWithEdges,
	}
	s, err := Open(context.Background(), f, opts, []discovery.Dataset{dataset("wall", 0, 1), dataset("inlet", 0.5)}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, f.Resets)
	assert.Equal(t, engine.FieldRef{Assoc: engine.AssocPoints, Name: "p"}, s.Field)
	require.Len(t, s.Datasets, 2)
	assert.Nil(t, s.Reference)

	displays := f.Displays(s.view)
	require.Len(t, displays, 2)
	for _, d := range displays {
		assert.Equal(t, s.Field, d.Field, "field applied uniformly")
		assert.Equal(t, engine.SurfaceWithEdges, d.Style.Representation)
		require.NotNil(t, d.Style.EdgeColor)
		assert.Equal(t, engine.Black, *d.Style.EdgeColor)
	}
	vs := f.View(s.view)
	assert.Equal(t, engine.Black, vs.Background)
	assert.Equal(t, engine.Size{Width: 640, Height: 480}, vs.Options.Size)

	cam, err := s.Camera(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.Vec3{0, 0, 10}, cam.Position, "reset-to-fit camera")

	axis, err := s.TimeAxis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, axis.Values())
}

func TestOpen_ExplicitCameraAndReference(t *testing.T) {
	f := newFake()
	explicit := engine.Camera{Position: engine.Vec3{1, 2, 3}, ViewUp: engine.Vec3{0, 0, 1}}
	s, err := Open(context.Background(), f, Options{Camera: &explicit},
		[]discovery.Dataset{dataset("wall", 0, 1)}, "/geom/body.vtp")
	require.NoError(t, err)

	require.NotNil(t, s.Reference)
	assert.Equal(t, "body", s.Reference.Name)
	assert.Len(t, s.Pipelines(), 1, "reference mesh is not a dataset")

	displays := f.Displays(s.view)
	require.Len(t, displays, 2)
	ref := displays[1]
	assert.True(t, ref.Field.IsZero())
	require.NotNil(t, ref.Style.DiffuseColor)
	assert.Equal(t, engine.NeutralGrey, *ref.Style.DiffuseColor)

	cam, err := s.Camera(context.Background())
	require.NoError(t, err)
	assert.Equal(t, explicit.Position, cam.Position)
	assert.Equal(t, explicit.Position, f.View(s.view).Camera.Position)
}

func TestOpen_NoFieldUsesSolidGrey(t *testing.T) {
	f := enginetest.New()
	f.Define("bare", enginetest.Dataset{Times: []float64{0}})
	s, err := Open(context.Background(), f, Options{Field: "p"}, []discovery.Dataset{dataset("bare", 0)}, "")
	require.NoError(t, err)
	assert.True(t, s.Field.IsZero())
	assert.NotEmpty(t, s.FieldWarning)

	d := f.Displays(s.view)[0]
	require.NotNil(t, d.Style.DiffuseColor)
	assert.Equal(t, engine.NeutralGrey, *d.Style.DiffuseColor)
}

func TestOpen_NoDatasets(t *testing.T) {
	_, err := Open(context.Background(), enginetest.New(), Options{}, nil, "")
	assert.ErrorIs(t, err, discovery.ErrNoMeshFiles)
}

func TestOpen_FailureDeletesView(t *testing.T) {
	tests := []struct {
		name     string
		datasets []discovery.Dataset
	}{
		{name: "first dataset", datasets: []discovery.Dataset{dataset("broken"), dataset("wall", 0, 1)}},
		{name: "later dataset", datasets: []discovery.Dataset{dataset("wall", 0, 1), dataset("broken")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake()
			_, err := Open(context.Background(), f, Options{}, tt.datasets, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "dataset broken")

			require.Equal(t, 1, f.ViewCount())
			var deleted int
			for _, c := range f.Calls {
				if strings.HasPrefix(c, "delete v") {
					deleted++
				}
			}
			assert.Equal(t, 1, deleted, "view created before the failure is released")
		})
	}
}

type choosePicker struct {
	index int
	seen  []engine.FieldRef
}

func (c *choosePicker) PickField(_ context.Context, choices []engine.FieldRef, _ engine.FieldRef) (engine.FieldRef, bool, error) {
	c.seen = choices
	if c.index < 0 {
		return engine.FieldRef{}, false, nil
	}
	return choices[c.index], true, nil
}

func TestInteractive(t *testing.T) {
	f := newFake()
	moved := engine.Camera{
		Position:   engine.Vec3{0.5, 1e-10, 123456789.25},
		FocalPoint: engine.Vec3{0, 0, 0},
		ViewUp:     engine.Vec3{0, 1, 0},
	}
	f.OnInteract = func(f *enginetest.Fake, v engine.View) {
		require.NoError(t, f.SetCamera(context.Background(), v, moved))
	}
	s, err := Open(context.Background(), f, Options{}, []discovery.Dataset{dataset("wall", 0, 1)}, "")
	require.NoError(t, err)

	var out bytes.Buffer
	picker := &choosePicker{index: 1}
	cam, err := s.Interactive(context.Background(), &out, picker)
	require.NoError(t, err)

	assert.Equal(t, moved.Position, cam.Position)
	assert.Len(t, picker.seen, 2, "p and rho are scalars; U is not")
	assert.Equal(t, engine.FieldRef{Assoc: engine.AssocCells, Name: "rho"}, s.Field)
	assert.Contains(t, out.String(), "Selected field: rho [CELLS]")
	assert.Contains(t, out.String(), "--camera-view-point '[0.5,1e-10,123456789,0,0,0,0,1,0]'")

	// The captured camera is kept by value for exports.
	require.NoError(t, f.ResetCamera(context.Background(), s.view))
	got, err := s.Camera(context.Background())
	require.NoError(t, err)
	assert.Equal(t, moved.Position, got.Position)
}

func TestInteractive_NotSupportedKeepsCamera(t *testing.T) {
	f := newFake()
	f.Caps.Interactive = false
	s, err := Open(context.Background(), f, Options{}, []discovery.Dataset{dataset("wall", 0, 1)}, "")
	require.NoError(t, err)

	var out bytes.Buffer
	cam, err := s.Interactive(context.Background(), &out, &choosePicker{index: -1})
	require.NoError(t, err)
	assert.Equal(t, engine.Vec3{0, 0, 10}, cam.Position)
	assert.Equal(t, "p", s.Field.Name)
	assert.Contains(t, out.String(), "Exiting interactive mode.")
}

func TestPromptPicker(t *testing.T) {
	choices := []engine.FieldRef{
		{Assoc: engine.AssocPoints, Name: "p"},
		{Assoc: engine.AssocCells, Name: "rho"},
	}
	tests := []struct {
		input   string
		want    engine.FieldRef
		ok      bool
		message string
	}{
		{input: "1\n", want: choices[1], ok: true},
		{input: "0", want: choices[0], ok: true},
		{input: "\n"},
		{input: "7\n", message: "Index out of range"},
		{input: "-1\n", message: "Unrecognized input"},
		{input: "rho\n", message: "Unrecognized input"},
		{input: "", message: "Input stream closed"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			p := PromptPicker{In: strings.NewReader(tt.input), Out: &out}
			got, ok, err := p.PickField(context.Background(), choices, choices[0])
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "  1: rho [CELLS]")
			if tt.message != "" {
				assert.Contains(t, out.String(), tt.message)
			}
		})
	}
}
