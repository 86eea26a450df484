//nolint:testpackage // White-box tests require access to unexported identifiers in this package.
package native

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/render-vtps/internal/colorrange"
	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/timeline"
)

func writeStep(t *testing.T, dir string, values string) string {
	t.Helper()
	doc := fmt.Sprintf(`<VTKFile type="PolyData"><PolyData><Piece>
<PointData><DataArray type="Float32" Name="p" format="ascii">%s</DataArray>
<DataArray type="Float32" Name="U" NumberOfComponents="3" format="ascii">0 0 1</DataArray></PointData>
</Piece></PolyData></VTKFile>`, values)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "wall.vtp")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func wallSeries(t *testing.T) engine.Series {
	root := t.TempDir()
	return engine.Series{
		Name: "wall",
		Files: []string{
			writeStep(t, filepath.Join(root, "0"), "0 1"),
			writeStep(t, filepath.Join(root, "1"), "2 3"),
			writeStep(t, filepath.Join(root, "2"), "0.5 4"),
		},
		Times: []float64{0, 1, 2},
	}
}

func TestEngine_ArraysAndRanges(t *testing.T) {
	ctx := context.Background()
	e := New()
	p, err := e.OpenSeries(ctx, wallSeries(t))
	require.NoError(t, err)
	require.NoError(t, e.Update(ctx, p, nil))

	arrays, err := e.Arrays(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []engine.ArrayInfo{{Name: "p", Components: 1}, {Name: "U", Components: 3}}, arrays.Point)

	at := 1.5
	require.NoError(t, e.Update(ctx, p, &at))
	r, err := e.ArrayRange(ctx, p, engine.FieldRef{Assoc: engine.AssocPoints, Name: "p"})
	require.NoError(t, err)
	assert.Equal(t, engine.Range{Min: 2, Max: 3}, r, "snaps to the last step not after t")

	before := -1.0
	require.NoError(t, e.Update(ctx, p, &before))
	assert.Equal(t, 0, e.series[p.ID].step)

	_, _ = e.ArrayRange(ctx, p, engine.FieldRef{Assoc: engine.AssocPoints, Name: "p"})
	assert.Equal(t, 2, e.reads, "files are read once")
}

func TestEngine_Reconcile(t *testing.T) {
	ctx := context.Background()
	e := New()
	p, err := e.OpenSeries(ctx, wallSeries(t))
	require.NoError(t, err)

	axis, err := timeline.Sync(ctx, e)
	require.NoError(t, err)
	res, err := colorrange.Reconcile(ctx, e, axis, engine.FieldRef{Assoc: engine.AssocPoints, Name: "p"},
		[]engine.Pipeline{p}, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.Range{Min: 0, Max: 4}, res.Range)

	last, ok := e.Time()
	assert.True(t, ok)
	assert.InDelta(t, 2.0, last, 0)
}

func TestEngine_Errors(t *testing.T) {
	ctx := context.Background()
	e := New()
	_, err := e.OpenSeries(ctx, engine.Series{Name: "empty"})
	require.Error(t, err)
	_, err = e.OpenSeries(ctx, engine.Series{Name: "bad", Files: []string{"a"}, Times: []float64{0, 1}})
	require.Error(t, err)

	p, err := e.OpenSeries(ctx, engine.Series{Name: "gone", Files: []string{filepath.Join(t.TempDir(), "x.vtp")}})
	require.NoError(t, err)
	_, err = e.Arrays(ctx, p)
	require.Error(t, err)

	_, err = e.Arrays(ctx, engine.Pipeline{ID: "nope"})
	require.Error(t, err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, e.Update(cctx, p, nil), context.Canceled)
	require.NoError(t, e.Close())
}
