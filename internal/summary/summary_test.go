package summary

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/render-vtps/internal/animation"
	"github.com/ensigniasec/render-vtps/internal/colorrange"
	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/timeline"
)

func sampleReport() animation.Report {
	return animation.Report{
		RunID:     uuid.MustParse("6f1d2c3b-4a5e-4f60-8a7b-9c0d1e2f3a4b"),
		Path:      "out/animation.avi",
		Datasets:  []string{"wall", "inlet"},
		Frames:    3,
		FPS:       30,
		Field:     "p",
		Range:     &engine.Range{Min: 0, Max: 4},
		Observed:  true,
		Skipped:   1,
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
	}
}

func TestPrint_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, sampleReport(), false))
	out := buf.String()
	assert.Contains(t, out, "RENDER-VTPS EXPORT REPORT")
	assert.Contains(t, out, "6f1d2c3b-4a5e-4f60-8a7b-9c0d1e2f3a4b")
	assert.Contains(t, out, "Datasets: wall, inlet")
	assert.Contains(t, out, "Frames:   3 @ 30 fps")
	assert.Contains(t, out, "p, range [0, 4] over the whole animation (1 samples skipped)")
	assert.Contains(t, out, "duration: 1.50s")
}

func TestPrint_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, sampleReport(), true))
	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, "6f1d2c3b-4a5e-4f60-8a7b-9c0d1e2f3a4b", raw["run_id"])
	assert.Equal(t, map[string]any{"min": 0.0, "max": 4.0}, raw["range"])
}

func TestDescribeColour(t *testing.T) {
	rep := sampleReport()
	rep.Fixed, rep.Range = true, &engine.Range{Min: 0, Max: 10}
	assert.Equal(t, "p, fixed range [0, 10]", describeColour(rep))

	rep = sampleReport()
	rep.Observed, rep.Range = false, nil
	assert.Contains(t, describeColour(rep), "rescaled to each frame")

	rep.Field = ""
	assert.Equal(t, "solid (no scalar field)", describeColour(rep))
}

func TestPrintRanges(t *testing.T) {
	ax := timeline.NewAxis([]float64{0, 1, 2})
	table := RangeTable{
		Field:    engine.FieldRef{Assoc: engine.AssocPoints, Name: "p"},
		Datasets: []string{"wall"},
		Result: colorrange.Result{
			Range:    engine.Range{Min: 0, Max: 4},
			Observed: true,
			Steps: []colorrange.StepRange{
				{Instant: ax.Instants[0], Range: engine.Range{Min: 0, Max: 1}, Samples: 1},
				{Instant: ax.Instants[1], Range: engine.Range{Min: 2, Max: 3}, Samples: 1},
				{Instant: ax.Instants[2], Range: engine.Range{Min: 0.5, Max: 4}, Samples: 1},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintRanges(&buf, table, true, false))
	out := buf.String()
	assert.Contains(t, out, "Field p [POINTS] across wall")
	assert.Contains(t, out, "STEP")
	assert.Contains(t, out, "t=1")
	assert.Contains(t, out, "Colour range: [0, 4]")
	assert.Contains(t, out, "p min/max per step")

	buf.Reset()
	require.NoError(t, PrintRanges(&buf, table, false, true))
	var decoded RangeTable
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, engine.Range{Min: 0, Max: 4}, decoded.Result.Range)
}

func TestPrintFields(t *testing.T) {
	ds := []DatasetFields{
		{
			Name: "wall", Filename: "wall.vtp", Steps: 2, Times: []float64{0, 0.5},
			Arrays: engine.Arrays{
				Point: []engine.ArrayInfo{{Name: "p", Components: 1}, {Name: "U", Components: 3}},
				Cell:  []engine.ArrayInfo{{Name: "rho", Components: 1}},
			},
			Selected: engine.FieldRef{Assoc: engine.AssocPoints, Name: "p"},
		},
		{Name: "bare", Filename: "bare.vtk", Steps: 1, Warning: "Requested field 'T' is not found."},
	}
	var buf bytes.Buffer
	require.NoError(t, PrintFields(&buf, ds, false))
	out := buf.String()
	assert.Contains(t, out, "wall (wall.vtp, 2 steps, t=0..0.5)")
	assert.Regexp(t, `\*\s+p\s+POINTS\s+1`, out)
	assert.Regexp(t, `U\s+POINTS\s+3`, out)
	assert.Contains(t, out, "warning: Requested field 'T' is not found.")
	assert.Contains(t, out, "no scalar field; renders use solid colouring")
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "500µs", HumanDuration(500*time.Microsecond))
	assert.Equal(t, "12ms", HumanDuration(12*time.Millisecond))
	assert.Equal(t, "2m05s", HumanDuration(125*time.Second))
	assert.Equal(t, "1h01m", HumanDuration(61*time.Minute))
}
