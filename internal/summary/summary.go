// Package summary renders run reports for humans (text) and machines (JSON).
package summary

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/ensigniasec/render-vtps/internal/animation"
	"github.com/ensigniasec/render-vtps/internal/colorrange"
	"github.com/ensigniasec/render-vtps/internal/engine"
)

const reportWidth = 80

func rule(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", reportWidth))
}

func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// Print outputs an export report in the requested format.
func Print(w io.Writer, rep animation.Report, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, rep)
	}

	rule(w)
	fmt.Fprintln(w, "RENDER-VTPS EXPORT REPORT")
	rule(w)
	fmt.Fprintf(w, "Run:      %s\n", rep.RunID)
	fmt.Fprintf(w, "Started:  %s (duration: %s)\n", rep.StartedAt.Format("2006-01-02 15:04:05 MST"), HumanDuration(rep.Duration))
	fmt.Fprintf(w, "Movie:    %s\n", rep.Path)
	fmt.Fprintf(w, "Datasets: %s\n", strings.Join(rep.Datasets, ", "))
	frames := fmt.Sprintf("%d @ %d fps", rep.Frames, rep.FPS)
	if rep.Synthetic {
		frames += " (no time steps; still frame)"
	}
	fmt.Fprintf(w, "Frames:   %s\n", frames)
	fmt.Fprintf(w, "Colour:   %s\n", describeColour(rep))
	rule(w)
	return nil
}

func describeColour(rep animation.Report) string {
	switch {
	case rep.Field == "":
		return "solid (no scalar field)"
	case rep.Fixed && rep.Range != nil:
		return fmt.Sprintf("%s, fixed range %s", rep.Field, rep.Range)
	case rep.Observed && rep.Range != nil:
		s := fmt.Sprintf("%s, range %s over the whole animation", rep.Field, rep.Range)
		if rep.Skipped > 0 {
			s += fmt.Sprintf(" (%d samples skipped)", rep.Skipped)
		}
		return s
	default:
		return fmt.Sprintf("%s, rescaled to each frame (no valid range observed)", rep.Field)
	}
}

// RangeTable is the outcome of a standalone range sweep.
type RangeTable struct {
	Field    engine.FieldRef   `json:"field"`
	Datasets []string          `json:"datasets"`
	Result   colorrange.Result `json:"result"`
}

// PrintRanges outputs the per-step ranges and the reconciled range. With plot
// set and more than one step, the per-step min and max are drawn as a chart.
func PrintRanges(w io.Writer, table RangeTable, plot, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, table)
	}

	fmt.Fprintf(w, "Field %s across %s\n\n", table.Field, strings.Join(table.Datasets, ", "))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tTIME\tMIN\tMAX\tSAMPLES")
	for _, s := range table.Result.Steps {
		fmt.Fprintf(tw, "%d\t%s\t%.6g\t%.6g\t%d\n", s.Instant.Index, s.Instant, s.Range.Min, s.Range.Max, s.Samples)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	res := table.Result
	switch {
	case res.Fixed:
		fmt.Fprintf(w, "Colour range: %s (fixed)\n", res.Range)
	case res.Observed:
		fmt.Fprintf(w, "Colour range: %s\n", res.Range)
	default:
		fmt.Fprintln(w, "Colour range: none observed; exports would rescale to each frame")
	}
	if res.Skipped > 0 {
		fmt.Fprintf(w, "Skipped samples: %d\n", res.Skipped)
	}

	if plot && len(res.Steps) > 1 {
		mins := make([]float64, 0, len(res.Steps))
		maxs := make([]float64, 0, len(res.Steps))
		for _, s := range res.Steps {
			mins = append(mins, s.Range.Min)
			maxs = append(maxs, s.Range.Max)
		}
		graph := asciigraph.PlotMany([][]float64{mins, maxs},
			asciigraph.Height(10),
			asciigraph.Width(reportWidth-10),
			asciigraph.Caption(fmt.Sprintf("%s min/max per step", table.Field.Name)),
		)
		fmt.Fprintln(w)
		fmt.Fprintln(w, graph)
	}
	return nil
}

// DatasetFields describes the arrays of one dataset and the field a render
// would pick.
type DatasetFields struct {
	Name     string          `json:"name"`
	Root     string          `json:"root"`
	Filename string          `json:"filename"`
	Steps    int             `json:"steps"`
	Times    []float64       `json:"times"`
	Arrays   engine.Arrays   `json:"arrays"`
	Selected engine.FieldRef `json:"selected"`
	Warning  string          `json:"warning,omitempty"`
}

// PrintFields lists every dataset's arrays, marking the selected field.
func PrintFields(w io.Writer, datasets []DatasetFields, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, datasets)
	}
	for i, ds := range datasets {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%s, %d steps%s)\n", ds.Name, ds.Filename, ds.Steps, timeSpan(ds.Times))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  \tARRAY\tASSOCIATION\tCOMPONENTS")
		rows := func(assoc engine.Association, list []engine.ArrayInfo) {
			for _, a := range list {
				mark := " "
				if ds.Selected == (engine.FieldRef{Assoc: assoc, Name: a.Name}) {
					mark = "*"
				}
				fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\n", mark, a.Name, assoc, a.Components)
			}
		}
		rows(engine.AssocPoints, ds.Arrays.Point)
		rows(engine.AssocCells, ds.Arrays.Cell)
		if err := tw.Flush(); err != nil {
			return err
		}
		if ds.Warning != "" {
			fmt.Fprintf(w, "  warning: %s\n", ds.Warning)
		}
		if ds.Selected.IsZero() {
			fmt.Fprintln(w, "  no scalar field; renders use solid colouring")
		}
	}
	return nil
}

func timeSpan(times []float64) string {
	if len(times) == 0 {
		return ""
	}
	return fmt.Sprintf(", t=%g..%g", times[0], times[len(times)-1])
}

// HumanDuration returns a compact, human-readable duration string.
func HumanDuration(d time.Duration) string {
	if d < time.Millisecond {
		us := d / time.Microsecond
		return fmt.Sprintf("%dµs", us)
	}
	if d < time.Second {
		ms := d / time.Millisecond
		return fmt.Sprintf("%dms", ms)
	}
	if d < time.Minute {
		secs := float64(d) / float64(time.Second)
		return fmt.Sprintf("%.2fs", secs)
	}
	if d < time.Hour {
		m := d / time.Minute
		s := (d % time.Minute) / time.Second
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	return fmt.Sprintf("%dh%02dm", h, m)
}
