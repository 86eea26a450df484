// Package fields picks the scalar array an animation is coloured by.
package fields

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/render-vtps/internal/engine"
)

// Scalars returns the names of single-component point and cell arrays, in engine order.
func Scalars(arrays engine.Arrays) ([]string, []string) {
	return scalarNames(arrays.Point), scalarNames(arrays.Cell)
}

func scalarNames(list []engine.ArrayInfo) []string {
	var out []string
	for _, a := range list {
		if a.Scalar() && a.Name != "" {
			out = append(out, a.Name)
		}
	}
	return out
}

// Selection is the outcome of choosing a colouring field.
type Selection struct {
	Field engine.FieldRef
	// Warning is set when a requested field was ignored.
	Warning string
}

// Select applies the colouring policy: the requested field when it is a point or
// cell scalar, else the first point scalar, else the first cell scalar, else none.
// A requested field that is missing or multi-component is reported as a warning.
func Select(arrays engine.Arrays, requested string) Selection {
	points, cells := Scalars(arrays)
	var sel Selection

	if requested != "" {
		switch {
		case contains(points, requested):
			sel.Field = engine.FieldRef{Assoc: engine.AssocPoints, Name: requested}
			return sel
		case contains(cells, requested):
			sel.Field = engine.FieldRef{Assoc: engine.AssocCells, Name: requested}
			return sel
		}
		reason := "not found"
		if _, ok := arrays.Lookup(engine.FieldRef{Assoc: engine.AssocPoints, Name: requested}); ok {
			reason = "not a scalar"
		} else if _, ok := arrays.Lookup(engine.FieldRef{Assoc: engine.AssocCells, Name: requested}); ok {
			reason = "not a scalar"
		}
		sel.Warning = fmt.Sprintf("Requested field '%s' is %s. Available scalars: POINTS=%v, CELLS=%v. Falling back.",
			requested, reason, points, cells)
		logrus.WithField("field", requested).Warn(sel.Warning)
	}

	switch {
	case len(points) > 0:
		sel.Field = engine.FieldRef{Assoc: engine.AssocPoints, Name: points[0]}
	case len(cells) > 0:
		sel.Field = engine.FieldRef{Assoc: engine.AssocCells, Name: cells[0]}
	default:
		logrus.Info("No scalar fields available; using solid coloring.")
	}
	return sel
}

// Choices lists every selectable field, point scalars first.
func Choices(arrays engine.Arrays) []engine.FieldRef {
	points, cells := Scalars(arrays)
	out := make([]engine.FieldRef, 0, len(points)+len(cells))
	for _, n := range points {
		out = append(out, engine.FieldRef{Assoc: engine.AssocPoints, Name: n})
	}
	for _, n := range cells {
		out = append(out, engine.FieldRef{Assoc: engine.AssocCells, Name: n})
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
