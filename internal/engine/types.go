package engine

import (
	"fmt"
	"math"
	"strings"
)

// Association tells whether a data array lives on mesh vertices or mesh cells.
type Association int

const (
	AssocNone Association = iota
	AssocPoints
	AssocCells
)

func (a Association) String() string {
	switch a {
	case AssocPoints:
		return "POINTS"
	case AssocCells:
		return "CELLS"
	default:
		return "NONE"
	}
}

// FieldRef names the array a display is coloured by. The zero value means "no colouring".
type FieldRef struct {
	Assoc Association `json:"association"`
	Name  string      `json:"name"`
}

// IsZero reports whether f selects no field.
func (f FieldRef) IsZero() bool {
	return f.Name == "" || f.Assoc == AssocNone
}

func (f FieldRef) String() string {
	if f.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s [%s]", f.Name, f.Assoc)
}

// ArrayInfo describes one attribute array without its values.
type ArrayInfo struct {
	Name       string `json:"name"`
	Components int    `json:"components"`
}

// Scalar reports whether the array has exactly one component.
func (a ArrayInfo) Scalar() bool { return a.Components == 1 }

// Arrays is the resolved attribute description of a pipeline.
type Arrays struct {
	Point []ArrayInfo `json:"point"`
	Cell  []ArrayInfo `json:"cell"`
}

// Lookup returns the array with the given association and name.
func (a Arrays) Lookup(f FieldRef) (ArrayInfo, bool) {
	var list []ArrayInfo
	switch f.Assoc {
	case AssocPoints:
		list = a.Point
	case AssocCells:
		list = a.Cell
	default:
		return ArrayInfo{}, false
	}
	for _, info := range list {
		if info.Name == f.Name {
			return info, true
		}
	}
	return ArrayInfo{}, false
}

// Range is a closed scalar value interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Valid reports whether both bounds are finite and ordered. Min == Max is valid.
func (r Range) Valid() bool {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return false
	}
	return r.Min <= r.Max
}

// Union returns the smallest range covering r and o.
func (r Range) Union(o Range) Range {
	return Range{Min: math.Min(r.Min, o.Min), Max: math.Max(r.Max, o.Max)}
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// Size is a render resolution in pixels.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Color is an RGB triple with components in [0, 1].
type Color [3]float64

var (
	White       = Color{1, 1, 1}
	Black       = Color{0, 0, 0}
	NeutralGrey = Color{0.8, 0.8, 0.8}
)

// Vec3 is a position or direction in world space.
type Vec3 [3]float64

// Camera is a render view pose. It is always copied by value between views.
type Camera struct {
	Position   Vec3 `json:"position"`
	FocalPoint Vec3 `json:"focal_point"`
	ViewUp     Vec3 `json:"view_up"`
	// ParallelScale is only meaningful when HasParallelScale is set.
	ParallelScale    float64 `json:"parallel_scale,omitempty"`
	HasParallelScale bool    `json:"has_parallel_scale,omitempty"`
}

// Representation is the display style of a mesh.
type Representation int

const (
	Surface Representation = iota
	SurfaceWithEdges
	Wireframe
	Points
	Outline
)

var representationNames = map[Representation]string{
	Surface:          "Surface",
	SurfaceWithEdges: "Surface With Edges",
	Wireframe:        "Wireframe",
	Points:           "Points",
	Outline:          "Outline",
}

// String returns the name the rendering engine uses for the representation.
func (r Representation) String() string {
	if name, ok := representationNames[r]; ok {
		return name
	}
	return "Surface"
}

// ParseRepresentation matches names case-insensitively, treating '_' and '-' as spaces.
func ParseRepresentation(s string) (Representation, bool) {
	norm := strings.Join(strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(s))), " ")
	if norm == "" {
		return Surface, true
	}
	for rep, name := range representationNames {
		if strings.ToLower(name) == norm {
			return rep, true
		}
	}
	if norm == "edges" {
		return SurfaceWithEdges, true
	}
	return Surface, false
}

// ShowsEdges reports whether the representation draws cell edges.
func (r Representation) ShowsEdges() bool { return r == SurfaceWithEdges }

// Series describes a time-indexed file series to open as one pipeline.
// Times may be empty for a static (single-instant) dataset.
type Series struct {
	Name  string    `json:"name"`
	Files []string  `json:"files"`
	Times []float64 `json:"times,omitempty"`
}

// Pipeline is an opaque handle to an opened reader pipeline.
type Pipeline struct {
	ID   string
	Name string
}

// View is an opaque handle to a render view.
type View struct {
	ID string
}

// Display is an opaque handle to a pipeline's representation in one view.
type Display struct {
	ID       string
	Pipeline Pipeline
	View     View
}

// ViewOptions configures a new render view.
type ViewOptions struct {
	Size      Size
	Offscreen bool
}

// DisplayStyle groups the visual properties applied to a display.
// Nil colours leave the engine defaults untouched.
type DisplayStyle struct {
	Representation Representation
	EdgeColor      *Color
	DiffuseColor   *Color
}

// MovieOptions configures the movie writer over an inclusive frame window.
type MovieOptions struct {
	Path       string
	Size       Size
	FrameRate  int
	FirstFrame int
	LastFrame  int
}

// Capabilities lists optional view and engine features, probed once per session.
type Capabilities struct {
	ParallelScale bool `json:"parallel_scale"`
	Offscreen     bool `json:"offscreen"`
	ScalarBar     bool `json:"scalar_bar"`
	Interactive   bool `json:"interactive"`
}
