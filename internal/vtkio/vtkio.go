// Package vtkio extracts attribute array descriptions and value ranges from
// VTK files without building any geometry. It understands the XML formats
// (.vtp, .vtu and friends) with ascii or inline uncompressed binary payloads and
// legacy ASCII .vtk files.
package vtkio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ensigniasec/render-vtps/internal/engine"
)

const (
	maxMeshSize = 1 << 30 // 1GiB limit to keep a single step in memory
)

// ErrUnsupported marks encodings this package does not decode, such as
// compressed or appended XML payloads and binary legacy files.
var ErrUnsupported = errors.New("unsupported VTK encoding")

// Array is one attribute array and, when it could be computed, its value range.
// Multi-component arrays carry their magnitude range.
type Array struct {
	Name       string
	Components int
	Range      engine.Range
	HasRange   bool
	// Reason is set when HasRange is false.
	Reason error
}

// Info is the attribute description of one mesh file.
type Info struct {
	Point []Array
	Cell  []Array
}

// Arrays drops the ranges.
func (i Info) Arrays() engine.Arrays {
	var out engine.Arrays
	for _, a := range i.Point {
		out.Point = append(out.Point, engine.ArrayInfo{Name: a.Name, Components: a.Components})
	}
	for _, a := range i.Cell {
		out.Cell = append(out.Cell, engine.ArrayInfo{Name: a.Name, Components: a.Components})
	}
	return out
}

// Range returns the value range of field.
func (i Info) Range(f engine.FieldRef) (engine.Range, error) {
	var list []Array
	switch f.Assoc {
	case engine.AssocPoints:
		list = i.Point
	case engine.AssocCells:
		list = i.Cell
	case engine.AssocNone:
	}
	for _, a := range list {
		if a.Name != f.Name {
			continue
		}
		if !a.HasRange {
			if a.Reason != nil {
				return engine.Range{}, fmt.Errorf("array %s: %w", f.Name, a.Reason)
			}
			return engine.Range{}, fmt.Errorf("array %s: %w", f.Name, ErrUnsupported)
		}
		return a.Range, nil
	}
	return engine.Range{}, fmt.Errorf("array %s not found on %s", f.Name, f.Assoc)
}

// ReadInfo reads path and describes its point and cell arrays.
func ReadInfo(path string) (Info, error) {
	data, err := readFile(path)
	if err != nil {
		return Info{}, err
	}
	info, err := Parse(data)
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

// Parse sniffs the format of data and describes its arrays.
func Parse(data []byte) (Info, error) {
	head := bytes.TrimLeft(data[:min(len(data), 512)], " \t\r\n\ufeff")
	switch {
	case bytes.HasPrefix(head, []byte("# vtk DataFile")):
		return parseLegacy(data)
	case bytes.HasPrefix(head, []byte("<")):
		return parseXML(data)
	default:
		return Info{}, fmt.Errorf("%w: not a VTK file", ErrUnsupported)
	}
}

// readFile reads a mesh file with a size limit.
func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxMeshSize {
		return nil, fmt.Errorf("mesh file too large: %d bytes (max %d)", info.Size(), maxMeshSize)
	}
	return io.ReadAll(io.LimitReader(file, maxMeshSize))
}

// accumulator folds tuples into a min/max. NaN values are ignored.
type accumulator struct {
	components int
	lo, hi     float64
	seen       bool
	tuple      []float64
}

func newAccumulator(components int) *accumulator {
	if components < 1 {
		components = 1
	}
	return &accumulator{components: components, lo: math.Inf(1), hi: math.Inf(-1)}
}

func (a *accumulator) add(v float64) {
	if a.components == 1 {
		a.fold(v)
		return
	}
	a.tuple = append(a.tuple, v)
	if len(a.tuple) < a.components {
		return
	}
	var sum float64
	for _, c := range a.tuple {
		sum += c * c
	}
	a.tuple = a.tuple[:0]
	a.fold(math.Sqrt(sum))
}

func (a *accumulator) fold(v float64) {
	if math.IsNaN(v) {
		return
	}
	a.seen = true
	a.lo = math.Min(a.lo, v)
	a.hi = math.Max(a.hi, v)
}

func (a *accumulator) result() (engine.Range, bool) {
	if !a.seen {
		return engine.Range{}, false
	}
	return engine.Range{Min: a.lo, Max: a.hi}, true
}

// merge appends arr to list, folding ranges of a same-named array from another piece.
func merge(list []Array, arr Array) []Array {
	for i := range list {
		if list[i].Name != arr.Name {
			continue
		}
		switch {
		case list[i].HasRange && arr.HasRange:
			list[i].Range = list[i].Range.Union(arr.Range)
		case arr.HasRange:
		default:
			list[i].HasRange = false
			list[i].Reason = arr.Reason
		}
		return list
	}
	return append(list, arr)
}
