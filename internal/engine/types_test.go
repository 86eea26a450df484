package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRange_Valid(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		want bool
	}{
		{"ordered", Range{0, 1}, true},
		{"degenerate", Range{2, 2}, true},
		{"reversed", Range{3, 1}, false},
		{"nan", Range{math.NaN(), 1}, false},
		{"inf", Range{0, math.Inf(1)}, false},
		{"empty sweep sentinel", Range{math.Inf(1), math.Inf(-1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Valid())
		})
	}
}

func TestRange_Union(t *testing.T) {
	got := Range{0, 1}.Union(Range{2, 3}).Union(Range{0.5, 4})
	assert.Equal(t, Range{0, 4}, got)
	assert.Equal(t, "[0, 4]", got.String())
}

func TestParseRepresentation(t *testing.T) {
	tests := []struct {
		in   string
		want Representation
		ok   bool
	}{
		{"", Surface, true},
		{"surface", Surface, true},
		{"Surface With Edges", SurfaceWithEdges, true},
		{"surface_with_edges", SurfaceWithEdges, true},
		{"surface-with-edges", SurfaceWithEdges, true},
		{"edges", SurfaceWithEdges, true},
		{"WIREFRAME", Wireframe, true},
		{"points", Points, true},
		{"outline", Outline, true},
		{"volume", Surface, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRepresentation(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.True(t, SurfaceWithEdges.ShowsEdges())
	assert.False(t, Wireframe.ShowsEdges())
	assert.Equal(t, "Surface With Edges", SurfaceWithEdges.String())
}

func TestArraysLookupAndFieldRef(t *testing.T) {
	a := Arrays{
		Point: []ArrayInfo{{Name: "p", Components: 1}},
		Cell:  []ArrayInfo{{Name: "U", Components: 3}},
	}
	info, ok := a.Lookup(FieldRef{Assoc: AssocCells, Name: "U"})
	assert.True(t, ok)
	assert.False(t, info.Scalar())
	_, ok = a.Lookup(FieldRef{Assoc: AssocCells, Name: "p"})
	assert.False(t, ok)
	_, ok = a.Lookup(FieldRef{Name: "p"})
	assert.False(t, ok)

	assert.True(t, FieldRef{}.IsZero())
	assert.Equal(t, "<none>", FieldRef{}.String())
	assert.Equal(t, "p [POINTS]", FieldRef{Assoc: AssocPoints, Name: "p"}.String())
}
