package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/render-vtps/internal/engine"
	"github.com/ensigniasec/render-vtps/internal/validate"
)

const cameraNumbers = 9

//nolint:gochecknoglobals // immutable lookup tables used across the package.
var (
	rangeSep  = regexp.MustCompile(`[,:]+`)
	cameraSep = regexp.MustCompile(`[\s,]+`)

	namedBackgrounds = map[string]engine.Color{
		"white":    engine.White,
		"black":    engine.Black,
		"grey":     {0.5, 0.5, 0.5},
		"gray":     {0.5, 0.5, 0.5},
		"paraview": {0.32, 0.34, 0.43},
	}
)

// ParseFixedRange parses "min,max" or "min:max". An empty string means no fixed range.
func ParseFixedRange(s string) (*engine.Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil //nolint:nilnil // absent range is not an error
	}
	tokens := rangeSep.Split(s, -1)
	if len(tokens) != 2 {
		return nil, validate.Malformedf("invalid range '%s': use 'min,max' or 'min:max'", s)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(tokens[0]), 64)
	if err != nil {
		return nil, validate.Malformedf("invalid range '%s': bad minimum %q", s, tokens[0])
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(tokens[1]), 64)
	if err != nil {
		return nil, validate.Malformedf("invalid range '%s': bad maximum %q", s, tokens[1])
	}
	r := engine.Range{Min: lo, Max: hi}
	if !r.Valid() || !(lo < hi) {
		return nil, validate.Invalidf("range requires min < max (got %g and %g)", lo, hi)
	}
	return &r, nil
}

// ParseRenderSize parses "WxH" (case-insensitive) into a positive size.
func ParseRenderSize(s string) (engine.Size, error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s)), "x", 2)
	if len(parts) != 2 {
		return engine.Size{}, validate.Malformedf("invalid render size '%s': expected 'WxH'", s)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil {
		return engine.Size{}, validate.Malformedf("invalid render size '%s': expected 'WxH'", s)
	}
	if w <= 0 || h <= 0 {
		return engine.Size{}, validate.Invalidf("render size '%s' must be positive", s)
	}
	return engine.Size{Width: w, Height: h}, nil
}

// ParseCamera parses nine numbers: position, focal point and view-up, separated by
// commas and/or whitespace, optionally wrapped in brackets. Empty means no camera.
func ParseCamera(s string) (*engine.Camera, error) {
	s = strings.Trim(strings.TrimSpace(s), "[](){}")
	if strings.TrimSpace(s) == "" {
		return nil, nil //nolint:nilnil // absent camera is not an error
	}
	var nums []float64
	for _, tok := range cameraSep.Split(s, -1) {
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, validate.Malformedf("camera value %q is not a number", tok)
		}
		nums = append(nums, v)
	}
	if len(nums) != cameraNumbers {
		return nil, validate.Malformedf("camera must provide exactly %d numbers, got %d", cameraNumbers, len(nums))
	}
	cam := engine.Camera{}
	copy(cam.Position[:], nums[0:3])
	copy(cam.FocalPoint[:], nums[3:6])
	copy(cam.ViewUp[:], nums[6:9])
	return &cam, nil
}

// FormatCamera renders cam in the form ParseCamera accepts.
func FormatCamera(cam engine.Camera) string {
	vals := make([]string, 0, cameraNumbers)
	for _, vec := range []engine.Vec3{cam.Position, cam.FocalPoint, cam.ViewUp} {
		for _, v := range vec {
			vals = append(vals, fmt.Sprintf("%.9g", v))
		}
	}
	return "[" + strings.Join(vals, ",") + "]"
}

// ParseBackground resolves a colour name or #rrggbb value. Unknown values log a
// warning and fall back to white.
func ParseBackground(s string) engine.Color {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return engine.White
	}
	if c, ok := namedBackgrounds[name]; ok {
		return c
	}
	if strings.HasPrefix(name, "#") {
		if c, err := colorful.Hex(name); err == nil {
			return engine.Color{c.R, c.G, c.B}
		}
	}
	logrus.Warnf("Unknown background color '%s'. Using default white.", s)
	return engine.White
}

// ParseRepresentation resolves a representation name.
func ParseRepresentation(s string) (engine.Representation, error) {
	rep, ok := engine.ParseRepresentation(s)
	if !ok {
		return engine.Surface, validate.Invalidf(
			"unknown representation '%s' (use Surface, Surface With Edges, Wireframe, Points or Outline)", s)
	}
	return rep, nil
}
