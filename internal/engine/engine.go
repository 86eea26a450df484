// Package engine defines the contract between render-vtps and an external
// visualization engine. The tool never renders anything itself: it opens
// reader pipelines, queries their attribute arrays and ranges, drives time and
// hands frames to the engine's movie writer through these interfaces.
//
// All calls are blocking and must be issued from a single goroutine.
package engine

import (
	"context"
	"errors"
)

// ErrNotSupported is returned by backends for optional capabilities they lack.
var ErrNotSupported = errors.New("not supported by engine")

// Source is the data side of an engine: time series readers and their arrays.
type Source interface {
	// OpenSeries opens a time-indexed file series as one pipeline.
	OpenSeries(ctx context.Context, s Series) (Pipeline, error)
	// Update re-executes a pipeline, pinned to time at when it is non-nil.
	Update(ctx context.Context, p Pipeline, at *float64) error
	// Arrays resolves the pipeline's point and cell arrays at its current time.
	Arrays(ctx context.Context, p Pipeline) (Arrays, error)
	// ArrayRange returns the value range of a field on the realized data at the current time.
	ArrayRange(ctx context.Context, p Pipeline, f FieldRef) (Range, error)
}

// TimeKeeper is the engine's animation clock.
type TimeKeeper interface {
	// SyncTimeSteps refreshes the time keeper from every attached pipeline and
	// returns the available time values.
	SyncTimeSteps(ctx context.Context) ([]float64, error)
	SetTime(ctx context.Context, t float64) error
}

// TransferFunctions manages colour and opacity maps keyed by field name.
type TransferFunctions interface {
	// RescaleTransferFunction sets both colour and opacity functions of field to r.
	// When lock is set the engine must never rescale them automatically afterwards.
	RescaleTransferFunction(ctx context.Context, field string, r Range, lock bool) error
	// RescaleToData rescales the display's transfer functions to its current data.
	RescaleToData(ctx context.Context, d Display) error
}

// Renderer is the scene side of an engine: views, displays, cameras and export.
type Renderer interface {
	TransferFunctions

	Capabilities() Capabilities
	// ResetSession drops all engine state and starts a fresh session.
	ResetSession(ctx context.Context) error

	CreateView(ctx context.Context, opts ViewOptions) (View, error)
	DeleteView(ctx context.Context, v View) error
	SetBackground(ctx context.Context, v View, c Color) error
	Camera(ctx context.Context, v View) (Camera, error)
	SetCamera(ctx context.Context, v View, c Camera) error
	ResetCamera(ctx context.Context, v View) error
	Render(ctx context.Context, v View) error
	// Interact blocks until the user closes the view's window.
	Interact(ctx context.Context, v View) error

	Show(ctx context.Context, p Pipeline, v View) (Display, error)
	Style(ctx context.Context, d Display, s DisplayStyle) error
	// ColorBy binds scalar colouring; a zero FieldRef turns colouring off.
	ColorBy(ctx context.Context, d Display, f FieldRef) error
	ShowScalarBar(ctx context.Context, d Display, title string) error

	// SaveAnimation writes the frame window of the view's animation to a movie file.
	SaveAnimation(ctx context.Context, v View, opts MovieOptions) error
}

// Engine is a complete rendering backend.
type Engine interface {
	Source
	TimeKeeper
	Renderer
	Close() error
}
