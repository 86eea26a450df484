package tui

import "time"

// Message types for Bubble Tea update loop.

// progressMsg reports that done of total frames have been rendered.
type progressMsg struct {
	Done  int
	Total int
}

// exportDoneMsg carries the final result of the export job.
type exportDoneMsg struct{ Err error }

// tickElapsedMsg fires every second to refresh the elapsed time.
type tickElapsedMsg time.Time
