package tui

import "time"

// Package-level constants to avoid magic numbers and improve readability.
const (
	channelBufferSize  = 256
	elapsedTickSeconds = 1

	// progressMargin is the horizontal room kept free around the progress bar.
	progressMargin   = 4
	progressMaxWidth = 60

	defaultListWidth  = 60
	defaultListHeight = 12
	// listOverheadLines represents the title and footer lines around the list.
	// Keep this in sync with pickerModel.View.
	listOverheadLines = 4
	// listMinHeight enforces a minimum list height to avoid collapsing.
	listMinHeight = 3

	// Colours.
	accentColor = "69"
	mutedColor  = "241"
	okColor     = "46"
	errorColor  = "196"
	warnColor   = "208"

	elapsedTickInterval = time.Duration(elapsedTickSeconds) * time.Second
)
