// Package ui provides the Bubble Tea trend board.
package ui

import "github.com/abelbrown/trendwatch/internal/engine"

// CycleStarted is sent when a detection cycle begins outside the board,
// for example on the engine's ticker.
type CycleStarted struct{}

// CycleDone is sent when a detection cycle finishes.
type CycleDone struct {
	Report *engine.CycleReport
	Err    error
}
