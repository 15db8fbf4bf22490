// Package telemetry reports generation-complete events to an optional
// external sink. It is outside the core protocol: the gate and coordinator
// packages never depend on it. Its one caller is the CLI's offline render
// path, which reports its Mandelbrot pass through an Emitter.
package telemetry

import "github.com/google/uuid"

// Event describes one completed generation, reported once all of its tiles
// have finished.
type Event struct {
	GenerationID uuid.UUID
	Transaction  uint16
	Slot         int
	TileCount    int
	CenterX      float64
	CenterY      float64
	Width        float64
	Height       float64
}

// Emitter receives generation-complete events. Implementations must not
// block the caller for long; EmitGenerationComplete runs on whichever
// goroutine finished the generation.
type Emitter interface {
	EmitGenerationComplete(Event) error
}

// NoOp discards every event. It is the default Emitter when no telemetry
// sink is configured.
type NoOp struct{}

// EmitGenerationComplete implements Emitter.
func (NoOp) EmitGenerationComplete(Event) error { return nil }
