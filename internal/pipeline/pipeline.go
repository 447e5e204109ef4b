// SPDX-License-Identifier: MIT
/*
Package pipeline wires the hop processor and the aggregation bus into a
single per-hop entry point for the audio execution context, and owns the
snapshot buffers the consumer context reads from.
*/
package pipeline

import (
	"time"

	"lumen/internal/bus"
	"lumen/internal/config"
	"lumen/internal/dsp"
	"lumen/internal/feature"
	"lumen/internal/snapshot"
	"lumen/internal/transport"
)

// Pipeline is the audio-context half of the system. ProcessHop is called
// once per captured hop; everything downstream of the snapshot buffers
// lives in the consumer context.
type Pipeline struct {
	proc *dsp.Processor
	bus  *bus.Bus

	frames *snapshot.Buffer[feature.ControlBusFrame]
	beats  *snapshot.Buffer[feature.BeatObservation]

	// Monitor tap, throttled to every tapEvery hops. Send never blocks.
	tap      transport.Transport
	tapEvery uint64
	hops     uint64
}

// New builds the pipeline with freshly allocated snapshot buffers.
// nowFn stamps outgoing frames and defaults to time.Now when nil.
func New(cfg *config.Config, clock *feature.Clock, nowFn func() time.Time) *Pipeline {
	frames := snapshot.New[feature.ControlBusFrame]()
	beats := snapshot.New[feature.BeatObservation]()

	return &Pipeline{
		proc:     dsp.NewProcessor(cfg, clock, nowFn),
		bus:      bus.New(&cfg.Analysis, frames, beats),
		frames:   frames,
		beats:    beats,
		tap:      transport.Nop{},
		tapEvery: uint64(max(cfg.Monitor.EveryHops, 1)),
	}
}

// SetTap installs a monitor transport. Must be called before capture
// starts; the tap is not swappable while hops are flowing.
func (p *Pipeline) SetTap(t transport.Transport) {
	if t == nil {
		t = transport.Nop{}
	}
	p.tap = t
}

// ProcessHop runs one hop through analysis and aggregation and publishes
// the result. active is the capture gate decision for this hop.
//
// Performance critical (hot path): the only potentially non-trivial call
// is the throttled tap Send, which is contractually non-blocking.
func (p *Pipeline) ProcessHop(hop []int32, active bool) {
	frame, obs, hasObs := p.proc.ProcessHop(hop, active)
	out := p.bus.Process(frame, obs, hasObs)

	p.hops++
	if p.hops%p.tapEvery == 0 {
		p.tap.Send(out)
	}
}

// Frames returns the aggregated-frame snapshot buffer for the consumer
// context.
func (p *Pipeline) Frames() *snapshot.Buffer[feature.ControlBusFrame] {
	return p.frames
}

// Beats returns the beat-observation snapshot buffer for the consumer
// context.
func (p *Pipeline) Beats() *snapshot.Buffer[feature.BeatObservation] {
	return p.beats
}
