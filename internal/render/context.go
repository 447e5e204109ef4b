// SPDX-License-Identifier: MIT
/*
Package render bridges the analysis pipeline into the consumer loop.

On every consumer cycle the adapter pulls the latest published frame and
beat observation by value, advances the beat-phase extrapolator, and
assembles a read-only context for downstream use. Consumers take the
context by value each cycle and must not retain references across
cycles.
*/
package render

import (
	"time"

	"lumen/internal/feature"
	"lumen/internal/grid"
	"lumen/internal/snapshot"
)

// Context is the per-cycle view handed to downstream consumers. Frame
// holds the most recent aggregated features; Grid the extrapolated beat
// phase. Fresh reports whether Frame is recent enough to drive
// audio-reactive output, Age how far behind the producer it is.
type Context struct {
	Frame feature.ControlBusFrame
	Grid  grid.Snapshot

	// Fresh is false until the first frame arrives and whenever the
	// newest frame is older than the configured staleness threshold.
	Fresh bool

	// NewHop is true when this cycle observed a frame the previous
	// cycle had not seen. Consumer cycles typically outpace hops, so
	// most cycles re-read the same frame with NewHop false.
	NewHop bool

	// SampleIndex extrapolates the producer's stream position to now,
	// for consumers that sync against sample time rather than phase.
	SampleIndex uint64

	Age time.Duration
}

// Adapter consumes the snapshot buffers from its own execution context.
// Not safe for use from more than one goroutine; the consumer loop owns
// it exclusively.
type Adapter struct {
	frames *snapshot.Buffer[feature.ControlBusFrame]
	beats  *snapshot.Buffer[feature.BeatObservation]
	grid   *grid.Grid
	clock  *feature.Clock

	staleness    time.Duration
	nominalCycle time.Duration

	frame        feature.ControlBusFrame
	obs          feature.BeatObservation
	lastFrameSeq uint64
	lastBeatSeq  uint64
	lastTick     time.Time
	ticked       bool
}

// New builds an adapter. staleness is the age beyond which frames are
// flagged stale; nominalCycle seeds the extrapolator's first cycle
// before a real elapsed time exists.
func New(
	frames *snapshot.Buffer[feature.ControlBusFrame],
	beats *snapshot.Buffer[feature.BeatObservation],
	g *grid.Grid,
	clock *feature.Clock,
	staleness, nominalCycle time.Duration,
) *Adapter {
	return &Adapter{
		frames:       frames,
		beats:        beats,
		grid:         g,
		clock:        clock,
		staleness:    staleness,
		nominalCycle: nominalCycle,
	}
}

// Tick runs one consumer cycle at the given wall time and returns the
// assembled context. Wait-free: it never blocks on the producer.
func (a *Adapter) Tick(now time.Time) Context {
	elapsed := a.nominalCycle
	if a.ticked {
		elapsed = now.Sub(a.lastTick)
	}
	a.lastTick = now
	a.ticked = true

	f, seq := a.frames.ReadLatest()
	newHop := seq != a.lastFrameSeq && seq > 0
	if newHop {
		a.frame = f
		a.lastFrameSeq = seq
	}

	// A beat observation is handed to the extrapolator exactly once, on
	// the cycle its sequence number first changes.
	var obsPtr *feature.BeatObservation
	if o, bseq := a.beats.ReadLatest(); bseq != a.lastBeatSeq && bseq > 0 {
		a.obs = o
		a.lastBeatSeq = bseq
		obsPtr = &a.obs
	}

	gs := a.grid.Cycle(elapsed, obsPtr)

	age := time.Duration(a.clock.Micros(now)-a.frame.Timestamp.Micros) * time.Microsecond
	fresh := a.lastFrameSeq > 0 && age >= 0 && age < a.staleness

	return Context{
		Frame:       a.frame,
		Grid:        gs,
		Fresh:       fresh,
		NewHop:      newHop,
		SampleIndex: extrapolateSamples(a.frame.Timestamp, age),
		Age:         age,
	}
}

func extrapolateSamples(ts feature.Timestamp, age time.Duration) uint64 {
	if age <= 0 || ts.SampleRate <= 0 {
		return ts.SampleIndex
	}
	return ts.SampleIndex + uint64(age.Seconds()*ts.SampleRate)
}
