// SPDX-License-Identifier: MIT
/*
Package dsp implements the dual-rate hop processor: the fast lane turns
every incoming hop of raw samples into a FastFeatureFrame, and the tempo
lane accumulates several hops and periodically emits a BeatObservation.

Everything here runs inside the audio execution context. All buffers are
pre-allocated; ProcessHop performs no allocation and never blocks.
*/
package dsp

import (
	"math"
	"time"

	"lumen/internal/config"
	"lumen/internal/feature"
)

// Processor converts raw hops into feature frames and, every Kth hop,
// beat observations. One instance is owned by the audio context; none of
// its state is shared.
type Processor struct {
	cfg        *config.Config
	sampleRate float64
	hopSize    int

	cond   *Conditioner
	window *AnalysisWindow
	bands  *BandBank
	chroma *ChromaBank
	tempo  *tempoLane

	// Scratch buffers, allocated once.
	hopFloat   []float64
	winScratch []float64

	// Last-known filter bank output, persisted between re-evaluations so
	// downstream consumers never see picket-fence dropouts.
	lastBands  [feature.NumBands]float64
	lastChroma [feature.NumChroma]float64

	gate       float64 // activity gate in [0,1], scales persisted bands
	prevEnergy float64

	hopSeq      uint64
	hopCount    uint64
	sampleIndex uint64

	clock *feature.Clock
	now   func() time.Time
}

// NewProcessor builds a hop processor for the configured sample rate and
// hop size. The clock stamps outgoing frames; nowFn is injectable for
// tests and defaults to time.Now.
func NewProcessor(cfg *config.Config, clock *feature.Clock, nowFn func() time.Time) *Processor {
	if nowFn == nil {
		nowFn = time.Now
	}
	hopSize := cfg.Audio.HopSize
	sampleRate := cfg.Audio.SampleRate
	windowSize := hopSize * cfg.Analysis.WindowHops

	return &Processor{
		cfg:        cfg,
		sampleRate: sampleRate,
		hopSize:    hopSize,
		cond:       NewConditioner(&cfg.Analysis),
		window:     NewAnalysisWindow(windowSize),
		bands:      NewBandBank(sampleRate, windowSize),
		chroma:     NewChromaBank(sampleRate, windowSize),
		tempo:      newTempoLane(&cfg.Tempo, sampleRate, hopSize),
		hopFloat:   make([]float64, hopSize),
		winScratch: make([]float64, windowSize),
		clock:      clock,
		now:        nowFn,
	}
}

// ProcessHop runs the fast lane on one hop and, on tempo-lane hops, the
// tempo lane as well. hasObs reports whether obs is meaningful this hop.
//
// active is the capture gate signal: false means the input is below the
// engine's noise floor, which decays the persisted band values instead
// of freezing them at full level.
//
// Performance critical (hot path): no allocations, no logging.
func (p *Processor) ProcessHop(hop []int32, active bool) (frame feature.FastFeatureFrame, obs feature.BeatObservation, hasObs bool) {
	n := min(len(hop), p.hopSize)

	// Raw int32 PCM to float64 in [-1, 1].
	for i := range p.hopFloat {
		if i < n {
			p.hopFloat[i] = float64(hop[i]) / float64(math.MaxInt32)
		} else {
			p.hopFloat[i] = 0
		}
	}

	// DC removal and AGC, in place.
	rms, _ := p.cond.Process(p.hopFloat)

	// Energy and flux on the dB-normalized scale.
	energy := dbNormalize(rms, p.cfg.Analysis.DBFloor, p.cfg.Analysis.DBCeiling)
	flux := 0.0
	if d := energy - p.prevEnergy; d > 0 {
		flux = feature.Clamp01(d * p.cfg.Analysis.FluxScale)
	}
	p.prevEnergy = energy

	// Activity gate: snaps open on signal, decays while closed.
	if active && rms >= p.cfg.Analysis.GateFloor {
		p.gate = 1
	} else {
		p.gate *= p.cfg.Analysis.GateDecay
	}

	p.window.Push(p.hopFloat)

	// Filter banks re-run only when the window has slid far enough;
	// between evaluations the last values persist, scaled by the gate.
	if p.hopCount%uint64(p.cfg.Analysis.BandEvery) == 0 && p.window.Full() {
		p.window.CopyTo(p.winScratch)
		p.bands.Analyze(p.winScratch, &p.lastBands)
		p.chroma.Analyze(p.winScratch, &p.lastChroma)
		frame.Bands = p.lastBands
		frame.Chroma = p.lastChroma
	} else {
		for i := range p.lastBands {
			frame.Bands[i] = p.lastBands[i] * p.gate
		}
		for i := range p.lastChroma {
			frame.Chroma[i] = p.lastChroma[i] * p.gate
		}
	}

	p.snippetInto(&frame.Waveform)

	// The sequence counter increments exactly once per hop, after all
	// analysis completes.
	p.hopSeq++
	frame.HopSeq = p.hopSeq
	frame.RMS = feature.Clamp01(energy)
	frame.Flux = flux
	frame.Timestamp = feature.Timestamp{
		SampleIndex: p.sampleIndex,
		SampleRate:  p.sampleRate,
		Micros:      p.clock.Micros(p.now()),
	}

	p.sampleIndex += uint64(p.hopSize)
	p.hopCount++

	// Tempo lane: accumulate every hop, fire every Kth.
	if fired, o := p.tempo.push(p.hopFloat, p.sampleIndex); fired {
		o.Timestamp = frame.Timestamp
		return frame, o, true
	}
	return frame, feature.BeatObservation{}, false
}

// HopSeq returns the current hop sequence counter.
func (p *Processor) HopSeq() uint64 {
	return p.hopSeq
}

// Gate returns the current activity gate value in [0,1].
func (p *Processor) Gate() float64 {
	return p.gate
}

// snippetInto downsamples the conditioned hop into the fixed display
// buffer by keeping the extreme of each chunk, preserving transient
// peaks that plain decimation would miss. Deliberately unsmoothed.
func (p *Processor) snippetInto(out *[feature.WaveformLen]float64) {
	step := len(p.hopFloat) / feature.WaveformLen
	if step < 1 {
		step = 1
	}
	for i := range out {
		start := i * step
		if start >= len(p.hopFloat) {
			out[i] = 0
			continue
		}
		end := min(start+step, len(p.hopFloat))
		extreme := 0.0
		for _, s := range p.hopFloat[start:end] {
			if math.Abs(s) > math.Abs(extreme) {
				extreme = s
			}
		}
		out[i] = extreme
	}
}
