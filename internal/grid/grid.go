// SPDX-License-Identifier: MIT
/*
Package grid extrapolates a continuous beat phase at the consumer's own
cadence from the intermittent tempo data the audio context publishes.

The extrapolator is a freewheeling phase-locked loop: each cycle it
advances a continuous phase accumulator by elapsed wall time at the
smoothed tempo, and when a fresh beat observation arrives it nudges the
accumulator toward the nearest beat boundary by a fraction of the error
instead of snapping. With no new observations at all it keeps advancing
at the last-known tempo indefinitely; it never stalls and never resets.
*/
package grid

import (
	"math"
	"time"

	"lumen/internal/config"
	"lumen/internal/feature"
)

// Snapshot is the per-cycle output: beat phase, tempo state, and edge
// flags. Regenerated every consumer cycle, never retained.
type Snapshot struct {
	Phase      float64 `json:"phase"` // fractional beat position, [0,1)
	BPM        float64 `json:"bpm"`
	Confidence float64 `json:"confidence"`
	Beat       bool    `json:"beat"`     // true exactly on the cycle a beat boundary passed
	Downbeat   bool    `json:"downbeat"` // beat && bar position 0
}

// defaultBPM seeds the accumulator before any tempo has been observed,
// so the phase advances plausibly from the first cycle.
const defaultBPM = 120

// Grid is the beat-phase extrapolator. It lives entirely in the consumer
// execution context; nothing here is shared or locked.
type Grid struct {
	cfg *config.TempoConfig

	phase    float64 // continuous fractional beat count, grows without bound
	bpm      float64
	conf     float64
	lastBeat int64
}

// New builds a grid seeded at the default tempo with zero confidence.
func New(cfg *config.TempoConfig) *Grid {
	return &Grid{cfg: cfg, bpm: defaultBPM, lastBeat: -1}
}

// Cycle advances the extrapolator by elapsed wall time and returns the
// snapshot for this consumer cycle. obs is nil when no new beat
// observation arrived since the previous cycle, which is the common
// case and simply freewheels.
func (g *Grid) Cycle(elapsed time.Duration, obs *feature.BeatObservation) Snapshot {
	if elapsed > 0 {
		g.phase += elapsed.Seconds() * g.bpm / 60
	}

	if obs != nil {
		g.observe(obs)
	}

	beat := int64(math.Floor(g.phase))
	tick := beat > g.lastBeat && g.lastBeat >= 0
	g.lastBeat = beat

	return Snapshot{
		Phase:      g.phase - math.Floor(g.phase),
		BPM:        g.bpm,
		Confidence: g.conf,
		Beat:       tick,
		Downbeat:   tick && beat%int64(g.cfg.BeatsPerBar) == 0,
	}
}

// BPM returns the current smoothed tempo estimate.
func (g *Grid) BPM() float64 {
	return g.bpm
}

func (g *Grid) observe(obs *feature.BeatObservation) {
	// Phase correction only when the observation marks an actual
	// rhythmic event: the onset anchors a beat boundary. The nudge is
	// proportional, scaled by confidence, so re-lock is gradual rather
	// than a visible jump.
	if obs.Onset && obs.Confidence > 0 {
		frac := g.phase - math.Floor(g.phase)
		err := frac
		if err > 0.5 {
			err -= 1 // wrapped: the boundary just behind is closer
		}
		g.phase -= err * g.cfg.CorrectionGain * obs.Confidence
	}

	// Tempo smoothing toward in-range observations.
	if obs.Confidence > 0 && obs.BPM >= g.cfg.MinBPM && obs.BPM <= g.cfg.MaxBPM {
		g.bpm += g.cfg.BPMAlpha * (obs.BPM - g.bpm)
	}
	g.conf += g.cfg.BPMAlpha * (obs.Confidence - g.conf)
}
