// SPDX-License-Identifier: MIT
/*
Package bus aggregates per-hop feature frames into smoothed, enriched
control frames and publishes them to the consumer context.

The pipeline per hop: clamp, spike rejection, zone-relative gain
normalization, asymmetric attack/release smoothing, chord detection,
saliency, style classification, publish. The bus keeps no history beyond
the previous frame's smoothed state and the short windows spike
rejection needs.
*/
package bus

import (
	"lumen/internal/config"
	"lumen/internal/feature"
	"lumen/internal/snapshot"
)

// Zone partitioning of the band and chroma arrays. Per-zone maxima keep
// a dominant sub-band (typically bass) from suppressing the rest.
const (
	bandZones    = 4 // 2 bands each
	chromaZones  = 4 // 3 pitch classes each
	zoneMaxFloor = 0.05
)

// Bus is the feature aggregator. It runs in the audio execution context,
// one Process call per hop, immediately after the hop processor.
type Bus struct {
	cfg *config.AnalysisConfig

	energyDS despiker
	fluxDS   despiker
	bandDS   [feature.NumBands]despiker
	chromaDS [feature.NumChroma]despiker

	bandMax   [bandZones]float64
	chromaMax [chromaZones]float64

	// Smoothed state carried frame to frame.
	energy float64
	flux   float64
	bands  [feature.NumBands]float64
	chroma [feature.NumChroma]float64

	chord feature.Chord
	sal   saliencyTracker

	// Latest tempo-lane data, carried into every frame.
	bpm       float64
	tempoConf float64

	frames *snapshot.Buffer[feature.ControlBusFrame]
	beats  *snapshot.Buffer[feature.BeatObservation]
}

// New builds a bus publishing into the given snapshot buffers. Either
// buffer may be nil, in which case the corresponding publish is skipped
// (useful in tests).
func New(cfg *config.AnalysisConfig, frames *snapshot.Buffer[feature.ControlBusFrame], beats *snapshot.Buffer[feature.BeatObservation]) *Bus {
	return &Bus{cfg: cfg, frames: frames, beats: beats}
}

// Process aggregates one fast frame (plus an optional beat observation)
// into a ControlBusFrame and publishes it. Returns the published frame.
//
// Performance critical (hot path): no allocations, no logging.
func (b *Bus) Process(f feature.FastFeatureFrame, obs feature.BeatObservation, hasObs bool) feature.ControlBusFrame {
	rel, minD := b.cfg.SpikeRelThreshold, b.cfg.SpikeMinDelta

	// Clamp, then reject single-frame outliers before they can reach
	// the smoothing state.
	energy := b.energyDS.push(feature.Clamp01(f.RMS), rel, minD)
	flux := b.fluxDS.push(feature.Clamp01(f.Flux), rel, minD)

	var bands [feature.NumBands]float64
	for i := range bands {
		bands[i] = b.bandDS[i].push(feature.Clamp01(f.Bands[i]), rel, minD)
	}
	var chroma [feature.NumChroma]float64
	for i := range chroma {
		chroma[i] = b.chromaDS[i].push(feature.Clamp01(f.Chroma[i]), rel, minD)
	}

	// Zone-relative gain normalization.
	normalizeZones(bands[:], b.bandMax[:], b.cfg.ZoneAttack, b.cfg.ZoneDecay)
	normalizeZones(chroma[:], b.chromaMax[:], b.cfg.ZoneAttack, b.cfg.ZoneDecay)

	// Asymmetric smoothing: fast constants for energy, slow for
	// spectral/harmonic content.
	b.energy = smooth(b.energy, energy, b.cfg.EnergyAttack, b.cfg.EnergyRelease)
	b.flux = smooth(b.flux, flux, b.cfg.EnergyAttack, b.cfg.EnergyRelease)
	for i := range bands {
		b.bands[i] = smooth(b.bands[i], bands[i], b.cfg.SpectralAttack, b.cfg.SpectralRelease)
	}
	for i := range chroma {
		b.chroma[i] = smooth(b.chroma[i], chroma[i], b.cfg.SpectralAttack, b.cfg.SpectralRelease)
	}

	b.chord = DetectChord(&b.chroma)

	if hasObs {
		b.bpm = obs.BPM
		b.tempoConf = obs.Confidence
	}

	sal := b.sal.update(&b.chroma, &b.bands, b.energy, b.chord, obs, hasObs)
	style := classifyStyle(sal, b.chord.Confidence)

	out := feature.ControlBusFrame{
		Timestamp:       f.Timestamp,
		HopSeq:          f.HopSeq, // copied unchanged from the source frame
		Energy:          b.energy,
		Flux:            b.flux,
		Bands:           b.bands,
		Chroma:          b.chroma,
		Waveform:        f.Waveform,
		Chord:           b.chord,
		Saliency:        sal,
		Style:           style,
		BPM:             b.bpm,
		TempoConfidence: b.tempoConf,
	}

	if b.frames != nil {
		b.frames.Publish(out)
	}
	if hasObs && b.beats != nil {
		b.beats.Publish(obs)
	}
	return out
}

// despiker holds a 3-frame history for one scalar channel. A middle
// sample that is a strict local extremum against both neighbors by more
// than the threshold is replaced with the neighbor average. Output is
// delayed by one frame.
type despiker struct {
	h [3]float64
	n int
}

func (d *despiker) push(v, relThresh, minDelta float64) float64 {
	d.h[0], d.h[1], d.h[2] = d.h[1], d.h[2], v
	if d.n < 3 {
		d.n++
		return v
	}

	a, mid, c := d.h[0], d.h[1], d.h[2]
	avg := (a + c) / 2
	threshold := relThresh * avg
	if threshold < minDelta {
		threshold = minDelta // avoid false positives on near-zero signals
	}
	isExtremum := (mid > a && mid > c) || (mid < a && mid < c)
	if isExtremum && (mid-avg > threshold || avg-mid > threshold) {
		d.h[1] = avg
	}
	return d.h[1]
}

// normalizeZones divides vals into equal contiguous zones, tracks a
// fast-attack/slow-decay maximum per zone, and scales each channel by
// its zone's maximum.
func normalizeZones(vals, maxima []float64, attack, decay float64) {
	per := len(vals) / len(maxima)
	for z := range maxima {
		lo, hi := z*per, (z+1)*per

		peak := 0.0
		for _, v := range vals[lo:hi] {
			if v > peak {
				peak = v
			}
		}
		if peak > maxima[z] {
			maxima[z] += attack * (peak - maxima[z])
		} else {
			maxima[z] *= decay
		}
		if maxima[z] < zoneMaxFloor {
			maxima[z] = zoneMaxFloor
		}

		for i := lo; i < hi; i++ {
			vals[i] = feature.Clamp01(vals[i] / maxima[z])
		}
	}
}

// smooth applies one step of an asymmetric exponential filter: attack
// when the target is above the current value, release when below.
func smooth(cur, target, attack, release float64) float64 {
	if target > cur {
		return cur + attack*(target-cur)
	}
	return cur + release*(target-cur)
}
