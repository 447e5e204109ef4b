// SPDX-License-Identifier: MIT
package bus

import (
	"math"

	"lumen/internal/feature"
)

// Saliency decay per hop. Scores are peak-held and decay toward zero so
// a single event stays visible for a handful of frames.
const salDecay = 0.92

// Combination weights for the overall score.
const (
	salWeightHarmonic = 0.3
	salWeightRhythmic = 0.3
	salWeightTimbral  = 0.2
	salWeightDynamic  = 0.2
)

// saliencyTracker derives four short-horizon novelty scores from the
// smoothed feature state: harmonic (chord/chroma movement), rhythmic
// (beat observations), timbral (band shape movement) and dynamic
// (energy movement).
type saliencyTracker struct {
	prevChroma [feature.NumChroma]float64
	prevShape  [feature.NumBands]float64
	prevEnergy float64
	prevRoot   int
	prevType   feature.TriadType

	harmonic float64
	rhythmic float64
	timbral  float64
	dynamic  float64
}

func (s *saliencyTracker) update(
	chroma *[feature.NumChroma]float64,
	bands *[feature.NumBands]float64,
	energy float64,
	chord feature.Chord,
	obs feature.BeatObservation,
	hasObs bool,
) feature.Saliency {
	// Harmonic: chord changes plus chroma vector movement.
	var chromaDelta float64
	for i, v := range chroma {
		chromaDelta += math.Abs(v - s.prevChroma[i])
		s.prevChroma[i] = v
	}
	harmRaw := feature.Clamp01(chromaDelta / 2)
	if chord.Type != feature.TriadNone && (chord.Root != s.prevRoot || chord.Type != s.prevType) {
		harmRaw = 1
		s.prevRoot, s.prevType = chord.Root, chord.Type
	}

	// Rhythmic: detected onsets, weighted by tempo confidence.
	rhythmRaw := 0.0
	if hasObs && obs.Onset {
		rhythmRaw = feature.Clamp01(0.5 + 0.5*obs.Confidence)
	}

	// Timbral: movement of the band distribution shape, independent of
	// overall level.
	var sum float64
	for _, v := range bands {
		sum += v
	}
	var shapeDelta float64
	for i, v := range bands {
		shape := 0.0
		if sum > 1e-6 {
			shape = v / sum
		}
		shapeDelta += math.Abs(shape - s.prevShape[i])
		s.prevShape[i] = shape
	}
	timbralRaw := feature.Clamp01(shapeDelta * 2)

	// Dynamic: overall energy movement.
	dynamicRaw := feature.Clamp01(math.Abs(energy-s.prevEnergy) * 4)
	s.prevEnergy = energy

	s.harmonic = peakHold(s.harmonic, harmRaw)
	s.rhythmic = peakHold(s.rhythmic, rhythmRaw)
	s.timbral = peakHold(s.timbral, timbralRaw)
	s.dynamic = peakHold(s.dynamic, dynamicRaw)

	return feature.Saliency{
		Harmonic: s.harmonic,
		Rhythmic: s.rhythmic,
		Timbral:  s.timbral,
		Dynamic:  s.dynamic,
		Overall: feature.Clamp01(salWeightHarmonic*s.harmonic +
			salWeightRhythmic*s.rhythmic +
			salWeightTimbral*s.timbral +
			salWeightDynamic*s.dynamic),
	}
}

func peakHold(cur, raw float64) float64 {
	cur *= salDecay
	if raw > cur {
		return raw
	}
	return cur
}

// styleFloor is the saliency level below which nothing is considered
// dominant and the texture is treated as sustained/ambient.
const styleFloor = 0.15

// classifyStyle buckets the current musical texture by comparing the
// saliency dimensions. Thresholded heuristics only; harmonic dominance
// splits into harmony (chordal) versus melody (weak chord confidence).
func classifyStyle(s feature.Saliency, chordConfidence float64) feature.Style {
	maxVal := s.Harmonic
	style := feature.StyleHarmony
	if chordConfidence < chordConfidenceFloor {
		style = feature.StyleMelody
	}
	if s.Rhythmic > maxVal {
		maxVal = s.Rhythmic
		style = feature.StyleRhythm
	}
	if s.Dynamic > maxVal {
		maxVal = s.Dynamic
		style = feature.StyleDynamics
	}
	if s.Timbral > maxVal {
		maxVal = s.Timbral
		style = feature.StyleTexture
	}
	if maxVal < styleFloor {
		return feature.StyleTexture
	}
	return style
}
