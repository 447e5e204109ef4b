// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"lumen/internal/feature"
)

// goertzel is a single-frequency second-order resonant recursion. It is
// far cheaper than a full transform when only a handful of fixed target
// frequencies are needed, which is exactly the band/chroma situation
// here.
type goertzel struct {
	coeff float64
	norm  float64
}

func newGoertzel(freq, sampleRate float64, blockSize int) goertzel {
	k := freq / sampleRate * float64(blockSize)
	omega := 2 * math.Pi * k / float64(blockSize)
	return goertzel{
		coeff: 2 * math.Cos(omega),
		norm:  2 / float64(blockSize),
	}
}

// magnitude evaluates the recursion over block and returns a normalized
// magnitude: a full-scale sine at the target frequency yields ~1.
func (g goertzel) magnitude(block []float64) float64 {
	var s0, s1, s2 float64
	for _, x := range block {
		s0 = x + g.coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	power := s1*s1 + s2*s2 - g.coeff*s1*s2
	if power < 0 {
		power = 0 // rounding can push it fractionally negative
	}
	return math.Sqrt(power) * g.norm
}

// bandFreqs are the fixed band targets, sub-bass through presence.
var bandFreqs = [feature.NumBands]float64{40, 80, 160, 320, 640, 1250, 2500, 5000}

// BandBank evaluates the fixed band filters over the analysis window.
type BandBank struct {
	filters [feature.NumBands]goertzel
}

// NewBandBank tunes one filter per band for the given window size.
// Targets above Nyquist are pinned just below it.
func NewBandBank(sampleRate float64, blockSize int) *BandBank {
	b := &BandBank{}
	nyquist := sampleRate / 2
	for i, f := range bandFreqs {
		if f >= nyquist {
			f = nyquist * 0.95
		}
		b.filters[i] = newGoertzel(f, sampleRate, blockSize)
	}
	return b
}

// Analyze fills out with the per-band magnitudes, square-root compressed
// so quieter content stays visible, clamped to [0,1].
func (b *BandBank) Analyze(block []float64, out *[feature.NumBands]float64) {
	for i := range b.filters {
		out[i] = feature.Clamp01(math.Sqrt(b.filters[i].magnitude(block)))
	}
}

// ChromaBank evaluates one filter per semitone across several octaves
// and folds the magnitudes into the 12 pitch classes.
type ChromaBank struct {
	filters []goertzel // ChromaOctaves × 12, chromatic order from baseFreq
}

// chromaBaseFreq is C2. Four octaves from here cover the fundamentals of
// most melodic and harmonic content.
const chromaBaseFreq = 65.406

// NewChromaBank tunes the chroma filters for the given window size.
func NewChromaBank(sampleRate float64, blockSize int) *ChromaBank {
	n := feature.ChromaOctaves * feature.NumChroma
	c := &ChromaBank{filters: make([]goertzel, n)}
	nyquist := sampleRate / 2
	for i := range n {
		f := chromaBaseFreq * math.Pow(2, float64(i)/12)
		if f >= nyquist {
			f = nyquist * 0.95
		}
		c.filters[i] = newGoertzel(f, sampleRate, blockSize)
	}
	return c
}

// Analyze folds the per-semitone magnitudes into 12 pitch-class
// energies, normalized by octave count and clamped to [0,1].
func (c *ChromaBank) Analyze(block []float64, out *[feature.NumChroma]float64) {
	var folded [feature.NumChroma]float64
	for i, g := range c.filters {
		folded[i%feature.NumChroma] += g.magnitude(block)
	}
	for i := range out {
		out[i] = feature.Clamp01(math.Sqrt(folded[i] / feature.ChromaOctaves))
	}
}
