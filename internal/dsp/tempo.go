// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"lumen/internal/config"
	"lumen/internal/feature"
	"lumen/pkg/bitint"
)

// tempoLane accumulates several hops of conditioned samples and, on its
// own slower cadence, derives a band-weighted spectral flux, an adaptive
// onset decision, and a tempo estimate.
type tempoLane struct {
	cfg        *config.TempoConfig
	sampleRate float64

	buf []float64 // one lane interval of samples
	pos int

	fft     *fourier.FFT
	fftIn   []float64 // windowed, zero-padded to a power of two
	hann    []float64
	coeffs  []complex128
	mags    []float64
	prev    []float64
	weights []float64

	// Exponential trackers backing the adaptive onset threshold
	// (mean + k·stddev of the weighted flux history).
	fluxMean float64
	fluxVar  float64

	est tempoEstimator
}

// fluxTrackerAlpha is the update rate of the onset threshold trackers.
// Slow on purpose: the threshold should ride the texture, not the beat.
const fluxTrackerAlpha = 0.05

func newTempoLane(cfg *config.TempoConfig, sampleRate float64, hopSize int) *tempoLane {
	bufLen := hopSize * cfg.Every
	fftSize := bitint.NextPowerOfTwo(bufLen)
	bins := fftSize/2 + 1

	hann := make([]float64, bufLen)
	for i := range hann {
		hann[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(bufLen-1)))
	}

	// Low bands weigh more than high bands so low-frequency percussive
	// onsets dominate sustained high content.
	weights := make([]float64, bins)
	binHz := sampleRate / float64(fftSize)
	for i := range weights {
		weights[i] = 1 / (1 + float64(i)*binHz/200)
	}

	return &tempoLane{
		cfg:        cfg,
		sampleRate: sampleRate,
		buf:        make([]float64, bufLen),
		fft:        fourier.NewFFT(fftSize),
		fftIn:      make([]float64, fftSize),
		hann:       hann,
		coeffs:     make([]complex128, bins),
		mags:       make([]float64, bins),
		prev:       make([]float64, bins),
		weights:    weights,
		est:        newTempoEstimator(cfg.MinBPM, cfg.MaxBPM),
	}
}

// push accumulates one hop. When a full lane interval has been gathered
// it runs the analysis and returns a beat observation.
func (t *tempoLane) push(hop []float64, sampleIndex uint64) (bool, feature.BeatObservation) {
	n := copy(t.buf[t.pos:], hop)
	t.pos += n
	if t.pos < len(t.buf) {
		return false, feature.BeatObservation{}
	}
	t.pos = 0

	flux := t.weightedFlux()
	onset := t.onsetDecision(flux)

	if onset {
		t.est.addOnset(float64(sampleIndex) / t.sampleRate)
	}
	bpm, conf := t.est.estimate()

	return true, feature.BeatObservation{
		BPM:        bpm,
		Confidence: conf,
		Onset:      onset,
	}
}

// weightedFlux computes the band-weighted positive spectral difference
// against the previous lane interval.
func (t *tempoLane) weightedFlux() float64 {
	for i := range t.buf {
		t.fftIn[i] = t.buf[i] * t.hann[i]
	}
	for i := len(t.buf); i < len(t.fftIn); i++ {
		t.fftIn[i] = 0
	}
	t.fft.Coefficients(t.coeffs, t.fftIn)

	var flux float64
	for i, c := range t.coeffs {
		mag := math.Hypot(real(c), imag(c))
		if d := mag - t.prev[i]; d > 0 {
			flux += d * t.weights[i]
		}
		t.mags[i] = mag
	}
	copy(t.prev, t.mags)
	return flux
}

// onsetDecision compares flux against the adaptive threshold and then
// folds the sample into the trackers.
func (t *tempoLane) onsetDecision(flux float64) bool {
	threshold := t.fluxMean + t.cfg.ThresholdK*math.Sqrt(t.fluxVar)
	onset := t.fluxMean > 0 && flux > threshold && flux > 1e-6

	d := flux - t.fluxMean
	t.fluxMean += fluxTrackerAlpha * d
	t.fluxVar += fluxTrackerAlpha * (d*d - t.fluxVar)
	return onset
}

// tempoEstimator turns inter-onset intervals into a BPM histogram. The
// estimate is the histogram peak; confidence reflects how sharp that
// peak is relative to the total vote mass.
type tempoEstimator struct {
	minBPM, maxBPM float64
	hist           []float64 // one bin per integer BPM across the range
	lastOnset      float64   // seconds, <0 until the first onset
	total          float64
}

// histDecay ages old votes so the estimator can follow tempo changes.
const histDecay = 0.97

func newTempoEstimator(minBPM, maxBPM float64) tempoEstimator {
	return tempoEstimator{
		minBPM:    minBPM,
		maxBPM:    maxBPM,
		hist:      make([]float64, int(maxBPM-minBPM)+1),
		lastOnset: -1,
	}
}

// addOnset votes for the tempo implied by the interval since the
// previous onset, folded by octaves into the configured range.
func (e *tempoEstimator) addOnset(t float64) {
	if e.lastOnset < 0 {
		e.lastOnset = t
		return
	}
	dt := t - e.lastOnset
	e.lastOnset = t
	if dt < 0.05 || dt > 4 {
		return // spurious double-trigger or a long gap, not an interval
	}

	bpm := 60 / dt
	for bpm < e.minBPM {
		bpm *= 2
	}
	for bpm > e.maxBPM {
		bpm /= 2
	}
	if bpm < e.minBPM {
		return // range narrower than an octave cannot hold this interval
	}

	for i := range e.hist {
		e.hist[i] *= histDecay
	}
	e.total *= histDecay

	bin := int(math.Round(bpm - e.minBPM))
	e.vote(bin, 1)
	e.vote(bin-1, 0.5)
	e.vote(bin+1, 0.5)
}

func (e *tempoEstimator) vote(bin int, w float64) {
	if bin >= 0 && bin < len(e.hist) {
		e.hist[bin] += w
		e.total += w
	}
}

// estimate returns the current tempo and its confidence. Before any
// votes exist it reports zero BPM with zero confidence; the consumer
// side freewheels through that.
func (e *tempoEstimator) estimate() (bpm, conf float64) {
	if e.total <= 0 {
		return 0, 0
	}
	peakBin, peak := 0, 0.0
	for i, v := range e.hist {
		if v > peak {
			peak = v
			peakBin = i
		}
	}
	bpm = e.minBPM + float64(peakBin)
	conf = feature.Clamp01(2 * peak / e.total)
	return bpm, conf
}
