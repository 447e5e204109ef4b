// SPDX-License-Identifier: MIT
package feature

// Fixed analyzer dimensions. These are sized for the filter banks in
// internal/dsp and are part of the frame layout, so changing them changes
// the shape of every published frame.
const (
	NumBands      = 8  // resonant band filters, sub-bass through presence
	NumChroma     = 12 // pitch classes, octave-folded
	ChromaOctaves = 4  // octaves spanned by the chroma filter bank
	WaveformLen   = 64 // display snippet samples per hop
)

// Timestamp locates a frame in both the sample domain and wall time.
// SampleIndex never resets for the lifetime of the process.
type Timestamp struct {
	SampleIndex uint64  `json:"sampleIndex"`
	SampleRate  float64 `json:"sampleRate"`
	Micros      int64   `json:"micros"` // monotonic microseconds, see Clock
}

// FastFeatureFrame is the per-hop output of the hop processor. It is
// consumed by the control bus on the same cycle and never retained.
//
// HopSeq increments exactly once per hop and is the sole mechanism
// downstream consumers use to detect that new audio data arrived.
type FastFeatureFrame struct {
	Timestamp Timestamp
	HopSeq    uint64

	RMS      float64              // normalized energy, [0,1]
	Flux     float64              // positive RMS delta, [0,1]
	Bands    [NumBands]float64    // band energies, [0,1] each
	Chroma   [NumChroma]float64   // pitch-class energies, [0,1] each
	Waveform [WaveformLen]float64 // raw time-domain snippet, unsmoothed
}

// BeatObservation is emitted by the tempo lane every Kth hop. Absent on
// hops where the lane does not fire.
type BeatObservation struct {
	Timestamp  Timestamp `json:"timestamp"`
	BPM        float64   `json:"bpm"`
	Confidence float64   `json:"confidence"` // [0,1]
	Onset      bool      `json:"onset"`      // rhythmic event detected at this observation
}

// TriadType classifies the quality of a detected chord.
type TriadType uint8

const (
	TriadNone TriadType = iota
	TriadMajor
	TriadMinor
	TriadDiminished
	TriadAugmented
)

func (t TriadType) String() string {
	switch t {
	case TriadMajor:
		return "major"
	case TriadMinor:
		return "minor"
	case TriadDiminished:
		return "diminished"
	case TriadAugmented:
		return "augmented"
	default:
		return "none"
	}
}

// Chord is the harmonic state derived from the smoothed chroma vector.
type Chord struct {
	Root       int       `json:"root"` // pitch class 0..11, 0 = C
	Type       TriadType `json:"type"`
	Confidence float64   `json:"confidence"` // fraction of chroma energy explained
}

// Saliency holds independent short-horizon novelty scores plus their
// weighted combination. All values in [0,1].
type Saliency struct {
	Harmonic float64 `json:"harmonic"`
	Rhythmic float64 `json:"rhythmic"`
	Timbral  float64 `json:"timbral"`
	Dynamic  float64 `json:"dynamic"`
	Overall  float64 `json:"overall"`
}

// Style is a coarse classification of the current musical texture.
type Style uint8

const (
	StyleTexture Style = iota // sustained / ambient, nothing dominant
	StyleRhythm
	StyleHarmony
	StyleMelody
	StyleDynamics
)

func (s Style) String() string {
	switch s {
	case StyleRhythm:
		return "rhythm"
	case StyleHarmony:
		return "harmony"
	case StyleMelody:
		return "melody"
	case StyleDynamics:
		return "dynamics"
	default:
		return "texture"
	}
}

// ControlBusFrame is the aggregated, smoothed frame published to the
// consumer context. Fields are fixed-size arrays so the frame copies by
// value with no aliasing, which the snapshot transport relies on.
type ControlBusFrame struct {
	Timestamp Timestamp `json:"timestamp"`
	HopSeq    uint64    `json:"hopSeq"`

	Energy   float64              `json:"energy"`
	Flux     float64              `json:"flux"`
	Bands    [NumBands]float64    `json:"bands"`
	Chroma   [NumChroma]float64   `json:"chroma"`
	Waveform [WaveformLen]float64 `json:"waveform"`

	Chord    Chord    `json:"chord"`
	Saliency Saliency `json:"saliency"`
	Style    Style    `json:"style"`

	BPM             float64 `json:"bpm"`
	TempoConfidence float64 `json:"tempoConfidence"`
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v to the canonical feature range. NaN maps to 0 so
// garbage never propagates downstream.
func Clamp01(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	return Clamp(v, 0, 1)
}
