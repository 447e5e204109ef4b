// SPDX-License-Identifier: MIT
package bus

import (
	"math"
	"testing"

	"lumen/internal/config"
	"lumen/internal/feature"
	"lumen/internal/snapshot"
)

func testBus() *Bus {
	cfg := config.New()
	return New(&cfg.Analysis, snapshot.New[feature.ControlBusFrame](), snapshot.New[feature.BeatObservation]())
}

func steadyFrame(seq uint64, rms float64) feature.FastFeatureFrame {
	f := feature.FastFeatureFrame{HopSeq: seq, RMS: rms}
	for i := range f.Bands {
		f.Bands[i] = 0.4
	}
	for i := range f.Chroma {
		f.Chroma[i] = 0.3
	}
	return f
}

func TestHopSeqCopiedUnchanged(t *testing.T) {
	b := testBus()
	for seq := uint64(1); seq <= 10; seq++ {
		out := b.Process(steadyFrame(seq, 0.5), feature.BeatObservation{}, false)
		if out.HopSeq != seq {
			t.Fatalf("hop seq %d became %d", seq, out.HopSeq)
		}
	}
}

func TestSpikeRejectedFromPublishedOutput(t *testing.T) {
	b := testBus()

	// Converge on a steady 0.5 energy.
	var seq uint64
	for range 40 {
		seq++
		b.Process(steadyFrame(seq, 0.5), feature.BeatObservation{}, false)
	}

	// One-frame outlier, then steady again. The outlier must never
	// surface in the published energy.
	seq++
	outlier := b.Process(steadyFrame(seq, 0.9), feature.BeatObservation{}, false)
	if math.Abs(outlier.Energy-0.5) > 1e-6 {
		t.Errorf("outlier leaked on its own frame: %g", outlier.Energy)
	}
	for range 10 {
		seq++
		out := b.Process(steadyFrame(seq, 0.5), feature.BeatObservation{}, false)
		if math.Abs(out.Energy-0.5) > 1e-6 {
			t.Errorf("outlier leaked into later frame: %g", out.Energy)
		}
	}
}

func TestDespikerReplacesLocalExtremum(t *testing.T) {
	var d despiker
	inputs := []float64{0.5, 0.5, 0.9, 0.5, 0.5, 0.5}
	for _, v := range inputs {
		if got := d.push(v, 0.15, 0.02); got > 0.6 {
			t.Errorf("outlier survived despiking: %g", got)
		}
	}
}

func TestDespikerKeepsSustainedStep(t *testing.T) {
	var d despiker
	var last float64
	for _, v := range []float64{0.2, 0.2, 0.2, 0.8, 0.8, 0.8} {
		last = d.push(v, 0.15, 0.02)
	}
	if last < 0.75 {
		t.Errorf("sustained step was rejected: %g", last)
	}
}

func TestChordDetectionCMajor(t *testing.T) {
	// Energy at C, E, G in a 3:2:2 ratio.
	var chroma [feature.NumChroma]float64
	chroma[0], chroma[4], chroma[7] = 0.3, 0.2, 0.2

	chord := DetectChord(&chroma)
	if chord.Root != 0 {
		t.Errorf("expected root 0 (C), got %d", chord.Root)
	}
	if chord.Type != feature.TriadMajor {
		t.Errorf("expected major triad, got %s", chord.Type)
	}
	if chord.Confidence <= 0.8 {
		t.Errorf("expected confidence > 0.8, got %g", chord.Confidence)
	}
}

func TestChordDetectionAMinor(t *testing.T) {
	// A, C, E: an A minor triad (root 9, intervals 0/3/7).
	var chroma [feature.NumChroma]float64
	chroma[9], chroma[0], chroma[4] = 0.4, 0.3, 0.3

	chord := DetectChord(&chroma)
	if chord.Root != 9 || chord.Type != feature.TriadMinor {
		t.Errorf("expected A minor, got root %d type %s", chord.Root, chord.Type)
	}
}

func TestChordDetectionSilence(t *testing.T) {
	var chroma [feature.NumChroma]float64
	chord := DetectChord(&chroma)
	if chord.Type != feature.TriadNone || chord.Confidence != 0 {
		t.Errorf("expected no chord on silence, got %+v", chord)
	}
}

func TestZoneNormalizationLiftsQuietZones(t *testing.T) {
	b := testBus()

	f := feature.FastFeatureFrame{RMS: 0.5}
	f.Bands = [feature.NumBands]float64{0.9, 0.8, 0.3, 0.25, 0.2, 0.15, 0.09, 0.07}
	for i := range f.Chroma {
		f.Chroma[i] = 0.3
	}

	var out feature.ControlBusFrame
	for seq := uint64(1); seq <= 80; seq++ {
		f.HopSeq = seq
		out = b.Process(f, feature.BeatObservation{}, false)
	}

	// The dominant bass zone must not suppress the quiet treble zone:
	// both end up near their own zone maximum.
	if out.Bands[0] < 0.8 {
		t.Errorf("bass band suppressed: %g", out.Bands[0])
	}
	if out.Bands[6] < 0.8 {
		t.Errorf("treble band not lifted by zone normalization: %g", out.Bands[6])
	}
}

func TestRangeInvariantUnderHostileInput(t *testing.T) {
	b := testBus()

	f := feature.FastFeatureFrame{RMS: 40, Flux: -3}
	for i := range f.Bands {
		f.Bands[i] = 7
	}
	for i := range f.Chroma {
		f.Chroma[i] = math.NaN()
	}

	for seq := uint64(1); seq <= 10; seq++ {
		f.HopSeq = seq
		out := b.Process(f, feature.BeatObservation{}, false)
		check := func(name string, v float64) {
			if v < 0 || v > 1 || v != v {
				t.Fatalf("%s out of range: %g", name, v)
			}
		}
		check("energy", out.Energy)
		check("flux", out.Flux)
		for _, v := range out.Bands {
			check("band", v)
		}
		for _, v := range out.Chroma {
			check("chroma", v)
		}
	}
}

func TestEnergySmoothingIsAsymmetric(t *testing.T) {
	b := testBus()

	var seq uint64
	for range 30 {
		seq++
		b.Process(steadyFrame(seq, 1), feature.BeatObservation{}, false)
	}
	seq++
	out := b.Process(steadyFrame(seq, 0), feature.BeatObservation{}, false)

	// Fast attack got us near 1; the slow release means a sudden drop
	// leaves most of the level in place for the next frame.
	if out.Energy < 0.5 {
		t.Errorf("energy released too fast: %g", out.Energy)
	}
}

func TestBeatObservationForwarded(t *testing.T) {
	cfg := config.New()
	beats := snapshot.New[feature.BeatObservation]()
	b := New(&cfg.Analysis, snapshot.New[feature.ControlBusFrame](), beats)

	b.Process(steadyFrame(1, 0.5), feature.BeatObservation{}, false)
	if beats.Seq() != 0 {
		t.Fatal("beat published without an observation")
	}

	obs := feature.BeatObservation{BPM: 128, Confidence: 0.9, Onset: true}
	out := b.Process(steadyFrame(2, 0.5), obs, true)

	got, seq := beats.ReadLatest()
	if seq != 1 || got.BPM != 128 {
		t.Errorf("observation not forwarded: seq=%d obs=%+v", seq, got)
	}
	if out.BPM != 128 || out.TempoConfidence != 0.9 {
		t.Errorf("frame not enriched with tempo: %+v", out)
	}
}

func TestStyleClassification(t *testing.T) {
	tests := []struct {
		name     string
		sal      feature.Saliency
		chord    float64
		expected feature.Style
	}{
		{"quiet ambient", feature.Saliency{Harmonic: 0.05, Rhythmic: 0.05}, 0.9, feature.StyleTexture},
		{"driving beat", feature.Saliency{Rhythmic: 0.8, Harmonic: 0.2}, 0.2, feature.StyleRhythm},
		{"chord changes", feature.Saliency{Harmonic: 0.7, Rhythmic: 0.2}, 0.8, feature.StyleHarmony},
		{"melodic line", feature.Saliency{Harmonic: 0.7, Rhythmic: 0.2}, 0.1, feature.StyleMelody},
		{"swells", feature.Saliency{Dynamic: 0.9, Rhythmic: 0.3}, 0.5, feature.StyleDynamics},
	}
	for _, tt := range tests {
		if got := classifyStyle(tt.sal, tt.chord); got != tt.expected {
			t.Errorf("%s: got %s, expected %s", tt.name, got, tt.expected)
		}
	}
}

func TestProcessZeroAllocs(t *testing.T) {
	b := testBus()
	f := steadyFrame(1, 0.5)

	for seq := uint64(1); seq <= 8; seq++ {
		f.HopSeq = seq
		b.Process(f, feature.BeatObservation{}, false)
	}
	allocs := testing.AllocsPerRun(100, func() {
		b.Process(f, feature.BeatObservation{}, false)
	})
	if allocs > 0 {
		t.Errorf("expected zero allocations in Process hot path, got %.1f", allocs)
	}
}
