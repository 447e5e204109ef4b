// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"testing"

	"lumen/internal/config"
)

func testAnalysisConfig() *config.AnalysisConfig {
	cfg := config.New()
	return &cfg.Analysis
}

func sineHop(size int, sampleRate, freq, amp float64, offset int) []float64 {
	hop := make([]float64, size)
	for i := range hop {
		tm := float64(offset+i) / sampleRate
		hop[i] = amp * math.Sin(2*math.Pi*freq*tm)
	}
	return hop
}

func TestDCOffsetRemoved(t *testing.T) {
	cond := NewConditioner(testAnalysisConfig())

	const hopSize = 384
	var mean float64
	for hop := range 20 {
		buf := sineHop(hopSize, 48000, 440, 0.1, hop*hopSize)
		for i := range buf {
			buf[i] += 0.5 // constant offset
		}
		cond.Process(buf)

		mean = 0
		for _, s := range buf {
			mean += s
		}
		mean /= float64(len(buf))
	}

	if math.Abs(mean) > 0.05 {
		t.Errorf("DC offset not removed: residual mean %.4f", mean)
	}
}

func TestAGCSeededNeutral(t *testing.T) {
	cond := NewConditioner(testAnalysisConfig())
	if cond.Gain() != 1.0 {
		t.Errorf("expected initial gain 1, got %g", cond.Gain())
	}
}

func TestAGCRaisesGainForQuietSignal(t *testing.T) {
	cond := NewConditioner(testAnalysisConfig())

	for hop := range 200 {
		cond.Process(sineHop(384, 48000, 440, 0.05, hop*384))
	}
	if cond.Gain() <= 1.0 {
		t.Errorf("expected gain above 1 for quiet input, got %g", cond.Gain())
	}
}

func TestAGCLowersGainForLoudSignal(t *testing.T) {
	cfg := testAnalysisConfig()
	cond := NewConditioner(cfg)

	for hop := range 50 {
		cond.Process(sineHop(384, 48000, 440, 0.95, hop*384))
	}
	if cond.Gain() >= 1.0 {
		t.Errorf("expected gain below 1 for loud input, got %g", cond.Gain())
	}
	if cond.Gain() < cfg.AGCMinGain {
		t.Errorf("gain %g below configured minimum %g", cond.Gain(), cfg.AGCMinGain)
	}
}

func TestAGCClipBackoffIsImmediate(t *testing.T) {
	cfg := testAnalysisConfig()
	cond := NewConditioner(cfg)

	// Let the release curve push the gain well above 1 on quiet input.
	for hop := range 400 {
		cond.Process(sineHop(384, 48000, 440, 0.05, hop*384))
	}
	before := cond.Gain()
	if before < 1.5 {
		t.Fatalf("setup failed, gain only %g", before)
	}

	// One loud hop must clip and attenuate multiplicatively, far faster
	// than the release curve ever moves in one hop.
	_, clipped := cond.Process(sineHop(384, 48000, 440, 0.9, 0))
	if !clipped {
		t.Fatal("expected clipping at high gain")
	}
	if cond.Gain() > before*cfg.AGCClipBackoff*1.05 {
		t.Errorf("gain %g did not back off from %g", cond.Gain(), before)
	}
}

func TestConditionerSilencePassthrough(t *testing.T) {
	cond := NewConditioner(testAnalysisConfig())
	buf := make([]float64, 384)
	rms, clipped := cond.Process(buf)
	if rms != 0 || clipped {
		t.Errorf("silence produced rms=%g clipped=%v", rms, clipped)
	}
	if cond.Gain() != 1.0 {
		t.Errorf("silence moved the gain to %g", cond.Gain())
	}
}

func TestDBNormalizeRange(t *testing.T) {
	tests := []struct {
		rms  float64
		want float64
	}{
		{0, 0},
		{1e-9, 0},   // far below floor
		{1.0, 1},    // 0 dB at the ceiling
		{10, 1},     // overrange clamps
	}
	for _, tt := range tests {
		got := dbNormalize(tt.rms, -60, 0)
		if got != tt.want {
			t.Errorf("dbNormalize(%g) = %g, expected %g", tt.rms, got, tt.want)
		}
	}

	// -30 dB sits exactly halfway between a -60 floor and 0 ceiling.
	mid := dbNormalize(math.Pow(10, -30.0/20), -60, 0)
	if math.Abs(mid-0.5) > 1e-9 {
		t.Errorf("expected 0.5 at -30 dB, got %g", mid)
	}
}
