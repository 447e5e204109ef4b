// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"

	"lumen/pkg/utils"
)

func TestPeakAmplitudeFindsExtremes(t *testing.T) {
	tests := []struct {
		name string
		buf  []int32
		want int32
	}{
		{"empty", nil, 0},
		{"silence", make([]int32, 64), 0},
		{"positive peak", []int32{1, 5, 3}, 5},
		{"negative peak", []int32{-7, 2, 3}, 7},
		{"min int32", []int32{math.MinInt32 + 1, 0}, math.MaxInt32},
	}
	for _, tt := range tests {
		if got := peakAmplitude(tt.buf); got != tt.want {
			t.Errorf("%s: peakAmplitude = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestPeakAmplitudeMatchesNaiveScan(t *testing.T) {
	buf := utils.GenerateSineWaveAt(512, 48000, 440, 0.75, 0)

	var want int32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		if s > want {
			want = s
		}
	}
	if got := peakAmplitude(buf); got != want {
		t.Errorf("branchless scan disagrees with naive: %d vs %d", got, want)
	}
}

func TestGateThresholdClamped(t *testing.T) {
	e := &Engine{}

	e.SetGateThreshold(-0.5)
	if e.GateThreshold() != 0 {
		t.Errorf("negative threshold not clamped: %g", e.GateThreshold())
	}

	e.SetGateThreshold(1.5)
	if got := e.GateThreshold(); got < 0.999 {
		t.Errorf("oversized threshold not clamped to 1: %g", got)
	}

	e.SetGateThreshold(0.25)
	if got := e.GateThreshold(); math.Abs(got-0.25) > 1e-6 {
		t.Errorf("threshold round trip drifted: %g", got)
	}
}
