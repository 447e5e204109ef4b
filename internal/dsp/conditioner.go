// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"lumen/internal/config"
)

// Conditioner applies DC removal and automatic gain control to each hop
// in place. Gain is seeded to 1 and the DC estimate to 0, so the first
// hops pass through neutrally.
//
// The AGC is asymmetric: gain drops quickly when the signal gets loud
// (attack) and recovers slowly when it gets quiet (release). A detected
// clip bypasses the release curve entirely and attenuates immediately.
type Conditioner struct {
	cfg *config.AnalysisConfig

	dc   float64
	gain float64
}

// NewConditioner builds a conditioner reading its tunables from cfg on
// every hop, so retuning at run time needs no rebuild.
func NewConditioner(cfg *config.AnalysisConfig) *Conditioner {
	return &Conditioner{cfg: cfg, gain: 1.0}
}

// Process conditions one hop in place and returns the post-gain RMS.
// No allocation; runs at hop cadence.
func (c *Conditioner) Process(samples []float64) (rms float64, clipped bool) {
	if len(samples) == 0 {
		return 0, false
	}

	dcAlpha := c.cfg.DCAlpha
	var sumSq float64
	for i, s := range samples {
		c.dc += dcAlpha * (s - c.dc)
		s -= c.dc
		s *= c.gain
		if s > 1 || s < -1 {
			clipped = true
			s = math.Max(-1, math.Min(1, s))
		}
		samples[i] = s
		sumSq += s * s
	}
	rms = math.Sqrt(sumSq / float64(len(samples)))

	c.updateGain(rms, clipped)
	return rms, clipped
}

// Gain returns the current AGC gain factor.
func (c *Conditioner) Gain() float64 {
	return c.gain
}

func (c *Conditioner) updateGain(rms float64, clipped bool) {
	if clipped {
		// Immediate attenuation, not the release curve.
		c.gain *= c.cfg.AGCClipBackoff
	} else if rms > 1e-9 {
		desired := c.cfg.AGCTargetRMS / rms
		if desired < c.gain {
			c.gain += c.cfg.AGCAttack * (desired - c.gain)
		} else {
			c.gain += c.cfg.AGCRelease * (desired - c.gain)
		}
	}
	// A silent hop leaves the gain where it is.

	if c.gain < c.cfg.AGCMinGain {
		c.gain = c.cfg.AGCMinGain
	}
	if c.gain > c.cfg.AGCMaxGain {
		c.gain = c.cfg.AGCMaxGain
	}
}

// dbNormalize maps an RMS level onto [0,1] between the configured dB
// floor and ceiling.
func dbNormalize(rms, floor, ceiling float64) float64 {
	if rms <= 0 {
		return 0
	}
	db := 20 * math.Log10(rms)
	if db <= floor {
		return 0
	}
	if db >= ceiling {
		return 1
	}
	return (db - floor) / (ceiling - floor)
}
