// SPDX-License-Identifier: MIT
// Package utils holds shared test helpers: deterministic signal
// generators for exercising the analysis chain.
package utils

import "math"

// GenerateSineWave fills a buffer with a single int32 sine at the given
// frequency, at 90% of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []int32 {
	buf := make([]int32, size)
	for i := range buf {
		tm := float64(i) / sampleRate
		buf[i] = int32(math.Sin(2*math.Pi*frequency*tm) * math.MaxInt32 * 0.9)
	}
	return buf
}

// GenerateSineWaveAt is GenerateSineWave with an explicit amplitude in
// [0,1] and a starting sample offset, so consecutive hops stay phase
// continuous.
func GenerateSineWaveAt(size int, sampleRate, frequency, amplitude float64, offset int) []int32 {
	buf := make([]int32, size)
	for i := range buf {
		tm := float64(offset+i) / sampleRate
		buf[i] = int32(math.Sin(2*math.Pi*frequency*tm) * math.MaxInt32 * amplitude)
	}
	return buf
}

// GenerateClickTrain produces a buffer of near-silence with short loud
// bursts spaced periodSamples apart, starting at sample zero. Useful for
// exercising onset and tempo detection.
func GenerateClickTrain(size, periodSamples, clickLen int) []int32 {
	buf := make([]int32, size)
	amp := float64(math.MaxInt32) * 0.8
	for i := range buf {
		if i%periodSamples < clickLen {
			buf[i] = int32(amp)
			if i%2 == 1 {
				buf[i] = -buf[i] // alternate sign so the burst has no DC
			}
		}
	}
	return buf
}
