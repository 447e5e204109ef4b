// SPDX-License-Identifier: MIT
package bus

import "lumen/internal/feature"

// triadIntervals are the semitone offsets tested against the chroma
// vector, in preference order for ties.
var triadIntervals = [...]struct {
	kind      feature.TriadType
	intervals [3]int
}{
	{feature.TriadMajor, [3]int{0, 4, 7}},
	{feature.TriadMinor, [3]int{0, 3, 7}},
	{feature.TriadDiminished, [3]int{0, 3, 6}},
	{feature.TriadAugmented, [3]int{0, 4, 8}},
}

// chordConfidenceFloor is the minimum fraction of total chroma energy a
// triad must explain before the detector commits to a quality.
const chordConfidenceFloor = 0.4

// DetectChord locates the dominant pitch class in the smoothed chroma
// vector and classifies the triad rooted there. Confidence is the
// fraction of total chroma energy explained by the triad's three pitch
// classes.
func DetectChord(chroma *[feature.NumChroma]float64) feature.Chord {
	var total float64
	root := 0
	for i, v := range chroma {
		total += v
		if v > chroma[root] {
			root = i
		}
	}
	if total < 1e-3 {
		return feature.Chord{}
	}

	best := feature.TriadNone
	bestEnergy := 0.0
	for _, tpl := range triadIntervals {
		var e float64
		for _, iv := range tpl.intervals {
			e += chroma[(root+iv)%feature.NumChroma]
		}
		if e > bestEnergy {
			bestEnergy = e
			best = tpl.kind
		}
	}

	conf := feature.Clamp01(bestEnergy / total)
	if conf < chordConfidenceFloor {
		return feature.Chord{Root: root, Type: feature.TriadNone, Confidence: conf}
	}
	return feature.Chord{Root: root, Type: best, Confidence: conf}
}
