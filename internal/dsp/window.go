// SPDX-License-Identifier: MIT
package dsp

// AnalysisWindow is a ring of the most recent samples feeding the
// resonant filter banks, which need more history than a single hop to
// resolve low frequencies. Owned exclusively by the hop processor and
// overwritten hop by hop.
type AnalysisWindow struct {
	buf    []float64
	pos    int
	filled int
}

// NewAnalysisWindow allocates a window of the given size in samples.
func NewAnalysisWindow(size int) *AnalysisWindow {
	return &AnalysisWindow{buf: make([]float64, size)}
}

// Push overwrites the oldest samples with one hop's worth of new ones.
func (w *AnalysisWindow) Push(samples []float64) {
	for _, s := range samples {
		w.buf[w.pos] = s
		w.pos++
		if w.pos == len(w.buf) {
			w.pos = 0
		}
	}
	w.filled += len(samples)
	if w.filled > len(w.buf) {
		w.filled = len(w.buf)
	}
}

// Full reports whether the window holds a complete history. Until then
// the filter banks report their last-known values (zero at cold start).
func (w *AnalysisWindow) Full() bool {
	return w.filled == len(w.buf)
}

// Len returns the window size in samples.
func (w *AnalysisWindow) Len() int {
	return len(w.buf)
}

// CopyTo linearizes the ring oldest-first into dst, which must be at
// least Len() long. No allocation.
func (w *AnalysisWindow) CopyTo(dst []float64) {
	n := copy(dst, w.buf[w.pos:])
	copy(dst[n:], w.buf[:w.pos])
}
