// SPDX-License-Identifier: MIT
/*
Package audio captures input with PortAudio and drives the analysis
pipeline one hop at a time.

The capture callback is the start of the hot path: it downmixes to mono
into a pre-allocated buffer, runs a branchless peak gate, and hands the
hop to the pipeline. No allocation, no locks, no logging happens there.
WAV capture of the raw input runs off an atomic flag so recording can be
toggled without synchronizing with the callback.
*/
package audio

import (
	"math"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"lumen/internal/config"
	applog "lumen/internal/log"
	"lumen/internal/pipeline"
)

// Engine owns the PortAudio input stream and feeds captured hops into
// the pipeline. One hop equals one PortAudio buffer.
type Engine struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline

	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	monoBuf []int32 // downmix target, hop-sized

	// Peak gate deciding the per-hop active flag.
	gateThreshold int32

	// Recording state. isRecording is the only field the callback and
	// the control side both touch.
	isRecording atomic.Int32
	wavFile     *wavWriter
}

// NewEngine resolves the input device and pre-allocates the capture
// buffers. PortAudio must already be initialized.
func NewEngine(cfg *config.Config, p *pipeline.Pipeline) (*Engine, error) {
	device, err := InputDevice(cfg.Audio.DeviceID)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:           cfg,
		pipeline:      p,
		inputDevice:   device,
		monoBuf:       make([]int32, cfg.Audio.HopSize),
		gateThreshold: math.MaxInt32 / 1000, // ~0.1% of full scale
	}
	if cfg.Audio.LowLatency {
		e.inputLatency = device.DefaultLowInputLatency
	} else {
		e.inputLatency = device.DefaultHighInputLatency
	}

	applog.Infof("audio: input device %q, %d ch, hop %d @ %.0f Hz",
		device.Name, cfg.Audio.Channels, cfg.Audio.HopSize, cfg.Audio.SampleRate)
	return e, nil
}

// Start opens the input stream and begins capture. From the first
// callback on, the audio context is live.
func (e *Engine) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.cfg.Audio.Channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		FramesPerBuffer: e.cfg.Audio.HopSize,
		SampleRate:      e.cfg.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.onInput)
	if err != nil {
		return err
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return err
	}
	return nil
}

// Stop halts capture and closes the stream.
func (e *Engine) Stop() error {
	if e.inputStream == nil {
		return nil
	}
	if err := e.inputStream.Stop(); err != nil {
		return err
	}
	if err := e.inputStream.Close(); err != nil {
		return err
	}
	e.inputStream = nil
	return nil
}

// Close stops recording if active and shuts capture down.
func (e *Engine) Close() error {
	if e.isRecording.Load() == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}
	return e.Stop()
}

// onInput is the PortAudio callback.
//
// Performance critical (hot path): pre-allocated buffers only, no
// allocation, no logging.
func (e *Engine) onInput(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hop := e.downmix(in)
	active := peakAmplitude(hop) > e.gateThreshold
	e.pipeline.ProcessHop(hop, active)

	if e.isRecording.Load() == 1 && e.wavFile != nil {
		e.wavFile.write(in)
	}
}

// downmix reduces an interleaved buffer to mono by taking the first
// channel of each frame. Mono input passes through untouched.
func (e *Engine) downmix(in []int32) []int32 {
	ch := e.cfg.Audio.Channels
	if ch <= 1 {
		return in
	}
	for i := range e.monoBuf {
		if j := i * ch; j < len(in) {
			e.monoBuf[i] = in[j]
		} else {
			e.monoBuf[i] = 0
		}
	}
	return e.monoBuf
}

// peakAmplitude finds the largest absolute sample. Branchless.
func peakAmplitude(buf []int32) int32 {
	var peak int32
	for i := range buf {
		sample := buf[i]
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - peak
		peak += (diff & (diff >> 31)) ^ diff
	}
	return peak
}

// SetGateThreshold adjusts the activity gate, 0 always open through 1
// always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	e.gateThreshold = int32(threshold * float64(math.MaxInt32))
}

// GateThreshold returns the current gate threshold in [0,1].
func (e *Engine) GateThreshold() float64 {
	return float64(e.gateThreshold) / float64(math.MaxInt32)
}

// wavWriter wraps the encoder with its reusable conversion buffer.
type wavWriter struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
}

func (w *wavWriter) write(in []int32) {
	w.buf.Data = w.buf.Data[:len(in)]
	for i, s := range in {
		w.buf.Data[i] = int(s)
	}
	if err := w.encoder.Write(w.buf); err != nil {
		// Tolerated in the callback: recording is best-effort and the
		// error repeats until StopRecording runs.
		_ = err
	}
}
