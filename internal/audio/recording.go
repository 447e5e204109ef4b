// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "lumen/internal/log"
)

// StartRecording begins writing the raw captured input to a 32-bit WAV
// file. The callback picks the flag up on its next hop; no stream
// restart is needed.
func (e *Engine) StartRecording(filename string) error {
	if e.isRecording.Load() == 1 {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	bufSize := e.cfg.Audio.HopSize * e.cfg.Audio.Channels
	e.wavFile = &wavWriter{
		file:    file,
		encoder: wav.NewEncoder(file, int(e.cfg.Audio.SampleRate), 32, e.cfg.Audio.Channels, 1),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: e.cfg.Audio.Channels,
				SampleRate:  int(e.cfg.Audio.SampleRate),
			},
			Data: make([]int, bufSize),
		},
	}

	e.isRecording.Store(1)
	applog.Infof("audio: recording to %s", filename)
	return nil
}

// StopRecording flushes and closes the WAV file. Safe to call when no
// recording is active.
func (e *Engine) StopRecording() error {
	if e.isRecording.Load() == 0 {
		return nil
	}
	e.isRecording.Store(0)

	w := e.wavFile
	e.wavFile = nil
	if w == nil {
		return nil
	}
	if err := w.encoder.Close(); err != nil {
		return err
	}
	return w.file.Close()
}
