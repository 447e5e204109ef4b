// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no file: %v", err)
	}
	if cfg.Audio.SampleRate != DefaultSampleRate {
		t.Errorf("expected default sample rate %d, got %g", DefaultSampleRate, cfg.Audio.SampleRate)
	}
	if cfg.Audio.HopSize != DefaultHopSize {
		t.Errorf("expected default hop size %d, got %d", DefaultHopSize, cfg.Audio.HopSize)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
audio:
  sample_rate: 44100
  hop_size: 352
tempo:
  beats_per_bar: 3
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("expected sample rate 44100, got %g", cfg.Audio.SampleRate)
	}
	if cfg.Audio.HopSize != 352 {
		t.Errorf("expected hop size 352, got %d", cfg.Audio.HopSize)
	}
	if cfg.Tempo.BeatsPerBar != 3 {
		t.Errorf("expected 3 beats per bar, got %d", cfg.Tempo.BeatsPerBar)
	}
	// Untouched sections keep their defaults.
	if cfg.Analysis.AGCMaxGain != New().Analysis.AGCMaxGain {
		t.Errorf("unexpected AGC max gain %g", cfg.Analysis.AGCMaxGain)
	}
}

func TestNormalizeCorrectsOutOfBounds(t *testing.T) {
	cfg := New()
	cfg.Audio.SampleRate = 1000 // below minimum
	cfg.Render.Staleness = 0
	cfg.Tempo.MinBPM, cfg.Tempo.MaxBPM = 200, 100 // inverted
	cfg.Analysis.AGCClipBackoff = 2.0

	cfg.Normalize()

	if cfg.Audio.SampleRate != MinSampleRate {
		t.Errorf("sample rate not corrected: %g", cfg.Audio.SampleRate)
	}
	if cfg.Render.Staleness != 100*time.Millisecond {
		t.Errorf("staleness not corrected: %s", cfg.Render.Staleness)
	}
	if cfg.Tempo.MinBPM > cfg.Tempo.MaxBPM {
		t.Errorf("tempo range still inverted: %g > %g", cfg.Tempo.MinBPM, cfg.Tempo.MaxBPM)
	}
	if cfg.Analysis.AGCClipBackoff > 1 {
		t.Errorf("clip backoff not corrected: %g", cfg.Analysis.AGCClipBackoff)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("audio: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}
