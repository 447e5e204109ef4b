// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	applog "lumen/internal/log"
)

// Load builds a Config from defaults, an optional YAML file, and env
// overrides, then normalizes it. If path is empty, "config.yaml" in the
// working directory is used when present; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.Normalize()
	return cfg, nil
}

// Normalize corrects out-of-bounds values to the nearest valid value.
// Bad configuration is never fatal: the pipeline has no supervisor to
// restart it, so it runs with corrected values and a warning instead.
func (c *Config) Normalize() {
	clampF := func(name string, v *float64, lo, hi float64) {
		if *v < lo || *v > hi {
			old := *v
			if *v < lo {
				*v = lo
			} else {
				*v = hi
			}
			applog.Warnf("config: %s %g out of range [%g, %g], using %g", name, old, lo, hi, *v)
		}
	}
	clampI := func(name string, v *int, lo, hi int) {
		if *v < lo || *v > hi {
			old := *v
			if *v < lo {
				*v = lo
			} else {
				*v = hi
			}
			applog.Warnf("config: %s %d out of range [%d, %d], using %d", name, old, lo, hi, *v)
		}
	}

	clampF("audio.sample_rate", &c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	clampI("audio.hop_size", &c.Audio.HopSize, MinHopSize, MaxHopSize)
	clampI("audio.channels", &c.Audio.Channels, 1, 2)

	a := &c.Analysis
	clampI("analysis.band_every", &a.BandEvery, 1, 16)
	clampI("analysis.window_hops", &a.WindowHops, 1, 16)
	clampF("analysis.dc_alpha", &a.DCAlpha, 1e-6, 0.5)
	clampF("analysis.agc_target_rms", &a.AGCTargetRMS, 0.01, 0.9)
	clampF("analysis.agc_attack", &a.AGCAttack, 1e-4, 1)
	clampF("analysis.agc_release", &a.AGCRelease, 1e-5, 1)
	clampF("analysis.agc_min_gain", &a.AGCMinGain, 1e-3, 1)
	clampF("analysis.agc_max_gain", &a.AGCMaxGain, 1, 64)
	clampF("analysis.agc_clip_backoff", &a.AGCClipBackoff, 0.1, 0.99)
	clampF("analysis.db_floor", &a.DBFloor, -120, -10)
	clampF("analysis.db_ceiling", &a.DBCeiling, -9, 0)
	clampF("analysis.flux_scale", &a.FluxScale, 0.1, 64)
	clampF("analysis.gate_floor", &a.GateFloor, 0, 0.5)
	clampF("analysis.gate_decay", &a.GateDecay, 0, 1)
	clampF("analysis.spike_rel_threshold", &a.SpikeRelThreshold, 0.01, 1)
	clampF("analysis.spike_min_delta", &a.SpikeMinDelta, 0, 0.5)
	clampF("analysis.zone_attack", &a.ZoneAttack, 1e-3, 1)
	clampF("analysis.zone_decay", &a.ZoneDecay, 0.5, 1)
	clampF("analysis.energy_attack", &a.EnergyAttack, 1e-3, 1)
	clampF("analysis.energy_release", &a.EnergyRelease, 1e-3, 1)
	clampF("analysis.spectral_attack", &a.SpectralAttack, 1e-3, 1)
	clampF("analysis.spectral_release", &a.SpectralRelease, 1e-3, 1)

	t := &c.Tempo
	clampI("tempo.every", &t.Every, 1, 16)
	clampF("tempo.min_bpm", &t.MinBPM, MinBPM, MaxBPM)
	clampF("tempo.max_bpm", &t.MaxBPM, MinBPM, MaxBPM)
	if t.MinBPM > t.MaxBPM {
		applog.Warnf("config: tempo range inverted (%g > %g), swapping", t.MinBPM, t.MaxBPM)
		t.MinBPM, t.MaxBPM = t.MaxBPM, t.MinBPM
	}
	clampF("tempo.threshold_k", &t.ThresholdK, 0.1, 8)
	clampF("tempo.correction_gain", &t.CorrectionGain, 0.01, 0.99)
	clampF("tempo.bpm_alpha", &t.BPMAlpha, 1e-3, 1)
	clampI("tempo.beats_per_bar", &t.BeatsPerBar, 1, 16)

	clampI("render.rate", &c.Render.Rate, 1, 2000)
	if c.Render.Staleness <= 0 {
		applog.Warnf("config: render.staleness %s invalid, using 100ms", c.Render.Staleness)
		c.Render.Staleness = 100 * time.Millisecond
	}

	clampI("monitor.every_hops", &c.Monitor.EveryHops, 1, 1000)
}

func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("LUMEN_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("LUMEN_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("LUMEN_MONITOR_ADDR"); ok {
		c.Monitor.Addr = val
		c.Monitor.Enabled = true
	}
}
