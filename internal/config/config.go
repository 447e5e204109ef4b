// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults and hard limits for the pipeline configuration.
const (
	DefaultSampleRate = 48000
	DefaultHopSize    = 384 // 125 Hz fast lane at 48 kHz
	DefaultChannels   = 1
	DefaultDeviceID   = MinDeviceID
	DefaultLowLatency = true

	// Dual-rate cadence. The tempo lane fires every TempoEvery hops and
	// the filter banks are re-evaluated every BandEvery hops, once the
	// analysis window (WindowHops hops of history) has filled.
	DefaultTempoEvery = 2
	DefaultBandEvery  = 2
	DefaultWindowHops = 4

	DefaultRenderRate = 400 // consumer cycles per second

	MinDeviceID   = -1 // system default device
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MinHopSize    = 32
	MaxHopSize    = 8192

	MinBPM = 30
	MaxBPM = 300
)

// Config holds all runtime settings. It is built from defaults, then a
// YAML file, then env overrides, then CLI flags, and finally corrected
// by Validate.
type Config struct {
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`

	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Tempo     TempoConfig     `yaml:"tempo"`
	Render    RenderConfig    `yaml:"render"`
	Recording RecordingConfig `yaml:"recording"`
	Monitor   MonitorConfig   `yaml:"monitor"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	DeviceID   int     `yaml:"device_id"`   // PortAudio device index, -1 for default
	SampleRate float64 `yaml:"sample_rate"` // Hz
	HopSize    int     `yaml:"hop_size"`    // samples per hop
	Channels   int     `yaml:"channels"`    // 1=mono, 2=stereo (downmixed)
	LowLatency bool    `yaml:"low_latency"`
}

// AnalysisConfig holds the run-time-tunable numeric parameters of the
// fast lane and the aggregation stage. All of these can be changed via
// the config file without rebuilding.
type AnalysisConfig struct {
	// Cadence. The filter banks re-run every BandEvery hops once
	// WindowHops hops of history have accumulated.
	BandEvery  int `yaml:"band_every"`
	WindowHops int `yaml:"window_hops"`

	// Signal conditioning.
	DCAlpha        float64 `yaml:"dc_alpha"`         // DC tracker coefficient, ≪1
	AGCTargetRMS   float64 `yaml:"agc_target_rms"`   // target output RMS, (0,1)
	AGCAttack      float64 `yaml:"agc_attack"`       // gain reduction coefficient
	AGCRelease     float64 `yaml:"agc_release"`      // gain recovery coefficient
	AGCMinGain     float64 `yaml:"agc_min_gain"`
	AGCMaxGain     float64 `yaml:"agc_max_gain"`
	AGCClipBackoff float64 `yaml:"agc_clip_backoff"` // multiplicative, <1

	// Energy mapping.
	DBFloor   float64 `yaml:"db_floor"`   // dB mapping to 0, e.g. -60
	DBCeiling float64 `yaml:"db_ceiling"` // dB mapping to 1, e.g. 0
	FluxScale float64 `yaml:"flux_scale"` // gain on the positive RMS delta

	// Activity gate feeding band persistence.
	GateFloor float64 `yaml:"gate_floor"` // RMS below which the gate decays
	GateDecay float64 `yaml:"gate_decay"` // per-hop decay while closed

	// Aggregation smoothing.
	SpikeRelThreshold float64 `yaml:"spike_rel_threshold"` // relative outlier threshold
	SpikeMinDelta     float64 `yaml:"spike_min_delta"`     // absolute floor for near-zero signals
	ZoneAttack        float64 `yaml:"zone_attack"`         // per-zone max fast attack
	ZoneDecay         float64 `yaml:"zone_decay"`          // per-zone max slow decay
	EnergyAttack      float64 `yaml:"energy_attack"`       // fast lane smoothing, rising
	EnergyRelease     float64 `yaml:"energy_release"`      // fast lane smoothing, falling
	SpectralAttack    float64 `yaml:"spectral_attack"`     // band/chroma smoothing, rising
	SpectralRelease   float64 `yaml:"spectral_release"`    // band/chroma smoothing, falling
}

// TempoConfig holds the tempo lane and beat-phase extrapolator tunables.
type TempoConfig struct {
	Every          int     `yaml:"every"`           // lane cadence in hops
	MinBPM         float64 `yaml:"min_bpm"`
	MaxBPM         float64 `yaml:"max_bpm"`
	ThresholdK     float64 `yaml:"threshold_k"`     // onset threshold stddev multiplier
	CorrectionGain float64 `yaml:"correction_gain"` // PLL phase nudge, (0,1)
	BPMAlpha       float64 `yaml:"bpm_alpha"`       // smoothed BPM coefficient
	BeatsPerBar    int     `yaml:"beats_per_bar"`
}

// RenderConfig holds the consumer-context settings.
type RenderConfig struct {
	Rate      int           `yaml:"rate"`      // cycles per second
	Staleness time.Duration `yaml:"staleness"` // freshness threshold
}

// RecordingConfig holds raw-input WAV capture settings.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
}

// MonitorConfig holds the debug websocket tap settings.
type MonitorConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`       // listen address, e.g. ":8080"
	EveryHops int    `yaml:"every_hops"` // broadcast cadence in hops
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			DeviceID:   DefaultDeviceID,
			SampleRate: DefaultSampleRate,
			HopSize:    DefaultHopSize,
			Channels:   DefaultChannels,
			LowLatency: DefaultLowLatency,
		},
		Analysis: AnalysisConfig{
			BandEvery:  DefaultBandEvery,
			WindowHops: DefaultWindowHops,

			DCAlpha:        0.002,
			AGCTargetRMS:   0.25,
			AGCAttack:      0.30,
			AGCRelease:     0.005,
			AGCMinGain:     0.1,
			AGCMaxGain:     16.0,
			AGCClipBackoff: 0.7,

			DBFloor:   -60,
			DBCeiling: 0,
			FluxScale: 4.0,

			GateFloor: 0.01,
			GateDecay: 0.85,

			SpikeRelThreshold: 0.15,
			SpikeMinDelta:     0.02,
			ZoneAttack:        0.5,
			ZoneDecay:         0.995,
			EnergyAttack:      0.5,
			EnergyRelease:     0.12,
			SpectralAttack:    0.35,
			SpectralRelease:   0.08,
		},
		Tempo: TempoConfig{
			Every:          DefaultTempoEvery,
			MinBPM:         MinBPM,
			MaxBPM:         MaxBPM,
			ThresholdK:     1.5,
			CorrectionGain: 0.15,
			BPMAlpha:       0.1,
			BeatsPerBar:    4,
		},
		Render: RenderConfig{
			Rate:      DefaultRenderRate,
			Staleness: 100 * time.Millisecond,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
		},
		Monitor: MonitorConfig{
			Enabled:   false,
			Addr:      ":8080",
			EveryHops: 4,
		},
	}
}
