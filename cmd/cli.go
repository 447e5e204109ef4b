// SPDX-License-Identifier: MIT
// Package cmd parses the command line into a runtime configuration.
package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"lumen/internal/config"
	"lumen/pkg/build"
)

// Options is the parsed command line: the merged configuration plus the
// requested one-off command, if any.
type Options struct {
	Config  *config.Config
	Command string // "" means run the engine
}

// ParseArgs builds the configuration from the config file and command
// line flags. Flags win over the file.
func ParseArgs() (*Options, error) {
	info := build.Get()
	opts := &Options{}

	var configPath string

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         "Real-time audio feature extraction and beat tracking",
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	// Flag targets; merged over the file config after Execute so the
	// file never overrides an explicit flag.
	cfg := config.New()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flags.IntVarP(&cfg.Audio.DeviceID, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	flags.IntVarP(&cfg.Audio.Channels, "channels", "c", config.DefaultChannels,
		"Number of input channels (1=mono, 2=stereo, downmixed)")
	flags.Float64VarP(&cfg.Audio.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate in Hertz (Hz)")
	flags.IntVarP(&cfg.Audio.HopSize, "hop-size", "b", config.DefaultHopSize,
		"Samples per analysis hop (affects latency)")
	flags.BoolVarP(&cfg.Audio.LowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use the device's low-latency mode")
	flags.BoolVarP(&cfg.Recording.Enabled, "record", "r", false,
		"Record raw input to a WAV file")
	flags.StringVarP(&cfg.Recording.OutputFile, "output", "o", "",
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")
	flags.BoolVar(&cfg.Monitor.Enabled, "monitor", false,
		"Serve control frames over a websocket for debugging")
	flags.StringVar(&cfg.Monitor.Addr, "monitor-addr", ":8080",
		"Monitor websocket listen address")
	flags.BoolVarP(&cfg.Debug, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	// Base config from file and environment, then explicit flags on top.
	loaded, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(loaded, cfg, flags.Changed)
	loaded.Normalize()

	if loaded.Recording.Enabled && loaded.Recording.OutputFile == "" {
		loaded.Recording.OutputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	opts.Config = loaded
	return opts, nil
}

// applyFlagOverrides copies only the flag values the user actually set
// onto the loaded configuration.
func applyFlagOverrides(dst, src *config.Config, changed func(string) bool) {
	if changed("device") {
		dst.Audio.DeviceID = src.Audio.DeviceID
	}
	if changed("channels") {
		dst.Audio.Channels = src.Audio.Channels
	}
	if changed("sample-rate") {
		dst.Audio.SampleRate = src.Audio.SampleRate
	}
	if changed("hop-size") {
		dst.Audio.HopSize = src.Audio.HopSize
	}
	if changed("low-latency") {
		dst.Audio.LowLatency = src.Audio.LowLatency
	}
	if changed("record") {
		dst.Recording.Enabled = src.Recording.Enabled
	}
	if changed("output") {
		dst.Recording.OutputFile = src.Recording.OutputFile
	}
	if changed("monitor") {
		dst.Monitor.Enabled = src.Monitor.Enabled
	}
	if changed("monitor-addr") {
		dst.Monitor.Addr = src.Monitor.Addr
	}
	if changed("verbose") {
		dst.Debug = src.Debug
		if src.Debug {
			dst.LogLevel = "debug"
		}
	}
}
