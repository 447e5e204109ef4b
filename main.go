// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"lumen/cmd"
	"lumen/internal/audio"
	"lumen/internal/config"
	"lumen/internal/feature"
	"lumen/internal/grid"
	applog "lumen/internal/log"
	"lumen/internal/pipeline"
	"lumen/internal/render"
	"lumen/internal/transport"
	"lumen/pkg/build"
)

// main wires the two execution contexts together.
//
// Startup (cold path): parse configuration, initialize PortAudio,
// construct the pipeline and adapter around a shared clock epoch.
//
// Steady state: the PortAudio callback drives the audio context hop by
// hop; a ticker goroutine drives the consumer context at the render
// rate. The only coupling between the two is the pair of snapshot
// buffers inside the pipeline.
//
// Shutdown (cold path): stop recording, close the engine and transports.
func main() {
	info := build.Get()

	// One OS thread for the audio callback, one for everything else.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	opts, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if opts.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	cfg := opts.Config
	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	applog.Infof("%s %s (%s)", info.Name, info.Version, info.Commit)

	// Both contexts stamp and interpret timestamps against this epoch.
	clock := feature.NewClock(time.Now())

	pipe := pipeline.New(cfg, clock, nil)
	if cfg.Monitor.Enabled {
		tap := transport.NewWebSocket(cfg.Monitor.Addr)
		defer tap.Close()
		pipe.SetTap(tap)
	}

	engine, err := audio.NewEngine(cfg, pipe)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if err := engine.Start(); err != nil {
		applog.Fatalf("%v", err)
	}

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
			applog.Fatalf("%v", err)
		}
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	stopRender := make(chan struct{})
	go renderLoop(cfg, pipe, clock, stopRender)

	applog.Infof("running, ctrl-c to stop")
	<-done

	close(stopRender)

	if cfg.Recording.Enabled {
		if err := engine.StopRecording(); err != nil {
			applog.Errorf("stopping recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
		}
	}
	if err := engine.Close(); err != nil {
		applog.Errorf("closing audio engine: %v", err)
	}
}

// renderLoop is the consumer context: it ticks the adapter at the
// configured rate and periodically reports state while in debug mode.
// Downstream consumers would hang off the per-tick context here.
func renderLoop(cfg *config.Config, pipe *pipeline.Pipeline, clock *feature.Clock, stop <-chan struct{}) {
	cycle := time.Second / time.Duration(cfg.Render.Rate)
	adapter := render.New(
		pipe.Frames(), pipe.Beats(),
		grid.New(&cfg.Tempo), clock,
		cfg.Render.Staleness, cycle,
	)

	ticker := time.NewTicker(cycle)
	defer ticker.Stop()

	report := time.NewTicker(2 * time.Second)
	defer report.Stop()

	for {
		select {
		case now := <-ticker.C:
			ctx := adapter.Tick(now)
			select {
			case <-report.C:
				applog.Debugf("render: hop=%d energy=%.2f bpm=%.0f phase=%.2f chord=%s/%s fresh=%v",
					ctx.Frame.HopSeq, ctx.Frame.Energy, ctx.Grid.BPM, ctx.Grid.Phase,
					noteName(ctx.Frame.Chord.Root), ctx.Frame.Chord.Type, ctx.Fresh)
			default:
			}
		case <-stop:
			return
		}
	}
}

var noteNames = [feature.NumChroma]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

func noteName(pitchClass int) string {
	if pitchClass < 0 || pitchClass >= len(noteNames) {
		return "?"
	}
	return noteNames[pitchClass]
}
