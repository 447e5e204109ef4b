// SPDX-License-Identifier: MIT
package audio

import (
	"testing"

	"lumen/internal/config"
)

func TestDownmixMonoPassthrough(t *testing.T) {
	cfg := config.New()
	cfg.Audio.Channels = 1
	e := &Engine{cfg: cfg, monoBuf: make([]int32, cfg.Audio.HopSize)}

	in := []int32{1, 2, 3, 4}
	out := e.downmix(in)
	if &out[0] != &in[0] {
		t.Error("mono input should pass through without copying")
	}
}

func TestDownmixTakesFirstChannel(t *testing.T) {
	cfg := config.New()
	cfg.Audio.Channels = 2
	cfg.Audio.HopSize = 4
	e := &Engine{cfg: cfg, monoBuf: make([]int32, cfg.Audio.HopSize)}

	// Interleaved stereo: L R L R ...
	in := []int32{10, -1, 20, -2, 30, -3, 40, -4}
	out := e.downmix(in)

	want := []int32{10, 20, 30, 40}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("sample %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestDownmixShortBufferZeroFills(t *testing.T) {
	cfg := config.New()
	cfg.Audio.Channels = 2
	cfg.Audio.HopSize = 4
	e := &Engine{cfg: cfg, monoBuf: []int32{9, 9, 9, 9}}

	out := e.downmix([]int32{10, -1, 20, -2})
	if out[0] != 10 || out[1] != 20 {
		t.Fatalf("leading samples wrong: %v", out)
	}
	if out[2] != 0 || out[3] != 0 {
		t.Errorf("tail not zero filled: %v", out)
	}
}
