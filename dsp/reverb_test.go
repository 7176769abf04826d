package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func impulse(n int) []float32 {
	block := make([]float32, n)
	block[0] = 1
	return block
}

func energy(block []float32) float64 {
	var e float64
	for _, s := range block {
		e += float64(s) * float64(s)
	}
	return e
}

func TestReverb_ImpulseResponse(t *testing.T) {
	r := NewReverb()
	r.Prepare(48000)
	assert.False(t, r.Ringing())

	block := impulse(4800)
	r.Process(block)
	assert.Equal(t, float32(1), block[0], "dry path is unity")
	assert.True(t, r.Ringing())

	// The shortest comb is 1116 samples at 44.1 kHz; nothing arrives before it.
	first := int(1116 * 48000 / 44100)
	assert.Zero(t, energy(block[1:first-1]))
	assert.Greater(t, energy(block[first:]), 0.0)
}

func TestReverb_TailDecays(t *testing.T) {
	r := NewReverb()
	r.Prepare(48000)
	r.Process(impulse(480))

	blocks := 0
	block := make([]float32, 480)
	for r.Ringing() && blocks < 1000 {
		clear(block)
		r.Process(block)
		blocks++
	}
	require.False(t, r.Ringing(), "tail never ended")
	assert.Greater(t, blocks, 10, "tail lasts longer than the delay lines")

	clear(block)
	r.Process(block)
	for _, s := range block {
		assert.Less(t, math.Abs(float64(s)), 1e-4)
	}
}

func TestReverb_Params(t *testing.T) {
	tests := []struct {
		name string
		in   ReverbParams
		want ReverbParams
	}{
		{name: "default", in: DefaultReverbParams(), want: ReverbParams{RoomSize: 0.5, Damping: 0.5, WetLevel: 0.3, DryLevel: 1}},
		{name: "clamped", in: ReverbParams{RoomSize: 2, Damping: -1, WetLevel: 1.5, DryLevel: 10}, want: ReverbParams{RoomSize: 1, Damping: 0, WetLevel: 1, DryLevel: MaxGain}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReverb()
			r.SetParams(tt.in)
			assert.Equal(t, tt.want, r.Params())
		})
	}
}

func TestReverb_WetLevel(t *testing.T) {
	dry := NewReverb()
	dry.SetParams(ReverbParams{RoomSize: 0.5, Damping: 0.5, WetLevel: 0, DryLevel: 0.5})
	dry.Prepare(48000)
	block := impulse(4800)
	dry.Process(block)
	assert.Equal(t, float32(0.5), block[0])
	assert.Zero(t, energy(block[1:]))

	bigRoom := NewReverb()
	bigRoom.SetParams(ReverbParams{RoomSize: 1, Damping: 0, WetLevel: 1, DryLevel: 0})
	bigRoom.Prepare(48000)
	smallRoom := NewReverb()
	smallRoom.SetParams(ReverbParams{RoomSize: 0, Damping: 1, WetLevel: 1, DryLevel: 0})
	smallRoom.Prepare(48000)

	big, small := impulse(48000), impulse(48000)
	bigRoom.Process(big)
	smallRoom.Process(small)
	assert.Greater(t, energy(big[24000:]), energy(small[24000:]))
}

func TestReverb_Reset(t *testing.T) {
	r := NewReverb()
	r.Prepare(48000)
	r.Process(impulse(480))
	r.Reset()
	assert.False(t, r.Ringing())

	block := make([]float32, 4800)
	r.Process(block)
	assert.Zero(t, energy(block))
}

func TestReverb_ProcessBeforePrepare(t *testing.T) {
	r := NewReverb()
	block := impulse(16)
	r.Process(block)
	assert.Equal(t, impulse(16), block)
}
