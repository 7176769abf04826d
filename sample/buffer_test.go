package sample

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_NewBuffer(t *testing.T) {
	tests := []struct {
		name       string
		data       []float32
		channels   int
		sampleRate int
		wantErr    error
		wantFrames int
	}{
		{name: "mono", data: []float32{0, 0.5, 1}, channels: 1, sampleRate: 48000, wantFrames: 3},
		{name: "stereo", data: []float32{0, 0.5, 1, -1}, channels: 2, sampleRate: 44100, wantFrames: 2},
		{name: "misaligned", data: []float32{0, 0.5, 1}, channels: 2, sampleRate: 48000, wantErr: ErrInvalidLayout},
		{name: "zero channels", data: []float32{0}, channels: 0, sampleRate: 48000, wantErr: ErrInvalidLayout},
		{name: "zero rate", data: []float32{0}, channels: 1, sampleRate: 0, wantErr: ErrInvalidLayout},
		{name: "empty", data: nil, channels: 1, sampleRate: 48000, wantErr: ErrEmptyBuffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBuffer(tt.data, tt.channels, tt.sampleRate)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrames, b.Frames())
			assert.Equal(t, tt.channels, b.Channels())
			assert.Equal(t, tt.sampleRate, b.SampleRate())
		})
	}
}

func TestBuffer_Access(t *testing.T) {
	b, err := NewBuffer([]float32{0.2, 0.4, -0.2, -0.4}, 2, 2)
	require.NoError(t, err)

	assert.Equal(t, time.Second, b.Duration())
	assert.Equal(t, float32(0.4), b.At(0, 1))
	assert.Equal(t, float32(-0.2), b.At(1, 0))
	assert.Equal(t, float32(0), b.At(2, 0))
	assert.Equal(t, float32(0), b.At(0, 2))
	assert.InDelta(t, 0.3, b.Mono(0), 1e-6)
	assert.InDelta(t, -0.3, b.Mono(1), 1e-6)
	assert.Equal(t, float32(0), b.Mono(-1))
}

func TestBuffer_Equal(t *testing.T) {
	a, _ := NewBuffer([]float32{0.1, 0.2}, 1, 48000)
	b, _ := NewBuffer([]float32{0.1, 0.2}, 1, 48000)
	c, _ := NewBuffer([]float32{0.1, 0.3}, 1, 48000)
	d, _ := NewBuffer([]float32{0.1, 0.2}, 2, 48000)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, a.Equal(nil))
}
