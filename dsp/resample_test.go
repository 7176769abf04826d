package dsp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResampler_NewResampler(t *testing.T) {
	tests := []struct {
		name    string
		config  ResamplerConfig
		wantErr error
	}{
		{name: "mono upsample", config: ResamplerConfig{InputRate: 24000, OutputRate: 48000, Channels: 1}},
		{name: "stereo downsample", config: ResamplerConfig{InputRate: 48000, OutputRate: 44100, Channels: 2}},
		{name: "zero input rate", config: ResamplerConfig{InputRate: 0, OutputRate: 48000, Channels: 1}, wantErr: ErrInvalidSampleRate},
		{name: "zero channels", config: ResamplerConfig{InputRate: 48000, OutputRate: 48000, Channels: 0}, wantErr: ErrInvalidChannels},
		{name: "too many channels", config: ResamplerConfig{InputRate: 48000, OutputRate: 48000, Channels: 9}, wantErr: ErrInvalidChannels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResampler(tt.config)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, r)
		})
	}
}

func TestResampler_SameRateCopies(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3, 0.4}
	out, err := ResampleBuffer(in, 2, 48000, 48000)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	out[0] = 9
	assert.Equal(t, float32(0.1), in[0])
}

func TestResampler_UpsampleInterpolates(t *testing.T) {
	out, err := ResampleBuffer([]float32{0, 1, 0, -1}, 1, 24000, 48000)
	require.NoError(t, err)
	require.Len(t, out, 8)
	assert.InDelta(t, 0.0, out[0], 1e-6)
	assert.InDelta(t, 0.5, out[1], 1e-6)
	assert.InDelta(t, 1.0, out[2], 1e-6)
	assert.InDelta(t, 0.5, out[3], 1e-6)
}

func TestResampler_UnalignedInput(t *testing.T) {
	_, err := ResampleBuffer([]float32{0, 1, 2}, 2, 24000, 48000)
	assert.True(t, errors.Is(err, ErrUnalignedInput))
}

func TestResampler_ChunksJoinSeamlessly(t *testing.T) {
	in := make([]float32, 300)
	for i := range in {
		in[i] = float32(i)
	}

	whole, err := ResampleBuffer(in, 1, 12000, 48000)
	require.NoError(t, err)
	require.Len(t, whole, 1200)

	r, err := NewResampler(ResamplerConfig{InputRate: 12000, OutputRate: 48000, Channels: 1})
	require.NoError(t, err)
	var chunked []float32
	for i := 0; i < len(in); i += 100 {
		part, err := r.Resample(in[i : i+100])
		require.NoError(t, err)
		chunked = append(chunked, part...)
	}
	chunked = append(chunked, r.Flush()...)

	assert.Equal(t, whole, chunked)
}
