package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteFrequency(t *testing.T) {
	tests := []struct {
		note int
		want float64
	}{
		{69, 440},
		{81, 880},
		{57, 220},
		{60, 261.6256},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NoteFrequency(tt.note), 0.001, "note %d", tt.note)
	}
}

func TestOscillator_Waveforms(t *testing.T) {
	tests := []struct {
		name     string
		waveform Waveform
		check    func(t *testing.T, samples []float32)
	}{
		{
			name:     "sine starts at zero",
			waveform: WaveformSine,
			check: func(t *testing.T, s []float32) {
				assert.InDelta(t, 0, s[0], 1e-6)
				assert.InDelta(t, 1, s[25], 1e-3) // quarter period
			},
		},
		{
			name:     "saw ramps up from -1",
			waveform: WaveformSaw,
			check: func(t *testing.T, s []float32) {
				assert.InDelta(t, -1, s[0], 1e-6)
				assert.Greater(t, s[50], s[10])
			},
		},
		{
			name:     "square flips at half period",
			waveform: WaveformSquare,
			check: func(t *testing.T, s []float32) {
				assert.Equal(t, float32(-1), s[10])
				assert.Equal(t, float32(1), s[60])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osc := NewOscillator()
			osc.SetParams(OscillatorParams{Waveform: tt.waveform, Gain: 1})
			osc.Prepare(100 * 440)
			osc.SetFrequency(440) // 100 samples per period

			samples := make([]float32, 100)
			for i := range samples {
				samples[i] = osc.Next()
			}
			tt.check(t, samples)
			for _, s := range samples {
				require.LessOrEqual(t, math.Abs(float64(s)), 1.0)
			}
		})
	}
}

func TestOscillator_GainClamped(t *testing.T) {
	osc := NewOscillator()
	osc.SetParams(OscillatorParams{Waveform: WaveformSaw, Gain: 9})
	assert.Equal(t, float32(MaxGain), osc.Params().Gain)

	osc.SetParams(OscillatorParams{Waveform: WaveformSaw, Gain: -1})
	assert.Equal(t, float32(0), osc.Params().Gain)
}

func TestParseWaveform(t *testing.T) {
	w, err := ParseWaveform("SAW")
	require.NoError(t, err)
	assert.Equal(t, WaveformSaw, w)
	assert.Equal(t, "saw", w.String())

	_, err = ParseWaveform("triangle")
	assert.Error(t, err)
}
