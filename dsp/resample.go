package dsp

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// maxResampleChannels bounds the interleaved channel count the resampler accepts.
const maxResampleChannels = 8

// Resampler converts interleaved float32 audio between sample rates using
// linear interpolation.
//
// It keeps the fractional read position and the last frame of the previous
// call so that consecutive chunks of one stream join without a seam.
type Resampler struct {
	inputRate   int
	outputRate  int
	channels    int
	lastSamples []float32
	position    float64
}

// ResamplerConfig holds configuration for creating a resampler.
type ResamplerConfig struct {
	InputRate  int
	OutputRate int
	Channels   int
}

// NewResampler creates a resampler for the given rates and channel count.
//
// Parameters:
//   - config.InputRate, config.OutputRate: sample rates in Hz, both positive
//   - config.Channels: interleaved channel count, 1 to 8
//
// Returns:
//   - *Resampler: resampler positioned at the start of a stream
//   - error: ErrInvalidSampleRate or ErrInvalidChannels
func NewResampler(config ResamplerConfig) (*Resampler, error) {
	if config.InputRate <= 0 || config.OutputRate <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":    "NewResampler",
			"input_rate":  config.InputRate,
			"output_rate": config.OutputRate,
		}).Error("Sample rate validation failed")
		return nil, fmt.Errorf("%w: input=%d, output=%d", ErrInvalidSampleRate, config.InputRate, config.OutputRate)
	}
	if config.Channels < 1 || config.Channels > maxResampleChannels {
		logrus.WithFields(logrus.Fields{
			"function": "NewResampler",
			"channels": config.Channels,
		}).Error("Channel count validation failed")
		return nil, fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidChannels, config.Channels, maxResampleChannels)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewResampler",
		"input_rate":  config.InputRate,
		"output_rate": config.OutputRate,
		"channels":    config.Channels,
	}).Debug("Resampler created")

	return &Resampler{
		inputRate:   config.InputRate,
		outputRate:  config.OutputRate,
		channels:    config.Channels,
		lastSamples: make([]float32, config.Channels),
	}, nil
}

// Ratio returns input rate divided by output rate.
func (r *Resampler) Ratio() float64 {
	return float64(r.inputRate) / float64(r.outputRate)
}

// Resample converts one chunk of interleaved samples.
func (r *Resampler) Resample(input []float32) ([]float32, error) {
	if len(input) == 0 {
		return nil, nil
	}
	if len(input)%r.channels != 0 {
		return nil, fmt.Errorf("%w: %d samples, %d channels", ErrUnalignedInput, len(input), r.channels)
	}

	if r.inputRate == r.outputRate {
		out := make([]float32, len(input))
		copy(out, input)
		copy(r.lastSamples, input[len(input)-r.channels:])
		return out, nil
	}

	ratio := r.Ratio()
	inputFrames := len(input) / r.channels
	outputFrames := int(float64(inputFrames)/ratio + 0.5)
	output := make([]float32, 0, outputFrames*r.channels)

	// positions in [inputFrames-1, inputFrames) need the next chunk's first
	// frame and are produced by the following call (or Flush)
	for r.position < float64(inputFrames-1) {
		idx := int(r.position)
		if r.position < 0 {
			idx = -1
		}
		frac := float32(r.position - float64(idx))
		for ch := 0; ch < r.channels; ch++ {
			output = append(output, r.interpolate(input, idx, frac, ch, inputFrames))
		}
		r.position += ratio
	}

	r.position -= float64(inputFrames)
	copy(r.lastSamples, input[len(input)-r.channels:])
	return output, nil
}

func (r *Resampler) interpolate(input []float32, idx int, frac float32, ch, inputFrames int) float32 {
	var a, b float32
	if idx < 0 {
		a = r.lastSamples[ch]
		b = input[ch]
	} else {
		a = input[idx*r.channels+ch]
		b = input[(idx+1)*r.channels+ch]
	}
	return a*(1-frac) + b*frac
}

// Flush emits the frames still pending after the last Resample call by
// holding the final input frame, then resets the stream state.
func (r *Resampler) Flush() []float32 {
	if r.inputRate == r.outputRate {
		r.Reset()
		return nil
	}
	ratio := r.Ratio()
	var out []float32
	for r.position < 0 {
		out = append(out, r.lastSamples...)
		r.position += ratio
	}
	r.Reset()
	return out
}

// Reset clears the stream continuity state.
func (r *Resampler) Reset() {
	r.position = 0
	for i := range r.lastSamples {
		r.lastSamples[i] = 0
	}
}

// ResampleBuffer converts a whole interleaved buffer in one call.
func ResampleBuffer(input []float32, channels, inputRate, outputRate int) ([]float32, error) {
	r, err := NewResampler(ResamplerConfig{InputRate: inputRate, OutputRate: outputRate, Channels: channels})
	if err != nil {
		return nil, err
	}
	out, err := r.Resample(input)
	if err != nil {
		return nil, err
	}
	return append(out, r.Flush()...), nil
}
