package dsp

import "errors"

// Sentinel errors for dsp parameter validation.
var (
	// ErrInvalidGain indicates a gain outside [0, MaxGain].
	ErrInvalidGain = errors.New("invalid gain")

	// ErrInvalidSampleRate indicates a zero or negative sample rate.
	ErrInvalidSampleRate = errors.New("invalid sample rate")

	// ErrInvalidChannels indicates an unsupported channel count.
	ErrInvalidChannels = errors.New("invalid channel count")

	// ErrUnalignedInput indicates interleaved input not divisible by the channel count.
	ErrUnalignedInput = errors.New("input not aligned to channel count")
)
