package engine

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/opd-ai/beak/limits"
)

// Default loop intervals.
const (
	DefaultCleanupInterval  = 200 * time.Millisecond
	DefaultNoteTickInterval = 20 * time.Millisecond
)

// Config describes the device and topology an Engine is configured with.
type Config struct {
	DeviceName string
	// SampleRate and BlockSize are requests; the device may choose others.
	SampleRate int `validate:"gte=0,lte=384000"`
	BlockSize  int `validate:"gte=0,lte=16384"`
	Inputs     int `validate:"gte=0,lte=64"`
	Outputs    int `validate:"gte=1,lte=64"`
	// VirtualOutputs > 0 switches playback to sampler+panner channels mixed
	// onto the first two outputs.
	VirtualOutputs int `validate:"gte=0,lte=64"`
	// MonitorInputs routes input i to output bus i.
	MonitorInputs    bool
	CleanupInterval  time.Duration `validate:"gt=0"`
	NoteTickInterval time.Duration `validate:"gt=0"`
	MaxNoteDuration  time.Duration `validate:"gt=0"`
}

// DefaultConfig returns a stereo output configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:       48000,
		BlockSize:        512,
		Outputs:          2,
		CleanupInterval:  DefaultCleanupInterval,
		NoteTickInterval: DefaultNoteTickInterval,
		MaxNoteDuration:  limits.MaxNoteDuration,
	}
}

var validate = validator.New()

// Validate checks field ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}
