package dsp

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// MaxGain is the largest accepted linear gain (+12 dB).
const MaxGain = 4.0

// DecibelsToGain converts a level in dB to a linear factor (0 dB = 1).
//
// Parameters:
//   - db: level in decibels; any finite value is accepted
//
// Returns the linear gain, capped at MaxGain. -Inf yields 0.
func DecibelsToGain(db float32) float32 {
	g := math.Pow(10, float64(db)/20)
	if g > MaxGain {
		return MaxGain
	}
	return float32(g)
}

// Gain applies a linear gain with clipping protection to float samples.
//
// Gain values: 0.0 = silence, 1.0 = no change, >1.0 = amplification.
// Output is clamped to [-1, 1].
type Gain struct {
	gain float32
}

// NewGain creates a gain stage.
//
// Returns ErrInvalidGain when gain is negative or above MaxGain.
func NewGain(gain float32) (*Gain, error) {
	if err := validateGain(gain); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewGain",
			"gain":     gain,
			"error":    err.Error(),
		}).Error("Gain validation failed")
		return nil, err
	}
	return &Gain{gain: gain}, nil
}

func validateGain(gain float32) error {
	if gain < 0 {
		return fmt.Errorf("%w: cannot be negative: %f", ErrInvalidGain, gain)
	}
	if gain > MaxGain {
		return fmt.Errorf("%w: too high (max %.1f): %f", ErrInvalidGain, MaxGain, gain)
	}
	return nil
}

// SetGain updates the gain value.
func (g *Gain) SetGain(gain float32) error {
	if err := validateGain(gain); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Gain.SetGain",
			"old_gain": g.gain,
			"new_gain": gain,
			"error":    err.Error(),
		}).Error("Gain validation failed")
		return err
	}
	g.gain = gain
	return nil
}

// Value returns the current gain.
func (g *Gain) Value() float32 {
	return g.gain
}

// Process applies the gain in place and returns how many samples were clipped.
func (g *Gain) Process(block []float32) int {
	clipped := 0
	for i, s := range block {
		v := s * g.gain
		if v > 1 {
			v = 1
			clipped++
		} else if v < -1 {
			v = -1
			clipped++
		}
		block[i] = v
	}
	return clipped
}
