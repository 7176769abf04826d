package dsp

import (
	"fmt"
	"math"
	"strings"
)

// Waveform selects the oscillator shape.
type Waveform uint8

const (
	// WaveformSine produces sin(phase)
	WaveformSine Waveform = iota
	// WaveformSaw produces a rising ramp from -1 to 1
	WaveformSaw
	// WaveformSquare produces -1 for the first half period and 1 for the second
	WaveformSquare
)

// String returns the lowercase waveform name.
func (w Waveform) String() string {
	switch w {
	case WaveformSine:
		return "sine"
	case WaveformSaw:
		return "saw"
	case WaveformSquare:
		return "square"
	default:
		return fmt.Sprintf("waveform(%d)", uint8(w))
	}
}

// ParseWaveform converts a waveform name into a Waveform.
func ParseWaveform(s string) (Waveform, error) {
	switch strings.ToLower(s) {
	case "sine", "sin":
		return WaveformSine, nil
	case "saw", "sawtooth":
		return WaveformSaw, nil
	case "square", "sqr":
		return WaveformSquare, nil
	}
	return WaveformSine, fmt.Errorf("unknown waveform %q", s)
}

// OscillatorParams holds the user-facing oscillator settings.
type OscillatorParams struct {
	Waveform Waveform
	Gain     float32 // linear, 0..MaxGain
}

// DefaultOscillatorParams returns a unity-gain saw, the voice default.
func DefaultOscillatorParams() OscillatorParams {
	return OscillatorParams{Waveform: WaveformSaw, Gain: 1}
}

// NoteFrequency converts a MIDI note number to Hz (A4 = note 69 = 440 Hz).
func NoteFrequency(note int) float64 {
	return 440.0 * math.Pow(2, float64(note-69)/12.0)
}

// Oscillator is a phase-accumulator waveform generator.
type Oscillator struct {
	params     OscillatorParams
	sampleRate float64
	frequency  float64
	phase      float64 // [0, 1)
	increment  float64
}

// NewOscillator creates an oscillator with DefaultOscillatorParams.
func NewOscillator() *Oscillator {
	return &Oscillator{params: DefaultOscillatorParams()}
}

// Prepare sets the sample rate and resets the phase.
func (o *Oscillator) Prepare(sampleRate float64) {
	o.sampleRate = sampleRate
	o.Reset()
	o.updateIncrement()
}

// SetParams replaces waveform and gain.
func (o *Oscillator) SetParams(p OscillatorParams) {
	if p.Gain < 0 {
		p.Gain = 0
	}
	if p.Gain > MaxGain {
		p.Gain = MaxGain
	}
	o.params = p
}

// Params returns the current parameters.
func (o *Oscillator) Params() OscillatorParams {
	return o.params
}

// SetNote sets the frequency from a MIDI note number.
func (o *Oscillator) SetNote(note int) {
	o.SetFrequency(NoteFrequency(note))
}

// SetFrequency sets the oscillator frequency in Hz.
func (o *Oscillator) SetFrequency(hz float64) {
	o.frequency = hz
	o.updateIncrement()
}

// Frequency returns the current frequency in Hz.
func (o *Oscillator) Frequency() float64 {
	return o.frequency
}

func (o *Oscillator) updateIncrement() {
	if o.sampleRate <= 0 {
		o.increment = 0
		return
	}
	o.increment = o.frequency / o.sampleRate
}

// Next returns the next sample and advances the phase.
func (o *Oscillator) Next() float32 {
	var v float64
	switch o.params.Waveform {
	case WaveformSaw:
		v = 2*o.phase - 1
	case WaveformSquare:
		if o.phase < 0.5 {
			v = -1
		} else {
			v = 1
		}
	default:
		v = math.Sin(2 * math.Pi * o.phase)
	}

	o.phase += o.increment
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	return float32(v) * o.params.Gain
}

// Reset returns the phase to zero.
func (o *Oscillator) Reset() {
	o.phase = 0
}
