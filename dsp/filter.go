package dsp

import (
	"fmt"
	"math"
	"strings"
)

// FilterType selects which state variable filter output is used.
type FilterType uint8

const (
	// FilterLowpass passes content below the cutoff
	FilterLowpass FilterType = iota
	// FilterBandpass passes content around the cutoff
	FilterBandpass
	// FilterHighpass passes content above the cutoff
	FilterHighpass
)

// Cutoff bounds applied after modulation.
const (
	MinCutoff = 20.0
	MaxCutoff = 20000.0
)

// String returns the lowercase filter type name.
func (t FilterType) String() string {
	switch t {
	case FilterLowpass:
		return "lowpass"
	case FilterBandpass:
		return "bandpass"
	case FilterHighpass:
		return "highpass"
	default:
		return fmt.Sprintf("filter(%d)", uint8(t))
	}
}

// ParseFilterType converts a filter type name into a FilterType.
func ParseFilterType(s string) (FilterType, error) {
	switch strings.ToLower(s) {
	case "lowpass", "lp":
		return FilterLowpass, nil
	case "bandpass", "bp":
		return FilterBandpass, nil
	case "highpass", "hp":
		return FilterHighpass, nil
	}
	return FilterLowpass, fmt.Errorf("unknown filter type %q", s)
}

// FilterParams holds the user-facing filter settings.
type FilterParams struct {
	Type      FilterType
	Cutoff    float32 // Hz
	Resonance float32 // Q, > 0
}

// DefaultFilterParams returns a fully open lowpass.
func DefaultFilterParams() FilterParams {
	return FilterParams{Type: FilterLowpass, Cutoff: MaxCutoff, Resonance: 1}
}

// Filter is a TPT state variable filter with independent state per channel.
//
// The effective cutoff is params.Cutoff * modulator, clamped to
// [MinCutoff, min(MaxCutoff, 0.49*sampleRate)].
type Filter struct {
	params     FilterParams
	mod        float32
	sampleRate float64

	// coefficients, recomputed when cutoff, resonance or modulator change
	g, r2, h   float64
	lastCutoff float64
	lastRes    float32

	s1, s2 []float64
}

// NewFilter creates a filter with DefaultFilterParams.
func NewFilter() *Filter {
	return &Filter{params: DefaultFilterParams(), mod: 1, lastCutoff: -1}
}

// Prepare sizes per-channel state and resets it.
func (f *Filter) Prepare(sampleRate float64, channels int) {
	f.sampleRate = sampleRate
	if cap(f.s1) < channels {
		f.s1 = make([]float64, channels)
		f.s2 = make([]float64, channels)
	}
	f.s1 = f.s1[:channels]
	f.s2 = f.s2[:channels]
	f.Reset()
	f.lastCutoff = -1
	f.update()
}

// SetParams replaces type, cutoff and resonance.
func (f *Filter) SetParams(p FilterParams) {
	if p.Resonance <= 0 {
		p.Resonance = 0.1
	}
	f.params = p
	f.update()
}

// Params returns the current parameters.
func (f *Filter) Params() FilterParams {
	return f.params
}

// SetModulator scales the cutoff, e.g. with an envelope value.
func (f *Filter) SetModulator(mod float32) {
	f.mod = mod
	f.update()
}

// Cutoff returns the effective cutoff after modulation and clamping.
func (f *Filter) Cutoff() float64 {
	return f.effectiveCutoff()
}

func (f *Filter) effectiveCutoff() float64 {
	c := float64(f.params.Cutoff * f.mod)
	upper := MaxCutoff
	if f.sampleRate > 0 && 0.49*f.sampleRate < upper {
		upper = 0.49 * f.sampleRate
	}
	if c < MinCutoff {
		c = MinCutoff
	}
	if c > upper {
		c = upper
	}
	return c
}

func (f *Filter) update() {
	if f.sampleRate <= 0 {
		return
	}
	cutoff := f.effectiveCutoff()
	if cutoff == f.lastCutoff && f.params.Resonance == f.lastRes {
		return
	}
	f.lastCutoff = cutoff
	f.lastRes = f.params.Resonance
	f.g = math.Tan(math.Pi * cutoff / f.sampleRate)
	f.r2 = 1.0 / float64(f.params.Resonance)
	f.h = 1.0 / (1.0 + f.r2*f.g + f.g*f.g)
}

// ProcessSample filters one sample on channel ch.
func (f *Filter) ProcessSample(ch int, x float32) float32 {
	if ch >= len(f.s1) {
		return x
	}
	s1, s2 := f.s1[ch], f.s2[ch]
	hp := (float64(x) - (f.r2+f.g)*s1 - s2) * f.h
	bp := f.g*hp + s1
	lp := f.g*bp + s2
	f.s1[ch] = f.g*hp + bp
	f.s2[ch] = f.g*bp + lp

	switch f.params.Type {
	case FilterBandpass:
		return float32(bp)
	case FilterHighpass:
		return float32(hp)
	default:
		return float32(lp)
	}
}

// Process filters a block of channel ch in place.
func (f *Filter) Process(ch int, block []float32) {
	for i, x := range block {
		block[i] = f.ProcessSample(ch, x)
	}
}

// Reset clears the integrator state of all channels.
func (f *Filter) Reset() {
	for i := range f.s1 {
		f.s1[i] = 0
		f.s2[i] = 0
	}
}
