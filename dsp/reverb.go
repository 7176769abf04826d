package dsp

// Freeverb tuning at 44.1 kHz; delays scale with the sample rate.
var (
	combTunings    = [...]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTunings = [...]int{556, 441, 341, 225}
)

const (
	reverbInputGain    = 0.015
	reverbWetScale     = 3
	reverbRoomScale    = 0.28
	reverbRoomOffset   = 0.7
	reverbDampScale    = 0.4
	allpassFeedback    = 0.5
	reverbSilenceLevel = 1e-5
)

// ReverbParams configures a Reverb. All values are in [0, 1] except
// DryLevel, which is a linear gain on the unprocessed signal.
type ReverbParams struct {
	RoomSize float32
	Damping  float32
	WetLevel float32
	DryLevel float32
}

// DefaultReverbParams returns a medium room mixed at 30% wet.
func DefaultReverbParams() ReverbParams {
	return ReverbParams{RoomSize: 0.5, Damping: 0.5, WetLevel: 0.3, DryLevel: 1}
}

type comb struct {
	buf  []float32
	idx  int
	last float32
}

func (c *comb) process(in, feedback, damp float32) float32 {
	out := c.buf[c.idx]
	c.last = out*(1-damp) + c.last*damp
	c.buf[c.idx] = in + c.last*feedback
	if c.idx++; c.idx == len(c.buf) {
		c.idx = 0
	}
	return out
}

type allpass struct {
	buf []float32
	idx int
}

func (a *allpass) process(in float32) float32 {
	buffered := a.buf[a.idx]
	a.buf[a.idx] = in + buffered*allpassFeedback
	if a.idx++; a.idx == len(a.buf) {
		a.idx = 0
	}
	return buffered - in
}

// Reverb is a mono Schroeder/Moorer reverb with eight damped feedback combs
// in parallel followed by four allpass diffusers.
//
// Prepare allocates the delay lines; Process is allocation-free after that.
// Ringing reports whether a tail may still be sounding, so a caller can keep
// feeding silence until the reverb has decayed.
type Reverb struct {
	params  ReverbParams
	combs   [len(combTunings)]comb
	allpass [len(allpassTunings)]allpass

	feedback float32
	damp     float32
	wet      float32

	// samples since input or output last exceeded reverbSilenceLevel; the
	// tail is over once this exceeds the longest path through the network
	quiet int
	hold  int
}

// NewReverb creates a reverb with DefaultReverbParams.
func NewReverb() *Reverb {
	r := &Reverb{}
	r.SetParams(DefaultReverbParams())
	return r
}

// Prepare sizes the delay lines for sampleRate and clears them.
func (r *Reverb) Prepare(sampleRate float64) {
	scale := sampleRate / 44100
	for i, n := range combTunings {
		r.combs[i] = comb{buf: make([]float32, max(1, int(float64(n)*scale)))}
	}
	r.hold = 0
	for i := range r.combs {
		r.hold = max(r.hold, len(r.combs[i].buf))
	}
	for i, n := range allpassTunings {
		r.allpass[i] = allpass{buf: make([]float32, max(1, int(float64(n)*scale)))}
		r.hold += len(r.allpass[i].buf)
	}
	r.quiet = r.hold
}

// SetParams replaces the room settings. Values are clamped to their ranges.
func (r *Reverb) SetParams(p ReverbParams) {
	p.RoomSize = clamp01(p.RoomSize)
	p.Damping = clamp01(p.Damping)
	p.WetLevel = clamp01(p.WetLevel)
	if p.DryLevel < 0 {
		p.DryLevel = 0
	}
	if p.DryLevel > MaxGain {
		p.DryLevel = MaxGain
	}
	r.params = p
	r.feedback = p.RoomSize*reverbRoomScale + reverbRoomOffset
	r.damp = p.Damping * reverbDampScale
	r.wet = p.WetLevel * reverbWetScale
}

// Params returns the current parameters.
func (r *Reverb) Params() ReverbParams {
	return r.params
}

// Ringing reports whether the network may still produce output without
// further input.
func (r *Reverb) Ringing() bool {
	return r.quiet < r.hold
}

// Process applies the reverb to block in place. It is a no-op before
// Prepare.
func (r *Reverb) Process(block []float32) {
	if len(r.combs[0].buf) == 0 {
		return
	}
	for i, x := range block {
		in := x * reverbInputGain
		var acc float32
		for c := range r.combs {
			acc += r.combs[c].process(in, r.feedback, r.damp)
		}
		for a := range r.allpass {
			acc = r.allpass[a].process(acc)
		}
		wet := acc * r.wet
		if abs32(x) > reverbSilenceLevel || abs32(wet) > reverbSilenceLevel {
			r.quiet = 0
		} else if r.quiet < r.hold {
			r.quiet++
		}
		block[i] = x*r.params.DryLevel + wet
	}
}

// Reset clears the delay lines.
func (r *Reverb) Reset() {
	for i := range r.combs {
		clear(r.combs[i].buf)
		r.combs[i].idx = 0
		r.combs[i].last = 0
	}
	for i := range r.allpass {
		clear(r.allpass[i].buf)
		r.allpass[i].idx = 0
	}
	r.quiet = r.hold
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
