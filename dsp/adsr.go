package dsp

import "fmt"

// Stage is the current ADSR segment.
type Stage uint8

const (
	StageIdle Stage = iota
	StageAttack
	StageDecay
	StageSustain
	StageRelease
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// ADSRParams configures an envelope. Times are in seconds, Sustain is a
// level in [0, 1].
type ADSRParams struct {
	Attack  float32
	Decay   float32
	Sustain float32
	Release float32
}

// DefaultADSRParams returns a short pluck-free envelope that holds at full
// level while the note is down.
func DefaultADSRParams() ADSRParams {
	return ADSRParams{Attack: 0.1, Decay: 0.1, Sustain: 1, Release: 0.1}
}

// ADSR is a linear envelope generator.
//
// NoteOn starts the attack from the current level so retriggering does not
// click. NoteOff enters release from whatever level the envelope has reached.
type ADSR struct {
	params     ADSRParams
	sampleRate float64

	stage       Stage
	level       float64
	attackRate  float64
	decayRate   float64
	releaseRate float64
}

// NewADSR creates an idle envelope with DefaultADSRParams.
func NewADSR() *ADSR {
	a := &ADSR{}
	a.params = DefaultADSRParams()
	return a
}

// Prepare sets the sample rate and resets the envelope.
func (a *ADSR) Prepare(sampleRate float64) {
	a.sampleRate = sampleRate
	a.Reset()
	a.recalculate()
}

// SetParams replaces the envelope times and sustain level. Values outside
// their ranges are clamped.
func (a *ADSR) SetParams(p ADSRParams) {
	if p.Attack < 0 {
		p.Attack = 0
	}
	if p.Decay < 0 {
		p.Decay = 0
	}
	if p.Release < 0 {
		p.Release = 0
	}
	if p.Sustain < 0 {
		p.Sustain = 0
	}
	if p.Sustain > 1 {
		p.Sustain = 1
	}
	a.params = p
	a.recalculate()
}

// Params returns the current parameters.
func (a *ADSR) Params() ADSRParams {
	return a.params
}

func (a *ADSR) recalculate() {
	a.attackRate = segmentRate(1, a.params.Attack, a.sampleRate)
	a.decayRate = segmentRate(1-float64(a.params.Sustain), a.params.Decay, a.sampleRate)
	a.releaseRate = segmentRate(float64(a.params.Sustain), a.params.Release, a.sampleRate)

	switch {
	case a.stage == StageSustain:
		a.level = float64(a.params.Sustain)
	case a.stage == StageAttack && a.attackRate <= 0:
		a.advance()
	case a.stage == StageDecay && a.decayRate <= 0:
		a.advance()
	case a.stage == StageRelease && a.releaseRate <= 0:
		a.advance()
	}
}

func segmentRate(distance float64, seconds float32, sampleRate float64) float64 {
	if seconds <= 0 || sampleRate <= 0 {
		return -1
	}
	return distance / (float64(seconds) * sampleRate)
}

// NoteOn starts the attack stage.
func (a *ADSR) NoteOn() {
	switch {
	case a.attackRate > 0:
		a.stage = StageAttack
	case a.decayRate > 0:
		a.level = 1
		a.stage = StageDecay
	default:
		a.level = float64(a.params.Sustain)
		a.stage = StageSustain
	}
}

// NoteOff starts the release stage. It has no effect on an idle envelope.
func (a *ADSR) NoteOff() {
	if a.stage == StageIdle {
		return
	}
	if a.params.Release > 0 && a.sampleRate > 0 {
		a.releaseRate = a.level / (float64(a.params.Release) * a.sampleRate)
		a.stage = StageRelease
		return
	}
	a.Reset()
}

// Stage returns the current envelope segment.
func (a *ADSR) Stage() Stage {
	return a.stage
}

// Active reports whether the envelope is producing a non-idle level.
func (a *ADSR) Active() bool {
	return a.stage != StageIdle
}

// Level returns the current envelope value without advancing it.
func (a *ADSR) Level() float32 {
	return float32(a.level)
}

// Next advances the envelope by one sample and returns its value.
func (a *ADSR) Next() float32 {
	switch a.stage {
	case StageIdle:
		return 0
	case StageAttack:
		a.level += a.attackRate
		if a.level >= 1 {
			a.level = 1
			a.advance()
		}
	case StageDecay:
		a.level -= a.decayRate
		if a.level <= float64(a.params.Sustain) {
			a.level = float64(a.params.Sustain)
			a.advance()
		}
	case StageSustain:
		a.level = float64(a.params.Sustain)
	case StageRelease:
		a.level -= a.releaseRate
		if a.level <= 0 {
			a.advance()
		}
	}
	return float32(a.level)
}

func (a *ADSR) advance() {
	switch a.stage {
	case StageAttack:
		if a.decayRate > 0 {
			a.stage = StageDecay
		} else {
			a.level = float64(a.params.Sustain)
			a.stage = StageSustain
		}
	case StageDecay:
		a.level = float64(a.params.Sustain)
		a.stage = StageSustain
	case StageRelease:
		a.Reset()
	}
}

// Reset returns the envelope to idle at level zero.
func (a *ADSR) Reset() {
	a.level = 0
	a.stage = StageIdle
}
