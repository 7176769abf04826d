package nodes

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/beak/dsp"
	"github.com/opd-ai/beak/graph"
)

// VoiceOutputGain is the fixed linear output level of a voice, leaving
// headroom for several voices summed on one bus.
const VoiceOutputGain = 0.07

// voiceEventQueue bounds note events waiting for the render thread.
const voiceEventQueue = 64

// VoiceParams is the complete sound of a voice.
type VoiceParams struct {
	Oscillator dsp.OscillatorParams
	AmpEnv     dsp.ADSRParams
	Filter     dsp.FilterParams
	FilterEnv  dsp.ADSRParams
	Reverb     dsp.ReverbParams
}

// DefaultVoiceParams returns a saw through an open lowpass into a medium
// room.
func DefaultVoiceParams() VoiceParams {
	return VoiceParams{
		Oscillator: dsp.DefaultOscillatorParams(),
		AmpEnv:     dsp.DefaultADSRParams(),
		Filter:     dsp.DefaultFilterParams(),
		FilterEnv:  dsp.DefaultADSRParams(),
		Reverb:     dsp.DefaultReverbParams(),
	}
}

type voiceEventKind uint8

const (
	eventNoteOn voiceEventKind = iota
	eventNoteOff
)

type voiceEvent struct {
	kind     voiceEventKind
	note     int
	velocity float32
}

// Voice is a monophonic synthesizer voice: oscillator into a state variable
// filter whose cutoff follows its own ADSR, shaped by an amplitude ADSR.
//
// A new note-on retriggers the voice. Note-off only starts the release
// stage; the note ends when the amplitude envelope returns to idle, and the
// reverb tail keeps sounding until it has decayed.
type Voice struct {
	graph.Lifecycle
	name string

	events  chan voiceEvent
	params  atomic.Pointer[VoiceParams]
	current atomic.Pointer[VoiceParams]
	stop    atomic.Bool

	// published by the render thread
	ampStage   atomic.Int32
	activeNote atomic.Int32
	clipped    atomic.Uint64

	// render-thread state
	osc       *dsp.Oscillator
	filter    *dsp.Filter
	ampEnv    *dsp.ADSR
	filterEnv *dsp.ADSR
	gain      *dsp.Gain
	reverb    *dsp.Reverb
	note      int
	velocity  float32
}

// NewVoice creates a voice with DefaultVoiceParams.
func NewVoice(name string) *Voice {
	gain, _ := dsp.NewGain(VoiceOutputGain)
	v := &Voice{
		name:      name,
		events:    make(chan voiceEvent, voiceEventQueue),
		osc:       dsp.NewOscillator(),
		filter:    dsp.NewFilter(),
		ampEnv:    dsp.NewADSR(),
		filterEnv: dsp.NewADSR(),
		gain:      gain,
		reverb:    dsp.NewReverb(),
		note:      -1,
	}
	v.activeNote.Store(-1)
	v.apply(DefaultVoiceParams())
	return v
}

func (v *Voice) Name() string    { return "voice:" + v.name }
func (v *Voice) NumInputs() int  { return 0 }
func (v *Voice) NumOutputs() int { return 1 }

func (v *Voice) Prepare(sampleRate float64, _, _ int) error {
	v.osc.Prepare(sampleRate)
	v.filter.Prepare(sampleRate, 1)
	v.ampEnv.Prepare(sampleRate)
	v.filterEnv.Prepare(sampleRate)
	v.reverb.Prepare(sampleRate)
	v.note = -1
	v.activeNote.Store(-1)
	v.ampStage.Store(int32(dsp.StageIdle))
	v.SetState(graph.StatePrepared)
	return nil
}

// SetParams replaces the voice sound. It takes effect at the next block.
func (v *Voice) SetParams(p VoiceParams) {
	v.params.Store(&p)
	v.current.Store(&p)
}

// Params returns the most recently set parameters.
func (v *Voice) Params() VoiceParams {
	if p := v.current.Load(); p != nil {
		return *p
	}
	return DefaultVoiceParams()
}

// NoteOn queues a note-on for the render thread. It retriggers the voice if
// another note is sounding.
//
// Parameters:
//   - note: MIDI note number
//   - velocity: level in (0, 1]; anything outside plays at full level
//
// Returns:
//   - error: ErrEventQueueFull if the render thread is behind
func (v *Voice) NoteOn(note int, velocity float32) error {
	if velocity <= 0 || velocity > 1 {
		velocity = 1
	}
	return v.enqueue(voiceEvent{kind: eventNoteOn, note: note, velocity: velocity})
}

// NoteOff queues a note-off. It releases the voice only if note is the one
// sounding when the event is applied.
func (v *Voice) NoteOff(note int) error {
	return v.enqueue(voiceEvent{kind: eventNoteOff, note: note})
}

func (v *Voice) enqueue(ev voiceEvent) error {
	select {
	case v.events <- ev:
		return nil
	default:
		logrus.WithFields(logrus.Fields{
			"function": "Voice.enqueue",
			"voice":    v.name,
			"note":     ev.note,
		}).Warn("Voice event queue full, dropping event")
		return ErrEventQueueFull
	}
}

// Start is a no-op; voices sound on note-on.
func (v *Voice) Start() error { return nil }

// Stop silences the voice at the next block, skipping the release stage.
func (v *Voice) Stop() {
	v.stop.Store(true)
}

// OneShot reports false.
func (v *Voice) OneShot() bool { return false }

// AmpStage returns the amplitude envelope stage as of the last block.
func (v *Voice) AmpStage() dsp.Stage {
	return dsp.Stage(v.ampStage.Load())
}

// ActiveNote returns the sounding note, or -1.
func (v *Voice) ActiveNote() int {
	return int(v.activeNote.Load())
}

// Clipped returns how many output samples hit the clip limit.
func (v *Voice) Clipped() uint64 {
	return v.clipped.Load()
}

func (v *Voice) apply(p VoiceParams) {
	v.osc.SetParams(p.Oscillator)
	v.filter.SetParams(p.Filter)
	v.ampEnv.SetParams(p.AmpEnv)
	v.filterEnv.SetParams(p.FilterEnv)
	v.reverb.SetParams(p.Reverb)
}

func (v *Voice) Process(buf *graph.Buffer) {
	if p := v.params.Swap(nil); p != nil {
		v.apply(*p)
	}
	if v.stop.Swap(false) {
		v.hardReset()
	}

drain:
	for {
		select {
		case ev := <-v.events:
			v.handle(ev)
		default:
			break drain
		}
	}

	out := buf.Channel(0)
	if !v.ampEnv.Active() && !v.reverb.Ringing() {
		clear(out)
		v.publish()
		return
	}

	for i := range out {
		if !v.ampEnv.Active() {
			out[i] = 0
			continue
		}
		v.filter.SetModulator(v.filterEnv.Next())
		s := v.filter.ProcessSample(0, v.osc.Next())
		out[i] = s * v.ampEnv.Next() * v.velocity
	}
	v.clipped.Add(uint64(v.gain.Process(out)))
	v.reverb.Process(out)
	v.publish()
}

func (v *Voice) handle(ev voiceEvent) {
	switch ev.kind {
	case eventNoteOn:
		v.note = ev.note
		v.velocity = ev.velocity
		v.osc.SetNote(ev.note)
		v.ampEnv.NoteOn()
		v.filterEnv.NoteOn()
	case eventNoteOff:
		if ev.note == v.note {
			v.ampEnv.NoteOff()
			v.filterEnv.NoteOff()
		}
	}
}

func (v *Voice) publish() {
	stage := v.ampEnv.Stage()
	v.ampStage.Store(int32(stage))
	if stage == dsp.StageIdle {
		v.note = -1
		if v.State() == graph.StatePlaying {
			v.SetState(graph.StatePrepared)
		}
	} else if v.State() == graph.StatePrepared {
		v.SetState(graph.StatePlaying)
	}
	v.activeNote.Store(int32(v.note))
}

func (v *Voice) hardReset() {
	v.ampEnv.Reset()
	v.filterEnv.Reset()
	v.filter.Reset()
	v.reverb.Reset()
	v.osc.Reset()
	v.note = -1
	for {
		select {
		case <-v.events:
		default:
			return
		}
	}
}

func (v *Voice) Reset() {
	v.stop.Store(true)
}

func (v *Voice) Release() {}
