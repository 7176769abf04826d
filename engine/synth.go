package engine

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/beak/dsp"
	"github.com/opd-ai/beak/limits"
	"github.com/opd-ai/beak/nodes"
)

// EventType selects what a NoteEvent does.
type EventType uint8

const (
	// EventConfig carries no note; used with ConfigureSynth.
	EventConfig EventType = iota
	EventNoteOn
	EventNoteOff
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventConfig:
		return "config"
	case EventNoteOn:
		return "note_on"
	case EventNoteOff:
		return "note_off"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// NoteEvent is a note-on or note-off for a synth channel. A note-on with a
// positive Duration is released automatically once the duration elapses.
type NoteEvent struct {
	Channel  int
	Type     EventType
	Note     int
	Velocity float32
	Duration time.Duration
}

type pendingNote struct {
	note     int
	deadline time.Time
}

// PlaySynth routes ev to the voice of its channel. The channel is clamped
// to the physical outputs. maxDuration caps ev.Duration; zero means the
// configured maximum.
func (e *Engine) PlaySynth(ev NoteEvent, maxDuration time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireConfigured(); err != nil {
		return err
	}

	channel := e.physical.Clamp(ev.Channel)
	idx := e.physical.Index(channel)
	voice := e.voices[idx].voice

	switch ev.Type {
	case EventNoteOn:
		if err := voice.NoteOn(ev.Note, ev.Velocity); err != nil {
			return err
		}
		delete(e.notes, idx)
		if ev.Duration > 0 {
			if maxDuration <= 0 || maxDuration > e.cfg.MaxNoteDuration {
				maxDuration = e.cfg.MaxNoteDuration
			}
			d := limits.ClampNoteDuration(min(ev.Duration, maxDuration))
			e.notes[idx] = pendingNote{note: ev.Note, deadline: e.clock.Now().Add(d)}
		}
	case EventNoteOff:
		if err := voice.NoteOff(ev.Note); err != nil {
			return err
		}
		if p, ok := e.notes[idx]; ok && p.note == ev.Note {
			delete(e.notes, idx)
		}
	case EventConfig:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidEvent, ev.Type)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Engine.PlaySynth",
		"channel":  channel,
		"event":    ev.Type.String(),
		"note":     ev.Note,
		"velocity": ev.Velocity,
		"duration": ev.Duration.String(),
	}).Debug("Routed synth event")

	return nil
}

// TickNotes releases every timed note whose duration has elapsed and
// returns how many were released.
func (e *Engine) TickNotes() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.configured {
		return 0
	}

	now := e.clock.Now()
	released := 0
	for idx, p := range e.notes {
		if now.Before(p.deadline) {
			continue
		}
		if err := e.voices[idx].voice.NoteOff(p.note); err != nil {
			// queue full; retry on the next tick
			continue
		}
		delete(e.notes, idx)
		released++

		logrus.WithFields(logrus.Fields{
			"function": "Engine.TickNotes",
			"channel":  idx + 1,
			"note":     p.note,
		}).Debug("Released timed note")
	}
	return released
}

func (e *Engine) noteLoop(interval time.Duration, stop <-chan struct{}) {
	defer e.wg.Done()
	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.TickNotes()
		}
	}
}

// ConfigureSynth replaces the sound of the voice on channel. It takes
// effect on the next block.
func (e *Engine) ConfigureSynth(channel int, p nodes.VoiceParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireConfigured(); err != nil {
		return err
	}
	if err := e.physical.Validate(channel); err != nil {
		return invalidChannel(err)
	}
	e.voices[e.physical.Index(channel)].voice.SetParams(p)

	logrus.WithFields(logrus.Fields{
		"function":  "Engine.ConfigureSynth",
		"channel":   channel,
		"waveform":  p.Oscillator.Waveform.String(),
		"osc_gain":  p.Oscillator.Gain,
		"filter":    p.Filter.Type.String(),
		"cutoff":    p.Filter.Cutoff,
		"resonance": p.Filter.Resonance,
	}).Debug("Configured synth voice")

	return nil
}

// ConfigureChannelFilter sets the filter on the output bus of channel.
func (e *Engine) ConfigureChannelFilter(channel int, p dsp.FilterParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireConfigured(); err != nil {
		return err
	}
	if err := e.physical.Validate(channel); err != nil {
		return invalidChannel(err)
	}
	e.buses[e.physical.Index(channel)].filter.SetParams(p)

	logrus.WithFields(logrus.Fields{
		"function":  "Engine.ConfigureChannelFilter",
		"channel":   channel,
		"filter":    p.Type.String(),
		"cutoff":    p.Cutoff,
		"resonance": p.Resonance,
	}).Debug("Configured channel filter")

	return nil
}

// VoiceStage returns the amplitude envelope stage of the voice on channel
// as of the last rendered block.
func (e *Engine) VoiceStage(channel int) (dsp.Stage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireConfigured(); err != nil {
		return dsp.StageIdle, err
	}
	if err := e.physical.Validate(channel); err != nil {
		return dsp.StageIdle, invalidChannel(err)
	}
	return e.voices[e.physical.Index(channel)].voice.AmpStage(), nil
}

// SynthParams returns the sound configured for the voice on channel.
func (e *Engine) SynthParams(channel int) (nodes.VoiceParams, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireConfigured(); err != nil {
		return nodes.VoiceParams{}, err
	}
	if err := e.physical.Validate(channel); err != nil {
		return nodes.VoiceParams{}, invalidChannel(err)
	}
	return e.voices[e.physical.Index(channel)].voice.Params(), nil
}
