package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/beak/dsp"
	"github.com/opd-ai/beak/engine"
	"github.com/opd-ai/beak/graph"
	"github.com/opd-ai/beak/nodes"
	"github.com/opd-ai/beak/sample"
	"github.com/opd-ai/beak/transport"
)

// Engine is the playback surface the handlers drive.
type Engine interface {
	PlaySound(buf *sample.Buffer, channel int, name string) (graph.NodeID, error)
	PlaySynth(ev engine.NoteEvent, maxDuration time.Duration) error
	ConfigureSynth(channel int, p nodes.VoiceParams) error
	SynthParams(channel int) (nodes.VoiceParams, error)
	StopPlayback(channel int) error
}

// Assets resolves URIs to decoded audio.
type Assets interface {
	Get(ctx context.Context, uri string) (*sample.Buffer, error)
	CacheFile(ctx context.Context, uri string, checkVersion bool) error
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxNoteDuration caps timed synth notes.
func WithMaxNoteDuration(d time.Duration) Option {
	return func(h *Handler) {
		h.maxNoteDuration = d
	}
}

// Handler implements the server side of the control protocol.
type Handler struct {
	engine          Engine
	assets          Assets
	maxNoteDuration time.Duration
}

// New creates a Handler.
func New(e Engine, a Assets, opts ...Option) *Handler {
	h := &Handler{engine: e, assets: a}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register installs the handlers on srv.
func (h *Handler) Register(srv *transport.Server) {
	srv.RegisterHandler(transport.ContentAudioFrame, h.HandleAudioFrame)
	srv.RegisterHandler(transport.ContentSynthFrame, h.HandleSynthFrame)
	srv.RegisterHandler(transport.ContentCacheSamples, h.HandleCacheSamples)
	srv.RegisterHandler(transport.ContentStopPlayback, h.HandleStopPlayback)
}

// HandleAudioFrame plays the referenced asset once.
func (h *Handler) HandleAudioFrame(ctx context.Context, p *transport.Packet, addr net.Addr) error {
	f := p.AudioFrame
	if f == nil {
		return fmt.Errorf("%w: %s", ErrMissingBody, p.Content)
	}

	buf, err := h.assets.Get(ctx, f.URI)
	if err != nil {
		return fmt.Errorf("audio_frame %q: %w", f.URI, err)
	}
	id, err := h.engine.PlaySound(buf, int(f.Channel), f.URI)
	if err != nil {
		return fmt.Errorf("audio_frame %q: %w", f.URI, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Handler.HandleAudioFrame",
		"uri":         f.URI,
		"channel":     f.Channel,
		"node_id":     id,
		"remote_addr": addr.String(),
	}).Info("Playing asset")

	return nil
}

// HandleSynthFrame applies any sound settings carried by the frame, then
// its note event.
func (h *Handler) HandleSynthFrame(ctx context.Context, p *transport.Packet, addr net.Addr) error {
	f := p.SynthFrame
	if f == nil {
		return fmt.Errorf("%w: %s", ErrMissingBody, p.Content)
	}
	channel := int(f.Channel)

	if hasParams(f) {
		current, err := h.engine.SynthParams(channel)
		if err != nil {
			return fmt.Errorf("synth_frame: %w", err)
		}
		params, err := VoiceParams(current, f)
		if err != nil {
			return err
		}
		if err := h.engine.ConfigureSynth(channel, params); err != nil {
			return fmt.Errorf("synth_frame: %w", err)
		}
	}

	ev := engine.NoteEvent{
		Channel:  channel,
		Note:     int(f.Note),
		Velocity: f.Velocity,
		Duration: time.Duration(f.Duration) * time.Millisecond,
	}
	switch f.Event {
	case transport.SynthConfig:
		if !hasParams(f) {
			logrus.WithFields(logrus.Fields{
				"function":    "Handler.HandleSynthFrame",
				"channel":     channel,
				"remote_addr": addr.String(),
			}).Debug("Config frame without settings")
		}
		return nil
	case transport.SynthNoteOn:
		ev.Type = engine.EventNoteOn
	case transport.SynthNoteOff:
		ev.Type = engine.EventNoteOff
	default:
		return fmt.Errorf("%w: event %s", ErrInvalidParams, f.Event)
	}

	if err := h.engine.PlaySynth(ev, h.maxNoteDuration); err != nil {
		return fmt.Errorf("synth_frame: %w", err)
	}
	return nil
}

// HandleCacheSamples prefetches every URI, revalidating cached remote
// assets. All URIs are attempted; the errors are joined.
func (h *Handler) HandleCacheSamples(ctx context.Context, p *transport.Packet, addr net.Addr) error {
	f := p.CacheSamples
	if f == nil {
		return fmt.Errorf("%w: %s", ErrMissingBody, p.Content)
	}

	var errs []error
	cached := 0
	for _, uri := range f.URIs {
		if err := h.assets.CacheFile(ctx, uri, true); err != nil {
			errs = append(errs, fmt.Errorf("cache_samples %q: %w", uri, err))
			continue
		}
		cached++
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Handler.HandleCacheSamples",
		"requested":   len(f.URIs),
		"cached":      cached,
		"remote_addr": addr.String(),
	}).Info("Prefetched assets")

	return errors.Join(errs...)
}

// HandleStopPlayback silences a channel.
func (h *Handler) HandleStopPlayback(ctx context.Context, p *transport.Packet, addr net.Addr) error {
	f := p.StopPlayback
	if f == nil {
		return fmt.Errorf("%w: %s", ErrMissingBody, p.Content)
	}
	if err := h.engine.StopPlayback(int(f.Channel)); err != nil {
		return fmt.Errorf("stop_playback: %w", err)
	}
	return nil
}

func hasParams(f *transport.SynthFrame) bool {
	return f.Osc != nil || f.AmpADSR != nil || f.Filter != nil || f.FilterADSR != nil
}

// VoiceParams overlays the settings present in f onto base. The wire
// oscillator gain is in dB, so an unset gain means unity.
func VoiceParams(base nodes.VoiceParams, f *transport.SynthFrame) (nodes.VoiceParams, error) {
	p := base
	if f.Osc != nil {
		w, err := waveform(f.Osc.Type)
		if err != nil {
			return base, err
		}
		p.Oscillator = dsp.OscillatorParams{Waveform: w, Gain: dsp.DecibelsToGain(f.Osc.Gain)}
	}
	if f.AmpADSR != nil {
		p.AmpEnv = adsr(f.AmpADSR)
	}
	if f.Filter != nil {
		t, err := filterType(f.Filter.Type)
		if err != nil {
			return base, err
		}
		p.Filter = dsp.FilterParams{Type: t, Cutoff: f.Filter.Cutoff, Resonance: f.Filter.Resonance}
	}
	if f.FilterADSR != nil {
		p.FilterEnv = adsr(f.FilterADSR)
	}
	return p, nil
}

func waveform(w transport.Waveform) (dsp.Waveform, error) {
	switch w {
	case transport.WaveformSine:
		return dsp.WaveformSine, nil
	case transport.WaveformSaw:
		return dsp.WaveformSaw, nil
	case transport.WaveformSquare:
		return dsp.WaveformSquare, nil
	}
	return 0, fmt.Errorf("%w: waveform %d", ErrInvalidParams, int32(w))
}

func filterType(t transport.FilterType) (dsp.FilterType, error) {
	switch t {
	case transport.FilterLowpass:
		return dsp.FilterLowpass, nil
	case transport.FilterBandpass:
		return dsp.FilterBandpass, nil
	case transport.FilterHighpass:
		return dsp.FilterHighpass, nil
	}
	return 0, fmt.Errorf("%w: filter type %d", ErrInvalidParams, int32(t))
}

func adsr(a *transport.ADSR) dsp.ADSRParams {
	return dsp.ADSRParams{Attack: a.Attack, Decay: a.Decay, Sustain: a.Sustain, Release: a.Release}
}
