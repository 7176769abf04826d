package transport

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/opd-ai/beak/limits"
)

// Waveform is the Oscillator.type enum.
type Waveform int32

const (
	WaveformSine Waveform = iota
	WaveformSaw
	WaveformSquare
)

// FilterType is the Filter.type enum.
type FilterType int32

const (
	FilterLowpass FilterType = iota
	FilterBandpass
	FilterHighpass
)

// SynthEvent is the SynthFrame.event enum.
type SynthEvent int32

const (
	SynthConfig SynthEvent = iota
	SynthNoteOn
	SynthNoteOff
)

// String returns the protobuf enum value name.
func (e SynthEvent) String() string {
	switch e {
	case SynthConfig:
		return "CONFIG"
	case SynthNoteOn:
		return "NOTE_ON"
	case SynthNoteOff:
		return "NOTE_OFF"
	default:
		return fmt.Sprintf("EVENT(%d)", int32(e))
	}
}

// AudioFrame plays the asset at URI on Channel.
type AudioFrame struct {
	URI     string
	Channel uint32
}

// Oscillator configures a synth oscillator.
type Oscillator struct {
	Type Waveform
	Gain float32 // dB, 0 is unity
}

// ADSR is an envelope in seconds (sustain is a level).
type ADSR struct {
	Attack  float32
	Decay   float32
	Sustain float32
	Release float32
}

// Filter configures a synth filter.
type Filter struct {
	Type      FilterType
	Cutoff    float32
	Resonance float32
}

// SynthFrame is a synth note or configuration event. Duration is in
// milliseconds; zero means the note is held until note-off.
type SynthFrame struct {
	Channel    uint32
	Event      SynthEvent
	Note       uint32
	Velocity   float32
	Duration   uint32
	Osc        *Oscillator
	AmpADSR    *ADSR
	Filter     *Filter
	FilterADSR *ADSR
}

// CacheSamples asks the server to prefetch URIs.
type CacheSamples struct {
	URIs []string
}

// StopPlayback silences a channel.
type StopPlayback struct {
	Channel uint32
}

// Packet is one control message. Content selects which field is set.
type Packet struct {
	Content      ContentType
	AudioFrame   *AudioFrame
	SynthFrame   *SynthFrame
	CacheSamples *CacheSamples
	StopPlayback *StopPlayback
	// Raw is the encoded body of content types without a Go model.
	Raw []byte
}

// NewAudioFrame builds an audio_frame packet.
func NewAudioFrame(uri string, channel uint32) *Packet {
	return &Packet{Content: ContentAudioFrame, AudioFrame: &AudioFrame{URI: uri, Channel: channel}}
}

// NewSynthFrame builds a synth_frame packet.
func NewSynthFrame(f *SynthFrame) *Packet {
	return &Packet{Content: ContentSynthFrame, SynthFrame: f}
}

// NewCacheSamples builds a cache_samples packet.
func NewCacheSamples(uris ...string) *Packet {
	return &Packet{Content: ContentCacheSamples, CacheSamples: &CacheSamples{URIs: uris}}
}

// NewStopPlayback builds a stop_playback packet.
func NewStopPlayback(channel uint32) *Packet {
	return &Packet{Content: ContentStopPlayback, StopPlayback: &StopPlayback{Channel: channel}}
}

// Marshal encodes p in protobuf wire format.
func (p *Packet) Marshal() ([]byte, error) {
	var body []byte
	switch p.Content {
	case ContentAudioFrame:
		if p.AudioFrame == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, p.Content)
		}
		body = p.AudioFrame.append(nil)
	case ContentSynthFrame:
		if p.SynthFrame == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, p.Content)
		}
		body = p.SynthFrame.append(nil)
	case ContentCacheSamples:
		if p.CacheSamples == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, p.Content)
		}
		body = p.CacheSamples.append(nil)
	case ContentStopPlayback:
		if p.StopPlayback == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, p.Content)
		}
		body = p.StopPlayback.append(nil)
	case ContentNone:
		return nil, ErrNoContent
	default:
		if p.Content < ContentNone || p.Content > maxContentType {
			return nil, fmt.Errorf("%w: unknown content type %d", ErrMalformedPacket, int(p.Content))
		}
		body = p.Raw
	}

	b := appendMessage(nil, protowire.Number(p.Content), body)
	if len(b) > limits.MaxDatagramSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrPacketTooLarge, len(b), limits.MaxDatagramSize)
	}
	return b, nil
}

func (m *AudioFrame) append(b []byte) []byte {
	b = appendString(b, 1, m.URI)
	return appendVarint(b, 2, uint64(m.Channel))
}

func (m *Oscillator) append(b []byte) []byte {
	b = appendVarint(b, 1, uint64(int64(m.Type)))
	return appendFloat(b, 2, m.Gain)
}

func (m *ADSR) append(b []byte) []byte {
	b = appendFloat(b, 1, m.Attack)
	b = appendFloat(b, 2, m.Decay)
	b = appendFloat(b, 3, m.Sustain)
	return appendFloat(b, 4, m.Release)
}

func (m *Filter) append(b []byte) []byte {
	b = appendVarint(b, 1, uint64(int64(m.Type)))
	b = appendFloat(b, 2, m.Cutoff)
	return appendFloat(b, 3, m.Resonance)
}

func (m *SynthFrame) append(b []byte) []byte {
	b = appendVarint(b, 1, uint64(m.Channel))
	b = appendVarint(b, 2, uint64(int64(m.Event)))
	b = appendVarint(b, 3, uint64(m.Note))
	b = appendFloat(b, 4, m.Velocity)
	b = appendVarint(b, 5, uint64(m.Duration))
	if m.Osc != nil {
		b = appendMessage(b, 6, m.Osc.append(nil))
	}
	if m.AmpADSR != nil {
		b = appendMessage(b, 7, m.AmpADSR.append(nil))
	}
	if m.Filter != nil {
		b = appendMessage(b, 8, m.Filter.append(nil))
	}
	if m.FilterADSR != nil {
		b = appendMessage(b, 9, m.FilterADSR.append(nil))
	}
	return b
}

func (m *CacheSamples) append(b []byte) []byte {
	for _, uri := range m.URIs {
		// repeated fields keep empty elements
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, uri)
	}
	return b
}

func (m *StopPlayback) append(b []byte) []byte {
	return appendVarint(b, 1, uint64(m.Channel))
}

// Scalar fields at their zero value are omitted, as proto3 does.

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}
