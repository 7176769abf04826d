package transport

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/opd-ai/beak/limits"
)

// field is one decoded protobuf field.
type field struct {
	num     protowire.Number
	typ     protowire.Type
	varint  uint64
	fixed32 uint32
	bytes   []byte
}

func (f field) asUint32() (uint32, bool) {
	return uint32(f.varint), f.typ == protowire.VarintType
}

func (f field) asEnum() (int32, bool) {
	return int32(f.varint), f.typ == protowire.VarintType
}

func (f field) asFloat() (float32, bool) {
	return math.Float32frombits(f.fixed32), f.typ == protowire.Fixed32Type
}

func (f field) asBytes() ([]byte, bool) {
	return f.bytes, f.typ == protowire.BytesType
}

// walk calls fn for every field of a message. Groups and fixed64 fields are
// skipped; no modelled message uses them.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedPacket, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			f.fixed32, n = protowire.ConsumeFixed32(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformedPacket, num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// ParsePacket decodes one datagram. Fields with a wire type other than the
// one declared are ignored, as are unknown fields. When several content
// fields are present the last one wins.
func ParsePacket(data []byte) (*Packet, error) {
	if err := limits.ValidateDatagram(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPacket, err)
	}

	p := &Packet{}
	err := walk(data, func(f field) error {
		ct := ContentType(f.num)
		if ct <= ContentNone || ct > maxContentType {
			return nil
		}
		body, ok := f.asBytes()
		if !ok {
			return nil
		}
		return p.setContent(ct, body)
	})
	if err != nil {
		return nil, err
	}
	if p.Content == ContentNone {
		return nil, ErrNoContent
	}
	return p, nil
}

func (p *Packet) setContent(ct ContentType, body []byte) error {
	*p = Packet{Content: ct}
	var err error
	switch ct {
	case ContentAudioFrame:
		p.AudioFrame, err = parseAudioFrame(body)
	case ContentSynthFrame:
		p.SynthFrame, err = parseSynthFrame(body)
	case ContentCacheSamples:
		p.CacheSamples, err = parseCacheSamples(body)
	case ContentStopPlayback:
		p.StopPlayback, err = parseStopPlayback(body)
	default:
		p.Raw = append([]byte(nil), body...)
	}
	return err
}

func parseAudioFrame(b []byte) (*AudioFrame, error) {
	m := &AudioFrame{}
	return m, walk(b, func(f field) error {
		switch f.num {
		case 1:
			if v, ok := f.asBytes(); ok {
				m.URI = string(v)
			}
		case 2:
			if v, ok := f.asUint32(); ok {
				m.Channel = v
			}
		}
		return nil
	})
}

func parseOscillator(b []byte) (*Oscillator, error) {
	m := &Oscillator{}
	return m, walk(b, func(f field) error {
		switch f.num {
		case 1:
			if v, ok := f.asEnum(); ok {
				m.Type = Waveform(v)
			}
		case 2:
			if v, ok := f.asFloat(); ok {
				m.Gain = v
			}
		}
		return nil
	})
}

func parseADSR(b []byte) (*ADSR, error) {
	m := &ADSR{}
	return m, walk(b, func(f field) error {
		v, ok := f.asFloat()
		if !ok {
			return nil
		}
		switch f.num {
		case 1:
			m.Attack = v
		case 2:
			m.Decay = v
		case 3:
			m.Sustain = v
		case 4:
			m.Release = v
		}
		return nil
	})
}

func parseFilter(b []byte) (*Filter, error) {
	m := &Filter{}
	return m, walk(b, func(f field) error {
		switch f.num {
		case 1:
			if v, ok := f.asEnum(); ok {
				m.Type = FilterType(v)
			}
		case 2:
			if v, ok := f.asFloat(); ok {
				m.Cutoff = v
			}
		case 3:
			if v, ok := f.asFloat(); ok {
				m.Resonance = v
			}
		}
		return nil
	})
}

func parseSynthFrame(b []byte) (*SynthFrame, error) {
	m := &SynthFrame{}
	return m, walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			if v, ok := f.asUint32(); ok {
				m.Channel = v
			}
		case 2:
			if v, ok := f.asEnum(); ok {
				m.Event = SynthEvent(v)
			}
		case 3:
			if v, ok := f.asUint32(); ok {
				m.Note = v
			}
		case 4:
			if v, ok := f.asFloat(); ok {
				m.Velocity = v
			}
		case 5:
			if v, ok := f.asUint32(); ok {
				m.Duration = v
			}
		case 6:
			if v, ok := f.asBytes(); ok {
				m.Osc, err = parseOscillator(v)
			}
		case 7:
			if v, ok := f.asBytes(); ok {
				m.AmpADSR, err = parseADSR(v)
			}
		case 8:
			if v, ok := f.asBytes(); ok {
				m.Filter, err = parseFilter(v)
			}
		case 9:
			if v, ok := f.asBytes(); ok {
				m.FilterADSR, err = parseADSR(v)
			}
		}
		return err
	})
}

func parseCacheSamples(b []byte) (*CacheSamples, error) {
	m := &CacheSamples{}
	return m, walk(b, func(f field) error {
		if f.num == 1 {
			if v, ok := f.asBytes(); ok {
				m.URIs = append(m.URIs, string(v))
			}
		}
		return nil
	})
}

func parseStopPlayback(b []byte) (*StopPlayback, error) {
	m := &StopPlayback{}
	return m, walk(b, func(f field) error {
		if f.num == 1 {
			if v, ok := f.asUint32(); ok {
				m.Channel = v
			}
		}
		return nil
	})
}
