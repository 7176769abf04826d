package sample

import (
	"errors"
	"fmt"
	"io"

	"github.com/pion/opus"
	"github.com/pion/opus/pkg/oggreader"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/beak/dsp"
)

// OpusRate is the rate decoded Opus assets are normalised to.
const OpusRate = 48000

// maxOpusPacketSamples is 120 ms at 48 kHz, the longest legal Opus packet.
const maxOpusPacketSamples = 5760

func decodeOpus(r io.ReadSeeker) (*Buffer, error) {
	ogg, header, err := oggreader.NewWith(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	decoder := opus.NewDecoder()
	pcm := make([]byte, maxOpusPacketSamples*2*2)

	var (
		out       []float32
		resampler *dsp.Resampler
		rate      int
		channels  int
	)

	for {
		segments, _, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}

		for _, packet := range segments {
			if len(packet) == 0 || isOpusTags(packet) {
				continue
			}

			bandwidth, stereo, err := decoder.Decode(packet, pcm)
			if err != nil {
				return nil, fmt.Errorf("%w: opus: %v", ErrInvalidFile, err)
			}

			pktChannels := 1
			if stereo {
				pktChannels = 2
			}
			pktRate := bandwidth.SampleRate()
			n := packetSamples(packet, pktRate) * pktChannels
			if n*2 > len(pcm) {
				n = len(pcm) / 2
			}

			// the decoder reports rate and layout per packet; reset the
			// resampler whenever they change
			if resampler == nil || pktRate != rate || pktChannels != channels {
				if channels != 0 && resampler != nil {
					out = append(out, resampler.Flush()...)
				}
				if channels != 0 && pktChannels != channels {
					return nil, fmt.Errorf("%w: channel layout changed mid-stream", ErrInvalidFile)
				}
				rate, channels = pktRate, pktChannels
				resampler, err = dsp.NewResampler(dsp.ResamplerConfig{
					InputRate: rate, OutputRate: OpusRate, Channels: channels,
				})
				if err != nil {
					return nil, err
				}
			}

			frame := make([]float32, n)
			for i := range frame {
				frame[i] = float32(int16(uint16(pcm[2*i])|uint16(pcm[2*i+1])<<8)) / 32768
			}
			converted, err := resampler.Resample(frame)
			if err != nil {
				return nil, err
			}
			out = append(out, converted...)
		}
	}

	if resampler != nil {
		out = append(out, resampler.Flush()...)
	}
	if channels == 0 {
		return nil, ErrEmptyBuffer
	}

	// drop the encoder pre-skip, expressed at 48 kHz
	skip := int(header.PreSkip) * channels
	if skip < len(out) {
		out = out[skip:]
	}

	logrus.WithFields(logrus.Fields{
		"function":        "decodeOpus",
		"header_channels": header.Channels,
		"channels":        channels,
		"pre_skip":        header.PreSkip,
		"samples":         len(out),
	}).Debug("Decoded Ogg Opus stream")

	return NewBuffer(out, channels, OpusRate)
}

func isOpusTags(packet []byte) bool {
	return len(packet) >= 8 && string(packet[:8]) == "OpusTags"
}

// packetSamples returns the per-channel sample count of an Opus packet at
// rate, derived from its TOC byte.
func packetSamples(packet []byte, rate int) int {
	toc := packet[0]
	config := toc >> 3

	// frame duration in units of 1/400 s (2.5 ms)
	var units int
	switch {
	case config < 12: // SILK: 10, 20, 40, 60 ms
		units = [4]int{4, 8, 16, 24}[config%4]
	case config < 16: // hybrid: 10, 20 ms
		units = [2]int{4, 8}[config%2]
	default: // CELT: 2.5, 5, 10, 20 ms
		units = [4]int{1, 2, 4, 8}[config%4]
	}

	frames := 1
	switch toc & 0x3 {
	case 1, 2:
		frames = 2
	case 3:
		if len(packet) > 1 {
			frames = int(packet[1] & 0x3f)
		}
	}
	return units * frames * rate / 400
}
