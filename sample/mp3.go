package sample

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces signed 16-bit little-endian stereo.
const mp3Channels = 2

func decodeMP3(r io.ReadSeeker) (*Buffer, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	var raw []byte
	if n := dec.Length(); n > 0 {
		raw = make([]byte, n)
		read, err := io.ReadFull(dec, raw)
		if err != nil && err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
		raw = raw[:read]
	} else {
		raw, err = io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
	}

	samples := len(raw) / 2
	samples -= samples % mp3Channels
	data := make([]float32, samples)
	for i := range data {
		data[i] = float32(int16(uint16(raw[2*i])|uint16(raw[2*i+1])<<8)) / 32768
	}
	return NewBuffer(data, mp3Channels, dec.SampleRate())
}
