package sample

import (
	"fmt"
	"io"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

func decodeWAV(r io.ReadSeeker) (*Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidFile
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if pcm == nil || pcm.Format == nil || pcm.Format.NumChannels < 1 {
		return nil, ErrInvalidFile
	}

	// FullPCMBuffer already normalizes every bit depth to [-1, 1].
	data := make([]float32, len(pcm.Data))
	copy(data, pcm.Data)
	return NewBuffer(data, pcm.Format.NumChannels, pcm.Format.SampleRate)
}

// WriteWAV encodes b as 16-bit PCM WAV.
func WriteWAV(w io.WriteSeeker, b *Buffer) error {
	enc := wav.NewEncoder(w, b.SampleRate(), 16, b.Channels(), 1)
	out := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  b.SampleRate(),
			NumChannels: b.Channels(),
		},
		Data:           b.Samples(),
		SourceBitDepth: 16,
	}
	if err := enc.Write(out); err != nil {
		return err
	}
	return enc.Close()
}
