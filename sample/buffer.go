package sample

import (
	"fmt"
	"time"
)

// Buffer is an immutable block of decoded, interleaved float32 audio.
type Buffer struct {
	data       []float32
	channels   int
	sampleRate int
	frames     int
}

// NewBuffer wraps interleaved samples. The slice is owned by the Buffer
// afterwards and must not be modified by the caller.
func NewBuffer(data []float32, channels, sampleRate int) (*Buffer, error) {
	if channels < 1 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: channels=%d sample_rate=%d", ErrInvalidLayout, channels, sampleRate)
	}
	if len(data)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples not divisible by %d channels", ErrInvalidLayout, len(data), channels)
	}
	if len(data) == 0 {
		return nil, ErrEmptyBuffer
	}
	return &Buffer{
		data:       data,
		channels:   channels,
		sampleRate: sampleRate,
		frames:     len(data) / channels,
	}, nil
}

// Channels returns the interleaved channel count.
func (b *Buffer) Channels() int { return b.channels }

// SampleRate returns the sample rate in Hz.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// Frames returns the number of sample frames.
func (b *Buffer) Frames() int { return b.frames }

// Duration returns the playing time at the buffer's own sample rate.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(float64(b.frames) / float64(b.sampleRate) * float64(time.Second))
}

// At returns the sample of channel ch at frame i, or 0 when out of range.
func (b *Buffer) At(i, ch int) float32 {
	if i < 0 || i >= b.frames || ch < 0 || ch >= b.channels {
		return 0
	}
	return b.data[i*b.channels+ch]
}

// Mono returns the average of all channels at frame i, or 0 when out of range.
func (b *Buffer) Mono(i int) float32 {
	if i < 0 || i >= b.frames {
		return 0
	}
	if b.channels == 1 {
		return b.data[i]
	}
	var sum float32
	base := i * b.channels
	for ch := 0; ch < b.channels; ch++ {
		sum += b.data[base+ch]
	}
	return sum / float32(b.channels)
}

// Samples returns the underlying interleaved data. Callers must treat it as
// read-only.
func (b *Buffer) Samples() []float32 {
	return b.data
}

// Equal reports whether two buffers hold identical audio.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == o {
		return true
	}
	if b == nil || o == nil || b.channels != o.channels || b.sampleRate != o.sampleRate || len(b.data) != len(o.data) {
		return false
	}
	for i := range b.data {
		if b.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer{channels=%d rate=%d frames=%d}", b.channels, b.sampleRate, b.frames)
}
