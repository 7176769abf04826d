package graph

// Buffer is a planar block of float32 audio, one slice per channel.
//
// The capacity is fixed at construction; Frames may shrink the visible
// length for short blocks without reallocating.
type Buffer struct {
	channels [][]float32
	frames   int
}

// NewBuffer allocates a buffer of channels x frames samples.
func NewBuffer(channels, frames int) *Buffer {
	b := &Buffer{channels: make([][]float32, channels), frames: frames}
	for i := range b.channels {
		b.channels[i] = make([]float32, frames)
	}
	return b
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int { return len(b.channels) }

// Frames returns the number of valid frames in each channel.
func (b *Buffer) Frames() int { return b.frames }

// Channel returns the samples of channel ch, or nil when out of range.
func (b *Buffer) Channel(ch int) []float32 {
	if ch < 0 || ch >= len(b.channels) {
		return nil
	}
	return b.channels[ch][:b.frames]
}

// SetFrames changes the visible length, bounded by capacity.
func (b *Buffer) SetFrames(n int) {
	if n < 0 {
		n = 0
	}
	for _, c := range b.channels {
		if cap(c) < n {
			n = cap(c)
		}
	}
	b.frames = n
}

// Clear zeroes every channel.
func (b *Buffer) Clear() {
	for i := range b.channels {
		clear(b.channels[i][:b.frames])
	}
}

// ClearChannel zeroes one channel.
func (b *Buffer) ClearChannel(ch int) {
	if c := b.Channel(ch); c != nil {
		clear(c)
	}
}

// Interleave writes the buffer into dst as interleaved frames and returns
// the number of samples written.
func (b *Buffer) Interleave(dst []float32) int {
	nch := len(b.channels)
	if nch == 0 {
		return 0
	}
	frames := b.frames
	if len(dst)/nch < frames {
		frames = len(dst) / nch
	}
	for ch, c := range b.channels {
		for i := 0; i < frames; i++ {
			dst[i*nch+ch] = c[i]
		}
	}
	return frames * nch
}

// Deinterleave fills the buffer from interleaved src and sets Frames to the
// number of complete frames copied.
func (b *Buffer) Deinterleave(src []float32) {
	nch := len(b.channels)
	if nch == 0 {
		return
	}
	b.SetFrames(len(src) / nch)
	for ch, c := range b.channels {
		for i := 0; i < b.frames; i++ {
			c[i] = src[i*nch+ch]
		}
	}
}

// view points v at frames [off, off+n) of b without allocating. v must have
// been created with at least as many channel slots as b.
func (b *Buffer) view(v *Buffer, off, n int) {
	v.channels = v.channels[:cap(v.channels)]
	count := len(b.channels)
	if count > len(v.channels) {
		count = len(v.channels)
	}
	for i := 0; i < count; i++ {
		v.channels[i] = b.channels[i][off : off+n]
	}
	v.channels = v.channels[:count]
	v.frames = n
}
