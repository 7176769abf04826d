package nodes

import (
	"github.com/opd-ai/beak/graph"
	"github.com/opd-ai/beak/sample"
)

// cursor reads a sample.Buffer at an arbitrary rate with linear
// interpolation. It is owned by the render thread.
type cursor struct {
	buf  *sample.Buffer
	pos  float64
	step float64
}

func (c *cursor) load(buf *sample.Buffer, graphRate float64) {
	c.buf = buf
	c.pos = 0
	c.step = 1
	if buf != nil && graphRate > 0 {
		c.step = float64(buf.SampleRate()) / graphRate
	}
}

func (c *cursor) rewind() {
	c.pos = 0
}

func (c *cursor) done() bool {
	return c.buf == nil || c.pos >= float64(c.buf.Frames())
}

// read renders up to n frames into the first outputs channels of out and
// returns how many frames were produced before the source ran out. One
// output channel receives a mono mixdown; more receive source channels
// modulo the source channel count.
func (c *cursor) read(out *graph.Buffer, outputs, n int) int {
	if c.buf == nil {
		return 0
	}
	frames := c.buf.Frames()
	srcChannels := c.buf.Channels()

	for i := 0; i < n; i++ {
		if c.pos >= float64(frames) {
			return i
		}
		idx := int(c.pos)
		frac := float32(c.pos - float64(idx))
		next := idx + 1
		if next >= frames {
			next = idx
		}

		if outputs == 1 {
			a, b := c.buf.Mono(idx), c.buf.Mono(next)
			out.Channel(0)[i] = a + (b-a)*frac
		} else {
			for ch := 0; ch < outputs; ch++ {
				src := ch % srcChannels
				a, b := c.buf.At(idx, src), c.buf.At(next, src)
				out.Channel(ch)[i] = a + (b-a)*frac
			}
		}
		c.pos += c.step
	}
	return n
}

func clearFrom(buf *graph.Buffer, channels, from int) {
	for ch := 0; ch < channels; ch++ {
		c := buf.Channel(ch)
		if from < len(c) {
			clear(c[from:])
		}
	}
}
