package nodes

import (
	"fmt"

	"github.com/opd-ai/beak/graph"
)

// IO exchanges audio with the device. An output IO has inputs only and mixes
// them into the device output; an input IO has outputs only and copies the
// device input into them.
type IO struct {
	graph.Lifecycle
	inputs  int
	outputs int
}

// NewOutput creates a device output with n input channels.
func NewOutput(n int) *IO {
	return &IO{inputs: n}
}

// NewInput creates a device input with n output channels.
func NewInput(n int) *IO {
	return &IO{outputs: n}
}

func (n *IO) Name() string {
	if n.inputs > 0 {
		return fmt.Sprintf("output[%d]", n.inputs)
	}
	return fmt.Sprintf("input[%d]", n.outputs)
}

func (n *IO) NumInputs() int  { return n.inputs }
func (n *IO) NumOutputs() int { return n.outputs }

func (n *IO) Prepare(float64, int, int) error {
	n.SetState(graph.StatePrepared)
	return nil
}

// Process is unused; the graph calls ProcessHost for IO nodes.
func (n *IO) Process(*graph.Buffer) {}

// ProcessHost moves audio between the graph and the device buffers.
func (n *IO) ProcessHost(buf, hostIn, hostOut *graph.Buffer) {
	for ch := 0; ch < n.inputs && ch < hostOut.NumChannels(); ch++ {
		dst := hostOut.Channel(ch)
		src := buf.Channel(ch)
		for i := range dst {
			dst[i] += src[i]
		}
	}
	for ch := 0; ch < n.outputs; ch++ {
		dst := buf.Channel(ch)
		if src := hostIn.Channel(ch); src != nil {
			copy(dst, src)
		} else {
			clear(dst)
		}
	}
}

func (n *IO) Release() {}
func (n *IO) Reset()   {}
