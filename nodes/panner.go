package nodes

import (
	"math"
	"sync/atomic"

	"github.com/opd-ai/beak/graph"
)

// Panner places a mono input in a stereo field with a constant-power law.
type Panner struct {
	graph.Lifecycle
	name     string
	position atomic.Uint32 // float32 bits, 0 = left, 1 = right
}

// NewPanner creates a panner for virtual position index out of count,
// spread evenly from left to right.
func NewPanner(name string, index, count int) *Panner {
	p := &Panner{name: name}
	p.SetPosition(VirtualPosition(index, count))
	return p
}

// VirtualPosition maps index in [0, count) onto [0, 1]. A single position
// is centred.
func VirtualPosition(index, count int) float32 {
	if count <= 1 {
		return 0.5
	}
	return float32(index) / float32(count-1)
}

// SetPosition sets the pan position, clamped to [0, 1].
func (p *Panner) SetPosition(pos float32) {
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	p.position.Store(math.Float32bits(pos))
}

// Position returns the pan position.
func (p *Panner) Position() float32 {
	return math.Float32frombits(p.position.Load())
}

func (p *Panner) Name() string    { return "panner:" + p.name }
func (p *Panner) NumInputs() int  { return 1 }
func (p *Panner) NumOutputs() int { return 2 }

func (p *Panner) Prepare(float64, int, int) error {
	p.SetState(graph.StatePrepared)
	return nil
}

// PanGains returns the left and right gains for pos.
func PanGains(pos float32) (left, right float32) {
	angle := float64(pos) * math.Pi / 2
	return float32(math.Cos(angle)), float32(math.Sin(angle))
}

func (p *Panner) Process(buf *graph.Buffer) {
	l, r := PanGains(p.Position())
	left := buf.Channel(0)
	right := buf.Channel(1)
	for i, x := range left {
		left[i] = x * l
		right[i] = x * r
	}
}

func (p *Panner) Reset()   {}
func (p *Panner) Release() {}
