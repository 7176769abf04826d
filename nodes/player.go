package nodes

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/beak/graph"
	"github.com/opd-ai/beak/sample"
)

// Player is a one-shot playback node. It plays its buffer once from the
// start and then moves to StateFinished; the owner is expected to remove it.
//
// When the buffer rate differs from the graph rate the buffer is streamed
// through linear interpolation.
type Player struct {
	graph.Lifecycle
	name    string
	outputs int
	source  *sample.Buffer
	cur     cursor
	rate    float64
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithOutputs sets the number of output channels. One channel (the default)
// mixes the source down to mono.
func WithOutputs(n int) PlayerOption {
	return func(p *Player) {
		if n > 0 {
			p.outputs = n
		}
	}
}

// NewPlayer creates a player for buf.
func NewPlayer(buf *sample.Buffer, name string, opts ...PlayerOption) (*Player, error) {
	if buf == nil {
		return nil, ErrNilBuffer
	}
	p := &Player{name: name, outputs: 1, source: buf}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewPlayerFromFile decodes path and creates a player for it.
func NewPlayerFromFile(path string, opts ...PlayerOption) (*Player, error) {
	buf, err := sample.Decode(path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewPlayerFromFile",
			"path":     path,
			"error":    err.Error(),
		}).Warn("Cannot create player from file")
		return nil, fmt.Errorf("player: %w", err)
	}
	return NewPlayer(buf, path, opts...)
}

func (p *Player) Name() string    { return "player:" + p.name }
func (p *Player) NumInputs() int  { return 0 }
func (p *Player) NumOutputs() int { return p.outputs }

// Source returns the buffer being played.
func (p *Player) Source() *sample.Buffer { return p.source }

// Prepare rewinds the player and sets the graph rate.
func (p *Player) Prepare(sampleRate float64, _, _ int) error {
	p.rate = sampleRate
	p.cur.load(p.source, sampleRate)
	p.SetState(graph.StatePrepared)
	return nil
}

// Start begins playback.
func (p *Player) Start() error {
	if !p.Transition(graph.StatePrepared, graph.StatePlaying) {
		return fmt.Errorf("%w: %s is %s", ErrNotPrepared, p.Name(), p.State())
	}
	return nil
}

// Stop ends playback early. The player reports StateFinished so its owner
// removes it like any exhausted one-shot.
func (p *Player) Stop() {
	for {
		s := p.State()
		if s == graph.StateFinished || p.Transition(s, graph.StateFinished) {
			return
		}
	}
}

// OneShot reports true.
func (p *Player) OneShot() bool { return true }

func (p *Player) Process(buf *graph.Buffer) {
	n := buf.Frames()
	if p.State() != graph.StatePlaying {
		clearFrom(buf, p.outputs, 0)
		return
	}
	written := p.cur.read(buf, p.outputs, n)
	clearFrom(buf, p.outputs, written)
	if p.cur.done() {
		p.Transition(graph.StatePlaying, graph.StateFinished)
	}
}

// Reset rewinds the read position.
func (p *Player) Reset() {
	p.cur.rewind()
}

// Release drops the buffer reference.
func (p *Player) Release() {
	p.cur.buf = nil
}
