package nodes

import (
	"fmt"
	"sync/atomic"

	"github.com/opd-ai/beak/graph"
	"github.com/opd-ai/beak/sample"
)

// Sampler is a persistent multi-shot player. Each Trigger replaces the
// buffer and restarts playback from the top. It never finishes: when the
// buffer runs out it returns to StatePrepared and waits for the next
// trigger.
type Sampler struct {
	graph.Lifecycle
	name    string
	outputs int

	pending atomic.Pointer[sample.Buffer]
	restart atomic.Bool
	stop    atomic.Bool
	lastBuf atomic.Pointer[sample.Buffer]

	cur  cursor
	rate float64
}

// NewSampler creates a sampler with the given number of outputs.
func NewSampler(name string, outputs int) *Sampler {
	if outputs < 1 {
		outputs = 1
	}
	return &Sampler{name: name, outputs: outputs}
}

func (s *Sampler) Name() string    { return "sampler:" + s.name }
func (s *Sampler) NumInputs() int  { return 0 }
func (s *Sampler) NumOutputs() int { return s.outputs }

func (s *Sampler) Prepare(sampleRate float64, _, _ int) error {
	s.rate = sampleRate
	s.cur.load(nil, sampleRate)
	s.SetState(graph.StatePrepared)
	return nil
}

// Trigger hands buf to the render thread; playback starts at the next block.
func (s *Sampler) Trigger(buf *sample.Buffer) error {
	if buf == nil {
		return ErrNilBuffer
	}
	if st := s.State(); st == graph.StateIdle {
		return fmt.Errorf("%w: %s", ErrNotPrepared, s.Name())
	}
	s.lastBuf.Store(buf)
	s.pending.Store(buf)
	return nil
}

// Start replays the most recently triggered buffer.
func (s *Sampler) Start() error {
	if s.lastBuf.Load() == nil {
		return fmt.Errorf("%w: %s has nothing to play", ErrNotPrepared, s.Name())
	}
	s.restart.Store(true)
	return nil
}

// Stop silences the sampler at the next block.
func (s *Sampler) Stop() {
	s.pending.Store(nil)
	s.stop.Store(true)
}

// OneShot reports false.
func (s *Sampler) OneShot() bool { return false }

func (s *Sampler) Process(buf *graph.Buffer) {
	if s.stop.Swap(false) {
		s.cur.load(nil, s.rate)
		s.SetState(graph.StatePrepared)
	}
	if next := s.pending.Swap(nil); next != nil {
		s.cur.load(next, s.rate)
		s.SetState(graph.StatePlaying)
	} else if s.restart.Swap(false) {
		if last := s.lastBuf.Load(); last != nil {
			s.cur.load(last, s.rate)
			s.SetState(graph.StatePlaying)
		}
	}

	if s.State() != graph.StatePlaying {
		clearFrom(buf, s.outputs, 0)
		return
	}
	written := s.cur.read(buf, s.outputs, buf.Frames())
	clearFrom(buf, s.outputs, written)
	if s.cur.done() {
		s.SetState(graph.StatePrepared)
	}
}

func (s *Sampler) Reset() {
	s.cur.rewind()
}

func (s *Sampler) Release() {
	s.cur.buf = nil
	s.pending.Store(nil)
	s.lastBuf.Store(nil)
}
