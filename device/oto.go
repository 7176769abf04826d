//go:build !headless

package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/beak/graph"
)

// otoMaxChannels is the widest layout the oto backend accepts.
const otoMaxChannels = 2

// otoFormat is the stream layout of an oto context.
type otoFormat struct {
	sampleRate int
	channels   int
}

// compatible reports whether a device asking for want can share a context
// running at f.
func (f otoFormat) compatible(want otoFormat) error {
	if f != want {
		return fmt.Errorf("%w: oto context already running at %d Hz with %d channels, requested %d Hz with %d channels",
			ErrOpen, f.sampleRate, f.channels, want.sampleRate, want.channels)
	}
	return nil
}

// oto permits one context per process. It is created by the first Open,
// lives until exit, and every later Open must ask for the same format.
var shared struct {
	mu     sync.Mutex
	ctx    *oto.Context
	format otoFormat
}

func sharedContext(want otoFormat) (*oto.Context, error) {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.ctx != nil {
		if err := shared.format.compatible(want); err != nil {
			return nil, err
		}
		return shared.ctx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   want.sampleRate,
		ChannelCount: want.channels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	<-ready

	shared.ctx = ctx
	shared.format = want
	logrus.WithFields(logrus.Fields{
		"function":    "sharedContext",
		"sample_rate": want.sampleRate,
		"channels":    want.channels,
	}).Debug("Oto context created")
	return ctx, nil
}

// Oto plays the graph output through the system audio device. It has no
// capture path; NumInputs is always zero.
//
// All Oto devices in a process share one oto context. Close releases the
// device's player only; the context stays up so a later Open with the same
// sample rate and output count can reuse it.
type Oto struct {
	mu      sync.Mutex
	spec    Spec
	ctx     *oto.Context
	player  *oto.Player
	slot    callbackSlot
	running bool

	// owned by the oto pull goroutine
	buf     *graph.Buffer
	pending []float32
	scratch []float32
}

// NewOto creates an oto-backed device.
func NewOto() *Oto {
	return &Oto{}
}

func (o *Oto) Open(spec Spec) error {
	spec = spec.withDefaults()
	if err := spec.validate(); err != nil {
		return err
	}
	if spec.Outputs > otoMaxChannels {
		return fmt.Errorf("%w: oto supports at most %d outputs, got %d", ErrOpen, otoMaxChannels, spec.Outputs)
	}
	if spec.Inputs > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Oto.Open",
			"inputs":   spec.Inputs,
		}).Warn("Oto backend has no capture path, inputs will be silent")
		spec.Inputs = 0
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("%w: already open", ErrOpen)
	}
	ctx, err := sharedContext(otoFormat{sampleRate: spec.SampleRate, channels: spec.Outputs})
	if err != nil {
		return err
	}

	o.spec = spec
	o.ctx = ctx
	o.buf = graph.NewBuffer(spec.Outputs, spec.BlockSize)
	o.scratch = make([]float32, spec.BlockSize*spec.Outputs)
	o.player = ctx.NewPlayer(o)

	logrus.WithFields(logrus.Fields{
		"function":    "Oto.Open",
		"name":        spec.Name,
		"sample_rate": spec.SampleRate,
		"block_size":  spec.BlockSize,
		"outputs":     spec.Outputs,
	}).Info("Oto audio device opened")
	return nil
}

func (o *Oto) SampleRate() int { o.mu.Lock(); defer o.mu.Unlock(); return o.spec.SampleRate }
func (o *Oto) BlockSize() int  { o.mu.Lock(); defer o.mu.Unlock(); return o.spec.BlockSize }
func (o *Oto) NumInputs() int  { return 0 }
func (o *Oto) NumOutputs() int { o.mu.Lock(); defer o.mu.Unlock(); return o.spec.Outputs }

func (o *Oto) SetCallback(cb Callback) { o.slot.set(cb) }

// Read implements io.Reader for the oto player, rendering whole blocks and
// serving them as float32 little-endian frames.
func (o *Oto) Read(p []byte) (int, error) {
	n := 0
	for n+4 <= len(p) {
		if len(o.pending) == 0 {
			o.buf.SetFrames(o.spec.BlockSize)
			o.buf.Clear()
			o.slot.run(o.buf)
			written := o.buf.Interleave(o.scratch)
			o.pending = o.scratch[:written]
		}
		binary.LittleEndian.PutUint32(p[n:], math.Float32bits(o.pending[0]))
		o.pending = o.pending[1:]
		n += 4
	}
	return n, nil
}

func (o *Oto) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return ErrNotOpen
	}
	if !o.running {
		o.player.Play()
		o.running = true
	}
	return nil
}

func (o *Oto) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running && o.player != nil {
		o.player.Pause()
		o.running = false
	}
	return nil
}

// Close releases the player. The shared context is left running.
func (o *Oto) Close() error {
	o.Stop()
	o.slot.set(nil)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		err := o.player.Close()
		o.player = nil
		return err
	}
	return nil
}
