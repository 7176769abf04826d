package device

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/beak/graph"
)

// Null renders on a ticker at real-time block cadence and discards the
// output.
type Null struct {
	mu     sync.Mutex
	spec   Spec
	open   bool
	slot   callbackSlot
	stop   chan struct{}
	done   chan struct{}
	blocks uint64
}

// NewNull creates a null device.
func NewNull() *Null {
	return &Null{}
}

func (n *Null) Open(spec Spec) error {
	spec = spec.withDefaults()
	if err := spec.validate(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.spec = spec
	n.open = true
	return nil
}

func (n *Null) SampleRate() int { n.mu.Lock(); defer n.mu.Unlock(); return n.spec.SampleRate }
func (n *Null) BlockSize() int  { n.mu.Lock(); defer n.mu.Unlock(); return n.spec.BlockSize }
func (n *Null) NumInputs() int  { n.mu.Lock(); defer n.mu.Unlock(); return n.spec.Inputs }
func (n *Null) NumOutputs() int { n.mu.Lock(); defer n.mu.Unlock(); return n.spec.Outputs }

func (n *Null) SetCallback(cb Callback) { n.slot.set(cb) }

// BlockInterval is the wall-clock duration of one block.
func (n *Null) BlockInterval() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return time.Duration(float64(n.spec.BlockSize) / float64(n.spec.SampleRate) * float64(time.Second))
}

func (n *Null) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.open {
		return ErrNotOpen
	}
	if n.stop != nil {
		return nil
	}
	n.stop = make(chan struct{})
	n.done = make(chan struct{})
	interval := time.Duration(float64(n.spec.BlockSize) / float64(n.spec.SampleRate) * float64(time.Second))
	buf := graph.NewBuffer(channelsFor(n.spec), n.spec.BlockSize)
	go n.loop(interval, buf, n.stop, n.done)

	logrus.WithFields(logrus.Fields{
		"function":    "Null.Start",
		"sample_rate": n.spec.SampleRate,
		"block_size":  n.spec.BlockSize,
		"interval":    interval.String(),
	}).Info("Null audio device started")
	return nil
}

func (n *Null) loop(interval time.Duration, buf *graph.Buffer, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			buf.Clear()
			n.slot.run(buf)
			n.mu.Lock()
			n.blocks++
			n.mu.Unlock()
		}
	}
}

// Blocks returns how many blocks have been rendered.
func (n *Null) Blocks() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.blocks
}

func (n *Null) Stop() error {
	n.mu.Lock()
	stop, done := n.stop, n.done
	n.stop, n.done = nil, nil
	n.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

func (n *Null) Close() error {
	err := n.Stop()
	n.slot.set(nil)
	n.mu.Lock()
	n.open = false
	n.mu.Unlock()
	return err
}
