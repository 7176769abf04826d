package device

import (
	"sync"

	"github.com/opd-ai/beak/graph"
)

// Manual renders blocks only when Render is called.
type Manual struct {
	mu      sync.Mutex
	spec    Spec
	open    bool
	running bool
	slot    callbackSlot
	buf     *graph.Buffer
	input   func(buf *graph.Buffer)
	output  func(buf *graph.Buffer)
}

// NewManual creates a manual device.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Open(spec Spec) error {
	spec = spec.withDefaults()
	if err := spec.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spec = spec
	m.buf = graph.NewBuffer(channelsFor(spec), spec.BlockSize)
	m.open = true
	return nil
}

func (m *Manual) SampleRate() int { m.mu.Lock(); defer m.mu.Unlock(); return m.spec.SampleRate }
func (m *Manual) BlockSize() int  { m.mu.Lock(); defer m.mu.Unlock(); return m.spec.BlockSize }
func (m *Manual) NumInputs() int  { m.mu.Lock(); defer m.mu.Unlock(); return m.spec.Inputs }
func (m *Manual) NumOutputs() int { m.mu.Lock(); defer m.mu.Unlock(); return m.spec.Outputs }

func (m *Manual) SetCallback(cb Callback) { m.slot.set(cb) }

// OnInput installs a function that fills the device input before each block.
func (m *Manual) OnInput(fn func(buf *graph.Buffer)) {
	m.mu.Lock()
	m.input = fn
	m.mu.Unlock()
}

// OnOutput installs a function that receives the rendered output of each
// block.
func (m *Manual) OnOutput(fn func(buf *graph.Buffer)) {
	m.mu.Lock()
	m.output = fn
	m.mu.Unlock()
}

func (m *Manual) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrNotOpen
	}
	m.running = true
	return nil
}

func (m *Manual) Stop() error {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	return nil
}

func (m *Manual) Close() error {
	m.Stop()
	m.slot.set(nil)
	m.mu.Lock()
	m.open = false
	m.mu.Unlock()
	return nil
}

// Render runs n blocks synchronously and returns how many ran. Nothing runs
// unless the device is started.
func (m *Manual) Render(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return 0
	}
	for i := 0; i < n; i++ {
		m.buf.SetFrames(m.spec.BlockSize)
		m.buf.Clear()
		if m.input != nil {
			m.input(m.buf)
		}
		m.slot.run(m.buf)
		if m.output != nil {
			m.output(m.buf)
		}
	}
	return n
}
