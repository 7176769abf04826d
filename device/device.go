package device

import (
	"fmt"
	"strings"
	"sync"

	"github.com/opd-ai/beak/graph"
)

// Defaults applied by Spec.withDefaults.
const (
	DefaultSampleRate = 48000
	DefaultBlockSize  = 512
)

// Spec is a requested device configuration. Zero rate or block size selects
// the defaults.
type Spec struct {
	Name       string
	SampleRate int
	BlockSize  int
	Inputs     int
	Outputs    int
}

func (s Spec) withDefaults() Spec {
	if s.SampleRate <= 0 {
		s.SampleRate = DefaultSampleRate
	}
	if s.BlockSize <= 0 {
		s.BlockSize = DefaultBlockSize
	}
	return s
}

func (s Spec) validate() error {
	if s.Outputs < 1 {
		return fmt.Errorf("%w: need at least one output, got %d", ErrOpen, s.Outputs)
	}
	if s.Inputs < 0 {
		return fmt.Errorf("%w: negative input count %d", ErrOpen, s.Inputs)
	}
	return nil
}

// Callback renders one block in place.
type Callback func(buf *graph.Buffer)

// Device is a block-cadence callback source.
type Device interface {
	Open(spec Spec) error
	// SampleRate and BlockSize report the values actually in use, which may
	// differ from the requested spec.
	SampleRate() int
	BlockSize() int
	NumInputs() int
	NumOutputs() int
	SetCallback(cb Callback)
	Start() error
	Stop() error
	Close() error
}

// New returns a device for a backend name: "manual", "null" or "oto".
func New(backend string) (Device, error) {
	switch strings.ToLower(backend) {
	case "manual":
		return NewManual(), nil
	case "null", "none", "":
		return NewNull(), nil
	case "oto", "default":
		return NewOto(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

// callbackSlot serializes a callback against its replacement. The render
// side holds the lock for exactly one block; the control side takes it only
// to swap the callback.
type callbackSlot struct {
	mu sync.Mutex
	cb Callback
}

func (s *callbackSlot) set(cb Callback) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

func (s *callbackSlot) run(buf *graph.Buffer) {
	s.mu.Lock()
	if s.cb != nil {
		s.cb(buf)
	} else {
		buf.Clear()
	}
	s.mu.Unlock()
}

func channelsFor(spec Spec) int {
	if spec.Inputs > spec.Outputs {
		return spec.Inputs
	}
	return spec.Outputs
}
