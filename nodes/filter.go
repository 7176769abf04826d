package nodes

import (
	"sync/atomic"

	"github.com/opd-ai/beak/dsp"
	"github.com/opd-ai/beak/graph"
)

// Filter is an N-in/N-out state variable filter insert, typically used as a
// per-output bus.
type Filter struct {
	graph.Lifecycle
	name     string
	channels int
	pending  atomic.Pointer[dsp.FilterParams]
	current  atomic.Pointer[dsp.FilterParams]
	filter   *dsp.Filter
}

// NewFilter creates a filter with the given channel count and a fully open
// lowpass.
func NewFilter(name string, channels int) *Filter {
	if channels < 1 {
		channels = 1
	}
	f := &Filter{name: name, channels: channels, filter: dsp.NewFilter()}
	p := dsp.DefaultFilterParams()
	f.current.Store(&p)
	return f
}

func (f *Filter) Name() string    { return "filter:" + f.name }
func (f *Filter) NumInputs() int  { return f.channels }
func (f *Filter) NumOutputs() int { return f.channels }

func (f *Filter) Prepare(sampleRate float64, _, _ int) error {
	f.filter.SetParams(*f.current.Load())
	f.filter.Prepare(sampleRate, f.channels)
	f.SetState(graph.StatePrepared)
	return nil
}

// SetParams changes the filter at the next block.
func (f *Filter) SetParams(p dsp.FilterParams) {
	f.pending.Store(&p)
	f.current.Store(&p)
}

// Params returns the most recently set parameters.
func (f *Filter) Params() dsp.FilterParams {
	return *f.current.Load()
}

func (f *Filter) Process(buf *graph.Buffer) {
	if p := f.pending.Swap(nil); p != nil {
		f.filter.SetParams(*p)
	}
	for ch := 0; ch < f.channels; ch++ {
		f.filter.Process(ch, buf.Channel(ch))
	}
}

func (f *Filter) Reset() {
	f.filter.Reset()
}

func (f *Filter) Release() {}
