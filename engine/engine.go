package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/beak/device"
	"github.com/opd-ai/beak/graph"
	"github.com/opd-ai/beak/limits"
	"github.com/opd-ai/beak/nodes"
)

type busSlot struct {
	id     graph.NodeID
	filter *nodes.Filter
}

type voiceSlot struct {
	id    graph.NodeID
	voice *nodes.Voice
}

type samplerSlot struct {
	id      graph.NodeID
	sampler *nodes.Sampler
	panner  graph.NodeID
}

type oneShot struct {
	channel int
	player  *nodes.Player
	started time.Time
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Nodes             int
	Connections       int
	ActiveOneShots    int
	PendingNotes      int
	Played            uint64
	Removed           uint64
	Reclaimed         uint64
	Blocks            uint64
	DroppedCompletion uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// Engine owns a graph and the device that renders it.
type Engine struct {
	mu         sync.Mutex
	dev        device.Device
	graph      *graph.Graph
	clock      Clock
	cfg        Config
	configured bool

	sampleRate int
	blockSize  int
	inputs     int
	outputs    int

	// playback channel domain (virtual channels in virtual mode)
	channels limits.ChannelBounds
	// synth and filter channel domain (physical outputs)
	physical limits.ChannelBounds

	outputID graph.NodeID
	inputID  graph.NodeID
	buses    []busSlot
	voices   []voiceSlot
	samplers []samplerSlot
	oneShots map[graph.NodeID]oneShot
	notes    map[int]pendingNote

	played  uint64
	removed uint64

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates an unconfigured engine driving dev.
func New(dev device.Device, opts ...Option) *Engine {
	e := &Engine{
		dev:      dev,
		graph:    graph.New(),
		clock:    RealClock{},
		oneShots: make(map[graph.NodeID]oneShot),
		notes:    make(map[int]pendingNote),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configure opens the device, builds the topology and starts rendering.
func (e *Engine) Configure(cfg Config) error {
	logrus.WithFields(logrus.Fields{
		"function":        "Engine.Configure",
		"device":          cfg.DeviceName,
		"inputs":          cfg.Inputs,
		"outputs":         cfg.Outputs,
		"sample_rate":     cfg.SampleRate,
		"virtual_outputs": cfg.VirtualOutputs,
	}).Info("Configuring audio engine")

	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.configured {
		return fmt.Errorf("%w: already configured", ErrConfiguration)
	}
	if e.dev == nil {
		return fmt.Errorf("%w: no audio device", ErrConfiguration)
	}

	if err := e.dev.Open(device.Spec{
		Name:       cfg.DeviceName,
		SampleRate: cfg.SampleRate,
		BlockSize:  cfg.BlockSize,
		Inputs:     cfg.Inputs,
		Outputs:    cfg.Outputs,
	}); err != nil {
		return e.configFailure("open device", err)
	}

	e.cfg = cfg
	e.sampleRate = e.dev.SampleRate()
	e.blockSize = e.dev.BlockSize()
	e.inputs = e.dev.NumInputs()
	e.outputs = e.dev.NumOutputs()
	e.physical = limits.NewChannelBounds(e.outputs)
	e.channels = e.physical
	if cfg.VirtualOutputs > 0 {
		e.channels = limits.NewChannelBounds(cfg.VirtualOutputs)
	}

	if err := e.graph.Prepare(float64(e.sampleRate), e.blockSize); err != nil {
		return e.configFailure("prepare graph", err)
	}
	if err := e.buildTopology(); err != nil {
		return e.configFailure("build topology", err)
	}

	e.dev.SetCallback(e.graph.Process)
	if err := e.dev.Start(); err != nil {
		return e.configFailure("start device", err)
	}

	e.stop = make(chan struct{})
	e.wg.Add(2)
	go e.cleanupLoop(cfg.CleanupInterval, e.stop)
	go e.noteLoop(cfg.NoteTickInterval, e.stop)
	e.configured = true

	logrus.WithFields(logrus.Fields{
		"function":    "Engine.Configure",
		"sample_rate": e.sampleRate,
		"block_size":  e.blockSize,
		"inputs":      e.inputs,
		"outputs":     e.outputs,
		"channels":    e.channels.Count,
		"nodes":       e.graph.NodeCount(),
	}).Info("Audio engine running")

	return nil
}

// configFailure tears down a partial configuration. Caller holds e.mu.
func (e *Engine) configFailure(stage string, err error) error {
	logrus.WithFields(logrus.Fields{
		"function": "Engine.Configure",
		"stage":    stage,
		"error":    err.Error(),
	}).Error("Audio engine configuration failed")

	e.dev.SetCallback(nil)
	closeErr := e.dev.Close()
	if closeErr != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Engine.Configure",
			"stage":    stage,
			"error":    closeErr.Error(),
		}).Warn("Failed to close audio device after configuration failure")
	}
	e.graph.Release()
	e.buses, e.voices, e.samplers = nil, nil, nil
	return errors.Join(fmt.Errorf("%w: %s: %w", ErrConfiguration, stage, err), closeErr)
}

func (e *Engine) buildTopology() error {
	g := e.graph
	var err error

	if e.outputID, err = g.AddNode(nodes.NewOutput(e.outputs)); err != nil {
		return err
	}
	if e.inputs > 0 {
		if e.inputID, err = g.AddNode(nodes.NewInput(e.inputs)); err != nil {
			return err
		}
	}

	e.buses = make([]busSlot, e.outputs)
	e.voices = make([]voiceSlot, e.outputs)
	for i := 0; i < e.outputs; i++ {
		bus := nodes.NewFilter(fmt.Sprintf("bus%d", i+1), 1)
		busID, err := g.AddNode(bus)
		if err != nil {
			return err
		}
		if err := g.AddConnection(link(busID, 0, e.outputID, i)); err != nil {
			return err
		}
		e.buses[i] = busSlot{id: busID, filter: bus}

		voice := nodes.NewVoice(fmt.Sprintf("%d", i+1))
		voiceID, err := g.AddNode(voice)
		if err != nil {
			return err
		}
		if err := g.AddConnection(link(voiceID, 0, busID, 0)); err != nil {
			return err
		}
		e.voices[i] = voiceSlot{id: voiceID, voice: voice}
	}

	if e.cfg.MonitorInputs && e.inputs > 0 {
		for i := 0; i < e.inputs && i < e.outputs; i++ {
			if err := g.AddConnection(link(e.inputID, i, e.buses[i].id, 0)); err != nil {
				return err
			}
		}
	}

	if n := e.cfg.VirtualOutputs; n > 0 {
		e.samplers = make([]samplerSlot, n)
		for i := 0; i < n; i++ {
			s := nodes.NewSampler(fmt.Sprintf("v%d", i+1), 1)
			sid, err := g.AddNode(s)
			if err != nil {
				return err
			}
			pid, err := g.AddNode(nodes.NewPanner(fmt.Sprintf("v%d", i+1), i, n))
			if err != nil {
				return err
			}
			if err := g.AddConnection(link(sid, 0, pid, 0)); err != nil {
				return err
			}
			// left to bus 1, right to bus 2 (or bus 1 on mono output)
			right := 1
			if e.outputs < 2 {
				right = 0
			}
			if err := g.AddConnection(link(pid, 0, e.buses[0].id, 0)); err != nil {
				return err
			}
			if err := g.AddConnection(link(pid, 1, e.buses[right].id, 0)); err != nil {
				return err
			}
			e.samplers[i] = samplerSlot{id: sid, sampler: s, panner: pid}
		}
	}
	return nil
}

func link(src graph.NodeID, sch int, dst graph.NodeID, dch int) graph.Connection {
	return graph.Connection{
		Source: graph.Endpoint{Node: src, Channel: sch},
		Dest:   graph.Endpoint{Node: dst, Channel: dch},
	}
}

// Close stops rendering first, then the control loops, then releases every
// node.
func (e *Engine) Close() error {
	e.mu.Lock()
	if !e.configured {
		e.mu.Unlock()
		return nil
	}
	e.configured = false
	stop := e.stop
	e.mu.Unlock()

	// detaching the callback waits for the block in flight
	e.dev.SetCallback(nil)
	stopErr := e.dev.Stop()
	closeErr := e.dev.Close()

	close(stop)
	e.wg.Wait()

	e.mu.Lock()
	e.graph.Release()
	e.oneShots = make(map[graph.NodeID]oneShot)
	e.notes = make(map[int]pendingNote)
	e.buses, e.voices, e.samplers = nil, nil, nil
	e.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Engine.Close",
	}).Info("Audio engine stopped")

	return errors.Join(stopErr, closeErr)
}

// Configured reports whether the engine is running.
func (e *Engine) Configured() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.configured
}

// SampleRate returns the device sample rate in use.
func (e *Engine) SampleRate() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampleRate
}

// BlockSize returns the device block size in use.
func (e *Engine) BlockSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.blockSize
}

// Channels returns the playback channel count (virtual or physical).
func (e *Engine) Channels() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channels.Count
}

// Outputs returns the physical output count.
func (e *Engine) Outputs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outputs
}

// Graph exposes the underlying graph for inspection.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Stats returns a snapshot of engine and graph counters.
func (e *Engine) Stats() Stats {
	gs := e.graph.Stats()
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Nodes:             gs.Nodes,
		Connections:       gs.Connections,
		ActiveOneShots:    len(e.oneShots),
		PendingNotes:      len(e.notes),
		Played:            e.played,
		Removed:           e.removed,
		Reclaimed:         gs.Reclaimed,
		Blocks:            gs.Blocks,
		DroppedCompletion: gs.DroppedCompletion,
	}
}

func (e *Engine) requireConfigured() error {
	if !e.configured {
		return ErrNotConfigured
	}
	return nil
}

func invalidChannel(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidChannel, err)
}
