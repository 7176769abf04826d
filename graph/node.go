package graph

import (
	"fmt"
	"sync/atomic"
)

// NodeID identifies a node within one Graph. IDs are assigned by AddNode and
// never reused.
type NodeID uint32

// State is a node lifecycle state.
type State int32

const (
	StateIdle State = iota
	StatePrepared
	StatePlaying
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrepared:
		return "prepared"
	case StatePlaying:
		return "playing"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Node is one unit of audio processing with fixed channel arity.
//
// Process runs on the render thread. It must not allocate, block or fail;
// inputs arrive in the first NumInputs channels of buf and outputs replace
// them in the first NumOutputs channels.
type Node interface {
	Name() string
	NumInputs() int
	NumOutputs() int
	Prepare(sampleRate float64, maxBlockSize, numChannels int) error
	Process(buf *Buffer)
	Release()
	Reset()
	State() State
}

// Playback is implemented by nodes with transport control.
type Playback interface {
	Start() error
	Stop()
	// OneShot nodes finish on their own and must be removed by their owner.
	OneShot() bool
}

// AsPlayback returns the playback capability of n, if any.
func AsPlayback(n Node) (Playback, bool) {
	p, ok := n.(Playback)
	return p, ok
}

// HostIO is implemented by nodes that exchange audio with the device.
// The graph calls ProcessHost instead of Process for them; hostIn holds the
// device input of the current block and hostOut is the device output the
// node mixes into.
type HostIO interface {
	Node
	ProcessHost(buf, hostIn, hostOut *Buffer)
}

// Lifecycle is an atomic State holder that node implementations embed.
type Lifecycle struct {
	state atomic.Int32
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// SetState stores s unconditionally.
func (l *Lifecycle) SetState(s State) {
	l.state.Store(int32(s))
}

// Transition moves from one state to another and reports whether it
// happened.
func (l *Lifecycle) Transition(from, to State) bool {
	return l.state.CompareAndSwap(int32(from), int32(to))
}

// Endpoint is one channel of one node.
type Endpoint struct {
	Node    NodeID
	Channel int
}

// Connection routes a source output channel into a destination input channel.
type Connection struct {
	Source Endpoint
	Dest   Endpoint
}

func (c Connection) String() string {
	return fmt.Sprintf("%d:%d->%d:%d", c.Source.Node, c.Source.Channel, c.Dest.Node, c.Dest.Channel)
}
