package graph

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// completedQueueSize bounds pending completion notices. A full queue drops
// the notice; the owner's periodic sweep still finds the finished node.
const completedQueueSize = 256

// maxHostChannels bounds the device channel count the graph mirrors.
const maxHostChannels = 64

// entry is the graph's bookkeeping for one inserted node. Its buffer is
// written only by the render thread once the node is part of a plan.
type entry struct {
	id       NodeID
	node     Node
	host     HostIO
	playback Playback
	buf      *Buffer
	notified atomic.Bool
}

type source struct {
	step    int
	channel int
}

type step struct {
	entry   *entry
	inputs  [][]source
	oneShot bool
}

// plan is an immutable render schedule.
type plan struct {
	steps []step
}

type retired struct {
	entry *entry
	stamp uint64
}

// Stats is a snapshot of graph counters.
type Stats struct {
	Nodes             int
	Connections       int
	PendingReclaim    int
	Reclaimed         uint64
	Blocks            uint64
	DroppedCompletion uint64
}

// Graph is a directed audio graph rendered once per block.
type Graph struct {
	mu          sync.Mutex
	entries     map[NodeID]*entry
	order       []NodeID
	connections []Connection
	connSet     map[Connection]struct{}
	retiring    []retired
	nextID      NodeID
	sampleRate  float64
	blockSize   int
	prepared    bool

	current   atomic.Pointer[plan]
	sequence  atomic.Uint64 // odd while a block is rendering
	completed chan NodeID

	reclaimed atomic.Uint64
	blocks    atomic.Uint64
	dropped   atomic.Uint64

	// render-thread scratch
	hostIn  *Buffer
	inView  *Buffer
	outView *Buffer
}

// New creates an empty, unprepared graph.
func New() *Graph {
	g := &Graph{
		entries:   make(map[NodeID]*entry),
		connSet:   make(map[Connection]struct{}),
		nextID:    1,
		completed: make(chan NodeID, completedQueueSize),
		inView:    &Buffer{channels: make([][]float32, 0, maxHostChannels)},
		outView:   &Buffer{channels: make([][]float32, 0, maxHostChannels)},
	}
	g.current.Store(&plan{})
	return g
}

// Prepare fixes the sample rate and maximum block size and prepares every
// node already present. It must not run concurrently with Process.
func (g *Graph) Prepare(sampleRate float64, blockSize int) error {
	if sampleRate <= 0 || blockSize <= 0 {
		return fmt.Errorf("%w: sample_rate=%v block_size=%d", ErrInvalidFormat, sampleRate, blockSize)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.sampleRate = sampleRate
	g.blockSize = blockSize
	g.hostIn = NewBuffer(maxHostChannels, blockSize)

	for _, id := range g.order {
		e := g.entries[id]
		if err := g.prepareEntry(e); err != nil {
			return err
		}
	}
	g.prepared = true
	g.publish()

	logrus.WithFields(logrus.Fields{
		"function":    "Graph.Prepare",
		"sample_rate": sampleRate,
		"block_size":  blockSize,
		"nodes":       len(g.order),
	}).Debug("Graph prepared")

	return nil
}

func (g *Graph) prepareEntry(e *entry) error {
	channels := e.node.NumInputs()
	if e.node.NumOutputs() > channels {
		channels = e.node.NumOutputs()
	}
	if err := e.node.Prepare(g.sampleRate, g.blockSize, channels); err != nil {
		return fmt.Errorf("prepare %s: %w", e.node.Name(), err)
	}
	e.buf = NewBuffer(channels, g.blockSize)
	return nil
}

// SampleRate returns the prepared sample rate.
func (g *Graph) SampleRate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sampleRate
}

// BlockSize returns the prepared maximum block size.
func (g *Graph) BlockSize() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blockSize
}

// AddNode prepares n, inserts it and returns its id.
func (g *Graph) AddNode(n Node) (NodeID, error) {
	if n == nil {
		return 0, ErrNilNode
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.prepared {
		return 0, ErrNotPrepared
	}

	e := &entry{id: g.nextID, node: n}
	if h, ok := n.(HostIO); ok {
		e.host = h
	}
	if p, ok := AsPlayback(n); ok {
		e.playback = p
	}
	if err := g.prepareEntry(e); err != nil {
		return 0, err
	}

	g.nextID++
	g.entries[e.id] = e
	g.order = append(g.order, e.id)
	g.publish()

	logrus.WithFields(logrus.Fields{
		"function": "Graph.AddNode",
		"node_id":  e.id,
		"name":     n.Name(),
		"inputs":   n.NumInputs(),
		"outputs":  n.NumOutputs(),
	}).Debug("Node added")

	return e.id, nil
}

// RemoveNode removes a node and every connection touching it. The node is
// released by a later Reclaim once no in-flight block can reference it.
func (g *Graph) RemoveNode(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}

	delete(g.entries, id)
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	kept := g.connections[:0]
	for _, c := range g.connections {
		if c.Source.Node == id || c.Dest.Node == id {
			delete(g.connSet, c)
			continue
		}
		kept = append(kept, c)
	}
	g.connections = kept

	g.publish()
	g.retiring = append(g.retiring, retired{entry: e, stamp: g.sequence.Load()})
	g.reclaimLocked()

	logrus.WithFields(logrus.Fields{
		"function": "Graph.RemoveNode",
		"node_id":  id,
		"name":     e.node.Name(),
	}).Debug("Node removed")

	return nil
}

// AddConnection adds c. Adding an existing connection is a no-op.
func (g *Graph) AddConnection(c Connection) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.validateLocked(c); err != nil {
		return err
	}
	if _, exists := g.connSet[c]; exists {
		return nil
	}
	if c.Source.Node == c.Dest.Node || g.reachableLocked(c.Dest.Node, c.Source.Node) {
		return fmt.Errorf("%w: %s", ErrCycle, c)
	}

	g.connSet[c] = struct{}{}
	g.connections = append(g.connections, c)
	g.publish()

	logrus.WithFields(logrus.Fields{
		"function":   "Graph.AddConnection",
		"connection": c.String(),
	}).Debug("Connection added")

	return nil
}

// RemoveConnection removes c. Removing a missing connection is a no-op.
func (g *Graph) RemoveConnection(c Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.connSet[c]; !exists {
		return
	}
	delete(g.connSet, c)
	for i, oc := range g.connections {
		if oc == c {
			g.connections = append(g.connections[:i], g.connections[i+1:]...)
			break
		}
	}
	g.publish()
}

func (g *Graph) validateLocked(c Connection) error {
	src, ok := g.entries[c.Source.Node]
	if !ok {
		return fmt.Errorf("%w: source %d", ErrNodeNotFound, c.Source.Node)
	}
	dst, ok := g.entries[c.Dest.Node]
	if !ok {
		return fmt.Errorf("%w: destination %d", ErrNodeNotFound, c.Dest.Node)
	}
	if c.Source.Channel < 0 || c.Source.Channel >= src.node.NumOutputs() {
		return fmt.Errorf("%w: source %s has %d outputs, got channel %d",
			ErrChannelOutOfRange, src.node.Name(), src.node.NumOutputs(), c.Source.Channel)
	}
	if c.Dest.Channel < 0 || c.Dest.Channel >= dst.node.NumInputs() {
		return fmt.Errorf("%w: destination %s has %d inputs, got channel %d",
			ErrChannelOutOfRange, dst.node.Name(), dst.node.NumInputs(), c.Dest.Channel)
	}
	return nil
}

// reachableLocked reports whether to can be reached from from.
func (g *Graph) reachableLocked(from, to NodeID) bool {
	seen := map[NodeID]bool{from: true}
	stack := []NodeID{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		for _, c := range g.connections {
			if c.Source.Node == n && !seen[c.Dest.Node] {
				seen[c.Dest.Node] = true
				stack = append(stack, c.Dest.Node)
			}
		}
	}
	return false
}

// publish builds a new plan from the current topology and makes it visible
// to the render thread. Nodes without dependencies between them keep
// insertion order.
func (g *Graph) publish() {
	indegree := make(map[NodeID]int, len(g.order))
	for _, c := range g.connections {
		indegree[c.Dest.Node]++
	}

	stepOf := make(map[NodeID]int, len(g.order))
	steps := make([]step, 0, len(g.order))
	done := make(map[NodeID]bool, len(g.order))

	for len(steps) < len(g.order) {
		picked := false
		for _, id := range g.order {
			if done[id] || indegree[id] > 0 {
				continue
			}
			e := g.entries[id]
			done[id] = true
			stepOf[id] = len(steps)
			steps = append(steps, step{
				entry:   e,
				inputs:  make([][]source, e.node.NumInputs()),
				oneShot: e.playback != nil && e.playback.OneShot(),
			})
			for _, c := range g.connections {
				if c.Source.Node == id {
					indegree[c.Dest.Node]--
				}
			}
			picked = true
			break
		}
		if !picked {
			// unreachable: AddConnection rejects cycles
			logrus.WithFields(logrus.Fields{
				"function": "Graph.publish",
				"nodes":    len(g.order),
				"ordered":  len(steps),
			}).Error("Cycle detected while ordering graph")
			break
		}
	}

	for _, c := range g.connections {
		di, ok1 := stepOf[c.Dest.Node]
		si, ok2 := stepOf[c.Source.Node]
		if !ok1 || !ok2 {
			continue
		}
		steps[di].inputs[c.Dest.Channel] = append(steps[di].inputs[c.Dest.Channel],
			source{step: si, channel: c.Source.Channel})
	}

	g.current.Store(&plan{steps: steps})
}

// Process renders one block in place: host holds the device input on entry
// and the mixed device output on return. Blocks longer than the prepared
// block size are rendered in slices.
func (g *Graph) Process(host *Buffer) {
	g.sequence.Add(1)
	defer g.sequence.Add(1)

	p := g.current.Load()
	if g.hostIn == nil || host == nil {
		if host != nil {
			host.Clear()
		}
		return
	}

	total := host.Frames()
	limit := g.hostIn.frames
	for off := 0; off < total; off += limit {
		n := total - off
		if n > limit {
			n = limit
		}
		host.view(g.outView, off, n)
		g.renderSlice(p, n)
	}
	g.blocks.Add(1)
}

func (g *Graph) renderSlice(p *plan, n int) {
	in := g.inView
	g.hostIn.view(in, 0, n)
	out := g.outView
	for ch := range out.channels {
		if ch < len(in.channels) {
			copy(in.channels[ch], out.channels[ch])
		}
		clear(out.channels[ch])
	}
	in.channels = in.channels[:len(out.channels)]

	for i := range p.steps {
		st := &p.steps[i]
		b := st.entry.buf
		b.SetFrames(n)
		b.Clear()

		for ch, srcs := range st.inputs {
			dst := b.channels[ch][:n]
			for _, s := range srcs {
				src := p.steps[s.step].entry.buf.channels[s.channel][:n]
				for j := range dst {
					dst[j] += src[j]
				}
			}
		}

		if st.entry.host != nil {
			st.entry.host.ProcessHost(b, in, out)
		} else {
			st.entry.node.Process(b)
		}

		if st.oneShot && st.entry.node.State() == StateFinished && st.entry.notified.CompareAndSwap(false, true) {
			select {
			case g.completed <- st.entry.id:
			default:
				g.dropped.Add(1)
			}
		}
	}
}

// Completed delivers ids of one-shot nodes that reached StateFinished.
func (g *Graph) Completed() <-chan NodeID {
	return g.completed
}

// Reclaim releases retired nodes that the render thread can no longer
// reference.
//
// A node removed while a block was rendering stays retired until that block
// ends. Reclaim calls Reset and Release on every node past that point and
// leaves the rest for a later call.
//
// Returns:
//   - int: number of nodes released by this call
func (g *Graph) Reclaim() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reclaimLocked()
}

func (g *Graph) reclaimLocked() int {
	if len(g.retiring) == 0 {
		return 0
	}
	now := g.sequence.Load()
	n := 0
	kept := g.retiring[:0]
	for _, r := range g.retiring {
		// an even stamp means no block was in flight when the node left the
		// plan; an odd one clears once that block has ended
		if r.stamp%2 == 0 || now > r.stamp {
			r.entry.node.Reset()
			r.entry.node.Release()
			n++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(g.retiring); i++ {
		g.retiring[i] = retired{}
	}
	g.retiring = kept
	g.reclaimed.Add(uint64(n))
	return n
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[id]
	if !ok {
		return nil, false
	}
	return e.node, true
}

// Contains reports whether id is in the graph.
func (g *Graph) Contains(id NodeID) bool {
	_, ok := g.Node(id)
	return ok
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Nodes returns the node ids in insertion order.
func (g *Graph) Nodes() []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]NodeID(nil), g.order...)
}

// Connections returns a copy of the connection list in insertion order.
func (g *Graph) Connections() []Connection {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Connection(nil), g.connections...)
}

// Clear removes every node and connection. Nodes are released by Reclaim.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	stamp := g.sequence.Load()
	for _, id := range g.order {
		g.retiring = append(g.retiring, retired{entry: g.entries[id], stamp: stamp})
	}
	g.entries = make(map[NodeID]*entry)
	g.order = nil
	g.connections = nil
	g.connSet = make(map[Connection]struct{})
	g.publish()
	g.reclaimLocked()
}

// Release clears the graph and releases every node, including those still
// waiting for reclamation. The caller must have stopped rendering.
func (g *Graph) Release() {
	g.Clear()

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.retiring {
		r.entry.node.Reset()
		r.entry.node.Release()
		g.reclaimed.Add(1)
	}
	g.retiring = nil
	g.prepared = false
}

// Stats returns a snapshot of graph counters.
func (g *Graph) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{
		Nodes:             len(g.entries),
		Connections:       len(g.connections),
		PendingReclaim:    len(g.retiring),
		Reclaimed:         g.reclaimed.Load(),
		Blocks:            g.blocks.Load(),
		DroppedCompletion: g.dropped.Load(),
	}
}
