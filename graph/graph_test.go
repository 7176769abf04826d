package graph

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNode is a source (no inputs), a pass-through, or a one-shot source
// depending on its fields.
type fakeNode struct {
	Lifecycle
	name        string
	in, out     int
	value       float32
	oneShot     bool
	finishAfter int

	blocks   int
	released atomic.Int32
	resets   atomic.Int32
}

func (f *fakeNode) Name() string    { return f.name }
func (f *fakeNode) NumInputs() int  { return f.in }
func (f *fakeNode) NumOutputs() int { return f.out }

func (f *fakeNode) Prepare(float64, int, int) error {
	f.SetState(StatePrepared)
	f.blocks = 0
	return nil
}

func (f *fakeNode) Process(buf *Buffer) {
	if f.in > 0 {
		return
	}
	if f.oneShot && f.State() != StatePlaying {
		buf.Clear()
		return
	}
	for ch := 0; ch < f.out; ch++ {
		for i := range buf.Channel(ch) {
			buf.Channel(ch)[i] = f.value
		}
	}
	if f.oneShot {
		f.blocks++
		if f.blocks >= f.finishAfter {
			f.Transition(StatePlaying, StateFinished)
		}
	}
}

func (f *fakeNode) Release() { f.released.Add(1) }
func (f *fakeNode) Reset()   { f.resets.Add(1) }

func (f *fakeNode) Start() error {
	if !f.Transition(StatePrepared, StatePlaying) {
		return errors.New("not prepared")
	}
	return nil
}
func (f *fakeNode) Stop()         { f.SetState(StatePrepared) }
func (f *fakeNode) OneShot() bool { return f.oneShot }

// sinkNode mixes its inputs into the host output.
type sinkNode struct {
	fakeNode
}

func (s *sinkNode) ProcessHost(buf, _, hostOut *Buffer) {
	for ch := 0; ch < s.in && ch < hostOut.NumChannels(); ch++ {
		dst := hostOut.Channel(ch)
		src := buf.Channel(ch)
		for i := range dst {
			dst[i] += src[i]
		}
	}
}

// tapNode copies the host input into its outputs.
type tapNode struct {
	fakeNode
}

func (t *tapNode) ProcessHost(buf, hostIn, _ *Buffer) {
	for ch := 0; ch < t.out && ch < hostIn.NumChannels(); ch++ {
		copy(buf.Channel(ch), hostIn.Channel(ch))
	}
}

func newSink(n int) *sinkNode { return &sinkNode{fakeNode{name: "sink", in: n}} }
func newConst(v float32) *fakeNode {
	return &fakeNode{name: "const", out: 1, value: v}
}

func prepared(t *testing.T) *Graph {
	t.Helper()
	g := New()
	require.NoError(t, g.Prepare(48000, 64))
	return g
}

func conn(src NodeID, sch int, dst NodeID, dch int) Connection {
	return Connection{Source: Endpoint{Node: src, Channel: sch}, Dest: Endpoint{Node: dst, Channel: dch}}
}

func TestGraph_Prepare(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		blockSize int
		wantErr   bool
	}{
		{name: "valid", rate: 48000, blockSize: 512},
		{name: "zero rate", rate: 0, blockSize: 512, wantErr: true},
		{name: "zero block", rate: 48000, blockSize: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Prepare(tt.rate, tt.blockSize)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidFormat))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGraph_AddNode(t *testing.T) {
	_, err := New().AddNode(newConst(1))
	assert.True(t, errors.Is(err, ErrNotPrepared))

	g := prepared(t)
	_, err = g.AddNode(nil)
	assert.True(t, errors.Is(err, ErrNilNode))

	n := newConst(1)
	a, err := g.AddNode(n)
	require.NoError(t, err)
	assert.Equal(t, StatePrepared, n.State())

	require.NoError(t, g.RemoveNode(a))
	b, err := g.AddNode(newConst(1))
	require.NoError(t, err)
	assert.Greater(t, b, a, "ids are never reused")
	assert.Equal(t, 1, g.NodeCount())
}

func TestGraph_AddConnectionErrors(t *testing.T) {
	g := prepared(t)
	src, _ := g.AddNode(newConst(1))
	dst, _ := g.AddNode(newSink(2))
	require.NoError(t, g.AddConnection(conn(src, 0, dst, 0)))
	before := g.Connections()

	tests := []struct {
		name    string
		c       Connection
		wantErr error
	}{
		{name: "unknown source", c: conn(99, 0, dst, 0), wantErr: ErrNodeNotFound},
		{name: "unknown destination", c: conn(src, 0, 99, 0), wantErr: ErrNodeNotFound},
		{name: "source channel too high", c: conn(src, 1, dst, 0), wantErr: ErrChannelOutOfRange},
		{name: "destination channel too high", c: conn(src, 0, dst, 2), wantErr: ErrChannelOutOfRange},
		{name: "negative channel", c: conn(src, -1, dst, 0), wantErr: ErrChannelOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AddConnection(tt.c)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, before, g.Connections(), "topology must be unchanged")
		})
	}
}

func TestGraph_RejectsCycles(t *testing.T) {
	g := prepared(t)
	a, _ := g.AddNode(&fakeNode{name: "a", in: 1, out: 1})
	b, _ := g.AddNode(&fakeNode{name: "b", in: 1, out: 1})
	c, _ := g.AddNode(&fakeNode{name: "c", in: 1, out: 1})

	require.NoError(t, g.AddConnection(conn(a, 0, b, 0)))
	require.NoError(t, g.AddConnection(conn(b, 0, c, 0)))

	assert.True(t, errors.Is(g.AddConnection(conn(c, 0, a, 0)), ErrCycle))
	assert.True(t, errors.Is(g.AddConnection(conn(a, 0, a, 0)), ErrCycle))
	assert.Len(t, g.Connections(), 2)
}

func TestGraph_ConnectionsIdempotent(t *testing.T) {
	g := prepared(t)
	src, _ := g.AddNode(newConst(1))
	dst, _ := g.AddNode(newSink(1))
	c := conn(src, 0, dst, 0)

	require.NoError(t, g.AddConnection(c))
	require.NoError(t, g.AddConnection(c))
	assert.Len(t, g.Connections(), 1)

	g.RemoveConnection(c)
	g.RemoveConnection(c)
	assert.Empty(t, g.Connections())
}

func TestGraph_ProcessSumsJunctions(t *testing.T) {
	g := prepared(t)
	// sink first: ordering must follow connections, not insertion
	sink, _ := g.AddNode(newSink(2))
	a, _ := g.AddNode(newConst(0.25))
	b, _ := g.AddNode(newConst(0.5))
	require.NoError(t, g.AddConnection(conn(a, 0, sink, 0)))
	require.NoError(t, g.AddConnection(conn(b, 0, sink, 0)))
	require.NoError(t, g.AddConnection(conn(b, 0, sink, 1)))

	host := NewBuffer(2, 64)
	g.Process(host)

	for i := 0; i < 64; i++ {
		require.InDelta(t, 0.75, host.Channel(0)[i], 1e-6)
		require.InDelta(t, 0.5, host.Channel(1)[i], 1e-6)
	}
	assert.Equal(t, uint64(1), g.Stats().Blocks)
}

func TestGraph_ProcessHostInputPassthrough(t *testing.T) {
	g := prepared(t)
	out, _ := g.AddNode(newSink(2))
	in, _ := g.AddNode(&tapNode{fakeNode{name: "tap", out: 2}})
	require.NoError(t, g.AddConnection(conn(in, 1, out, 0)))

	host := NewBuffer(2, 64)
	for i := range host.Channel(1) {
		host.Channel(0)[i] = 0.1
		host.Channel(1)[i] = 0.9
	}
	g.Process(host)

	assert.InDelta(t, 0.9, host.Channel(0)[10], 1e-6)
	assert.InDelta(t, 0, host.Channel(1)[10], 1e-6, "unrouted output is silent")
}

func TestGraph_ProcessLongBlockInSlices(t *testing.T) {
	g := prepared(t)
	sink, _ := g.AddNode(newSink(1))
	src, _ := g.AddNode(newConst(0.5))
	require.NoError(t, g.AddConnection(conn(src, 0, sink, 0)))

	host := NewBuffer(1, 200)
	g.Process(host)
	for i, v := range host.Channel(0) {
		require.InDelta(t, 0.5, v, 1e-6, "frame %d", i)
	}
}

func TestGraph_ProcessUnpreparedIsSilent(t *testing.T) {
	g := New()
	host := NewBuffer(1, 8)
	host.Channel(0)[0] = 1
	g.Process(host)
	assert.Equal(t, float32(0), host.Channel(0)[0])
}

func TestGraph_RemoveNodeDropsConnections(t *testing.T) {
	g := prepared(t)
	src := newConst(1)
	srcID, _ := g.AddNode(src)
	sink, _ := g.AddNode(newSink(1))
	require.NoError(t, g.AddConnection(conn(srcID, 0, sink, 0)))

	require.NoError(t, g.RemoveNode(srcID))
	assert.Empty(t, g.Connections())
	assert.False(t, g.Contains(srcID))
	assert.Equal(t, int32(1), src.released.Load(), "no block in flight, released immediately")

	assert.True(t, errors.Is(g.RemoveNode(srcID), ErrNodeNotFound))
}

func TestGraph_ReclaimWaitsForInFlightBlock(t *testing.T) {
	g := prepared(t)
	n := newConst(1)
	id, _ := g.AddNode(n)

	g.sequence.Add(1) // render thread mid-block
	require.NoError(t, g.RemoveNode(id))
	assert.Equal(t, int32(0), n.released.Load())
	assert.Equal(t, 1, g.Stats().PendingReclaim)
	assert.Equal(t, 0, g.Reclaim())

	g.sequence.Add(1) // block done
	assert.Equal(t, 1, g.Reclaim())
	assert.Equal(t, int32(1), n.released.Load())
	assert.Equal(t, int32(1), n.resets.Load())
	assert.Equal(t, uint64(1), g.Stats().Reclaimed)
}

func TestGraph_CompletedOnce(t *testing.T) {
	g := prepared(t)
	sink, _ := g.AddNode(newSink(1))
	shot := &fakeNode{name: "shot", out: 1, value: 1, oneShot: true, finishAfter: 2}
	id, _ := g.AddNode(shot)
	require.NoError(t, g.AddConnection(conn(id, 0, sink, 0)))
	require.NoError(t, shot.Start())

	host := NewBuffer(1, 64)
	g.Process(host)
	select {
	case <-g.Completed():
		t.Fatal("completed too early")
	default:
	}

	g.Process(host)
	select {
	case got := <-g.Completed():
		assert.Equal(t, id, got)
	default:
		t.Fatal("expected completion after exhausting block")
	}
	assert.Equal(t, StateFinished, shot.State())

	g.Process(host)
	select {
	case <-g.Completed():
		t.Fatal("completion posted twice")
	default:
	}
}

func TestGraph_ClearAndRelease(t *testing.T) {
	g := prepared(t)
	a := newConst(1)
	b := newSink(1)
	aID, _ := g.AddNode(a)
	bID, _ := g.AddNode(b)
	require.NoError(t, g.AddConnection(conn(aID, 0, bID, 0)))

	g.Clear()
	assert.Equal(t, 0, g.NodeCount())
	assert.Empty(t, g.Connections())

	g.Release()
	assert.Equal(t, int32(1), a.released.Load())
	assert.Equal(t, int32(1), b.released.Load())
}

func TestGraph_ConcurrentMutationLiveness(t *testing.T) {
	g := prepared(t)
	sink, err := g.AddNode(newSink(2))
	require.NoError(t, err)

	stop := make(chan struct{})
	var rendered atomic.Int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		host := NewBuffer(2, 64)
		for {
			select {
			case <-stop:
				return
			default:
			}
			g.Process(host)
			rendered.Add(1)
		}
	}()

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			var mine []NodeID
			for i := 0; i < 300; i++ {
				switch rng.Intn(4) {
				case 0, 1:
					id, err := g.AddNode(newConst(0.01))
					if err == nil {
						mine = append(mine, id)
						_ = g.AddConnection(conn(id, 0, sink, rng.Intn(2)))
					}
				case 2:
					if len(mine) > 0 {
						k := rng.Intn(len(mine))
						_ = g.RemoveNode(mine[k])
						mine = append(mine[:k], mine[k+1:]...)
					}
				case 3:
					if len(mine) > 0 {
						g.RemoveConnection(conn(mine[rng.Intn(len(mine))], 0, sink, rng.Intn(2)))
					}
				}
				g.Reclaim()
			}
		}(int64(w))
	}

	deadline := time.After(5 * time.Second)
	for rendered.Load() < 100 {
		select {
		case <-deadline:
			t.Fatal("render loop stalled")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(stop)
	wg.Wait()

	g.Release()
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.Stats().PendingReclaim)
}
