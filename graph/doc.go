// Package graph implements the real-time audio processing graph.
//
// A Graph owns a set of Nodes and the directed Connections between their
// channels. Two execution domains touch it:
//
//   - The render domain calls Process once per audio block from the device
//     callback. Process takes no locks, performs no allocation and never
//     fails: a block that cannot be rendered is silence.
//   - The control domain (network handlers, cleanup loops) mutates topology
//     with AddNode, RemoveNode, AddConnection and RemoveConnection.
//
// Mutators serialize on a control mutex, build a fresh immutable render plan
// (topological order plus per-input source lists) and publish it with an
// atomic pointer store. Process loads the plan once at the start of each
// block, so a block always sees one consistent topology.
//
// Removed nodes are not released immediately. RemoveNode retires the node,
// stamped with the render sequence counter, and Reclaim releases it only once
// the render thread has finished every block that could still reference it.
//
// One-shot playback nodes signal completion by moving to StateFinished. The
// render thread notices the transition and posts the node id on the channel
// returned by Completed with a non-blocking send; the owner removes the node
// from a control goroutine.
//
// Basic use:
//
//	g := graph.New()
//	if err := g.Prepare(48000, 512); err != nil {
//	    return err
//	}
//	out, _ := g.AddNode(nodes.NewOutput(2))
//	src, _ := g.AddNode(player)
//	g.AddConnection(graph.Connection{
//	    Source: graph.Endpoint{Node: src, Channel: 0},
//	    Dest:   graph.Endpoint{Node: out, Channel: 0},
//	})
//	device.SetCallback(g.Process)
package graph
