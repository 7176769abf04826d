// Package engine turns control intents into graph mutations and node
// commands.
//
// An Engine owns one graph.Graph and one device.Device. Configure builds the
// fixed topology:
//
//	voice[i] ─┐
//	player ───┼─> bus[i] (filter) ──> output[i]
//	input[i] ─┘   (monitor mode)
//
// and, in virtual-output mode, a sampler and panner per virtual channel that
// feed the first two buses.
//
// One-shot players are inserted per PlaySound call and removed by the
// cleanup protocol: the render thread posts finished node ids on the graph's
// completion channel, and a control goroutine (woken by that channel or by a
// fixed-interval ticker) removes every finished one-shot and reclaims it.
// Nothing is removed on the render thread.
//
// Channels are 1-based throughout the public API.
package engine
