// Package nodes provides the concrete graph.Node implementations used by the
// engine.
//
//   - Output / Input: device I/O (graph.HostIO)
//   - Player: one-shot playback of a decoded buffer; finishes on its own
//   - Sampler: persistent multi-shot playback, retriggered with new buffers
//   - Voice: monophonic synthesizer voice (oscillator, filter, two ADSRs)
//   - Panner: mono to stereo constant-power panner
//   - Filter: multi-channel state variable filter insert
//
// Every Process method is real-time safe. Control-side calls that change
// what a node renders (Trigger, NoteOn, SetParams, Stop) never touch render
// state directly; they publish through atomics or a bounded event channel
// and take effect at the start of the next block.
package nodes
