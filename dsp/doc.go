// Package dsp provides the signal building blocks used by beak's audio nodes.
//
// The primitives here are stateful per instance but allocation-free once
// prepared, so they can run inside the real-time render callback:
//
//   - Oscillator: band-unlimited sine, saw and square generator driven by a
//     MIDI note number.
//   - Filter: topology-preserving-transform state variable filter with
//     lowpass, bandpass and highpass outputs and a cutoff modulator input.
//   - ADSR: linear attack/decay/sustain/release envelope generator.
//   - Gain: linear gain with clipping protection.
//   - Reverb: mono comb/allpass room reverb.
//
// Resampler is the exception: it converts whole decoded assets between sample
// rates on the control plane and allocates its output.
//
// Typical voice chain:
//
//	osc := dsp.NewOscillator()
//	osc.Prepare(48000)
//	osc.SetNote(60)
//	env := dsp.NewADSR()
//	env.Prepare(48000)
//	env.NoteOn()
//	for i := range block {
//	    block[i] = osc.Next() * env.Next()
//	}
package dsp
