// Package device is the boundary between the audio graph and whatever
// drives it at block cadence.
//
// A Device is a callback source: once started it calls the registered
// Callback with a planar buffer holding the device input for the block, and
// sends what the callback leaves in the buffer to the output.
//
// Implementations:
//
//   - Manual renders only when asked (Render), for deterministic tests and
//     offline rendering.
//   - Null renders on a ticker at real-time block cadence without touching
//     hardware, for servers without a sound card.
//   - Oto plays through github.com/ebitengine/oto/v3. oto allows one
//     context per process, so all Oto devices share it and the first Open
//     fixes its sample rate and channel count. Building with the headless
//     tag replaces it with a stub that fails to open.
//
// SetCallback(nil) waits for any block in progress, so after it returns the
// previous callback is guaranteed not to be running.
package device
