// Package limits provides centralized bounds for the beak audio engine.
//
// Every component that validates untrusted input (control datagrams, asset
// URIs, note durations, channel indices) takes its bounds from here so the
// network layer, the cache and the engine agree on a single source of truth.
//
// # Size and Duration Bounds
//
//   - MaxDatagramSize (2048 bytes): largest control packet the UDP server reads.
//     Larger datagrams are truncated by the kernel and rejected by the decoder.
//
//   - MaxURILength (1024 bytes): longest asset URI accepted by the cache.
//
//   - MaxAssetDuration (20s): decoded assets longer than this are rejected to
//     bound the memory held by the cache.
//
//   - MaxNoteDuration (60s): upper bound for the auto-release countdown of a
//     synthesizer note.
//
// # Channel Bounds
//
// Channels are 1-based on the wire and in the engine API. ChannelBounds is
// built once from the configured channel count and is the only place that
// decides whether a channel index is valid:
//
//	bounds := limits.NewChannelBounds(outputs)
//	if err := bounds.Validate(channel); err != nil {
//	    // ErrChannelOutOfRange
//	}
//	channel = bounds.Clamp(channel)
package limits
