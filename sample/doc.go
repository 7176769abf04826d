// Package sample holds decoded audio assets and the decoders that produce
// them.
//
// A Buffer is immutable once built and is shared by reference between the
// resource cache and every playback node reading from it. Samples are
// float32, interleaved, nominally in [-1, 1].
//
// Decoders are selected by file extension:
//
//	.wav         github.com/cwbudde/wav
//	.mp3         github.com/hajimehoshi/go-mp3
//	.opus, .ogg  github.com/pion/opus (Ogg encapsulated, resampled to 48 kHz)
//
// Supported reports whether an extension can be decoded without touching the
// file, which lets callers reject unsupported assets before any I/O.
package sample
