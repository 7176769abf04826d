// Package control turns control packets into engine and cache calls.
//
// audio_frame fetches the asset through the cache and plays it once;
// synth_frame configures and plays a synth voice; cache_samples prefetches
// assets with ETag revalidation; stop_playback silences a channel.
package control
