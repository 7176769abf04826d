// Package metrics exposes engine, cache and control-plane counters in the
// Prometheus text format, together with liveness and readiness endpoints.
//
// Values are read from the components' Stats methods at scrape time, so
// nothing on the audio thread touches Prometheus types.
package metrics
