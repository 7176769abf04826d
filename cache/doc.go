// Package cache fetches, decodes and keeps audio assets in memory, keyed by
// their canonical URI.
//
// Local assets must live inside a configured sample root. Remote assets are
// downloaded over HTTP(S) into a staging directory, guarded by a circuit
// breaker and a per-download deadline, and revalidated with ETags on
// request. Concurrent requests for the same URI share one fetch. The cache
// is unbounded; entries are only replaced, never evicted.
package cache
