package engine

import "errors"

var (
	// ErrInvalidChannel indicates a channel outside the configured range.
	ErrInvalidChannel = errors.New("invalid channel")

	// ErrInvalidEvent indicates a synth event type the engine does not know.
	ErrInvalidEvent = errors.New("invalid synth event")

	// ErrNotConfigured indicates an operation before Configure succeeded.
	ErrNotConfigured = errors.New("engine not configured")

	// ErrConfiguration indicates Configure failed; the engine is not running.
	ErrConfiguration = errors.New("engine configuration failed")

	// ErrInvariantViolation indicates inconsistent internal bookkeeping.
	ErrInvariantViolation = errors.New("engine invariant violated")
)
