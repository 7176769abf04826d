package control

import "errors"

var (
	// ErrInvalidParams indicates a synth frame with an unknown enum value.
	ErrInvalidParams = errors.New("invalid synth parameters")

	// ErrMissingBody indicates a packet whose content body is nil.
	ErrMissingBody = errors.New("packet body missing")
)
