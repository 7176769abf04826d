package device

import "errors"

var (
	// ErrOpen indicates the device could not be opened with the requested spec.
	ErrOpen = errors.New("cannot open audio device")

	// ErrNotOpen indicates an operation that needs Open first.
	ErrNotOpen = errors.New("audio device not open")

	// ErrBackendUnavailable indicates a backend compiled out of this build.
	ErrBackendUnavailable = errors.New("audio backend unavailable")

	// ErrUnknownBackend indicates a backend name New does not recognise.
	ErrUnknownBackend = errors.New("unknown audio backend")
)
