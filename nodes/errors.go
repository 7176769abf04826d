package nodes

import "errors"

var (
	// ErrNotPrepared indicates Start or Trigger on a node that is not in
	// StatePrepared.
	ErrNotPrepared = errors.New("node not prepared")

	// ErrEventQueueFull indicates a voice event dropped because the render
	// thread has not drained the previous ones.
	ErrEventQueueFull = errors.New("voice event queue full")

	// ErrNilBuffer indicates a nil sample buffer.
	ErrNilBuffer = errors.New("nil sample buffer")

	// ErrInvalidChannels indicates a channel count below one.
	ErrInvalidChannels = errors.New("invalid channel count")
)
