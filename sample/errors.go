package sample

import "errors"

var (
	// ErrUnsupportedFormat indicates a file extension with no registered decoder.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrInvalidFile indicates the file is not a valid instance of its format.
	ErrInvalidFile = errors.New("invalid audio file")

	// ErrEmptyBuffer indicates decoding produced no frames.
	ErrEmptyBuffer = errors.New("empty audio buffer")

	// ErrInvalidLayout indicates a channel count, rate or data length that
	// cannot describe interleaved audio.
	ErrInvalidLayout = errors.New("invalid buffer layout")
)
