// Package limits provides centralized bounds for the beak audio engine.
// This ensures consistent validation across the transport, cache and engine.
package limits

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MaxDatagramSize is the receive buffer size of the control server.
	MaxDatagramSize = 2048

	// MaxURILength is the longest asset URI the cache accepts.
	MaxURILength = 1024

	// MaxAssetDuration is the longest decoded asset the cache keeps in memory.
	MaxAssetDuration = 20 * time.Second

	// MaxNoteDuration bounds the auto-release countdown of a synth note.
	MaxNoteDuration = 60 * time.Second

	// MaxChannels is the largest channel count any device or virtual
	// output layout may declare.
	MaxChannels = 64
)

var (
	// ErrEmpty indicates an empty payload or string was provided
	ErrEmpty = errors.New("empty input")

	// ErrTooLarge indicates input exceeds its maximum size
	ErrTooLarge = errors.New("input too large")

	// ErrChannelOutOfRange indicates a channel index outside the configured range
	ErrChannelOutOfRange = errors.New("channel out of range")

	// ErrDurationExceeded indicates a duration above its ceiling
	ErrDurationExceeded = errors.New("duration exceeded")
)

// ValidateDatagram validates a received control datagram against MaxDatagramSize.
func ValidateDatagram(data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if len(data) > MaxDatagramSize {
		return fmt.Errorf("%w: datagram size %d exceeds limit %d", ErrTooLarge, len(data), MaxDatagramSize)
	}
	return nil
}

// ValidateURI validates an asset URI length against MaxURILength.
func ValidateURI(uri string) error {
	if len(uri) == 0 {
		return ErrEmpty
	}
	if len(uri) > MaxURILength {
		return fmt.Errorf("%w: uri length %d exceeds limit %d", ErrTooLarge, len(uri), MaxURILength)
	}
	return nil
}

// ValidateAssetDuration validates a decoded asset duration against MaxAssetDuration.
func ValidateAssetDuration(d time.Duration) error {
	if d > MaxAssetDuration {
		return fmt.Errorf("%w: %s is longer than maximum of %s", ErrDurationExceeded, d, MaxAssetDuration)
	}
	return nil
}

// ClampNoteDuration limits a note duration to [0, MaxNoteDuration].
func ClampNoteDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxNoteDuration {
		return MaxNoteDuration
	}
	return d
}

// ChannelBounds describes the valid 1-based channel range [1, Count].
type ChannelBounds struct {
	Count int
}

// NewChannelBounds creates bounds for count channels.
func NewChannelBounds(count int) ChannelBounds {
	return ChannelBounds{Count: count}
}

// Validate returns ErrChannelOutOfRange unless 1 <= channel <= Count.
func (b ChannelBounds) Validate(channel int) error {
	if channel < 1 || channel > b.Count {
		return fmt.Errorf("%w: channel %d not in [1, %d]", ErrChannelOutOfRange, channel, b.Count)
	}
	return nil
}

// Clamp limits channel to [1, Count]. With no channels configured it returns 1.
func (b ChannelBounds) Clamp(channel int) int {
	if channel < 1 || b.Count < 1 {
		return 1
	}
	if channel > b.Count {
		return b.Count
	}
	return channel
}

// Index converts a validated 1-based channel to a 0-based index.
func (b ChannelBounds) Index(channel int) int {
	return channel - 1
}
