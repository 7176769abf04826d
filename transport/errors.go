package transport

import "errors"

var (
	// ErrMalformedPacket indicates a datagram that is not a valid Packet.
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrNoContent indicates a Packet with no content set.
	ErrNoContent = errors.New("packet has no content")

	// ErrPacketTooLarge indicates an encoded Packet that does not fit in a
	// datagram.
	ErrPacketTooLarge = errors.New("packet too large")

	// ErrServerClosed indicates use of a closed Server.
	ErrServerClosed = errors.New("server closed")

	// ErrAlreadyStarted indicates a second call to Start.
	ErrAlreadyStarted = errors.New("server already started")
)
