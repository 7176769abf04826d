package graph

import "errors"

var (
	// ErrNodeNotFound indicates an unknown NodeID.
	ErrNodeNotFound = errors.New("node not found")

	// ErrChannelOutOfRange indicates a connection channel beyond a node's
	// input or output count.
	ErrChannelOutOfRange = errors.New("channel out of range")

	// ErrCycle indicates a connection that would make the graph cyclic.
	ErrCycle = errors.New("connection would create a cycle")

	// ErrNotPrepared indicates an operation that needs Prepare first.
	ErrNotPrepared = errors.New("graph not prepared")

	// ErrNilNode indicates a nil Node passed to AddNode.
	ErrNilNode = errors.New("nil node")

	// ErrInvalidFormat indicates a non-positive sample rate or block size.
	ErrInvalidFormat = errors.New("invalid sample rate or block size")
)
