// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness wait interface for descriptor multiplexing.

package reactor

import "errors"

// ErrClosed is returned once the reactor has been closed.
var ErrClosed = errors.New("reactor: closed")

// EventMask is a set of readiness conditions.
type EventMask uint32

const (
	// EventRead indicates the descriptor is readable (or a listener has a
	// pending connection).
	EventRead EventMask = 1 << iota
	// EventWrite indicates the descriptor is writable.
	EventWrite
	// EventError indicates an error condition on the descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// EventReactor defines the active descriptor set and its blocking wait.
type EventReactor interface {
	// Register adds fd to the active set for the given conditions.
	Register(fd int, events EventMask) error

	// Unregister removes fd from the active set.
	Unregister(fd int) error

	// Wait blocks until at least one registered descriptor is ready and fills
	// events. timeoutMs < 0 blocks without limit. An interrupted wait returns
	// zero events and no error.
	Wait(events []Event, timeoutMs int) (int, error)

	// Close releases the wait set.
	Close() error
}

// Event contains one readiness notification returned by Wait.
type Event struct {
	Fd     int
	Events EventMask
}
