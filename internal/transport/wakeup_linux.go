//go:build linux
// +build linux

// File: internal/transport/wakeup_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socketpair used to interrupt the reactor's blocking wait.

package transport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Wakeup is a connected socket pair. The read end sits in the reactor's
// active set; any goroutine writes one byte to the other end to make the
// wait return.
type Wakeup struct {
	rd int
	wr int
}

// NewWakeup creates a non-blocking wakeup pair.
func NewWakeup() (*Wakeup, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socketpair: %w", err)
	}
	return &Wakeup{rd: fds[0], wr: fds[1]}, nil
}

// FD returns the descriptor to register for readability.
func (w *Wakeup) FD() int {
	return w.rd
}

// Signal writes one wakeup byte. A full socket buffer already guarantees a
// pending wake, so EAGAIN is not an error.
func (w *Wakeup) Signal() error {
	sig := [1]byte{1}
	for {
		_, err := unix.Write(w.wr, sig[:])
		switch err {
		case nil, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		default:
			return fmt.Errorf("wakeup signal: %w", err)
		}
	}
}

// Drain consumes one wakeup byte and reports whether one was pending.
func (w *Wakeup) Drain() (bool, error) {
	var sig [1]byte
	for {
		n, err := unix.Read(w.rd, sig[:])
		switch err {
		case nil:
			return n == 1, nil
		case unix.EAGAIN:
			return false, nil
		case unix.EINTR:
			continue
		default:
			return false, fmt.Errorf("wakeup drain: %w", err)
		}
	}
}

// Close releases both ends.
func (w *Wakeup) Close() error {
	err := unix.Close(w.rd)
	if cerr := unix.Close(w.wr); err == nil {
		err = cerr
	}
	w.rd, w.wr = Disconnected, Disconnected
	return err
}
