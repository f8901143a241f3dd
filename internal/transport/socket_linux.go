//go:build linux
// +build linux

// File: internal/transport/socket_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux AF_UNIX stream helpers built on golang.org/x/sys/unix.

package transport

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Listen creates a listening local stream socket bound to name.
func Listen(name string, ns Namespace, backlog int) (int, error) {
	if name == "" {
		return Disconnected, errors.New("transport: empty socket name")
	}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return Disconnected, fmt.Errorf("socket create: %w", err)
	}
	if ns == NamespaceFilesystem {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			unix.Close(fd)
			return Disconnected, fmt.Errorf("unlink %s: %w", name, err)
		}
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: ns.Address(name)}); err != nil {
		unix.Close(fd)
		return Disconnected, fmt.Errorf("bind %s: %w", name, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return Disconnected, fmt.Errorf("listen %s: %w", name, err)
	}
	return fd, nil
}

// Accept takes one pending connection from a listening socket. The listener
// is polled first so a stale readiness report never blocks the caller.
func Accept(listenFD int) (int, error) {
	ready, err := PollIn(listenFD, 0)
	if err != nil {
		return Disconnected, err
	}
	if ready&ReadyIn == 0 {
		return Disconnected, ErrNoPendingConnection
	}
	for {
		fd, _, err := unix.Accept4(listenFD, unix.SOCK_CLOEXEC)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return Disconnected, fmt.Errorf("accept: %w", err)
		}
		return fd, nil
	}
}

// SetRecvBuffer sets SO_RCVBUF on fd.
func SetRecvBuffer(fd, size int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, size); err != nil {
		return fmt.Errorf("setsockopt SO_RCVBUF: %w", err)
	}
	return nil
}

// RecvBuffer reports the effective SO_RCVBUF of fd.
func RecvBuffer(fd int) (int, error) {
	return unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF)
}

// PollIn waits up to timeoutMs for fd to become readable. A zero result with
// a nil error means the timeout elapsed.
func PollIn(fd int, timeoutMs int) (Readiness, error) {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN | unix.POLLHUP}}
	for {
		n, err := unix.Poll(pfd, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return 0, nil
		}
		return readiness(pfd[0].Revents), nil
	}
}

func readiness(revents int16) Readiness {
	var r Readiness
	if revents&unix.POLLIN != 0 {
		r |= ReadyIn
	}
	if revents&unix.POLLHUP != 0 {
		r |= ReadyHangup
	}
	if revents&unix.POLLERR != 0 {
		r |= ReadyError
	}
	if revents&unix.POLLNVAL != 0 {
		r |= ReadyInvalid
	}
	return r
}

// Recv performs one receive into p. (0, nil) means orderly shutdown by the
// peer.
func Recv(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

// Write performs one blocking write of p.
func Write(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Write(fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

// Shutdown disables both directions of fd, waking any poll on it with a
// hang-up.
func Shutdown(fd int) error {
	return unix.Shutdown(fd, unix.SHUT_RDWR)
}

// Close releases fd.
func Close(fd int) error {
	return unix.Close(fd)
}
