//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// linuxReactor is a level-triggered epoll reactor.
type linuxReactor struct {
	epfd   int
	raw    []unix.EpollEvent
	closed atomic.Bool
}

// NewReactor constructs a new platform-specific EventReactor for Linux.
func NewReactor() (EventReactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &linuxReactor{epfd: epfd}, nil
}

// Register adds file descriptor to epoll.
func (r *linuxReactor) Register(fd int, events EventMask) error {
	if r.closed.Load() {
		return ErrClosed
	}
	ev := &unix.EpollEvent{
		Events: toEpoll(events),
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return fmt.Errorf("epoll ctl add fd %d: %w", fd, err)
	}
	return nil
}

// Unregister removes a file descriptor from the epoll watch list.
func (r *linuxReactor) Unregister(fd int) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd %d: %w", fd, err)
	}
	return nil
}

// Wait waits for epoll events and fills the result into events slice.
// It is meant to be called from a single goroutine.
func (r *linuxReactor) Wait(events []Event, timeoutMs int) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	if cap(r.raw) < len(events) {
		r.raw = make([]unix.EpollEvent, len(events))
	}
	raw := r.raw[:len(events)]
	if timeoutMs < 0 {
		timeoutMs = -1
	}
	n, err := unix.EpollWait(r.epfd, raw, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		events[i] = Event{
			Fd:     int(raw[i].Fd),
			Events: fromEpoll(raw[i].Events),
		}
	}
	return n, nil
}

// Close closes the epoll instance.
func (r *linuxReactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(r.epfd)
}

func toEpoll(events EventMask) uint32 {
	var out uint32
	if events&EventRead != 0 {
		out |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		out |= unix.EPOLLOUT
	}
	return out
}

func fromEpoll(raw uint32) EventMask {
	var out EventMask
	if raw&unix.EPOLLIN != 0 {
		out |= EventRead
	}
	if raw&unix.EPOLLOUT != 0 {
		out |= EventWrite
	}
	if raw&unix.EPOLLERR != 0 {
		out |= EventError
	}
	if raw&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		out |= EventHangup
	}
	return out
}
