//go:build !linux
// +build !linux

// File: internal/transport/transport_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub implementation for unsupported platforms.

package transport

func Listen(name string, ns Namespace, backlog int) (int, error) { return Disconnected, ErrUnsupported }
func Accept(listenFD int) (int, error)                          { return Disconnected, ErrUnsupported }
func SetRecvBuffer(fd, size int) error                          { return ErrUnsupported }
func RecvBuffer(fd int) (int, error)                            { return 0, ErrUnsupported }
func PollIn(fd int, timeoutMs int) (Readiness, error)           { return 0, ErrUnsupported }
func Recv(fd int, p []byte) (int, error)                        { return 0, ErrUnsupported }
func Write(fd int, p []byte) (int, error)                       { return 0, ErrUnsupported }
func Shutdown(fd int) error                                     { return ErrUnsupported }
func Close(fd int) error                                        { return ErrUnsupported }

// Wakeup is unavailable on this platform.
type Wakeup struct{}

func NewWakeup() (*Wakeup, error)      { return nil, ErrUnsupported }
func (w *Wakeup) FD() int              { return Disconnected }
func (w *Wakeup) Signal() error        { return ErrUnsupported }
func (w *Wakeup) Drain() (bool, error) { return false, ErrUnsupported }
func (w *Wakeup) Close() error         { return ErrUnsupported }
