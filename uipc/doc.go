// File: uipc/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package uipc exposes a fixed set of local stream socket channels between an
// audio producer process and the protocol stack that consumes it.
//
// Each channel listens on a well-known local socket name and accepts a single
// peer. One reactor goroutine waits on every listening and connected socket
// plus a private wakeup socketpair, accepts peers, and reports Open, Close and
// RxDataReady events to per-channel callbacks. Callers move bytes with Send
// and Read, and adjust a channel with Ioctl.
//
// A UIPC instance is created with New, started with Init and stopped with
// Shutdown (or Close(api.ChannelAll)), which blocks until the reactor has
// released every descriptor. Init may be called again after Shutdown.
//
// Callbacks run on the reactor goroutine, after the instance lock has been
// released, in the order the events occurred. They may call Send, Read,
// Ioctl, Open and Close for single channels. Shutdown, or Close(api.ChannelAll),
// from a callback returns api.ErrShutdownFromCallback.
package uipc
