// File: uipc/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Channel table entries and their lifecycle transitions. Every function with
// the Locked suffix expects u.mu to be held and never takes it again.

package uipc

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-uipc/api"
	"github.com/momentics/hioload-uipc/internal/transport"
	"github.com/momentics/hioload-uipc/reactor"
)

// ChannelState is the lifecycle state of one channel.
type ChannelState int

const (
	StateClosed ChannelState = iota
	StateListening
	StateConnected
)

func (s ChannelState) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	}
	return "closed"
}

type channel struct {
	listenFD        int
	conn            *peerConn
	readPollTimeout time.Duration
	callback        api.Callback
	gen             uint64 // bumped by every Open
}

func (ch *channel) reset() {
	ch.listenFD = transport.Disconnected
	ch.conn = nil
	ch.callback = nil
}

func (ch *channel) state() ChannelState {
	switch {
	case ch.conn != nil:
		return StateConnected
	case ch.listenFD != transport.Disconnected:
		return StateListening
	}
	return StateClosed
}

// peerConn is an accepted peer socket. The channel holds one reference and
// every in-flight Read holds another; the descriptor is closed when the last
// reference goes, so a Read never polls a recycled descriptor number.
type peerConn struct {
	fd      int
	refs    atomic.Int32
	watched bool // registered in the active set; guarded by u.mu
}

func newPeerConn(fd int) *peerConn {
	c := &peerConn{fd: fd}
	c.refs.Store(1)
	return c
}

func (c *peerConn) acquire() {
	c.refs.Add(1)
}

func (c *peerConn) release() {
	if c.refs.Add(-1) == 0 {
		transport.Close(c.fd)
	}
}

// pendingClose is a Close requested outside the reactor. gen pins it to the
// Open it was issued against.
type pendingClose struct {
	id  api.ChannelID
	gen uint64
}

type notification struct {
	id api.ChannelID
	ev api.Event
	cb api.Callback
}

// State reports the lifecycle state of a channel.
func (u *UIPC) State(id api.ChannelID) ChannelState {
	if !id.Valid() {
		return StateClosed
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.channels[id].state()
}

// Open binds the channel's well-known name and starts listening for its peer.
// cb, if not nil, receives the channel's notifications.
func (u *UIPC) Open(id api.ChannelID, cb api.Callback) error {
	if !id.Valid() {
		return api.ErrInvalidChannel
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.running {
		return api.ErrNotRunning
	}
	log := u.log.WithField("channel", id)
	ch := &u.channels[id]
	if ch.state() != StateClosed {
		log.Debug("channel already open")
		return api.ErrAlreadyOpen
	}

	name := u.cfg.ChannelName(id)
	ns, err := transport.ParseNamespace(u.cfg.Namespace)
	if err != nil {
		return setupError(id, name, err)
	}
	fd, err := transport.Listen(name, ns, u.cfg.ListenBacklog)
	if err != nil {
		log.WithError(err).WithField("name", name).Error("failed to setup channel server")
		return setupError(id, name, err)
	}
	if err := u.poller.Register(fd, reactor.EventRead); err != nil {
		transport.Close(fd)
		log.WithError(err).Error("failed to watch channel server")
		return setupError(id, name, err)
	}
	log.WithFields(logrus.Fields{"fd": fd, "name": name, "namespace": ns}).Debug("channel server listening")

	ch.listenFD = fd
	ch.callback = cb
	ch.readPollTimeout = u.cfg.ReadPollTimeout()
	ch.gen++

	u.wakeupLocked()
	return nil
}

func setupError(id api.ChannelID, name string, err error) error {
	return api.NewError(api.ErrCodeSetup, "channel setup failed").
		WithContext("channel", id.String()).
		WithContext("name", name).
		Wrap(err)
}

// acceptLocked takes the pending peer of a listening channel. It reports
// whether a new connection was installed.
func (u *UIPC) acceptLocked(id api.ChannelID) bool {
	ch := &u.channels[id]
	log := u.log.WithField("channel", id)

	fd, err := transport.Accept(ch.listenFD)
	if err != nil {
		u.metrics.Inc(MetricAcceptFailures)
		aerr := api.NewError(api.ErrCodeAccept, "accept failed").
			WithContext("channel", id.String()).
			WithContext("listen_fd", ch.listenFD).
			Wrap(err)
		if errors.Is(err, transport.ErrNoPendingConnection) {
			log.WithError(aerr).Warn("accept poll timeout")
		} else {
			log.WithError(aerr).Error("failed to accept")
		}
		return false
	}
	if ch.conn != nil {
		// One peer per channel.
		u.metrics.Inc(MetricRejectedPeers)
		log.Warn("rejected second peer on connected channel")
		transport.Close(fd)
		return false
	}
	if size := u.cfg.RecvBufferSize; size > 0 {
		if err := transport.SetRecvBuffer(fd, size); err != nil {
			log.WithError(err).Error("failed to size receive buffer")
		}
	}

	c := newPeerConn(fd)
	ch.conn = c
	u.metrics.Inc(MetricAccepts)
	log.WithField("fd", fd).Debug("incoming connection")

	if ch.callback != nil {
		if err := u.poller.Register(fd, reactor.EventRead); err != nil {
			log.WithError(err).Error("failed to watch connection")
		} else {
			c.watched = true
		}
		u.notifyLocked(id, api.EventOpen)
	}
	return true
}

// closeChannelLocked releases both descriptors of the channel and queues a
// Close notification, whether or not a peer was connected.
func (u *UIPC) closeChannelLocked(id api.ChannelID) {
	ch := &u.channels[id]
	log := u.log.WithField("channel", id)
	released := false

	if ch.listenFD != transport.Disconnected {
		log.WithField("fd", ch.listenFD).Debug("close server")
		u.unwatchLocked(ch.listenFD)
		transport.Close(ch.listenFD)
		ch.listenFD = transport.Disconnected
		released = true
	}
	if c := ch.conn; c != nil {
		log.WithField("fd", c.fd).Debug("close connection")
		if c.watched {
			u.unwatchLocked(c.fd)
			c.watched = false
		}
		// Wakes any Read still polling this socket.
		transport.Shutdown(c.fd)
		c.release()
		ch.conn = nil
		released = true
	}

	u.notifyLocked(id, api.EventClose)
	if released {
		u.wakeupLocked()
	}
}

// detachLocked closes the channel if c is still its connection. A Read that
// lost the race with another close leaves the newer state alone.
func (u *UIPC) detachLocked(id api.ChannelID, c *peerConn) {
	if u.channels[id].conn == c {
		u.closeChannelLocked(id)
	}
}

func (u *UIPC) unwatchLocked(fd int) {
	if u.poller == nil {
		return
	}
	if err := u.poller.Unregister(fd); err != nil {
		u.log.WithError(err).WithField("fd", fd).Debug("unwatch failed")
	}
}

func (u *UIPC) notifyLocked(id api.ChannelID, ev api.Event) {
	cb := u.channels[id].callback
	if cb == nil {
		return
	}
	u.outbox = append(u.outbox, notification{id: id, ev: ev, cb: cb})
}

func (u *UIPC) takeOutboxLocked() []notification {
	out := u.outbox
	u.outbox = nil
	return out
}

func (u *UIPC) channelStates() []map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]map[string]any, 0, len(u.channels))
	for i := range u.channels {
		ch := &u.channels[i]
		entry := map[string]any{
			"channel":              api.ChannelID(i).String(),
			"state":                ch.state().String(),
			"listen_fd":            ch.listenFD,
			"read_poll_timeout_ms": ch.readPollTimeout.Milliseconds(),
			"callback":             ch.callback != nil,
		}
		if ch.conn != nil {
			entry["conn_fd"] = ch.conn.fd
			entry["watched"] = ch.conn.watched
		}
		out = append(out, entry)
	}
	return out
}
