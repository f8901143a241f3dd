// File: uipc/io.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Data path and control multiplexer: Send, Read and Ioctl.

package uipc

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-uipc/api"
	"github.com/momentics/hioload-uipc/internal/transport"
)

// recv is the receive primitive used by Read and FlushReceive.
var recv = transport.Recv

// Send performs one blocking write of p to the channel's peer. The lock is
// held for the duration of the write, so sends on all channels are serialized.
func (u *UIPC) Send(id api.ChannelID, p []byte) (int, error) {
	if !id.Valid() {
		return 0, api.ErrInvalidChannel
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	log := u.log.WithField("channel", id)
	c := u.channels[id].conn
	if c == nil {
		log.Debug("send on channel without peer")
		return 0, api.ErrChannelClosed
	}
	n, err := transport.Write(c.fd, p)
	if err != nil {
		u.metrics.Inc(MetricSendFailures)
		log.WithError(err).WithField("fd", c.fd).Error("failed to write")
		return n, api.NewError(api.ErrCodeIO, "send failed").
			WithContext("channel", id.String()).
			Wrap(err)
	}
	u.metrics.Add(MetricBytesSent, int64(n))
	return n, nil
}

// Read fills p from the channel's peer, polling with the channel's read poll
// timeout between receives. A timeout or a failed poll ends the read with
// the bytes gathered so far. A hang-up or an orderly shutdown by the peer
// closes the channel and returns (0, api.ErrPeerClosed), discarding any
// partial data. A receive error returns (0, err) and leaves the channel open.
func (u *UIPC) Read(id api.ChannelID, p []byte) (int, error) {
	if !id.Valid() {
		return 0, api.ErrInvalidChannel
	}
	u.mu.Lock()
	ch := &u.channels[id]
	c := ch.conn
	if c == nil {
		u.mu.Unlock()
		u.log.WithField("channel", id).Debug("read on channel without peer")
		return 0, api.ErrChannelClosed
	}
	c.acquire()
	timeout := pollMillis(ch.readPollTimeout)
	u.mu.Unlock()
	defer c.release()

	log := u.log.WithField("channel", id).WithField("fd", c.fd)
	n := 0
	for n < len(p) {
		ready, err := transport.PollIn(c.fd, timeout)
		if err != nil {
			log.WithError(err).Error("poll failed")
			break
		}
		if ready == 0 {
			log.WithField("read", n).Trace("poll timeout")
			break
		}
		if ready.Closed() {
			log.Debug("poll reported hangup")
			u.closeFromRead(id, c)
			return 0, api.ErrPeerClosed
		}
		got, err := recv(c.fd, p[n:])
		if err != nil {
			u.metrics.Inc(MetricReadFailures)
			log.WithError(err).Error("read failed")
			return 0, api.NewError(api.ErrCodeIO, "receive failed").
				WithContext("channel", id.String()).
				Wrap(err)
		}
		if got == 0 {
			log.Debug("peer closed connection")
			u.closeFromRead(id, c)
			return 0, api.ErrPeerClosed
		}
		n += got
	}
	u.metrics.Add(MetricBytesRead, int64(n))
	return n, nil
}

func (u *UIPC) closeFromRead(id api.ChannelID, c *peerConn) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.detachLocked(id, c)
}

// Ioctl multiplexes the channel control requests. param carries the new
// callback for api.IoctlRegisterCallback and the timeout, as a time.Duration
// or an integer number of milliseconds, for api.IoctlSetReadPollTimeout.
func (u *UIPC) Ioctl(id api.ChannelID, req api.IoctlRequest, param any) error {
	if !id.Valid() {
		return api.ErrInvalidChannel
	}
	u.log.WithField("channel", id).WithField("request", req).Debug("ioctl")

	switch req {
	case api.IoctlFlushReceive:
		_, err := u.FlushReceive(id)
		return err
	case api.IoctlRegisterCallback:
		cb, ok := callbackParam(param)
		if !ok {
			return invalidParam(id, req, param)
		}
		return u.RegisterCallback(id, cb)
	case api.IoctlRemoveFromActiveSet:
		return u.RemoveFromActiveSet(id)
	case api.IoctlSetReadPollTimeout:
		d, ok := durationParam(param)
		if !ok {
			return invalidParam(id, req, param)
		}
		return u.SetReadPollTimeout(id, d)
	}
	u.log.WithField("channel", id).WithField("request", int(req)).Warn("unknown ioctl request")
	return api.NewError(api.ErrCodeNotSupported, "unknown ioctl request").
		WithContext("channel", id.String()).
		WithContext("request", int(req)).
		Wrap(api.ErrNotSupported)
}

func invalidParam(id api.ChannelID, req api.IoctlRequest, param any) error {
	return api.NewError(api.ErrCodeInvalidArgument, "bad ioctl parameter").
		WithContext("channel", id.String()).
		WithContext("request", req.String()).
		WithContext("param", fmt.Sprintf("%T", param)).
		Wrap(api.ErrInvalidArgument)
}

// FlushReceive discards whatever the peer has already sent. It polls with the
// configured flush timeout and stops when nothing is pending, on hang-up, on
// end of stream or on a receive error. It reports the number of bytes dropped.
func (u *UIPC) FlushReceive(id api.ChannelID) (int, error) {
	if !id.Valid() {
		return 0, api.ErrInvalidChannel
	}
	u.mu.Lock()
	c := u.channels[id].conn
	if c == nil {
		u.mu.Unlock()
		return 0, api.ErrChannelClosed
	}
	c.acquire()
	timeout := u.cfg.FlushPollTimeoutMs
	scratch := make([]byte, u.cfg.FlushBufferSize)
	u.mu.Unlock()
	defer c.release()

	log := u.log.WithField("channel", id).WithField("fd", c.fd)
	dropped := 0
	for {
		ready, err := transport.PollIn(c.fd, timeout)
		if err != nil {
			log.WithError(err).Error("flush poll failed")
			break
		}
		if ready == 0 || ready&transport.ReadyIn == 0 {
			break
		}
		if ready.Closed() || ready&transport.ReadyError != 0 {
			log.WithField("readiness", ready).Debug("flush stopped on hangup")
			break
		}
		n, err := recv(c.fd, scratch)
		if err != nil {
			log.WithError(err).Debug("flush read failed")
			break
		}
		if n == 0 {
			break
		}
		dropped += n
	}
	u.metrics.Add(MetricFlushedBytes, int64(dropped))
	log.WithField("dropped", dropped).Debug("receive flushed")
	return dropped, nil
}

// RegisterCallback replaces the channel's callback. A nil cb silences the
// channel. The connection keeps its active set membership either way.
func (u *UIPC) RegisterCallback(id api.ChannelID, cb api.Callback) error {
	if !id.Valid() {
		return api.ErrInvalidChannel
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.channels[id].callback = cb
	return nil
}

// RemoveFromActiveSet stops readiness notifications for the channel's peer;
// the caller reads the connection directly from then on.
func (u *UIPC) RemoveFromActiveSet(id api.ChannelID) error {
	if !id.Valid() {
		return api.ErrInvalidChannel
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	c := u.channels[id].conn
	if c == nil {
		return api.ErrChannelClosed
	}
	if c.watched {
		u.unwatchLocked(c.fd)
		c.watched = false
	}
	u.wakeupLocked()
	return nil
}

// SetReadPollTimeout sets the per-poll timeout used by Read on the channel.
func (u *UIPC) SetReadPollTimeout(id api.ChannelID, d time.Duration) error {
	if !id.Valid() {
		return api.ErrInvalidChannel
	}
	if d < 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "negative read poll timeout").
			WithContext("channel", id.String()).
			WithContext("timeout", d.String()).
			Wrap(api.ErrInvalidArgument)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.channels[id].readPollTimeout = d
	u.log.WithField("channel", id).WithField("timeout", d).Debug("read poll timeout set")
	return nil
}

// pollMillis rounds d up to whole milliseconds.
func pollMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

func callbackParam(param any) (api.Callback, bool) {
	switch v := param.(type) {
	case nil:
		return nil, true
	case api.Callback:
		return v, true
	case func(api.ChannelID, api.Event):
		return v, true
	}
	return nil, false
}

func durationParam(param any) (time.Duration, bool) {
	switch v := param.(type) {
	case time.Duration:
		return v, true
	case int:
		return time.Duration(v) * time.Millisecond, true
	case int32:
		return time.Duration(v) * time.Millisecond, true
	case int64:
		return time.Duration(v) * time.Millisecond, true
	case uint32:
		return time.Duration(v) * time.Millisecond, true
	}
	return 0, false
}
