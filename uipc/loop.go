// File: uipc/loop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor goroutine: blocking readiness wait, deferred close service,
// priority-ordered channel service and teardown.

package uipc

import (
	"fmt"
	"runtime"
	"time"

	"github.com/momentics/hioload-uipc/affinity"
	"github.com/momentics/hioload-uipc/api"
	"github.com/momentics/hioload-uipc/control"
	"github.com/momentics/hioload-uipc/internal/transport"
	"github.com/momentics/hioload-uipc/reactor"
)

// waitErrorBackoff throttles the loop when the wait itself keeps failing.
const waitErrorBackoff = 10 * time.Millisecond

func (u *UIPC) run(poller reactor.EventReactor, wake *transport.Wakeup, done chan struct{}, cfg *control.Config) {
	// The thread is never unlocked: once renamed or pinned it is discarded
	// with the goroutine instead of going back to the scheduler.
	runtime.LockOSThread()
	u.mu.Lock()
	u.reactorTID = affinity.ThreadID()
	u.mu.Unlock()
	u.placeThread(cfg)
	u.log.Debug("reactor started")

	events := make([]reactor.Event, cfg.ReactorBatchSize)
	ready := make(map[int]reactor.EventMask, cfg.ReactorBatchSize)

	for {
		n, err := poller.Wait(events, -1)
		if err != nil {
			u.log.WithError(err).Error("wait failed")
			time.Sleep(waitErrorBackoff)
		}

		u.mu.Lock()
		if !u.running {
			u.mu.Unlock()
			break
		}
		clear(ready)
		for _, ev := range events[:n] {
			ready[ev.Fd] |= ev.Events
		}
		u.serviceLocked(wake, ready)
		out := u.takeOutboxLocked()
		u.mu.Unlock()

		u.dispatch(out)
	}

	u.log.Debug("reactor exiting")
	u.teardown(poller, wake)
	close(done)
	u.log.Debug("reactor done")
}

func (u *UIPC) placeThread(cfg *control.Config) {
	if cfg.ThreadName != "" {
		if err := affinity.SetThreadName(cfg.ThreadName); err != nil {
			u.log.WithError(err).Debug("thread name not set")
		}
	}
	if cfg.ReactorCPU >= 0 {
		if err := affinity.SetAffinity(cfg.ReactorCPU); err != nil {
			u.log.WithError(err).WithField("cpu", cfg.ReactorCPU).Warn("reactor affinity not applied")
		}
	}
}

// serviceLocked runs one reactor pass over the readiness snapshot.
func (u *UIPC) serviceLocked(wake *transport.Wakeup, ready map[int]reactor.EventMask) {
	if ready[wake.FD()] != 0 {
		if ok, err := wake.Drain(); err != nil {
			u.log.WithError(err).Error("wakeup drain failed")
		} else if ok {
			u.metrics.Inc(MetricWakeups)
		}
	}

	u.closes.Drain(func(p pendingClose) {
		ch := &u.channels[p.id]
		if ch.gen != p.gen || ch.state() == StateClosed {
			return
		}
		u.closeChannelLocked(p.id)
	})

	u.serviceChannelLocked(api.PriorityChannel, ready)
	for id := api.ChannelID(0); id < api.ChannelCount; id++ {
		if id != api.PriorityChannel {
			u.serviceChannelLocked(id, ready)
		}
	}
}

func (u *UIPC) serviceChannelLocked(id api.ChannelID, ready map[int]reactor.EventMask) {
	ch := &u.channels[id]
	if ch.listenFD != transport.Disconnected && ready[ch.listenFD]&reactor.EventRead != 0 {
		if u.acceptLocked(id) {
			// The new socket was not part of this wait.
			return
		}
	}
	if c := ch.conn; c != nil && c.watched && ready[c.fd] != 0 {
		u.metrics.Inc(MetricRxReady)
		u.notifyLocked(id, api.EventRxDataReady)
	}
}

// teardown closes every open channel and releases the wait set.
func (u *UIPC) teardown(poller reactor.EventReactor, wake *transport.Wakeup) {
	u.mu.Lock()
	u.reactorTID = 0
	u.wake = nil
	if err := wake.Close(); err != nil {
		u.log.WithError(err).Warn("wakeup close failed")
	}
	u.closes.Drain(func(pendingClose) {})
	for id := api.ChannelID(0); id < api.ChannelCount; id++ {
		if u.channels[id].state() != StateClosed {
			u.closeChannelLocked(id)
		}
	}
	u.poller = nil
	if err := poller.Close(); err != nil {
		u.log.WithError(err).Warn("reactor close failed")
	}
	out := u.takeOutboxLocked()
	u.metrics.Set("running", false)
	u.mu.Unlock()

	u.dispatch(out)
}

// dispatch delivers notifications outside the lock, in order. A panicking
// callback is logged and does not stop the reactor.
func (u *UIPC) dispatch(out []notification) {
	for _, n := range out {
		u.deliver(n)
	}
}

func (u *UIPC) deliver(n notification) {
	defer func() {
		if r := recover(); r != nil {
			err := api.NewError(api.ErrCodeInternal, "callback panic").
				WithContext("channel", n.id.String()).
				WithContext("event", n.ev.String()).
				WithContext("panic", fmt.Sprint(r))
			u.log.WithError(err).Error("callback panicked")
		}
	}()
	u.log.WithField("channel", n.id).WithField("event", n.ev).Trace("notify")
	n.cb(n.id, n.ev)
}
