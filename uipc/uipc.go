// File: uipc/uipc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// UIPC instance: construction, start, shutdown, configuration reload and
// runtime introspection.

package uipc

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-uipc/affinity"
	"github.com/momentics/hioload-uipc/api"
	"github.com/momentics/hioload-uipc/control"
	"github.com/momentics/hioload-uipc/internal/concurrency"
	"github.com/momentics/hioload-uipc/internal/transport"
	"github.com/momentics/hioload-uipc/reactor"
)

// Metric keys.
const (
	MetricAccepts        = "accepts"
	MetricAcceptFailures = "accept_failures"
	MetricRejectedPeers  = "rejected_peers"
	MetricWakeups        = "wakeups"
	MetricRxReady        = "rx_ready"
	MetricBytesRead      = "bytes_read"
	MetricBytesSent      = "bytes_sent"
	MetricSendFailures   = "send_failures"
	MetricReadFailures   = "read_failures"
	MetricFlushedBytes   = "flushed_bytes"
	MetricReloads        = "reloads"
)

// UIPC owns the channel table, the active descriptor set and the reactor
// goroutine. All fields below mu are guarded by it.
type UIPC struct {
	store     *control.ConfigStore
	logger    *logrus.Logger
	ownLogger bool
	log       *logrus.Entry
	metrics   *control.MetricsRegistry
	probes    *control.DebugProbes
	cfgPath   string

	mu         sync.Mutex
	cfg        *control.Config
	running    bool
	done       chan struct{} // closed when the reactor goroutine has exited
	reactorTID int           // OS thread of the reactor goroutine, 0 when none
	poller     reactor.EventReactor
	wake       *transport.Wakeup
	watcher    *control.Watcher
	closes     *concurrency.Queue[pendingClose]
	outbox     []notification
	channels   [api.ChannelCount]channel
}

var (
	_ api.GracefulShutdown = (*UIPC)(nil)
	_ api.Debug            = (*UIPC)(nil)
)

// New constructs an idle UIPC. A nil cfg selects control.DefaultConfig.
func New(cfg *control.Config, opts ...Option) (*UIPC, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("uipc config: %w", err)
	}
	u := &UIPC{
		cfg:       cfg.Clone(),
		logger:    logrus.New(),
		ownLogger: true,
		closes:    concurrency.NewQueue[pendingClose](),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.metrics == nil {
		u.metrics = control.NewMetricsRegistry()
	}
	if u.probes == nil {
		u.probes = control.NewDebugProbes()
	}
	if u.ownLogger {
		u.logger.SetLevel(cfg.Level())
	}
	u.log = u.logger.WithField("component", "uipc")
	for i := range u.channels {
		u.channels[i].reset()
	}

	u.store = control.NewConfigStore(cfg)
	u.store.OnReload(u.applyConfig)

	control.RegisterPlatformProbes(u.probes)
	u.probes.RegisterProbe("uipc.channels", func() any { return u.channelStates() })
	u.probes.RegisterProbe("uipc.running", func() any { return u.Running() })
	return u, nil
}

// NewFromFile loads cfg from a JSON file and keeps watching it while the
// instance runs.
func NewFromFile(path string, opts ...Option) (*UIPC, error) {
	cfg, err := control.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(cfg, append(opts, WithConfigFile(path))...)
}

// Init creates the active descriptor set and the wakeup pair and starts the
// reactor goroutine.
func (u *UIPC) Init() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running {
		return api.ErrAlreadyRunning
	}
	if u.done != nil {
		select {
		case <-u.done:
		default:
			// A previous reactor is still tearing down.
			return api.ErrAlreadyRunning
		}
	}
	u.log.Debug("uipc init")

	poller, err := reactor.NewReactor()
	if err != nil {
		return fmt.Errorf("uipc init: %w", err)
	}
	wake, err := transport.NewWakeup()
	if err != nil {
		poller.Close()
		return fmt.Errorf("uipc init: %w", err)
	}
	if err := poller.Register(wake.FD(), reactor.EventRead); err != nil {
		wake.Close()
		poller.Close()
		return fmt.Errorf("uipc init: %w", err)
	}
	if u.cfgPath != "" {
		w, err := control.WatchConfig(u.cfgPath, u.store, u.log)
		if err != nil {
			wake.Close()
			poller.Close()
			return fmt.Errorf("uipc init: %w", err)
		}
		u.watcher = w
	}

	for i := range u.channels {
		u.channels[i].reset()
	}
	u.outbox = nil
	u.poller = poller
	u.wake = wake
	u.running = true
	u.done = make(chan struct{})
	u.metrics.Set("running", true)

	go u.run(poller, wake, u.done, u.cfg.Clone())
	return nil
}

// Running reports whether the reactor accepts new work.
func (u *UIPC) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.running
}

// Close releases one channel, or shuts the whole subsystem down when id is
// api.ChannelAll. Closing a single channel is applied by the reactor on its
// next pass and reported with an api.EventClose notification.
func (u *UIPC) Close(id api.ChannelID) error {
	if id == api.ChannelAll {
		u.log.Debug("close all: waiting for shutdown to complete")
		err := u.Shutdown()
		u.log.Debug("close all: shutdown complete")
		return err
	}
	if !id.Valid() {
		return api.ErrInvalidChannel
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.running {
		return api.ErrNotRunning
	}
	ch := &u.channels[id]
	if ch.state() == StateClosed {
		u.log.WithField("channel", id).Debug("channel already closed")
		return api.ErrChannelClosed
	}
	u.closes.Push(pendingClose{id: id, gen: ch.gen})
	u.wakeupLocked()
	return nil
}

// Shutdown stops the reactor and blocks until it has closed every channel
// and released the descriptor set. Called from a callback it returns
// api.ErrShutdownFromCallback.
func (u *UIPC) Shutdown() error {
	u.mu.Lock()
	if u.reactorTID > 0 && affinity.ThreadID() == u.reactorTID {
		u.mu.Unlock()
		u.log.Error("shutdown requested from a callback")
		return api.ErrShutdownFromCallback
	}
	if !u.running {
		u.mu.Unlock()
		return api.ErrNotRunning
	}
	u.running = false
	u.wakeupLocked()
	done := u.done
	watcher := u.watcher
	u.watcher = nil
	u.mu.Unlock()

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			u.log.WithError(err).Warn("config watcher close failed")
		}
	}
	<-done
	return nil
}

// Reload validates cfg and makes it current. Socket names, namespace, accept
// tuning and the default read poll timeout apply from the next Open or
// accept; reactor placement waits for the next Init.
func (u *UIPC) Reload(cfg *control.Config) error {
	if cfg == nil {
		return api.ErrInvalidArgument
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	u.store.SetConfig(cfg)
	return nil
}

// applyConfig is the config store listener.
func (u *UIPC) applyConfig(cfg *control.Config) {
	u.mu.Lock()
	u.cfg = cfg
	u.mu.Unlock()
	if u.ownLogger {
		u.logger.SetLevel(cfg.Level())
	}
	u.metrics.Inc(MetricReloads)
	u.log.WithField("read_poll_timeout_ms", cfg.ReadPollTimeoutMs).Debug("config applied")
}

// Config returns a copy of the current configuration.
func (u *UIPC) Config() *control.Config {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cfg.Clone()
}

// Metrics returns a snapshot of the runtime counters.
func (u *UIPC) Metrics() map[string]any {
	return u.metrics.GetSnapshot()
}

// DumpState runs every debug probe.
func (u *UIPC) DumpState() map[string]any {
	return u.probes.DumpState()
}

// RegisterProbe adds a debug probe.
func (u *UIPC) RegisterProbe(name string, fn func() any) {
	u.probes.RegisterProbe(name, fn)
}

// wakeupLocked interrupts the reactor wait. Every mutation of the channel
// table, the active set or the running flag is followed by one.
func (u *UIPC) wakeupLocked() {
	if u.wake == nil {
		return
	}
	u.log.Trace("send wakeup")
	if err := u.wake.Signal(); err != nil {
		u.log.WithError(err).Error("wakeup failed")
	}
}
