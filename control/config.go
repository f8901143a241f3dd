// control/config.go
// Author: momentics <momentics@gmail.com>
//
// uipc configuration: socket naming, accept tuning, poll timeouts, reactor
// thread placement and log level.

package control

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-uipc/api"
)

// Defaults matching the audio HAL peer.
const (
	DefaultCtrlSocket         = "/data/misc/bluedroid/.a2dp_ctrl"
	DefaultDataSocket         = "/data/misc/bluedroid/.a2dp_data"
	DefaultListenBacklog      = 5
	DefaultRecvBufferSize     = 28 * 512 // audio stream output buffer size
	DefaultReadPollTimeoutMs  = 100
	DefaultFlushPollTimeoutMs = 1
	DefaultFlushBufferSize    = 1024
	DefaultReactorBatchSize   = 16
	DefaultThreadName         = "uipc-main"
)

// Config holds uipc parameters. Values read at Open or accept time follow
// reloads; the reactor batch size, CPU and thread name are fixed at Init.
type Config struct {
	CtrlSocket         string `json:"ctrl_socket"`           // Name bound by the control channel
	DataSocket         string `json:"data_socket"`           // Name bound by the audio data channel
	Namespace          string `json:"namespace"`             // "abstract" or "filesystem"
	ListenBacklog      int    `json:"listen_backlog"`        // listen(2) backlog
	RecvBufferSize     int    `json:"recv_buffer_size"`      // SO_RCVBUF applied to accepted peers, 0 keeps the OS default
	ReadPollTimeoutMs  int    `json:"read_poll_timeout_ms"`  // Default per-channel Read poll timeout
	FlushPollTimeoutMs int    `json:"flush_poll_timeout_ms"` // Poll timeout used while flushing
	FlushBufferSize    int    `json:"flush_buffer_size"`     // Scratch buffer used while flushing
	ReactorBatchSize   int    `json:"reactor_batch_size"`    // Max readiness events per wait
	ReactorCPU         int    `json:"reactor_cpu"`           // CPU to pin the reactor thread to, -1 disables
	ThreadName         string `json:"thread_name"`           // OS thread name of the reactor
	LogLevel           string `json:"log_level"`             // logrus level name
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		CtrlSocket:         DefaultCtrlSocket,
		DataSocket:         DefaultDataSocket,
		Namespace:          "abstract",
		ListenBacklog:      DefaultListenBacklog,
		RecvBufferSize:     DefaultRecvBufferSize,
		ReadPollTimeoutMs:  DefaultReadPollTimeoutMs,
		FlushPollTimeoutMs: DefaultFlushPollTimeoutMs,
		FlushBufferSize:    DefaultFlushBufferSize,
		ReactorBatchSize:   DefaultReactorBatchSize,
		ReactorCPU:         -1,
		ThreadName:         DefaultThreadName,
		LogLevel:           "info",
	}
}

// ParseConfig decodes JSON on top of the defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a JSON config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config read: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	invalid := func(field string, v any) error {
		return fmt.Errorf("%w: %s = %v", api.ErrInvalidArgument, field, v)
	}
	switch {
	case c.CtrlSocket == "":
		return invalid("ctrl_socket", c.CtrlSocket)
	case c.DataSocket == "":
		return invalid("data_socket", c.DataSocket)
	case c.CtrlSocket == c.DataSocket:
		return invalid("data_socket", c.DataSocket+" (same as ctrl_socket)")
	case c.ListenBacklog <= 0:
		return invalid("listen_backlog", c.ListenBacklog)
	case c.RecvBufferSize < 0:
		return invalid("recv_buffer_size", c.RecvBufferSize)
	case c.ReadPollTimeoutMs < 0:
		return invalid("read_poll_timeout_ms", c.ReadPollTimeoutMs)
	case c.FlushPollTimeoutMs < 0:
		return invalid("flush_poll_timeout_ms", c.FlushPollTimeoutMs)
	case c.FlushBufferSize <= 0:
		return invalid("flush_buffer_size", c.FlushBufferSize)
	case c.ReactorBatchSize <= 0:
		return invalid("reactor_batch_size", c.ReactorBatchSize)
	}
	switch strings.ToLower(c.Namespace) {
	case "", "abstract", "filesystem", "fs", "path":
	default:
		return invalid("namespace", c.Namespace)
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return invalid("log_level", c.LogLevel)
		}
	}
	return nil
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}

// ChannelName returns the socket name bound by channel id.
func (c *Config) ChannelName(id api.ChannelID) string {
	switch id {
	case api.ChannelAVCtrl:
		return c.CtrlSocket
	case api.ChannelAVAudio:
		return c.DataSocket
	}
	return ""
}

// ReadPollTimeout returns the default Read poll timeout.
func (c *Config) ReadPollTimeout() time.Duration {
	return time.Duration(c.ReadPollTimeoutMs) * time.Millisecond
}

// Level returns the configured log level, info when unset.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
