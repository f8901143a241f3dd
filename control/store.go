// control/store.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with reload listeners.

package control

import "sync"

// ConfigStore keeps the current Config snapshot and notifies listeners when
// it is replaced.
type ConfigStore struct {
	mu        sync.RWMutex
	config    *Config
	listeners []func(*Config)
}

// NewConfigStore initializes a store holding cfg, or the defaults when nil.
func NewConfigStore(cfg *Config) *ConfigStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &ConfigStore{config: cfg.Clone()}
}

// GetSnapshot returns a copy of the current config.
func (cs *ConfigStore) GetSnapshot() *Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config.Clone()
}

// SetConfig replaces the config and dispatches it to every listener.
// Listeners run synchronously, in registration order.
func (cs *ConfigStore) SetConfig(cfg *Config) {
	cs.mu.Lock()
	cs.config = cfg.Clone()
	listeners := append([]func(*Config){}, cs.listeners...)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg.Clone())
	}
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func(*Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
