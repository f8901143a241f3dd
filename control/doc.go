// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot-reload, runtime metrics and debug introspection layer
// for hioload-uipc.
//
// Provides concurrent-safe state handling primitives including:
//   - Typed configuration with defaults, JSON loading and validation
//   - A config store with reload listeners and an fsnotify file watcher
//   - Metrics counters
//   - State export and debug probe registration
package control
