// File: uipc/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Functional options for the UIPC constructor.

package uipc

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-uipc/control"
)

// Option customizes UIPC construction.
type Option func(*UIPC)

// WithLogger routes log output through l. The config log level is not applied
// to a caller-provided logger.
func WithLogger(l *logrus.Logger) Option {
	return func(u *UIPC) {
		u.logger = l
		u.ownLogger = false
	}
}

// WithConfigFile watches path while the instance runs and applies every valid
// revision through Reload.
func WithConfigFile(path string) Option {
	return func(u *UIPC) {
		u.cfgPath = path
	}
}

// WithMetrics shares a metrics registry.
func WithMetrics(m *control.MetricsRegistry) Option {
	return func(u *UIPC) {
		u.metrics = m
	}
}

// WithDebugProbes shares a probe registry.
func WithDebugProbes(dp *control.DebugProbes) Option {
	return func(u *UIPC) {
		u.probes = dp
	}
}
