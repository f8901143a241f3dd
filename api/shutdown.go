// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is implemented by components that own a background
// goroutine and operating system resources.
type GracefulShutdown interface {
	// Shutdown stops the component and blocks until every resource it owns
	// has been released.
	Shutdown() error
}
