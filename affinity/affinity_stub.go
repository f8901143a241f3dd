//go:build !linux
// +build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.
// Returns error to indicate unavailability.

package affinity

import "errors"

var errUnsupported = errors.New("affinity: not supported on this platform")

func setAffinityPlatform(cpuID int) error { return errUnsupported }

func setThreadNamePlatform(name string) error { return errUnsupported }

func threadIDPlatform() int { return -1 }
