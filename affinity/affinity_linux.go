//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for thread CPU affinity and naming.

package affinity

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// maxThreadName is TASK_COMM_LEN without the terminating NUL.
const maxThreadName = 15

func setAffinityPlatform(cpuID int) error {
	if cpuID < 0 {
		return fmt.Errorf("affinity: cpu %d out of range", cpuID)
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	// pid 0 targets the calling thread.
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity: %w", err)
	}
	return nil
}

func setThreadNamePlatform(name string) error {
	if len(name) > maxThreadName {
		name = name[:maxThreadName]
	}
	buf, err := unix.BytePtrFromString(name)
	if err != nil {
		return fmt.Errorf("affinity: thread name: %w", err)
	}
	if err := unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(buf)), 0, 0, 0); err != nil {
		return fmt.Errorf("affinity: prctl PR_SET_NAME: %w", err)
	}
	return nil
}

func threadIDPlatform() int {
	return unix.Gettid()
}
