// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for reactor thread placement. Platform-specific
// implementations are located in affinity_linux.go and affinity_stub.go.
// Callers must hold runtime.LockOSThread for the settings to stick to the
// goroutine.

package affinity

// SetAffinity pins the current OS thread to a given logical CPU.
// On unsupported platforms returns an error.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// SetThreadName names the current OS thread as shown by ps/top.
func SetThreadName(name string) error {
	return setThreadNamePlatform(name)
}

// ThreadID returns the kernel id of the current OS thread, or -1 where the
// platform has none to offer. It is stable only under runtime.LockOSThread.
func ThreadID() int {
	return threadIDPlatform()
}
