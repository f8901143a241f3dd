//go:build linux

package affinity

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// onLockedThread runs fn on a fresh goroutine locked to its OS thread. The
// thread is never unlocked, so the runtime discards it afterwards.
func onLockedThread(fn func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		fn()
	}()
	<-done
}

func TestSetThreadName(t *testing.T) {
	onLockedThread(func() {
		if !assert.NoError(t, SetThreadName("uipc-test-thread-name")) {
			return
		}
		comm, err := os.ReadFile("/proc/self/task/" + strconv.Itoa(unix.Gettid()) + "/comm")
		if assert.NoError(t, err) {
			assert.Equal(t, "uipc-test-threa", strings.TrimSpace(string(comm)))
		}
	})
}

func TestSetAffinity(t *testing.T) {
	assert.Error(t, SetAffinity(-1))
	assert.Error(t, SetAffinity(1<<20))

	var allowed unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &allowed))
	cpu := -1
	for i := 0; i < 1024; i++ {
		if allowed.IsSet(i) {
			cpu = i
			break
		}
	}
	if cpu < 0 {
		t.Skip("no CPU in the current affinity mask")
	}

	onLockedThread(func() {
		if !assert.NoError(t, SetAffinity(cpu)) {
			return
		}
		var got unix.CPUSet
		if assert.NoError(t, unix.SchedGetaffinity(0, &got)) {
			assert.Equal(t, 1, got.Count())
			assert.True(t, got.IsSet(cpu))
		}
	})
}

func TestThreadID(t *testing.T) {
	ids := make(chan int, 2)
	for i := 0; i < 2; i++ {
		onLockedThread(func() {
			first := ThreadID()
			assert.Equal(t, first, ThreadID())
			ids <- first
		})
	}
	a, b := <-ids, <-ids
	assert.Positive(t, a)
	assert.Positive(t, b)
	assert.NotEqual(t, os.Getpid(), a, "locked goroutine ran on the main thread")
}
