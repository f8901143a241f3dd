package control

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	mr := NewMetricsRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				mr.Inc("accepts")
			}
		}()
	}
	wg.Wait()
	mr.Add("bytes_read", 512)
	mr.Set("running", true)

	snap := mr.GetSnapshot()
	assert.Equal(t, int64(800), snap["accepts"])
	assert.Equal(t, int64(512), snap["bytes_read"])
	assert.Equal(t, true, snap["running"])
	assert.Contains(t, snap, "updated")
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	dp.RegisterProbe("answer", func() any { return 42 })
	dp.RegisterProbe("broken", func() any { panic("boom") })

	state := dp.DumpState()
	assert.Equal(t, 42, state["answer"])
	assert.Contains(t, state["broken"], "boom")
	assert.Contains(t, state, "platform.cpus")
	assert.Len(t, state, 5)
}
