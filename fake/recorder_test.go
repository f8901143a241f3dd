package fake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-uipc/api"
)

func TestRecorderWaitFor(t *testing.T) {
	r := NewRecorder()
	assert.False(t, r.WaitFor(api.ChannelAVCtrl, api.EventOpen, 1, 10*time.Millisecond))

	go func() {
		time.Sleep(5 * time.Millisecond)
		r.Callback(api.ChannelAVCtrl, api.EventOpen)
		r.Callback(api.ChannelAVAudio, api.EventRxDataReady)
		r.Callback(api.ChannelAVCtrl, api.EventClose)
	}()
	assert.True(t, r.WaitFor(api.ChannelAVCtrl, api.EventClose, 1, time.Second))
	assert.Equal(t, []api.Event{api.EventOpen, api.EventClose}, r.Events(api.ChannelAVCtrl))
	assert.Len(t, r.Records(), 3)
	assert.Equal(t, 1, r.Count(api.ChannelAVAudio, api.EventRxDataReady))
}
