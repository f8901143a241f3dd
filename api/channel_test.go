package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelID(t *testing.T) {
	assert.True(t, ChannelAVCtrl.Valid())
	assert.True(t, ChannelAVAudio.Valid())
	assert.False(t, ChannelAll.Valid())
	assert.False(t, ChannelID(-1).Valid())
	assert.Equal(t, "AV_AUDIO", PriorityChannel.String())
	assert.Equal(t, "ALL", ChannelAll.String())
	assert.Equal(t, "CHANNEL(9)", ChannelID(9).String())
}

func TestEventNames(t *testing.T) {
	assert.Equal(t, "OPEN_EVT", EventOpen.String())
	assert.Equal(t, "RX_DATA_READY_EVT", EventRxDataReady.String())
	assert.Equal(t, "UNKNOWN MSG ID", Event(42).String())
	assert.Equal(t, "SET_READ_POLL_TMO", IoctlSetReadPollTimeout.String())
	assert.Equal(t, "REQUEST(0)", IoctlRequest(0).String())
}

func TestStructuredError(t *testing.T) {
	cause := errors.New("address in use")
	err := NewError(ErrCodeSetup, "channel setup failed").
		WithContext("channel", "AV_CTRL").
		Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "channel setup failed: address in use")
	assert.Contains(t, err.Error(), "AV_CTRL")

	var target *Error
	require.ErrorAs(t, error(err), &target)
	assert.Equal(t, ErrCodeSetup, target.Code)

	bare := &Error{Code: ErrCodeIO, Message: "short"}
	assert.Equal(t, "short", bare.Error())
	bare.WithContext("k", 1)
	assert.Equal(t, 1, bare.Context["k"])
}
