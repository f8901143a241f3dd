//go:build linux

package uipc

import (
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-uipc/api"
	"github.com/momentics/hioload-uipc/fake"
)

// withRecv swaps the receive primitive for the rest of the test.
func withRecv(t *testing.T, fn func(fd int, p []byte) (int, error)) {
	orig := recv
	recv = fn
	t.Cleanup(func() { recv = orig })
}

// loggedError returns the error attached to the first entry logged with msg.
func loggedError(t *testing.T, hook *logtest.Hook, msg string) error {
	t.Helper()
	for _, e := range hook.AllEntries() {
		if e.Message != msg {
			continue
		}
		err, ok := e.Data[logrus.ErrorKey].(error)
		require.True(t, ok, "entry %q carries no error", msg)
		return err
	}
	t.Fatalf("no log entry %q", msg)
	return nil
}

func requireCode(t *testing.T, err error, code api.ErrorCode) {
	t.Helper()
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.Code)
}

func TestReadReceiveErrorKeepsChannel(t *testing.T) {
	u, _ := startUIPC(t, testConfig(t))
	rec := fake.NewRecorder()
	p := connect(t, u, api.ChannelAVCtrl, rec)
	require.NoError(t, u.RemoveFromActiveSet(api.ChannelAVCtrl))

	_, err := p.Write([]byte("x"))
	require.NoError(t, err)

	orig := recv
	withRecv(t, func(int, []byte) (int, error) { return 0, syscall.ECONNRESET })
	n, err := u.Read(api.ChannelAVCtrl, make([]byte, 8))
	assert.Zero(t, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.ECONNRESET)
	assert.NotErrorIs(t, err, api.ErrPeerClosed)
	requireCode(t, err, api.ErrCodeIO)

	assert.Equal(t, StateConnected, u.State(api.ChannelAVCtrl))
	assert.EqualValues(t, 1, u.Metrics()[MetricReadFailures])
	assert.Zero(t, rec.Count(api.ChannelAVCtrl, api.EventClose))

	// The byte is still there once receives work again.
	recv = orig
	buf := make([]byte, 1)
	n, err = u.Read(api.ChannelAVCtrl, buf)
	require.NoError(t, err)
	assert.Equal(t, "x", string(buf[:n]))
}

func TestSendFailureKeepsChannel(t *testing.T) {
	u, _ := startUIPC(t, testConfig(t))
	rec := fake.NewRecorder()
	p := connect(t, u, api.ChannelAVCtrl, rec)
	require.NoError(t, u.RemoveFromActiveSet(api.ChannelAVCtrl))
	require.NoError(t, p.Close())

	n, err := u.Send(api.ChannelAVCtrl, []byte("late"))
	assert.Zero(t, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EPIPE)
	requireCode(t, err, api.ErrCodeIO)

	assert.EqualValues(t, 1, u.Metrics()[MetricSendFailures])
	assert.Nil(t, u.Metrics()[MetricBytesSent])
	assert.Equal(t, StateConnected, u.State(api.ChannelAVCtrl))
}

func TestFlushStopsAtHangup(t *testing.T) {
	u, _ := startUIPC(t, testConfig(t))
	rec := fake.NewRecorder()
	p := connect(t, u, api.ChannelAVAudio, rec)
	require.NoError(t, u.RemoveFromActiveSet(api.ChannelAVAudio))

	_, err := p.Write(make([]byte, 4000))
	require.NoError(t, err)
	require.NoError(t, p.Close())

	dropped, err := u.FlushReceive(api.ChannelAVAudio)
	require.NoError(t, err)
	assert.Zero(t, dropped)

	// The hang-up is left for Read to report.
	n, err := u.Read(api.ChannelAVAudio, make([]byte, 16))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, api.ErrPeerClosed)
	assert.Equal(t, StateClosed, u.State(api.ChannelAVAudio))
}

func TestIoctlErrorCodes(t *testing.T) {
	u, _ := startUIPC(t, testConfig(t))
	require.NoError(t, u.Open(api.ChannelAVCtrl, nil))

	err := u.Ioctl(api.ChannelAVCtrl, api.IoctlRequest(99), nil)
	assert.ErrorIs(t, err, api.ErrNotSupported)
	requireCode(t, err, api.ErrCodeNotSupported)

	err = u.Ioctl(api.ChannelAVCtrl, api.IoctlSetReadPollTimeout, 1.5)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	requireCode(t, err, api.ErrCodeInvalidArgument)

	err = u.SetReadPollTimeout(api.ChannelAVCtrl, -time.Millisecond)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	requireCode(t, err, api.ErrCodeInvalidArgument)
}

func TestAcceptFailureLogged(t *testing.T) {
	u, hook := startUIPC(t, testConfig(t))
	require.NoError(t, u.Open(api.ChannelAVCtrl, nil))

	// Nothing is pending, so the accept guard reports a timeout.
	u.mu.Lock()
	ok := u.acceptLocked(api.ChannelAVCtrl)
	u.mu.Unlock()
	assert.False(t, ok)
	assert.EqualValues(t, 1, u.Metrics()[MetricAcceptFailures])

	requireCode(t, loggedError(t, hook, "accept poll timeout"), api.ErrCodeAccept)
}

func TestCallbackPanicLogged(t *testing.T) {
	u, hook := startUIPC(t, testConfig(t))
	u.deliver(notification{id: api.ChannelAVAudio, ev: api.EventOpen, cb: func(api.ChannelID, api.Event) {
		panic("boom")
	}})

	err := loggedError(t, hook, "callback panicked")
	requireCode(t, err, api.ErrCodeInternal)
	assert.Contains(t, err.Error(), "boom")
}

func TestShutdownFromCallbackRejected(t *testing.T) {
	u, _ := startUIPC(t, testConfig(t))
	errs := make(chan error, 2)
	cb := func(id api.ChannelID, ev api.Event) {
		if ev == api.EventOpen {
			errs <- u.Shutdown()
			errs <- u.Close(api.ChannelAll)
		}
	}
	require.NoError(t, u.Open(api.ChannelAVCtrl, cb))
	dialChannel(t, u, api.ChannelAVCtrl)

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, api.ErrShutdownFromCallback)
		case <-time.After(waitTimeout):
			t.Fatal("callback did not return from shutdown")
		}
	}
	assert.True(t, u.Running())

	// Other goroutines still shut down normally.
	require.NoError(t, u.Shutdown())
	assert.False(t, u.Running())
}
