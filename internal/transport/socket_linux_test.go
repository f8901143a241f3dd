//go:build linux

package transport

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abstractName(t *testing.T) string {
	return fmt.Sprintf("hioload-uipc-test-%d-%s-%d", os.Getpid(), t.Name(), time.Now().UnixNano())
}

func TestListenAcceptAbstract(t *testing.T) {
	name := abstractName(t)
	lfd, err := Listen(name, NamespaceAbstract, 5)
	require.NoError(t, err)
	defer Close(lfd)

	_, err = Accept(lfd)
	assert.ErrorIs(t, err, ErrNoPendingConnection)

	peer, err := net.Dial("unix", NamespaceAbstract.Address(name))
	require.NoError(t, err)
	defer peer.Close()

	ready, err := PollIn(lfd, 1000)
	require.NoError(t, err)
	require.NotZero(t, ready&ReadyIn)

	fd, err := Accept(lfd)
	require.NoError(t, err)
	defer Close(fd)

	require.NoError(t, SetRecvBuffer(fd, 28*512))
	size, err := RecvBuffer(fd)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, size, 28*512)

	_, err = peer.Write([]byte("ping"))
	require.NoError(t, err)
	ready, err = PollIn(fd, 1000)
	require.NoError(t, err)
	require.NotZero(t, ready&ReadyIn)

	buf := make([]byte, 16)
	n, err := Recv(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	n, err = Write(fd, []byte("pong"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(time.Second)))
	n, err = peer.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:n]))
}

func TestListenAbstractNameInUse(t *testing.T) {
	name := abstractName(t)
	lfd, err := Listen(name, NamespaceAbstract, 5)
	require.NoError(t, err)

	_, err = Listen(name, NamespaceAbstract, 5)
	assert.Error(t, err)

	require.NoError(t, Close(lfd))
	lfd, err = Listen(name, NamespaceAbstract, 5)
	require.NoError(t, err)
	Close(lfd)
}

func TestListenFilesystemReplacesStalePath(t *testing.T) {
	name := filepath.Join(t.TempDir(), "ctrl")
	lfd, err := Listen(name, NamespaceFilesystem, 5)
	require.NoError(t, err)
	require.NoError(t, Close(lfd))

	// The socket file is left behind; a new bind must still succeed.
	lfd, err = Listen(name, NamespaceFilesystem, 5)
	require.NoError(t, err)
	defer Close(lfd)

	peer, err := net.Dial("unix", name)
	require.NoError(t, err)
	peer.Close()
}

func TestPollInTimeoutAndHangup(t *testing.T) {
	name := abstractName(t)
	lfd, err := Listen(name, NamespaceAbstract, 5)
	require.NoError(t, err)
	defer Close(lfd)

	peer, err := net.Dial("unix", NamespaceAbstract.Address(name))
	require.NoError(t, err)
	fd, err := Accept(lfd)
	require.NoError(t, err)
	defer Close(fd)

	start := time.Now()
	ready, err := PollIn(fd, 30)
	require.NoError(t, err)
	assert.Zero(t, ready)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	require.NoError(t, peer.Close())
	ready, err = PollIn(fd, 1000)
	require.NoError(t, err)
	assert.True(t, ready.Closed())

	n, err := Recv(fd, make([]byte, 8))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWakeupSignalDrain(t *testing.T) {
	w, err := NewWakeup()
	require.NoError(t, err)
	defer w.Close()

	ok, err := w.Drain()
	require.NoError(t, err)
	assert.False(t, ok, "nothing signalled yet")

	require.NoError(t, w.Signal())
	require.NoError(t, w.Signal())

	ready, err := PollIn(w.FD(), 100)
	require.NoError(t, err)
	assert.NotZero(t, ready&ReadyIn)

	ok, err = w.Drain()
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = w.Drain()
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = w.Drain()
	require.NoError(t, err)
	assert.False(t, ok)
}
