// Package fake
// Author: momentics <momentics@gmail.com>
//
// Channel peer over a local stream socket.

package fake

import (
	"fmt"
	"net"
	"time"

	"github.com/momentics/hioload-uipc/internal/transport"
)

// Peer is the remote end of one channel.
type Peer struct {
	conn *net.UnixConn
}

// Dial connects to the channel server bound to name in ns.
func Dial(name string, ns transport.Namespace) (*Peer, error) {
	addr := &net.UnixAddr{Name: ns.Address(name), Net: "unix"}
	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("fake peer dial %s: %w", addr.Name, err)
	}
	return &Peer{conn: conn}, nil
}

// Write sends p in full.
func (p *Peer) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

// ReadTimeout performs one read bounded by d.
func (p *Peer) ReadTimeout(b []byte, d time.Duration) (int, error) {
	if err := p.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return 0, err
	}
	return p.conn.Read(b)
}

// CloseWrite half-closes the connection; the channel observes end of stream.
func (p *Peer) CloseWrite() error {
	return p.conn.CloseWrite()
}

// Close drops the connection.
func (p *Peer) Close() error {
	return p.conn.Close()
}
