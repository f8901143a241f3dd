// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Local stream socket primitives for hioload-uipc: listening endpoints bound
// to a filesystem or abstract name, single-connection accept with receive
// buffer tuning, bounded readiness polls, EINTR-safe I/O and the socketpair
// used to interrupt the reactor wait. Linux only; other platforms get stubs
// that report ErrUnsupported.

package transport
