// File: internal/transport/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral types for the local socket helpers.

package transport

import (
	"errors"
	"fmt"
	"strings"
)

// Disconnected is the sentinel descriptor value for "no open socket".
const Disconnected = -1

var (
	// ErrUnsupported is returned on platforms without local socket support.
	ErrUnsupported = errors.New("transport: platform not supported")
	// ErrNoPendingConnection is returned by Accept when the listener has
	// nothing to accept.
	ErrNoPendingConnection = errors.New("transport: no pending connection")
)

// Namespace selects how a channel name maps onto a socket address.
type Namespace int

const (
	// NamespaceFilesystem binds the name as a filesystem path.
	NamespaceFilesystem Namespace = iota
	// NamespaceAbstract binds the name in the Linux abstract namespace.
	NamespaceAbstract
)

// ParseNamespace converts a configuration string into a Namespace.
func ParseNamespace(s string) (Namespace, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "filesystem", "fs", "path":
		return NamespaceFilesystem, nil
	case "abstract", "":
		return NamespaceAbstract, nil
	}
	return 0, fmt.Errorf("transport: unknown namespace %q", s)
}

func (ns Namespace) String() string {
	if ns == NamespaceFilesystem {
		return "filesystem"
	}
	return "abstract"
}

// Address returns the address string a net.Dial("unix", ...) peer uses to
// reach name in this namespace.
func (ns Namespace) Address(name string) string {
	if ns == NamespaceAbstract {
		return "@" + name
	}
	return name
}

// Readiness is the result of a single-descriptor poll.
type Readiness uint16

const (
	ReadyIn Readiness = 1 << iota
	ReadyHangup
	ReadyError
	ReadyInvalid
)

// Closed reports whether the descriptor hung up or is no longer valid.
func (r Readiness) Closed() bool {
	return r&(ReadyHangup|ReadyInvalid) != 0
}
