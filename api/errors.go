// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-uipc.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidChannel  = errors.New("invalid channel id")
	ErrAlreadyOpen     = errors.New("channel already open")
	ErrChannelClosed   = errors.New("channel closed")
	ErrPeerClosed      = errors.New("channel detached remotely")
	ErrNotRunning      = errors.New("uipc not running")
	ErrAlreadyRunning  = errors.New("uipc already running")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotSupported    = errors.New("operation not supported")
	// ErrShutdownFromCallback is returned by a Shutdown issued on the reactor
	// goroutine, which would otherwise wait for itself.
	ErrShutdownFromCallback = errors.New("shutdown called from a channel callback")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeSetup
	ErrCodeAccept
	ErrCodeIO
	ErrCodeNotSupported
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Wrap attaches the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}
