// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"fmt"
	"sync"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/juju/errors"
)

// CodeGeneric is the wire code of the generic error kind. Protocol and
// validation failures are reported with it too.
const CodeGeneric = 32010

const (
	// ErrClosed is returned by calls on, or pending in, a closed endpoint.
	ErrClosed = errors.ConstError("endpoint closed")

	// ErrCallTimeout is returned when no response arrives within the call timeout.
	ErrCallTimeout = errors.ConstError("call timed out")
)

// ErrorCoder is implemented by errors that travel with their own wire code.
type ErrorCoder interface {
	error
	ErrorCode() int
}

// ErrorDataer is optionally implemented by an ErrorCoder to attach
// informational data to the wire error.
type ErrorDataer interface {
	ErrorData() any
}

// Error is the generic error kind. It is what the caller sees for codes no
// registered kind claims.
type Error struct {
	Code    int
	Message string
	Data    any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) ErrorCode() int {
	if e.Code == 0 {
		return CodeGeneric
	}
	return e.Code
}

func (e *Error) ErrorData() any { return e.Data }

// ValidationError reports a parameter that is missing or does not match the
// declared type of the handler.
type ValidationError struct {
	Method string
	Param  string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("invalid parameter %q: %v", e.Param, e.Err)
	}
	return fmt.Sprintf("invalid parameter %q for %q: %v", e.Param, e.Method, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ErrorConstructor rebuilds a typed error from its wire message.
type ErrorConstructor func(message string) error

// ErrorRegistry maps error kinds to wire codes and back.
type ErrorRegistry struct {
	mu       sync.RWMutex
	kinds    map[int]ErrorConstructor
	fallback func(code int, message string) error
}

// NewErrorRegistry returns a registry that knows the generic kind only.
func NewErrorRegistry() *ErrorRegistry {
	r := &ErrorRegistry{
		kinds: make(map[int]ErrorConstructor),
		fallback: func(code int, message string) error {
			return &Error{Code: code, Message: message}
		},
	}
	r.Register(CodeGeneric, func(message string) error {
		return &Error{Code: CodeGeneric, Message: message}
	})
	return r
}

// Register binds code to ctor, replacing any earlier binding.
func (r *ErrorRegistry) Register(code int, ctor ErrorConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[code] = ctor
}

// SetFallback replaces the constructor used for unregistered codes.
func (r *ErrorRegistry) SetFallback(f func(code int, message string) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = f
}

// Known reports whether code has a registered kind.
func (r *ErrorRegistry) Known(code int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kinds[code]
	return ok
}

// ToWire converts err into the wire error object. Coded errors keep their
// code and message; everything else is reported with CodeGeneric and the
// reserved JSON-RPC code, where one applies, as data.
func (r *ErrorRegistry) ToWire(err error) *json2.Error {
	var coder ErrorCoder
	if errors.As(err, &coder) {
		wire := &json2.Error{Code: json2.ErrorCode(coder.ErrorCode()), Message: coder.Error()}
		if d, ok := coder.(ErrorDataer); ok {
			wire.Data = d.ErrorData()
		}
		return wire
	}
	wire := &json2.Error{Code: CodeGeneric, Message: err.Error()}
	var (
		verr *ValidationError
		derr *DecodeError
	)
	switch {
	case errors.As(err, &verr):
		wire.Data = json2.E_BAD_PARAMS
	case errors.As(err, &derr):
		wire.Data = json2.E_INVALID_REQ
	case errors.Is(err, errors.NotFound):
		wire.Data = json2.E_NO_METHOD
	}
	return wire
}

// FromWire rebuilds the error for code. It never fails: unknown codes yield
// the fallback kind carrying message.
func (r *ErrorRegistry) FromWire(code int, message string) error {
	r.mu.RLock()
	ctor, ok := r.kinds[code]
	fallback := r.fallback
	r.mu.RUnlock()
	if ok {
		return ctor(message)
	}
	return fallback(code, message)
}

func (r *ErrorRegistry) fromWireError(wire *json2.Error) error {
	return r.FromWire(int(wire.Code), wire.Message)
}
