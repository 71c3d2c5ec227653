// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package game

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/luxfi/tspace/rpc"
)

// ErrorKind is the closed set of game errors that cross the wire.
type ErrorKind int

const (
	// KindGeneric is any game failure without a more specific kind.
	KindGeneric ErrorKind = iota
	// KindInvalidAction is an action the rules do not allow right now.
	KindInvalidAction
)

// Wire codes of the error kinds.
const (
	CodeGeneric       = rpc.CodeGeneric
	CodeInvalidAction = 32011
)

var kindCodes = map[ErrorKind]int{
	KindGeneric:       CodeGeneric,
	KindInvalidAction: CodeInvalidAction,
}

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidAction:
		return "invalid action"
	default:
		return "tspace error"
	}
}

// Error is a game error. Its message crosses the wire verbatim.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// ErrorCode returns the wire code of the kind.
func (e *Error) ErrorCode() int {
	if code, ok := kindCodes[e.Kind]; ok {
		return code
	}
	return CodeGeneric
}

// Errorf returns a generic game error.
func Errorf(format string, args ...any) error {
	return &Error{Kind: KindGeneric, Message: fmt.Sprintf(format, args...)}
}

// InvalidAction returns an error of kind KindInvalidAction.
func InvalidAction(format string, args ...any) error {
	return &Error{Kind: KindInvalidAction, Message: fmt.Sprintf(format, args...)}
}

// IsInvalidAction reports whether err is, or wraps, an invalid action.
func IsInvalidAction(err error) bool {
	return KindOf(err) == KindInvalidAction
}

// KindOf returns the kind of the game error in err's chain. Any other error
// is generic.
func KindOf(err error) ErrorKind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindGeneric
}

// NewErrorRegistry returns a registry that rebuilds every game error kind.
// Unknown codes become generic game errors.
func NewErrorRegistry() *rpc.ErrorRegistry {
	r := rpc.NewErrorRegistry()
	for kind, code := range kindCodes {
		r.Register(code, func(message string) error {
			return &Error{Kind: kind, Message: message}
		})
	}
	r.SetFallback(func(_ int, message string) error {
		return &Error{Kind: KindGeneric, Message: message}
	})
	return r
}
