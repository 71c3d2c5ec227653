// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"bytes"
	"encoding/json"

	"github.com/juju/errors"
)

// Named is a by-name parameter set.
type Named map[string]any

// Positional is a by-position parameter set.
type Positional []any

// Params is the decoded parameter container of an inbound request. Wire
// params may be an object, an array or absent.
type Params struct {
	method     string
	named      map[string]json.RawMessage
	positional []json.RawMessage
}

// ParseParams splits raw into its named or positional members.
func ParseParams(method string, raw json.RawMessage) (Params, error) {
	p := Params{method: method}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, nullValue) {
		return p, nil
	}
	switch raw[0] {
	case '{':
		if err := json.Unmarshal(raw, &p.named); err != nil {
			return p, &ValidationError{Method: method, Param: "params", Err: err}
		}
	case '[':
		if err := json.Unmarshal(raw, &p.positional); err != nil {
			return p, &ValidationError{Method: method, Param: "params", Err: err}
		}
	default:
		return p, &ValidationError{Method: method, Param: "params", Err: errors.NotValidf("params of kind %q", raw[0])}
	}
	return p, nil
}

// Method returns the name of the request the params belong to.
func (p Params) Method() string { return p.method }

// Len returns the number of supplied parameters.
func (p Params) Len() int {
	return len(p.named) + len(p.positional)
}

// Lookup returns the raw tree at name, or at index when the params were
// sent positionally.
func (p Params) Lookup(index int, name string) (json.RawMessage, bool) {
	if p.named != nil {
		v, ok := p.named[name]
		return v, ok
	}
	if index >= 0 && index < len(p.positional) {
		return p.positional[index], true
	}
	return nil, false
}

// Arg decodes the required parameter at (index, name) as a T.
func Arg[T any](p Params, index int, name string) (T, error) {
	v, ok, err := OptionalArg[T](p, index, name)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, &ValidationError{Method: p.method, Param: name, Err: errors.NotFoundf("parameter")}
	}
	return v, nil
}

// OptionalArg decodes the parameter at (index, name) if it was supplied.
func OptionalArg[T any](p Params, index int, name string) (T, bool, error) {
	var out T
	raw, ok := p.Lookup(index, name)
	if !ok {
		return out, false, nil
	}
	if err := DecodeValue(raw, &out); err != nil {
		return out, true, &ValidationError{Method: p.method, Param: name, Err: err}
	}
	return out, true, nil
}
