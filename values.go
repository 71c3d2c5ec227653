// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/juju/errors"
)

// DecodeError is returned when wire text or a value tree cannot be coerced
// into the expected shape.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeValue turns a domain value into its wire tree. Records encode as
// objects, enumerations by symbolic name, tuples as arrays.
func EncodeValue(v any) (json.RawMessage, error) {
	if v == nil {
		return nullValue, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return data, nil
}

// DecodeValue fills target from tree. The dynamic type of target decides
// how the tree is read. An empty tree is treated as null.
func DecodeValue(tree json.RawMessage, target any) error {
	if len(tree) == 0 {
		tree = nullValue
	}
	if err := json.Unmarshal(tree, target); err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return err
		}
		return &DecodeError{What: fmt.Sprintf("%T", target), Err: err}
	}
	return nil
}

// DecodeAs is DecodeValue returning a fresh T.
func DecodeAs[T any](tree json.RawMessage) (T, error) {
	var out T
	err := DecodeValue(tree, &out)
	return out, err
}

// Enum maps the values of an enumeration to their symbolic wire names.
// Enumeration types use it from MarshalText and UnmarshalText.
type Enum[T comparable] struct {
	kind   string
	names  map[T]string
	values map[string]T
}

// NewEnum builds the name table for kind. Names must be unique.
func NewEnum[T comparable](kind string, names map[T]string) *Enum[T] {
	e := &Enum[T]{
		kind:   kind,
		names:  make(map[T]string, len(names)),
		values: make(map[string]T, len(names)),
	}
	for v, name := range names {
		if _, dup := e.values[name]; dup {
			panic(fmt.Sprintf("rpc: duplicate %s name %q", kind, name))
		}
		e.names[v] = name
		e.values[name] = v
	}
	return e
}

// Name returns the symbolic name of v.
func (e *Enum[T]) Name(v T) (string, error) {
	name, ok := e.names[v]
	if !ok {
		return "", errors.NotValidf("%s value %v", e.kind, v)
	}
	return name, nil
}

// Parse returns the value named name.
func (e *Enum[T]) Parse(name string) (T, error) {
	v, ok := e.values[name]
	if !ok {
		return v, &DecodeError{What: e.kind, Err: errors.NotValidf("name %q", name)}
	}
	return v, nil
}

// Names lists every symbolic name in sorted order.
func (e *Enum[T]) Names() []string {
	out := make([]string, 0, len(e.values))
	for name := range e.values {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Tuple2 is a fixed pair. It travels as a two element array and each
// position is decoded against its own type.
type Tuple2[A, B any] struct {
	First  A
	Second B
}

// NewTuple2 returns the pair (a, b).
func NewTuple2[A, B any](a A, b B) Tuple2[A, B] {
	return Tuple2[A, B]{First: a, Second: b}
}

// Unpack returns both positions.
func (t Tuple2[A, B]) Unpack() (A, B) {
	return t.First, t.Second
}

func (t Tuple2[A, B]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{t.First, t.Second})
}

func (t *Tuple2[A, B]) UnmarshalJSON(data []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return &DecodeError{What: "tuple", Err: err}
	}
	if len(elems) != 2 {
		return &DecodeError{What: "tuple", Err: errors.NotValidf("%d elements", len(elems))}
	}
	if err := DecodeValue(elems[0], &t.First); err != nil {
		return err
	}
	return DecodeValue(elems[1], &t.Second)
}
