// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/juju/errors"
)

// outcome settles a pending call. Exactly one of the three is set.
type outcome struct {
	result  json.RawMessage
	wireErr *json2.Error
	err     error
}

type pendingCall struct {
	id     string
	method string
	done   chan outcome
}

// correlationTable tracks outgoing calls awaiting a response. It owns the
// id counter; ids are never reused for the life of the table.
type correlationTable struct {
	mu     sync.Mutex
	nextID uint64
	calls  map[string]*pendingCall
	closed bool
}

func newCorrelationTable() *correlationTable {
	return &correlationTable{calls: make(map[string]*pendingCall)}
}

// allocate returns a fresh id.
func (t *correlationTable) allocate() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	return strconv.FormatUint(t.nextID, 10)
}

// add registers a pending call under id.
func (t *correlationTable) add(id, method string) (*pendingCall, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, errors.Trace(ErrClosed)
	}
	if _, ok := t.calls[id]; ok {
		return nil, errors.AlreadyExistsf("pending call %s", id)
	}
	pc := &pendingCall{id: id, method: method, done: make(chan outcome, 1)}
	t.calls[id] = pc
	return pc, nil
}

// settle removes the call for id and delivers o. Absent ids are ignored.
func (t *correlationTable) settle(id string, o outcome) bool {
	t.mu.Lock()
	pc, ok := t.calls[id]
	if ok {
		delete(t.calls, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	pc.done <- o
	return true
}

// resolve completes the call for id with a result tree.
func (t *correlationTable) resolve(id string, result json.RawMessage) bool {
	return t.settle(id, outcome{result: result})
}

// reject completes the call for id with a wire error.
func (t *correlationTable) reject(id string, wire *json2.Error) bool {
	return t.settle(id, outcome{wireErr: wire})
}

// remove drops the call for id without settling it.
func (t *correlationTable) remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.calls[id]
	delete(t.calls, id)
	return ok
}

// abandon fails every outstanding call with err and refuses new ones.
func (t *correlationTable) abandon(err error) int {
	t.mu.Lock()
	t.closed = true
	calls := t.calls
	t.calls = make(map[string]*pendingCall)
	t.mu.Unlock()
	for _, pc := range calls {
		pc.done <- outcome{err: err}
	}
	return len(calls)
}

func (t *correlationTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}
