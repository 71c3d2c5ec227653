// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"encoding/json"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gorilla/rpc/v2/json2"
)

func TestCorrelationIDsAreUnique(t *testing.T) {
	c := qt.New(t)

	table := newCorrelationTable()
	const workers, per = 8, 250

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < per; j++ {
				id := table.allocate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	c.Assert(seen, qt.HasLen, workers*per)
}

func TestCorrelationResolveOnce(t *testing.T) {
	c := qt.New(t)

	table := newCorrelationTable()
	id := table.allocate()
	pc, err := table.add(id, "move_trader")
	c.Assert(err, qt.IsNil)
	c.Assert(table.len(), qt.Equals, 1)

	_, err = table.add(id, "move_trader")
	c.Assert(err, qt.ErrorMatches, "pending call 1 already exists")

	c.Assert(table.resolve(id, json.RawMessage(`{"id":5}`)), qt.IsTrue)
	c.Assert(table.resolve(id, json.RawMessage(`{"id":6}`)), qt.IsFalse)
	c.Assert(table.reject(id, &json2.Error{Code: 1}), qt.IsFalse)
	c.Assert(table.len(), qt.Equals, 0)

	o := <-pc.done
	c.Assert(string(o.result), qt.Equals, `{"id":5}`)
}

func TestCorrelationUnknownIDIsNoop(t *testing.T) {
	c := qt.New(t)

	table := newCorrelationTable()
	c.Assert(table.resolve("404", nil), qt.IsFalse)
	c.Assert(table.reject("404", &json2.Error{}), qt.IsFalse)
	c.Assert(table.remove("404"), qt.IsFalse)
}

func TestCorrelationAbandon(t *testing.T) {
	c := qt.New(t)

	table := newCorrelationTable()
	var calls []*pendingCall
	for i := 0; i < 3; i++ {
		pc, err := table.add(table.allocate(), "m")
		c.Assert(err, qt.IsNil)
		calls = append(calls, pc)
	}
	c.Assert(table.abandon(ErrClosed), qt.Equals, 3)
	for _, pc := range calls {
		o := <-pc.done
		c.Check(o.err, qt.Equals, error(ErrClosed))
	}

	_, err := table.add(table.allocate(), "m")
	c.Assert(err, qt.ErrorIs, ErrClosed)
}
