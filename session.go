// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"sync/atomic"

	"github.com/juju/errors"
)

// SessionFunc prepares a session before its read loop starts, typically by
// registering handlers.
type SessionFunc func(*Session)

// Session is an Endpoint bound to a Transport, with a goroutine feeding the
// transport's inbound text to the endpoint.
type Session struct {
	*Endpoint

	transport Transport
	ctx       context.Context
	cancel    context.CancelFunc
	started   atomic.Bool
	done      chan struct{}
	err       error
}

// NewSession wraps t. Nothing is read until Start is called.
func NewSession(t Transport, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		Endpoint:  NewEndpoint(t, opts...),
		transport: t,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// StartSession creates a session on t, runs setup and starts it.
func StartSession(t Transport, setup SessionFunc, opts ...Option) *Session {
	s := NewSession(t, opts...)
	if setup != nil {
		setup(s)
	}
	s.Start()
	return s
}

// Start begins serving inbound messages. Later calls do nothing.
func (s *Session) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
}

func (s *Session) run() {
	defer close(s.done)
	s.err = s.Endpoint.Serve(s.ctx, s.transport)
	if s.err != nil && s.ctx.Err() == nil {
		logger.Debugf("session read loop stopped: %v", s.err)
	}
	s.Endpoint.Close()
	s.transport.Close()
}

// Transport returns the underlying transport.
func (s *Session) Transport() Transport { return s.transport }

// Done is closed once the read loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the read loop stops and returns the error that stopped
// it. A peer hanging up cleanly is not an error.
func (s *Session) Wait() error {
	<-s.done
	if s.ctx.Err() != nil {
		return nil
	}
	return s.err
}

// Close fails pending calls, closes the transport and waits for the read
// loop to stop. A handler must not call Close directly: under inline
// dispatch it runs on the read loop, which Close waits for. Handlers that
// end their session use go s.Close().
func (s *Session) Close() error {
	s.cancel()
	if s.started.CompareAndSwap(false, true) {
		close(s.done)
	}
	s.Endpoint.Close()
	err := s.transport.Close()
	<-s.done
	return errors.Trace(err)
}
