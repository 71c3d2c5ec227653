// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
)

// Dial connects to addr over TCP and returns a running framed session.
// setup runs before the first inbound message is read.
func Dial(ctx context.Context, addr string, setup SessionFunc, opts ...Option) (*Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Annotatef(err, "dialing %s", addr)
	}
	return StartSession(NewFrameTransport(conn, opts...), setup, opts...), nil
}

// Listener accepts framed sessions on a TCP address.
type Listener struct {
	listener net.Listener
	setup    SessionFunc
	opts     []Option
	sessions sync.Map
	closed   atomic.Bool
}

// Listen binds addr. Every accepted connection becomes a session prepared
// by setup. Call Serve to start accepting.
func Listen(addr string, setup SessionFunc, opts ...Option) (*Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Annotatef(err, "listening on %s", addr)
	}
	return &Listener{listener: listener, setup: setup, opts: opts}, nil
}

// Serve accepts connections until the listener is closed or ctx is done.
func (l *Listener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if l.closed.Load() {
				return nil
			}
			return errors.Annotate(err, "accept")
		}
		logger.Debugf("accepted session from %s", conn.RemoteAddr())
		sess := StartSession(NewFrameTransport(conn, l.opts...), l.setup, l.opts...)
		l.sessions.Store(sess, struct{}{})
		go func() {
			<-sess.Done()
			l.sessions.Delete(sess)
		}()
	}
}

// Sessions returns the number of live sessions.
func (l *Listener) Sessions() int {
	n := 0
	l.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close stops accepting and closes every live session.
func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	err := l.listener.Close()
	l.sessions.Range(func(key, _ any) bool {
		key.(*Session).Close()
		return true
	})
	return errors.Trace(err)
}

// Addr returns the listen address.
func (l *Listener) Addr() string {
	return l.listener.Addr().String()
}
