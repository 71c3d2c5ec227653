// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"io"
	"sync"

	"github.com/juju/errors"
)

// Channel delivers outbound text to the peer. Send must be safe for
// concurrent use and preserve the order of sends from one goroutine.
type Channel interface {
	Send(ctx context.Context, text string) error
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc func(ctx context.Context, text string) error

func (f ChannelFunc) Send(ctx context.Context, text string) error { return f(ctx, text) }

// Receiver yields inbound text in arrival order. It returns io.EOF once the
// peer has gone away cleanly.
type Receiver interface {
	Receive(ctx context.Context) (string, error)
}

// Transport is an established full-duplex text connection.
type Transport interface {
	io.Closer
	Channel
	Receiver
}

// pipeTransport is one end of an in-memory Transport pair.
type pipeTransport struct {
	in   <-chan string
	out  chan<- string
	done chan struct{}
	once *sync.Once
}

// Pipe returns two connected in-memory transports. Closing either end closes
// both; messages already sent are still delivered.
func Pipe() (Transport, Transport) {
	ab := make(chan string, 64)
	ba := make(chan string, 64)
	done := make(chan struct{})
	once := &sync.Once{}
	a := &pipeTransport{in: ba, out: ab, done: done, once: once}
	b := &pipeTransport{in: ab, out: ba, done: done, once: once}
	return a, b
}

func (p *pipeTransport) Send(ctx context.Context, text string) error {
	select {
	case <-p.done:
		return errors.Trace(ErrClosed)
	default:
	}
	select {
	case p.out <- text:
		return nil
	case <-p.done:
		return errors.Trace(ErrClosed)
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	}
}

func (p *pipeTransport) Receive(ctx context.Context) (string, error) {
	select {
	case text := <-p.in:
		return text, nil
	default:
	}
	select {
	case text := <-p.in:
		return text, nil
	case <-p.done:
		return "", io.EOF
	case <-ctx.Done():
		return "", errors.Trace(ctx.Err())
	}
}

func (p *pipeTransport) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
