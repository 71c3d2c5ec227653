// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"time"

	"github.com/juju/clock"
)

// Caller is the outgoing half of an endpoint. Typed proxies are written
// against it.
type Caller interface {
	// Call sends method and waits for its response, decoding it into result.
	Call(ctx context.Context, method string, params, result any) error

	// Notify sends method without expecting a response.
	Notify(ctx context.Context, method string, params any) error
}

// Invoke calls method through c and decodes the result as a T.
func Invoke[T any](ctx context.Context, c Caller, method string, params any) (T, error) {
	var out T
	err := c.Call(ctx, method, params, &out)
	return out, err
}

// Option configures an Endpoint, and the sessions and transports built
// around one.
type Option func(*options)

type options struct {
	callTimeout  time.Duration
	clock        clock.Clock
	concurrent   bool
	middleware   []Middleware
	errors       *ErrorRegistry
	methods      *MethodRegistry
	maxFrameSize int
}

// DefaultMaxFrameSize bounds a single framed message.
const DefaultMaxFrameSize = 64 * 1024 * 1024

func newOptions(opts []Option) *options {
	o := &options{
		clock:        clock.WallClock,
		maxFrameSize: DefaultMaxFrameSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.errors == nil {
		o.errors = NewErrorRegistry()
	}
	if o.methods == nil {
		o.methods = NewMethodRegistry()
	}
	return o
}

// WithCallTimeout bounds how long Call waits for a response. Zero waits
// until the context is done.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) { o.callTimeout = d }
}

// WithClock sets the clock driving call timeouts.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithConcurrentDispatch runs each inbound request on its own goroutine.
// Handlers that make calls back over the same endpoint need it.
func WithConcurrentDispatch(enabled bool) Option {
	return func(o *options) { o.concurrent = enabled }
}

// WithMiddleware wraps inbound dispatch. The first middleware is outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mw...) }
}

// WithErrorRegistry sets the registry mapping errors to wire codes.
func WithErrorRegistry(r *ErrorRegistry) Option {
	return func(o *options) { o.errors = r }
}

// WithMethodRegistry makes the endpoint dispatch against r, which may be
// shared between endpoints.
func WithMethodRegistry(r *MethodRegistry) Option {
	return func(o *options) { o.methods = r }
}

// WithMaxFrameSize bounds frames read by FrameTransport.
func WithMaxFrameSize(n int) Option {
	return func(o *options) { o.maxFrameSize = n }
}
