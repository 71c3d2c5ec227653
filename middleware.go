// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"golang.org/x/time/rate"
)

// ErrHandlerTimeout is returned when a handler runs past TimeoutMiddleware.
const ErrHandlerTimeout = errors.ConstError("handler timed out")

// Request is an inbound call or notification on its way to a handler.
type Request struct {
	Method       string
	ID           json.RawMessage
	Notification bool
	Params       Params

	bindings []Binding
}

// HandlerFunc processes a Request.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middleware so that the first one runs outermost.
func Chain(mw ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}

// LoggingMiddleware logs every dispatched request with its duration.
func LoggingMiddleware(clk clock.Clock) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (any, error) {
			start := clk.Now()
			result, err := next(ctx, req)
			took := clk.Now().Sub(start)
			if err != nil {
				logger.Debugf("%s failed after %v: %v", req.Method, took, err)
			} else {
				logger.Debugf("%s handled in %v", req.Method, took)
			}
			return result, err
		}
	}
}

// TimeoutMiddleware fails requests whose handler does not return within d.
// The handler's context is cancelled; it keeps running until it notices.
func TimeoutMiddleware(clk clock.Clock, d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (any, error) {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			type reply struct {
				result any
				err    error
			}
			done := make(chan reply, 1)
			go func() {
				result, err := next(ctx, req)
				done <- reply{result, err}
			}()

			select {
			case r := <-done:
				return r.result, r.err
			case <-clk.After(d):
				return nil, errors.Annotatef(ErrHandlerTimeout, "%s after %v", req.Method, d)
			case <-ctx.Done():
				return nil, errors.Trace(ctx.Err())
			}
		}
	}
}

// RateLimitMiddleware rejects requests above r per second with bursts of b.
// A notification costs one token however many handlers it fans out to.
// Rejected notifications are dropped.
func RateLimitMiddleware(r rate.Limit, b int) Middleware {
	limiter := rate.NewLimiter(r, b)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (any, error) {
			if !limiter.Allow() {
				return nil, &Error{Code: CodeGeneric, Message: "rate limit exceeded for " + req.Method}
			}
			return next(ctx, req)
		}
	}
}
