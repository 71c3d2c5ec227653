// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("tspace.rpc")

// Endpoint is one side of a duplex connection. It issues calls and
// notifications through its Channel and dispatches inbound requests to the
// handlers in its MethodRegistry.
type Endpoint struct {
	ch          Channel
	methods     *MethodRegistry
	calls       *correlationTable
	errs        *ErrorRegistry
	clock       clock.Clock
	callTimeout time.Duration
	concurrent  bool
	handle      HandlerFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewEndpoint returns an endpoint sending through ch. Feed it inbound text
// with HandleIncoming or Serve.
func NewEndpoint(ch Channel, opts ...Option) *Endpoint {
	o := newOptions(opts)
	return &Endpoint{
		ch:          ch,
		methods:     o.methods,
		calls:       newCorrelationTable(),
		errs:        o.errors,
		clock:       o.clock,
		callTimeout: o.callTimeout,
		concurrent:  o.concurrent,
		handle:      Chain(o.middleware...)(invoke),
	}
}

// Methods returns the registry dispatch resolves against.
func (e *Endpoint) Methods() *MethodRegistry { return e.methods }

// Errors returns the registry used to map errors to wire codes.
func (e *Endpoint) Errors() *ErrorRegistry { return e.errs }

// Register adds h to the dispatch table.
func (e *Endpoint) Register(h Handler) Registration {
	return e.methods.Register(h)
}

// Unregister removes the handler registered as reg.
func (e *Endpoint) Unregister(reg Registration) bool {
	return e.methods.Unregister(reg)
}

// Pending returns the number of calls awaiting a response.
func (e *Endpoint) Pending() int {
	return e.calls.len()
}

func (e *Endpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Call sends method with params and waits for the response. A success
// result is decoded into result, which may be nil to discard it. A remote
// error is rebuilt through the error registry.
func (e *Endpoint) Call(ctx context.Context, method string, params, result any) error {
	if IsNotification(method) {
		return errors.NotValidf("call to notification %q", method)
	}
	if e.isClosed() {
		return errors.Trace(ErrClosed)
	}

	id := e.calls.allocate()
	text, err := EncodeCall(method, params, id)
	if err != nil {
		return errors.Trace(err)
	}
	pc, err := e.calls.add(id, method)
	if err != nil {
		return errors.Trace(err)
	}

	logger.Tracef("-> %s", text)
	if err := e.ch.Send(ctx, text); err != nil {
		e.calls.remove(id)
		return errors.Annotatef(err, "sending %q", method)
	}

	o, err := e.await(ctx, pc)
	switch {
	case err != nil:
		return err
	case o.err != nil:
		return errors.Annotatef(o.err, "call %q", method)
	case o.wireErr != nil:
		return e.errs.fromWireError(o.wireErr)
	case result == nil:
		return nil
	}
	return DecodeValue(o.result, result)
}

func (e *Endpoint) await(ctx context.Context, pc *pendingCall) (outcome, error) {
	var timeout <-chan time.Time
	if e.callTimeout > 0 {
		timeout = e.clock.After(e.callTimeout)
	}
	select {
	case o := <-pc.done:
		return o, nil
	case <-ctx.Done():
		e.calls.remove(pc.id)
		return outcome{}, errors.Annotatef(ctx.Err(), "call %q", pc.method)
	case <-timeout:
		e.calls.remove(pc.id)
		return outcome{}, errors.Annotatef(ErrCallTimeout, "call %q (id %s)", pc.method, pc.id)
	}
}

// Notify sends method with params. Nothing is tracked and no response is
// expected.
func (e *Endpoint) Notify(ctx context.Context, method string, params any) error {
	if !IsNotification(method) {
		return errors.NotValidf("notification %q without %q prefix", method, NotificationPrefix)
	}
	if e.isClosed() {
		return errors.Trace(ErrClosed)
	}
	text, err := EncodeNotification(method, params)
	if err != nil {
		return errors.Trace(err)
	}
	logger.Tracef("-> %s", text)
	return errors.Annotatef(e.ch.Send(ctx, text), "sending %q", method)
}

// HandleIncoming processes one inbound message. Responses settle the
// matching pending call; requests are dispatched to registered handlers and
// calls are answered on the channel. The returned error only reports text
// that could not be decoded; handler failures go back to the peer.
func (e *Endpoint) HandleIncoming(ctx context.Context, text string) error {
	logger.Tracef("<- %s", text)
	env, err := Decode(text)
	if err != nil {
		if env != nil && env.IsCall() {
			e.reply(ctx, env.ID, nil, err)
		}
		logger.Warningf("dropping malformed message: %v", err)
		return err
	}

	if env.IsResponse() {
		e.handleResponse(env)
		return nil
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		logger.Debugf("endpoint closed, dropping %q", env.Method)
		return errors.Trace(ErrClosed)
	}
	if !e.concurrent {
		e.mu.Unlock()
		e.dispatch(ctx, env)
		return nil
	}
	e.wg.Add(1)
	e.mu.Unlock()
	go func() {
		defer e.wg.Done()
		e.dispatch(ctx, env)
	}()
	return nil
}

func (e *Endpoint) handleResponse(env *Envelope) {
	id := env.Key()
	var ok bool
	if env.Error != nil {
		ok = e.calls.reject(id, env.Error)
	} else {
		ok = e.calls.resolve(id, env.Result)
	}
	if !ok {
		logger.Debugf("ignoring response for unknown id %s", id)
	}
}

func (e *Endpoint) dispatch(ctx context.Context, env *Envelope) {
	req := &Request{Method: env.Method, ID: env.ID, Notification: !env.HasID()}
	if req.Notification {
		e.dispatchNotification(ctx, req, env.Params)
		return
	}
	result, err := e.dispatchCall(ctx, req, env.Params)
	e.reply(ctx, env.ID, result, err)
}

func (e *Endpoint) dispatchCall(ctx context.Context, req *Request, raw json.RawMessage) (any, error) {
	b, ok := e.methods.Resolve(req.Method)
	if !ok {
		return nil, errors.NotFoundf("method %q", req.Method)
	}
	params, err := ParseParams(req.Method, raw)
	if err != nil {
		return nil, err
	}
	req.Params = params
	req.bindings = []Binding{b}
	logger.Debugf("dispatching call %s (id %s)", req.Method, idKey(req.ID))
	return e.handle(ctx, req)
}

// dispatchNotification delivers to every handler exposing the method, in
// registration order. The middleware chain runs once for the message, not
// once per handler. Failures are logged and never reported to the peer.
func (e *Endpoint) dispatchNotification(ctx context.Context, req *Request, raw json.RawMessage) {
	bindings := e.methods.ResolveAll(req.Method)
	if len(bindings) == 0 {
		logger.Debugf("no handler for notification %q", req.Method)
		return
	}
	params, err := ParseParams(req.Method, raw)
	if err != nil {
		logger.Warningf("notification %q: %v", req.Method, err)
		return
	}
	req.Params = params
	req.bindings = bindings
	logger.Debugf("dispatching notification %s to %d handlers", req.Method, len(bindings))
	if _, err := e.handle(ctx, req); err != nil {
		logger.Warningf("notification %q: %v", req.Method, err)
	}
}

// invoke runs the bound handlers. A call has exactly one; a notification
// runs every one of them and reports the first failure.
func invoke(ctx context.Context, req *Request) (any, error) {
	if !req.Notification {
		return invokeBinding(ctx, req, req.bindings[0])
	}
	var first error
	for _, b := range req.bindings {
		if _, err := invokeBinding(ctx, req, b); err != nil {
			if first == nil {
				first = err
			} else {
				logger.Warningf("notification %q: %v", req.Method, err)
			}
		}
	}
	return nil, first
}

// invokeBinding runs one handler. A panic becomes an error reply.
func invokeBinding(ctx context.Context, req *Request, b Binding) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic handling %q: %v\n%s", req.Method, r, debug.Stack())
			result = nil
			err = &Error{
				Code:    CodeGeneric,
				Message: fmt.Sprintf("internal error handling %q", req.Method),
				Data:    json2.E_INTERNAL,
			}
		}
	}()
	return b.Func(ctx, req.Params)
}

func (e *Endpoint) reply(ctx context.Context, id json.RawMessage, result any, err error) {
	var text string
	if err == nil {
		if text, err = EncodeResult(id, result); err != nil {
			logger.Errorf("encoding result for id %s: %v", idKey(id), err)
		}
	}
	if err != nil {
		var encErr error
		if text, encErr = EncodeError(id, e.errs.ToWire(err)); encErr != nil {
			text, _ = EncodeError(id, &json2.Error{Code: CodeGeneric, Message: err.Error()})
		}
	}
	logger.Tracef("-> %s", text)
	if err := e.ch.Send(ctx, text); err != nil {
		logger.Errorf("sending response for id %s: %v", idKey(id), err)
	}
}

// Serve reads from r and handles every message until r is exhausted, ctx is
// done or the endpoint is closed. Running out of input is not an error.
func (e *Endpoint) Serve(ctx context.Context, r Receiver) error {
	for {
		text, err := r.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrClosed) {
				return nil
			}
			return errors.Trace(err)
		}
		if err := e.HandleIncoming(ctx, text); errors.Is(err, ErrClosed) {
			return nil
		}
	}
}

// Close fails every pending call with ErrClosed and waits for in-flight
// dispatches to return. It does not close the channel. Close must not be
// called from a handler running under concurrent dispatch.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	if n := e.calls.abandon(ErrClosed); n > 0 {
		logger.Debugf("abandoned %d pending calls", n)
	}
	e.wg.Wait()
	return nil
}
