// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestWebSocketRoundTrip(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), longWait)
	defer cancel()

	srv := httptest.NewServer(NewWebSocketHandler(func(r *http.Request, s *Session) {
		name := r.URL.Query().Get("name")
		s.Register(Methods{
			"whoami": func(context.Context, Params) (any, error) {
				return name, nil
			},
		})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?name=zed"
	client, err := DialWebSocket(ctx, url, nil, nil)
	c.Assert(err, qt.IsNil)
	defer client.Close()

	name, err := Invoke[string](ctx, client, "whoami", nil)
	c.Assert(err, qt.IsNil)
	c.Assert(name, qt.Equals, "zed")
}

func TestWebSocketServerCallsClient(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), longWait)
	defer cancel()

	accepted := make(chan *Session, 1)
	srv := httptest.NewServer(NewWebSocketHandler(func(_ *http.Request, s *Session) {
		accepted <- s
	}))
	defer srv.Close()

	client, err := DialWebSocket(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil, func(s *Session) {
		s.Register(Methods{
			"add": func(_ context.Context, p Params) (any, error) {
				a, err := Arg[int](p, 0, "a")
				if err != nil {
					return nil, err
				}
				b, err := Arg[int](p, 1, "b")
				return a + b, err
			},
		})
	})
	c.Assert(err, qt.IsNil)
	defer client.Close()

	server := <-accepted
	sum, err := Invoke[int](ctx, server, "add", Positional{2, 3})
	c.Assert(err, qt.IsNil)
	c.Assert(sum, qt.Equals, 5)

	c.Assert(client.Close(), qt.IsNil)
	select {
	case <-server.Done():
	case <-ctx.Done():
		c.Fatalf("server session still running")
	}
}

func TestWebSocketDialRejected(t *testing.T) {
	c := qt.New(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := DialWebSocket(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), nil, nil)
	c.Assert(err, qt.ErrorMatches, `dialing .*: status 404: .*`)
}
