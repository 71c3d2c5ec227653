// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func startListener(c *qt.C, setup SessionFunc, opts ...Option) *Listener {
	l, err := Listen("127.0.0.1:0", setup, opts...)
	c.Assert(err, qt.IsNil)
	go l.Serve(context.Background())
	c.Cleanup(func() { l.Close() })
	return l
}

func TestFrameRoundTrip(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), longWait)
	defer cancel()

	l := startListener(c, func(s *Session) {
		s.Register(Methods{
			"echo": func(_ context.Context, p Params) (any, error) {
				return Arg[string](p, 0, "text")
			},
		})
	})

	client, err := Dial(ctx, l.Addr(), nil)
	c.Assert(err, qt.IsNil)
	defer client.Close()

	var got string
	err = client.Call(ctx, "echo", Named{"text": "hello world"}, &got)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "hello world")
}

func TestFrameServerPushesOnConnect(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), longWait)
	defer cancel()

	l := startListener(c, func(s *Session) {
		go s.Notify(context.Background(), "on_welcome", Named{"motd": "fly safe"})
	})

	got := make(chan string, 1)
	client, err := Dial(ctx, l.Addr(), func(s *Session) {
		s.Register(Methods{
			"on_welcome": func(_ context.Context, p Params) (any, error) {
				motd, err := Arg[string](p, 0, "motd")
				got <- motd
				return nil, err
			},
		})
	})
	c.Assert(err, qt.IsNil)
	defer client.Close()

	select {
	case motd := <-got:
		c.Assert(motd, qt.Equals, "fly safe")
	case <-ctx.Done():
		c.Fatalf("no welcome notification")
	}
}

func TestFrameSessionEndsWhenPeerCloses(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), longWait)
	defer cancel()

	accepted := make(chan *Session, 1)
	l := startListener(c, func(s *Session) { accepted <- s })

	client, err := Dial(ctx, l.Addr(), nil)
	c.Assert(err, qt.IsNil)
	server := <-accepted
	c.Assert(client.Close(), qt.IsNil)

	select {
	case <-server.Done():
	case <-ctx.Done():
		c.Fatalf("server session still running")
	}
	c.Assert(server.Wait(), qt.IsNil)
}

func TestFrameTooLarge(t *testing.T) {
	c := qt.New(t)

	a, b := net.Pipe()
	sender := NewFrameTransport(a, WithMaxFrameSize(8))
	receiver := NewFrameTransport(b, WithMaxFrameSize(8))
	defer sender.Close()
	defer receiver.Close()

	err := sender.Send(context.Background(), strings.Repeat("x", 9))
	c.Assert(err, qt.ErrorIs, ErrFrameTooLarge)

	go func() {
		a.Write([]byte{0, 0, 1, 0})
	}()
	_, err = receiver.Receive(context.Background())
	c.Assert(err, qt.ErrorIs, ErrFrameTooLarge)
}

func TestFrameReceiveAfterClose(t *testing.T) {
	c := qt.New(t)

	a, b := net.Pipe()
	sender := NewFrameTransport(a)
	receiver := NewFrameTransport(b)

	go sender.Send(context.Background(), `{"jsonrpc":"2.0","method":"on_x"}`)
	text, err := receiver.Receive(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(text, qt.Equals, `{"jsonrpc":"2.0","method":"on_x"}`)

	c.Assert(sender.Close(), qt.IsNil)
	_, err = receiver.Receive(context.Background())
	c.Assert(err, qt.Equals, io.EOF)

	c.Assert(receiver.Close(), qt.IsNil)
	c.Assert(sender.Send(context.Background(), "x"), qt.ErrorIs, ErrClosed)
}

func TestFrameSessionPeerHangUpIsClean(t *testing.T) {
	c := qt.New(t)

	a, b := net.Pipe()
	sess := StartSession(NewFrameTransport(b), nil)
	defer sess.Close()

	c.Assert(a.Close(), qt.IsNil)
	select {
	case <-sess.Done():
	case <-time.After(longWait):
		c.Fatalf("session still running after peer closed")
	}
	c.Assert(sess.Wait(), qt.IsNil)
}

func TestFrameReceiveDeadline(t *testing.T) {
	c := qt.New(t)

	a, b := net.Pipe()
	defer a.Close()
	receiver := NewFrameTransport(b)
	defer receiver.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := receiver.Receive(ctx)
	c.Assert(err, qt.ErrorMatches, "frame read: .*")
}

func BenchmarkFrameRoundTrip(b *testing.B) {
	ctx := context.Background()

	l, err := Listen("127.0.0.1:0", func(s *Session) {
		s.Register(Methods{
			"echo": func(_ context.Context, p Params) (any, error) {
				return Arg[string](p, 0, "text")
			},
		})
	})
	if err != nil {
		b.Fatalf("Listen: %v", err)
	}
	defer l.Close()
	go l.Serve(ctx)

	client, err := Dial(ctx, l.Addr(), nil)
	if err != nil {
		b.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	params := Positional{strings.Repeat("x", 1024)}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := client.Call(ctx, "echo", params, nil); err != nil {
			b.Fatal(err)
		}
	}
}
