// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

const (
	grpcCodecName   = "tspace-text"
	grpcServiceName = "tspace.rpc.Channel"
	grpcStreamName  = "Frames"
	grpcFullMethod  = "/" + grpcServiceName + "/" + grpcStreamName
)

func init() {
	encoding.RegisterCodec(textCodec{})
}

// grpcFrame is the only message type on the stream. It travels as the raw
// envelope text.
type grpcFrame struct {
	Text string
}

type textCodec struct{}

func (textCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*grpcFrame)
	if !ok {
		return nil, errors.NotValidf("message of type %T", v)
	}
	return []byte(f.Text), nil
}

func (textCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*grpcFrame)
	if !ok {
		return errors.NotValidf("message of type %T", v)
	}
	f.Text = string(data)
	return nil
}

func (textCodec) Name() string { return grpcCodecName }

type grpcStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

// GRPCTransport carries messages over a bidirectional gRPC stream.
type GRPCTransport struct {
	stream    grpcStream
	closeSend func() error
	cancel    context.CancelFunc
	writeMu   sync.Mutex
	closed    atomic.Bool
	done      chan struct{}
}

func newGRPCTransport(stream grpcStream, closeSend func() error, cancel context.CancelFunc) *GRPCTransport {
	return &GRPCTransport{
		stream:    stream,
		closeSend: closeSend,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Send writes text as one stream message. The stream context governs it.
func (t *GRPCTransport) Send(_ context.Context, text string) error {
	if t.closed.Load() {
		return errors.Trace(ErrClosed)
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return errors.Annotate(t.stream.SendMsg(&grpcFrame{Text: text}), "grpc send")
}

func (t *GRPCTransport) Receive(_ context.Context) (string, error) {
	var f grpcFrame
	if err := t.stream.RecvMsg(&f); err != nil {
		if t.closed.Load() || err == io.EOF || status.Code(err) == codes.Canceled {
			return "", io.EOF
		}
		return "", errors.Annotate(err, "grpc receive")
	}
	return f.Text, nil
}

// Close half-closes a client stream and releases it. On the server side it
// ends the stream handler.
func (t *GRPCTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.done)
	var err error
	if t.closeSend != nil {
		t.writeMu.Lock()
		err = t.closeSend()
		t.writeMu.Unlock()
	}
	if t.cancel != nil {
		t.cancel()
	}
	return errors.Trace(err)
}

type grpcService struct {
	setup SessionFunc
	opts  []Option
}

func (s *grpcService) frames(_ any, stream grpc.ServerStream) error {
	t := newGRPCTransport(stream, nil, nil)
	sess := StartSession(t, s.setup, s.opts...)
	select {
	case <-sess.Done():
	case <-t.done:
	case <-stream.Context().Done():
	}
	// Returning ends the stream, which unblocks the session read loop.
	return nil
}

// RegisterGRPC exposes the session stream on s. Each client stream becomes a
// session prepared by setup.
func RegisterGRPC(s grpc.ServiceRegistrar, setup SessionFunc, opts ...Option) {
	svc := &grpcService{setup: setup, opts: opts}
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: grpcServiceName,
		HandlerType: (*any)(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    grpcStreamName,
			Handler:       svc.frames,
			ServerStreams: true,
			ClientStreams: true,
		}},
		Metadata: "tspace/rpc/channel",
	}, svc)
}

// DialGRPC opens the session stream on an established client connection.
// ctx only bounds stream creation.
func DialGRPC(ctx context.Context, cc grpc.ClientConnInterface, setup SessionFunc, opts ...Option) (*Session, error) {
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)
	stream, err := cc.NewStream(sctx, &grpc.StreamDesc{
		StreamName:    grpcStreamName,
		ServerStreams: true,
		ClientStreams: true,
	}, grpcFullMethod, grpc.CallContentSubtype(grpcCodecName))
	if !stop() || err != nil {
		cancel()
		if err == nil {
			err = ctx.Err()
		}
		return nil, errors.Annotate(err, "opening grpc stream")
	}
	return StartSession(newGRPCTransport(stream, stream.CloseSend, cancel), setup, opts...), nil
}
