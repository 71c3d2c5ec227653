// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
)

// ErrFrameTooLarge is returned for frames above the configured maximum.
const ErrFrameTooLarge = errors.ConstError("frame too large")

// FrameTransport carries one message per frame over a stream connection.
// Each frame is [4 byte big-endian length][payload].
type FrameTransport struct {
	conn    net.Conn
	maxSize int
	writeMu sync.Mutex
	readMu  sync.Mutex
	header  [4]byte
	closed  atomic.Bool
}

// NewFrameTransport frames messages over conn. Only WithMaxFrameSize is
// consulted from opts.
func NewFrameTransport(conn net.Conn, opts ...Option) *FrameTransport {
	o := newOptions(opts)
	return &FrameTransport{conn: conn, maxSize: o.maxFrameSize}
}

// Send writes text as a single frame. A context deadline becomes the write
// deadline.
func (f *FrameTransport) Send(ctx context.Context, text string) error {
	if f.closed.Load() {
		return errors.Trace(ErrClosed)
	}
	if len(text) == 0 {
		return errors.NotValidf("empty frame")
	}
	if len(text) > f.maxSize {
		return errors.Annotatef(ErrFrameTooLarge, "%d bytes", len(text))
	}

	buf := make([]byte, 4+len(text))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(text)))
	copy(buf[4:], text)

	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	deadline, _ := ctx.Deadline()
	if err := f.conn.SetWriteDeadline(deadline); err != nil {
		return errors.Trace(err)
	}
	if _, err := f.conn.Write(buf); err != nil {
		return errors.Annotate(err, "frame write")
	}
	return nil
}

// Receive reads the next frame. It returns io.EOF when the peer closes the
// connection between frames or the transport has been closed.
func (f *FrameTransport) Receive(ctx context.Context) (string, error) {
	f.readMu.Lock()
	defer f.readMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := f.conn.SetReadDeadline(deadline); err != nil {
		return "", f.readError(err)
	}

	if _, err := io.ReadFull(f.conn, f.header[:]); err != nil {
		return "", f.readError(err)
	}
	size := binary.BigEndian.Uint32(f.header[:])
	if size == 0 || int64(size) > int64(f.maxSize) {
		return "", errors.Annotatef(ErrFrameTooLarge, "announced %d bytes", size)
	}

	msg := make([]byte, size)
	if _, err := io.ReadFull(f.conn, msg); err != nil {
		return "", f.readError(err)
	}
	return string(msg), nil
}

func (f *FrameTransport) readError(err error) error {
	if f.closed.Load() || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return io.EOF
	}
	return errors.Annotate(err, "frame read")
}

// Close closes the connection.
func (f *FrameTransport) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	return f.conn.Close()
}

// RemoteAddr returns the address of the peer.
func (f *FrameTransport) RemoteAddr() net.Addr {
	return f.conn.RemoteAddr()
}
