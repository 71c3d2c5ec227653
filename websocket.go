// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"
)

const closeGracePeriod = time.Second

// WebSocketTransport carries one message per text frame.
type WebSocketTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewWebSocketTransport wraps an established connection.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{conn: conn}
}

func (t *WebSocketTransport) Send(ctx context.Context, text string) error {
	if t.closed.Load() {
		return errors.Trace(ErrClosed)
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	deadline, _ := ctx.Deadline()
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return errors.Trace(err)
	}
	return errors.Annotate(t.conn.WriteMessage(websocket.TextMessage, []byte(text)), "websocket write")
}

// Receive returns the next text message. Binary messages are skipped.
func (t *WebSocketTransport) Receive(ctx context.Context) (string, error) {
	deadline, _ := ctx.Deadline()
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return "", t.readError(err)
	}
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", t.readError(err)
		}
		if kind != websocket.TextMessage {
			logger.Debugf("ignoring websocket message of type %d", kind)
			continue
		}
		return string(data), nil
	}
}

func (t *WebSocketTransport) readError(err error) error {
	if t.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	return errors.Annotate(err, "websocket read")
}

// Close sends a close frame and closes the connection.
func (t *WebSocketTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	t.writeMu.Unlock()
	return t.conn.Close()
}

// DialWebSocket opens a websocket to url and returns a running session.
func DialWebSocket(ctx context.Context, url string, header http.Header, setup SessionFunc, opts ...Option) (*Session, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			CleanlyCloseBody(resp.Body)
			return nil, errors.Annotatef(err, "dialing %s: status %d", url, resp.StatusCode)
		}
		return nil, errors.Annotatef(err, "dialing %s", url)
	}
	return StartSession(NewWebSocketTransport(conn), setup, opts...), nil
}

// WebSocketHandler upgrades HTTP requests and runs a session per connection
// until the peer goes away.
type WebSocketHandler struct {
	Upgrader websocket.Upgrader

	setup func(*http.Request, *Session)
	opts  []Option
}

// NewWebSocketHandler returns a handler preparing each session with setup.
// setup receives the upgrade request, so query parameters such as a player
// name are available to it.
func NewWebSocketHandler(setup func(*http.Request, *Session), opts ...Option) *WebSocketHandler {
	return &WebSocketHandler{setup: setup, opts: opts}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warningf("websocket upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	sess := StartSession(NewWebSocketTransport(conn), func(s *Session) {
		if h.setup != nil {
			h.setup(r, s)
		}
	}, h.opts...)
	if err := sess.Wait(); err != nil {
		logger.Debugf("websocket session from %s: %v", r.RemoteAddr, err)
	}
}
