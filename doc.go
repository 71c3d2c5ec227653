// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpc implements a duplex JSON-RPC 2.0 endpoint for the tspace
// trading game. Each side of a connection is at once a client issuing calls
// and a server dispatching them, over a single ordered text channel.
//
// # Messages
//
// Two interaction modes share the wire. Calls carry an id and receive exactly
// one response; notifications carry none and never receive one. Method names
// starting with "on_" are notifications:
//
//	{"jsonrpc":"2.0","method":"move_trader","params":{"sector_id":5},"id":"1"}
//	{"jsonrpc":"2.0","result":{"id":5,"warps":[4,6]},"id":"1"}
//	{"jsonrpc":"2.0","method":"on_new_sector","params":{"sector":{"id":5}}}
//	{"jsonrpc":"2.0","error":{"code":32011,"message":"no such port","data":null},"id":"2"}
//
// # Usage
//
// An Endpoint needs only a Channel to send on. Inbound text is handed to
// HandleIncoming, or to Serve when a Receiver is available:
//
//	ep := rpc.NewEndpoint(transport, rpc.WithCallTimeout(30*time.Second))
//	reg := ep.Register(rpc.Methods{
//	    "on_new_sector": func(ctx context.Context, p rpc.Params) (any, error) {
//	        sector, err := rpc.Arg[game.Sector](p, 0, "sector")
//	        ...
//	    },
//	})
//	go ep.Serve(ctx, transport)
//
//	var sector game.Sector
//	err := ep.Call(ctx, "move_trader", rpc.Named{"sector_id": 5}, &sector)
//
// Handlers are consulted in registration order and the first one exposing a
// method answers a call. Notifications go to every handler exposing them.
// Unregister removes exactly one registration, so a client can swap the
// handlers of one UI mode for another without touching the rest.
//
// Errors returned by handlers travel as a code and a message. The
// ErrorRegistry turns them back into typed errors on the calling side;
// unknown codes become the generic *Error.
//
// # Transports
//
// The endpoint does not establish connections. Adapters over established
// connections are provided:
//
//   - frame.go, dial.go: length prefixed frames over TCP (Dial, Listen)
//   - websocket.go: one message per websocket text frame
//   - grpc.go: a bidirectional gRPC stream
//   - json.go: one-shot calls over HTTP POST
//   - transport.go: an in-memory Pipe
//
// Each adapter yields a Session, an Endpoint with its read loop running.
package rpc
