// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package game

import (
	"context"

	"github.com/juju/loggo"

	"github.com/luxfi/tspace/rpc"
)

var logger = loggo.GetLogger("tspace.game")

// EventBus is the client side of a game connection. The client swaps
// listeners in and out as it moves between screens; each listener receives
// the server events it implements.
type EventBus struct {
	ep     *rpc.Endpoint
	sector *SectorActionsClient
	port   *PortActionsClient
}

// NewEventBus sends through ch and registers root, if not nil, as the first
// listener. The endpoint uses the game error kinds unless opts override
// them.
func NewEventBus(ch rpc.Channel, root any, opts ...rpc.Option) *EventBus {
	opts = append([]rpc.Option{rpc.WithErrorRegistry(NewErrorRegistry())}, opts...)
	return newEventBus(rpc.NewEndpoint(ch, opts...), root)
}

// AttachEventBus builds the bus on an existing endpoint, such as a session.
func AttachEventBus(ep *rpc.Endpoint, root any) *EventBus {
	return newEventBus(ep, root)
}

func newEventBus(ep *rpc.Endpoint, root any) *EventBus {
	b := &EventBus{
		ep:     ep,
		sector: NewSectorActionsClient(ep),
		port:   NewPortActionsClient(ep),
	}
	if root != nil {
		b.AppendListener(root)
	}
	return b
}

// Endpoint returns the underlying endpoint.
func (b *EventBus) Endpoint() *rpc.Endpoint { return b.ep }

// Sector returns the proxy for sector actions.
func (b *EventBus) Sector() SectorActions { return b.sector }

// Port returns the proxy for port actions.
func (b *EventBus) Port() PortActions { return b.port }

// AppendListener registers the server events listener implements, along
// with any extra methods it exposes through rpc.Handler. Earlier listeners
// shadow later ones only for calls; every listener receives events.
func (b *EventBus) AppendListener(listener any) rpc.Registration {
	methods := ServerEventsMethods(listener)
	if h, ok := listener.(rpc.Handler); ok {
		for name, fn := range h.RPCMethods() {
			methods[name] = fn
		}
	}
	return b.ep.Register(methods)
}

// RemoveListener unregisters a listener added with AppendListener.
func (b *EventBus) RemoveListener(reg rpc.Registration) bool {
	return b.ep.Unregister(reg)
}

// Dispatch hands inbound text to the endpoint. Failures are logged and
// never propagate to the caller.
func (b *EventBus) Dispatch(ctx context.Context, text string) {
	if err := b.ep.HandleIncoming(ctx, text); err != nil {
		logger.Errorf("error dispatching %q: %v", text, err)
	}
}

// Close fails outstanding action calls.
func (b *EventBus) Close() error {
	return b.ep.Close()
}

// ServeActions binds a player's actions on the server side of ep and returns
// the client for pushing events to that player.
func ServeActions(ep *rpc.Endpoint, sector SectorActions, port PortActions) (*ServerEventsClient, []rpc.Registration) {
	var regs []rpc.Registration
	if sector != nil {
		regs = append(regs, ep.Register(SectorActionsMethods(sector)))
	}
	if port != nil {
		regs = append(regs, ep.Register(PortActionsMethods(port)))
	}
	return NewServerEventsClient(ep), regs
}
