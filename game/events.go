// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package game

import (
	"context"

	"github.com/luxfi/tspace/rpc"
)

// Event notification names.
const (
	EventGameEnter       = "on_game_enter"
	EventNewSector       = "on_new_sector"
	EventShipEnterSector = "on_ship_enter_sector"
	EventShipExitSector  = "on_ship_exit_sector"
	EventInvalidAction   = "on_invalid_action"
	EventPortEnter       = "on_port_enter"
	EventPortExit        = "on_port_exit"
	EventPortBuy         = "on_port_buy"
	EventPortSell        = "on_port_sell"
)

// A listener implements any subset of the event interfaces below. Only the
// events it implements are bound when it is registered.

type GameEnterListener interface {
	OnGameEnter(ctx context.Context, player Player, config GameConfig) error
}

type NewSectorListener interface {
	OnNewSector(ctx context.Context, sector Sector) error
}

type ShipEnterSectorListener interface {
	OnShipEnterSector(ctx context.Context, sector Sector, ship TraderShip) error
}

type ShipExitSectorListener interface {
	OnShipExitSector(ctx context.Context, sector Sector, ship TraderShip) error
}

type InvalidActionListener interface {
	OnInvalidAction(ctx context.Context, message string) error
}

type PortEnterListener interface {
	OnPortEnter(ctx context.Context, port Port, player Player) error
}

type PortExitListener interface {
	OnPortExit(ctx context.Context, port Port, player Player) error
}

type PortBuyListener interface {
	OnPortBuy(ctx context.Context, portID int, player Player) error
}

type PortSellListener interface {
	OnPortSell(ctx context.Context, portID int, player Player) error
}

// ServerEvents is every event the server pushes to a player.
type ServerEvents interface {
	GameEnterListener
	NewSectorListener
	ShipEnterSectorListener
	ShipExitSectorListener
	InvalidActionListener
	PortEnterListener
	PortExitListener
	PortBuyListener
	PortSellListener
}

// ServerEventsClient sends ServerEvents to the peer as notifications.
type ServerEventsClient struct {
	caller rpc.Caller
}

var _ ServerEvents = (*ServerEventsClient)(nil)

func NewServerEventsClient(c rpc.Caller) *ServerEventsClient {
	return &ServerEventsClient{caller: c}
}

func (c *ServerEventsClient) OnGameEnter(ctx context.Context, player Player, config GameConfig) error {
	return c.caller.Notify(ctx, EventGameEnter, rpc.Named{"player": player, "config": config})
}

func (c *ServerEventsClient) OnNewSector(ctx context.Context, sector Sector) error {
	return c.caller.Notify(ctx, EventNewSector, rpc.Named{"sector": sector})
}

func (c *ServerEventsClient) OnShipEnterSector(ctx context.Context, sector Sector, ship TraderShip) error {
	return c.caller.Notify(ctx, EventShipEnterSector, rpc.Named{"sector": sector, "ship": ship})
}

func (c *ServerEventsClient) OnShipExitSector(ctx context.Context, sector Sector, ship TraderShip) error {
	return c.caller.Notify(ctx, EventShipExitSector, rpc.Named{"sector": sector, "ship": ship})
}

func (c *ServerEventsClient) OnInvalidAction(ctx context.Context, message string) error {
	return c.caller.Notify(ctx, EventInvalidAction, rpc.Named{"error": message})
}

func (c *ServerEventsClient) OnPortEnter(ctx context.Context, port Port, player Player) error {
	return c.caller.Notify(ctx, EventPortEnter, rpc.Named{"port": port, "player": player})
}

func (c *ServerEventsClient) OnPortExit(ctx context.Context, port Port, player Player) error {
	return c.caller.Notify(ctx, EventPortExit, rpc.Named{"port": port, "player": player})
}

func (c *ServerEventsClient) OnPortBuy(ctx context.Context, portID int, player Player) error {
	return c.caller.Notify(ctx, EventPortBuy, rpc.Named{"id": portID, "player": player})
}

func (c *ServerEventsClient) OnPortSell(ctx context.Context, portID int, player Player) error {
	return c.caller.Notify(ctx, EventPortSell, rpc.Named{"id": portID, "player": player})
}

// ServerEventsMethods binds the events listener implements. A listener
// implementing none of them yields an empty table.
func ServerEventsMethods(listener any) rpc.Methods {
	m := rpc.Methods{}
	if l, ok := listener.(GameEnterListener); ok {
		m[EventGameEnter] = func(ctx context.Context, p rpc.Params) (any, error) {
			player, err := rpc.Arg[Player](p, 0, "player")
			if err != nil {
				return nil, err
			}
			config, err := rpc.Arg[GameConfig](p, 1, "config")
			if err != nil {
				return nil, err
			}
			return nil, l.OnGameEnter(ctx, player, config)
		}
	}
	if l, ok := listener.(NewSectorListener); ok {
		m[EventNewSector] = func(ctx context.Context, p rpc.Params) (any, error) {
			sector, err := rpc.Arg[Sector](p, 0, "sector")
			if err != nil {
				return nil, err
			}
			return nil, l.OnNewSector(ctx, sector)
		}
	}
	if l, ok := listener.(ShipEnterSectorListener); ok {
		m[EventShipEnterSector] = sectorShipEvent(l.OnShipEnterSector)
	}
	if l, ok := listener.(ShipExitSectorListener); ok {
		m[EventShipExitSector] = sectorShipEvent(l.OnShipExitSector)
	}
	if l, ok := listener.(InvalidActionListener); ok {
		m[EventInvalidAction] = func(ctx context.Context, p rpc.Params) (any, error) {
			message, err := rpc.Arg[string](p, 0, "error")
			if err != nil {
				return nil, err
			}
			return nil, l.OnInvalidAction(ctx, message)
		}
	}
	if l, ok := listener.(PortEnterListener); ok {
		m[EventPortEnter] = portPlayerEvent(l.OnPortEnter)
	}
	if l, ok := listener.(PortExitListener); ok {
		m[EventPortExit] = portPlayerEvent(l.OnPortExit)
	}
	if l, ok := listener.(PortBuyListener); ok {
		m[EventPortBuy] = portTradeEvent(l.OnPortBuy)
	}
	if l, ok := listener.(PortSellListener); ok {
		m[EventPortSell] = portTradeEvent(l.OnPortSell)
	}
	return m
}

func sectorShipEvent(fn func(context.Context, Sector, TraderShip) error) rpc.MethodFunc {
	return func(ctx context.Context, p rpc.Params) (any, error) {
		sector, err := rpc.Arg[Sector](p, 0, "sector")
		if err != nil {
			return nil, err
		}
		ship, err := rpc.Arg[TraderShip](p, 1, "ship")
		if err != nil {
			return nil, err
		}
		return nil, fn(ctx, sector, ship)
	}
}

func portPlayerEvent(fn func(context.Context, Port, Player) error) rpc.MethodFunc {
	return func(ctx context.Context, p rpc.Params) (any, error) {
		port, err := rpc.Arg[Port](p, 0, "port")
		if err != nil {
			return nil, err
		}
		player, err := rpc.Arg[Player](p, 1, "player")
		if err != nil {
			return nil, err
		}
		return nil, fn(ctx, port, player)
	}
}

func portTradeEvent(fn func(context.Context, int, Player) error) rpc.MethodFunc {
	return func(ctx context.Context, p rpc.Params) (any, error) {
		portID, err := rpc.Arg[int](p, 0, "id")
		if err != nil {
			return nil, err
		}
		player, err := rpc.Arg[Player](p, 1, "player")
		if err != nil {
			return nil, err
		}
		return nil, fn(ctx, portID, player)
	}
}
