// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package game

import (
	"context"

	"github.com/luxfi/tspace/rpc"
)

// Action method names.
const (
	MethodMoveTrader  = "move_trader"
	MethodEnterPort   = "enter_port"
	MethodBuyFromPort = "buy_from_port"
	MethodSellToPort  = "sell_to_port"
	MethodExitPort    = "exit_port"
)

// SectorActions are the calls a player can make while flying in a sector.
type SectorActions interface {
	MoveTrader(ctx context.Context, sectorID int) (Sector, error)
	EnterPort(ctx context.Context, portID int) (PlayerPort, error)
}

// PortActions are the calls a player can make while docked at a port.
type PortActions interface {
	BuyFromPort(ctx context.Context, portID int, commodity CommodityType, amount int) (PlayerPort, error)
	SellToPort(ctx context.Context, portID int, commodity CommodityType, amount int) (PlayerPort, error)
	ExitPort(ctx context.Context, portID int) (Player, error)
}

// SectorActionsClient calls SectorActions on the peer.
type SectorActionsClient struct {
	caller rpc.Caller
}

var _ SectorActions = (*SectorActionsClient)(nil)

func NewSectorActionsClient(c rpc.Caller) *SectorActionsClient {
	return &SectorActionsClient{caller: c}
}

func (c *SectorActionsClient) MoveTrader(ctx context.Context, sectorID int) (Sector, error) {
	return rpc.Invoke[Sector](ctx, c.caller, MethodMoveTrader, rpc.Named{"sector_id": sectorID})
}

func (c *SectorActionsClient) EnterPort(ctx context.Context, portID int) (PlayerPort, error) {
	return rpc.Invoke[PlayerPort](ctx, c.caller, MethodEnterPort, rpc.Named{"port_id": portID})
}

// PortActionsClient calls PortActions on the peer.
type PortActionsClient struct {
	caller rpc.Caller
}

var _ PortActions = (*PortActionsClient)(nil)

func NewPortActionsClient(c rpc.Caller) *PortActionsClient {
	return &PortActionsClient{caller: c}
}

func (c *PortActionsClient) BuyFromPort(ctx context.Context, portID int, commodity CommodityType, amount int) (PlayerPort, error) {
	return rpc.Invoke[PlayerPort](ctx, c.caller, MethodBuyFromPort, tradeParams(portID, commodity, amount))
}

func (c *PortActionsClient) SellToPort(ctx context.Context, portID int, commodity CommodityType, amount int) (PlayerPort, error) {
	return rpc.Invoke[PlayerPort](ctx, c.caller, MethodSellToPort, tradeParams(portID, commodity, amount))
}

func (c *PortActionsClient) ExitPort(ctx context.Context, portID int) (Player, error) {
	return rpc.Invoke[Player](ctx, c.caller, MethodExitPort, rpc.Named{"port_id": portID})
}

func tradeParams(portID int, commodity CommodityType, amount int) rpc.Named {
	return rpc.Named{"port_id": portID, "commodity": commodity, "amount": amount}
}

// SectorActionsMethods binds impl for dispatch.
func SectorActionsMethods(impl SectorActions) rpc.Methods {
	return rpc.Methods{
		MethodMoveTrader: func(ctx context.Context, p rpc.Params) (any, error) {
			sectorID, err := rpc.Arg[int](p, 0, "sector_id")
			if err != nil {
				return nil, err
			}
			return impl.MoveTrader(ctx, sectorID)
		},
		MethodEnterPort: func(ctx context.Context, p rpc.Params) (any, error) {
			portID, err := rpc.Arg[int](p, 0, "port_id")
			if err != nil {
				return nil, err
			}
			return impl.EnterPort(ctx, portID)
		},
	}
}

// PortActionsMethods binds impl for dispatch.
func PortActionsMethods(impl PortActions) rpc.Methods {
	trade := func(do func(context.Context, int, CommodityType, int) (PlayerPort, error)) rpc.MethodFunc {
		return func(ctx context.Context, p rpc.Params) (any, error) {
			portID, err := rpc.Arg[int](p, 0, "port_id")
			if err != nil {
				return nil, err
			}
			commodity, err := rpc.Arg[CommodityType](p, 1, "commodity")
			if err != nil {
				return nil, err
			}
			amount, err := rpc.Arg[int](p, 2, "amount")
			if err != nil {
				return nil, err
			}
			return do(ctx, portID, commodity, amount)
		}
	}
	return rpc.Methods{
		MethodBuyFromPort: trade(impl.BuyFromPort),
		MethodSellToPort:  trade(impl.SellToPort),
		MethodExitPort: func(ctx context.Context, p rpc.Params) (any, error) {
			portID, err := rpc.Arg[int](p, 0, "port_id")
			if err != nil {
				return nil, err
			}
			return impl.ExitPort(ctx, portID)
		},
	}
}
