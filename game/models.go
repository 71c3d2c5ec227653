// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package game defines the protocol surface of the tspace trading game: the
// records exchanged between server and client, the action and event
// interfaces, their typed clients and handler tables, and the error kinds.
package game

import (
	"github.com/luxfi/tspace/rpc"
)

// CommodityType is a tradeable commodity.
type CommodityType int

const (
	FuelOre CommodityType = iota
	Organics
	Equipment
)

var commodityTypes = rpc.NewEnum("commodity type", map[CommodityType]string{
	FuelOre:   "fuel_ore",
	Organics:  "organics",
	Equipment: "equipment",
})

var commodityDisplay = map[CommodityType]string{
	FuelOre:   "Fuel Ore",
	Organics:  "Organics",
	Equipment: "Equipment",
}

// CommodityTypes lists every commodity in declaration order.
func CommodityTypes() []CommodityType {
	return []CommodityType{FuelOre, Organics, Equipment}
}

// ParseCommodityType returns the commodity with the given wire name.
func ParseCommodityType(name string) (CommodityType, error) {
	return commodityTypes.Parse(name)
}

// String returns the display name.
func (c CommodityType) String() string {
	if s, ok := commodityDisplay[c]; ok {
		return s
	}
	return "Unknown"
}

func (c CommodityType) MarshalText() ([]byte, error) {
	name, err := commodityTypes.Name(c)
	if err != nil {
		return nil, err
	}
	return []byte(name), nil
}

func (c *CommodityType) UnmarshalText(text []byte) error {
	v, err := commodityTypes.Parse(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

type ShipType struct {
	Name               string `json:"name"`
	Cost               int    `json:"cost"`
	HoldsInitial       int    `json:"holds_initial"`
	HoldsMax           int    `json:"holds_max"`
	WarpCost           int    `json:"warp_cost"`
	WeaponsMax         int    `json:"weapons_max"`
	CountermeasuresMax int    `json:"countermeasures_max"`
	HasShieldSlot      bool   `json:"has_shield_slot"`
	HasScannerSlot     bool   `json:"has_scanner_slot"`
}

// GameConfig describes the galaxy a player has joined.
type GameConfig struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Diameter     int    `json:"diameter"`
	SectorsCount int    `json:"sectors_count"`
}

// Player is the view a player has of itself. Port is set while docked.
type Player struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Ship    Ship   `json:"ship"`
	Credits int    `json:"credits"`
	Sector  Sector `json:"sector"`
	Port    *Port  `json:"port,omitempty"`
}

type Trader struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TraderShip is a ship as seen by other players in the same sector.
type TraderShip struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Type   ShipType `json:"type"`
	Trader Trader   `json:"trader"`
}

type Ship struct {
	ID            int                   `json:"id"`
	Name          string                `json:"name"`
	HoldsCapacity int                   `json:"holds_capacity"`
	Holds         map[CommodityType]int `json:"holds"`
	Sector        Sector                `json:"sector"`
	Type          string                `json:"type"`
}

// HoldsUsed returns the number of occupied holds.
func (s Ship) HoldsUsed() int {
	n := 0
	for _, amount := range s.Holds {
		n += amount
	}
	return n
}

// TradingCommodity is one commodity line of a port. Amount, Capacity and
// Price are only known once the player is docked.
type TradingCommodity struct {
	Amount   *int          `json:"amount,omitempty"`
	Capacity *int          `json:"capacity,omitempty"`
	Buying   bool          `json:"buying"`
	Type     CommodityType `json:"type"`
	Price    *float64      `json:"price,omitempty"`
}

type Port struct {
	ID          int                `json:"id"`
	Name        string             `json:"name"`
	SectorID    int                `json:"sector_id"`
	Commodities []TradingCommodity `json:"commodities"`
}

// Commodity returns the line for c, if the port trades it.
func (p Port) Commodity(c CommodityType) (TradingCommodity, bool) {
	for _, tc := range p.Commodities {
		if tc.Type == c {
			return tc, true
		}
	}
	return TradingCommodity{}, false
}

type Sector struct {
	ID      int          `json:"id"`
	Warps   []int        `json:"warps"`
	Ports   []Port       `json:"ports"`
	Ships   []TraderShip `json:"ships"`
	Planets []Planet     `json:"planets"`
}

// HasWarp reports whether sector id is reachable in one move.
func (s Sector) HasWarp(id int) bool {
	for _, w := range s.Warps {
		if w == id {
			return true
		}
	}
	return false
}

type Planet struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Owner      *Trader `json:"owner,omitempty"`
	PlanetType string  `json:"planet_type"`
	FuelOre    int     `json:"fuel_ore"`
	Organics   int     `json:"organics"`
	Equipment  int     `json:"equipment"`
}

// PlayerPort is the (player, port) pair returned by port actions.
type PlayerPort = rpc.Tuple2[Player, Port]
