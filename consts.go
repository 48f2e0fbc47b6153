// Copyright (c) 2025 Neomantra Corp

package backtest

import "fmt"

// OrderSide is the direction of an order fill.
type OrderSide uint8

const (
	// No side was specified; rejected by the position engine.
	OrderSide_Undefined OrderSide = 0
	// A buy order.
	OrderSide_Buy OrderSide = 1
	// A sell order.
	OrderSide_Sell OrderSide = 2
)

func (s OrderSide) String() string {
	switch s {
	case OrderSide_Buy:
		return "BUY"
	case OrderSide_Sell:
		return "SELL"
	default:
		return "UNDEFINED"
	}
}

// OrderSideFromString returns the OrderSide for its string form.
func OrderSideFromString(str string) (OrderSide, error) {
	switch str {
	case "BUY":
		return OrderSide_Buy, nil
	case "SELL":
		return OrderSide_Sell, nil
	case "UNDEFINED":
		return OrderSide_Undefined, nil
	default:
		return OrderSide_Undefined, fmt.Errorf("unknown order side '%s'", str)
	}
}

// PositionSide is the directional state of a position.
type PositionSide uint8

const (
	// No exposure.
	PositionSide_Flat PositionSide = 0
	// Net buy exposure.
	PositionSide_Long PositionSide = 1
	// Net sell exposure.
	PositionSide_Short PositionSide = 2
)

func (s PositionSide) String() string {
	switch s {
	case PositionSide_Long:
		return "LONG"
	case PositionSide_Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// PositionSideFromString returns the PositionSide for its string form.
func PositionSideFromString(str string) (PositionSide, error) {
	switch str {
	case "FLAT":
		return PositionSide_Flat, nil
	case "LONG":
		return PositionSide_Long, nil
	case "SHORT":
		return PositionSide_Short, nil
	default:
		return PositionSide_Flat, fmt.Errorf("unknown position side '%s'", str)
	}
}

// SideFromOrderSide maps the side of an opening fill to the position side it creates.
// OrderSide_Undefined is rejected with ErrInvalidOrderSide.
func SideFromOrderSide(side OrderSide) (PositionSide, error) {
	switch side {
	case OrderSide_Buy:
		return PositionSide_Long, nil
	case OrderSide_Sell:
		return PositionSide_Short, nil
	default:
		return PositionSide_Flat, ErrInvalidOrderSide
	}
}

// AggressorSide is the side that initiated a trade.
type AggressorSide uint8

const (
	// No aggressor specified by the original source.
	AggressorSide_None AggressorSide = 'N'
	// A buy aggressor.
	AggressorSide_Buyer AggressorSide = 'B'
	// A sell aggressor.
	AggressorSide_Seller AggressorSide = 'S'
)

func (s AggressorSide) String() string {
	switch s {
	case AggressorSide_Buyer:
		return "BUYER"
	case AggressorSide_Seller:
		return "SELLER"
	default:
		return "NONE"
	}
}

// AggressorSideFromString returns the AggressorSide for its string form.
// Both the long form ("BUYER") and the single-character column form ("B") parse.
func AggressorSideFromString(str string) (AggressorSide, error) {
	switch str {
	case "BUYER", "B":
		return AggressorSide_Buyer, nil
	case "SELLER", "S":
		return AggressorSide_Seller, nil
	case "NONE", "N", "":
		return AggressorSide_None, nil
	default:
		return AggressorSide_None, fmt.Errorf("unknown aggressor side '%s'", str)
	}
}
