// Copyright (c) 2025 Neomantra Corp

package backtest

import (
	"github.com/shopspring/decimal"
)

// OrderFilled reports the execution of an order, in whole or in part.
// ExecutionNs is assumed monotonically non-decreasing across the fills
// applied to a single position; that is a caller precondition, not an
// invariant the engine enforces.
type OrderFilled struct {
	ClientOrderId ClientOrderId   // The client's order identifier.
	OrderId       OrderId         // The venue's order identifier.
	ExecutionId   ExecutionId     // The venue's fill identifier; the idempotency key.
	PositionId    PositionId      // The position this fill belongs to.
	StrategyId    StrategyId      // The strategy that owns the order.
	AccountId     AccountId       // The trading account.
	InstrumentId  InstrumentId    // The instrument filled.
	OrderSide     OrderSide       // The direction of the fill.
	FillPrice     decimal.Decimal // The execution price.
	FillQty       decimal.Decimal // The executed quantity.
	Currency      Currency        // The instrument's quote currency.
	IsInverse     bool            // True if the instrument is inverse (P&L in base asset).
	Commission    Money           // The fee charged for this fill, in any currency.
	ExecutionNs   int64           // The execution timestamp in UNIX epoch nanoseconds.
}
