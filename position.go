// Copyright (c) 2025 Neomantra Corp

package backtest

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

///////////////////////////////////////////////////////////////////////////////

// Position folds an ordered sequence of OrderFilled events into a directional
// exposure in one instrument, tracking side, quantity, weighted average open
// and close prices, realized and unrealized P&L, and cumulative commissions
// per currency.
//
// Apply is all-or-nothing: a rejected event leaves the position unchanged.
// A Position is not safe for concurrent mutation; distinct instances share no
// mutable state.
type Position struct {
	id           PositionId
	accountId    AccountId
	strategyId   StrategyId
	instrumentId InstrumentId
	fromOrder    ClientOrderId

	entrySide   OrderSide
	side        PositionSide
	relativeQty decimal.Decimal // signed net quantity; sign determines side
	quantity    decimal.Decimal // always |relativeQty|
	peakQty     decimal.Decimal
	buyQty      decimal.Decimal // cumulative bought quantity
	sellQty     decimal.Decimal // cumulative sold quantity

	avgPxOpen  decimal.Decimal
	hasPxOpen  bool
	avgPxClose decimal.Decimal
	hasPxClose bool

	openedTsNs     int64
	closedTsNs     int64 // 0 until the position flips to flat
	openDurationNs int64 // 0 until the position flips to flat

	quoteCurrency  Currency
	isInverse      bool
	realizedPoints decimal.Decimal
	realizedReturn decimal.Decimal
	realizedPnl    decimal.Decimal // in the quote currency

	commissions map[Currency]decimal.Decimal

	events        []OrderFilled
	executionIds  []ExecutionId
	executionSeen map[ExecutionId]struct{}
}

// NewPosition constructs an open position from its first fill. Fails with
// ErrNullIdentifier if the fill's position or strategy id is null, and with
// ErrInvalidOrderSide if the fill's side is undefined.
func NewPosition(event OrderFilled) (*Position, error) {
	if event.PositionId.IsNull() {
		return nil, fmt.Errorf("%w: position_id", ErrNullIdentifier)
	}
	if event.StrategyId.IsNull() {
		return nil, fmt.Errorf("%w: strategy_id", ErrNullIdentifier)
	}
	if _, err := SideFromOrderSide(event.OrderSide); err != nil {
		return nil, err
	}

	p := &Position{
		id:            event.PositionId,
		accountId:     event.AccountId,
		strategyId:    event.StrategyId,
		instrumentId:  event.InstrumentId,
		fromOrder:     event.ClientOrderId,
		entrySide:     event.OrderSide,
		side:          PositionSide_Flat,
		openedTsNs:    event.ExecutionNs,
		quoteCurrency: event.Currency,
		isInverse:     event.IsInverse,
		commissions:   make(map[Currency]decimal.Decimal),
		executionSeen: make(map[ExecutionId]struct{}),
	}
	if err := p.Apply(event); err != nil {
		return nil, err
	}
	return p, nil
}

///////////////////////////////////////////////////////////////////////////////

// Apply folds a fill into the position. Fails with ErrDuplicateExecution if
// the fill's execution id was already applied, and with ErrInvalidOrderSide
// for an undefined side; either way the position is unchanged.
func (p *Position) Apply(event OrderFilled) error {
	if event.OrderSide != OrderSide_Buy && event.OrderSide != OrderSide_Sell {
		return ErrInvalidOrderSide
	}
	if _, seen := p.executionSeen[event.ExecutionId]; seen {
		return fmt.Errorf("%w: %s", ErrDuplicateExecution, event.ExecutionId)
	}

	p.events = append(p.events, event)
	p.executionIds = append(p.executionIds, event.ExecutionId)
	p.executionSeen[event.ExecutionId] = struct{}{}

	p.commissions[event.Commission.Currency] =
		p.commissions[event.Commission.Currency].Add(event.Commission.Amount)

	if event.OrderSide == OrderSide_Buy {
		p.applyBuy(event)
	} else {
		p.applySell(event)
	}

	p.quantity = p.relativeQty.Abs()
	if p.quantity.GreaterThan(p.peakQty) {
		p.peakQty = p.quantity
	}

	switch {
	case p.relativeQty.IsPositive():
		p.side = PositionSide_Long
	case p.relativeQty.IsNegative():
		p.side = PositionSide_Short
	default:
		p.side = PositionSide_Flat
		p.closedTsNs = event.ExecutionNs
		p.openDurationNs = p.closedTsNs - p.openedTsNs
	}
	return nil
}

// applyBuy handles a BUY fill: opening or adding when flat/long, reducing
// when short.
func (p *Position) applyBuy(event OrderFilled) {
	deltaPnl := decimal.Zero
	if event.Commission.Currency == p.quoteCurrency {
		deltaPnl = event.Commission.Amount.Neg()
	}

	switch {
	case p.relativeQty.IsPositive():
		// Adding to LONG: size-weighted average against the pre-fill quantity.
		p.avgPxOpen = weightedAvgPx(p.avgPxOpen, p.quantity, event.FillPrice, event.FillQty)
	case p.relativeQty.IsNegative():
		// Reducing SHORT: shorts close via buys, so buyQty accumulates the close.
		if p.hasPxClose {
			p.avgPxClose = weightedAvgPx(p.avgPxClose, p.buyQty, event.FillPrice, event.FillQty)
		} else {
			p.avgPxClose = event.FillPrice
			p.hasPxClose = true
		}
		p.realizedPoints = p.calculatePoints(p.avgPxOpen, p.avgPxClose)
		p.realizedReturn = p.calculateReturn(p.avgPxOpen, p.avgPxClose)
		deltaPnl = deltaPnl.Add(p.calculatePnl(p.avgPxOpen, event.FillPrice, event.FillQty))
	default:
		if !p.hasPxOpen {
			p.avgPxOpen = event.FillPrice
			p.hasPxOpen = true
		}
	}

	p.realizedPnl = p.realizedPnl.Add(deltaPnl)
	p.buyQty = p.buyQty.Add(event.FillQty)
	p.relativeQty = p.relativeQty.Add(event.FillQty)
}

// applySell handles a SELL fill: opening or adding when flat/short, reducing
// when long.
func (p *Position) applySell(event OrderFilled) {
	deltaPnl := decimal.Zero
	if event.Commission.Currency == p.quoteCurrency {
		deltaPnl = event.Commission.Amount.Neg()
	}

	switch {
	case p.relativeQty.IsNegative():
		// Adding to SHORT: size-weighted average against the pre-fill quantity.
		p.avgPxOpen = weightedAvgPx(p.avgPxOpen, p.quantity, event.FillPrice, event.FillQty)
	case p.relativeQty.IsPositive():
		// Reducing LONG: longs close via sells, so sellQty accumulates the close.
		if p.hasPxClose {
			p.avgPxClose = weightedAvgPx(p.avgPxClose, p.sellQty, event.FillPrice, event.FillQty)
		} else {
			p.avgPxClose = event.FillPrice
			p.hasPxClose = true
		}
		p.realizedPoints = p.calculatePoints(p.avgPxOpen, p.avgPxClose)
		p.realizedReturn = p.calculateReturn(p.avgPxOpen, p.avgPxClose)
		deltaPnl = deltaPnl.Add(p.calculatePnl(p.avgPxOpen, event.FillPrice, event.FillQty))
	default:
		if !p.hasPxOpen {
			p.avgPxOpen = event.FillPrice
			p.hasPxOpen = true
		}
	}

	p.realizedPnl = p.realizedPnl.Add(deltaPnl)
	p.sellQty = p.sellQty.Add(event.FillQty)
	p.relativeQty = p.relativeQty.Sub(event.FillQty)
}

// weightedAvgPx returns the size-weighted average of an accumulated price and
// a new fill.
func weightedAvgPx(avgPx decimal.Decimal, accQty decimal.Decimal, fillPx decimal.Decimal, fillQty decimal.Decimal) decimal.Decimal {
	total := accQty.Add(fillQty)
	return avgPx.Mul(accQty).Add(fillPx.Mul(fillQty)).Div(total)
}

///////////////////////////////////////////////////////////////////////////////

// calculatePoints returns the per-unit price movement for the current side.
func (p *Position) calculatePoints(openPx decimal.Decimal, closePx decimal.Decimal) decimal.Decimal {
	switch p.side {
	case PositionSide_Long:
		return closePx.Sub(openPx)
	case PositionSide_Short:
		return openPx.Sub(closePx)
	default:
		return decimal.Zero
	}
}

// PointsInverse returns the reciprocal-price point movement for an inverse
// instrument. It is not used by the P&L calculation, which quotes inverse
// P&L as return * quantity; it is kept for callers that need the raw points.
func (p *Position) PointsInverse(openPx decimal.Decimal, closePx decimal.Decimal) decimal.Decimal {
	one := decimal.New(1, 0)
	switch p.side {
	case PositionSide_Long:
		return one.Div(openPx).Sub(one.Div(closePx))
	case PositionSide_Short:
		return one.Div(closePx).Sub(one.Div(openPx))
	default:
		return decimal.Zero
	}
}

// calculateReturn returns points / open for the current side.
func (p *Position) calculateReturn(openPx decimal.Decimal, closePx decimal.Decimal) decimal.Decimal {
	if p.side == PositionSide_Flat || openPx.IsZero() {
		return decimal.Zero
	}
	return p.calculatePoints(openPx, closePx).Div(openPx)
}

// calculatePnl returns the quote-currency P&L amount of moving qty units from
// openPx to closePx on the current side.
func (p *Position) calculatePnl(openPx decimal.Decimal, closePx decimal.Decimal, qty decimal.Decimal) decimal.Decimal {
	if p.isInverse {
		return p.calculateReturn(openPx, closePx).Mul(qty)
	}
	return p.calculatePoints(openPx, closePx).Mul(qty)
}

///////////////////////////////////////////////////////////////////////////////

// NotionalValue returns the exposure at lastPrice: quantity for inverse
// instruments, quantity * lastPrice otherwise, in the quote currency.
func (p *Position) NotionalValue(lastPrice decimal.Decimal) Money {
	if p.isInverse {
		return NewMoney(p.quantity, p.quoteCurrency)
	}
	return NewMoney(p.quantity.Mul(lastPrice), p.quoteCurrency)
}

// UnrealizedPnl returns the open P&L against lastPrice, exactly zero when flat.
func (p *Position) UnrealizedPnl(lastPrice decimal.Decimal) Money {
	if p.side == PositionSide_Flat {
		return ZeroMoney(p.quoteCurrency)
	}
	return NewMoney(p.calculatePnl(p.avgPxOpen, lastPrice, p.quantity), p.quoteCurrency)
}

// RealizedPnl returns the realized P&L, net of quote-currency commissions.
func (p *Position) RealizedPnl() Money {
	return NewMoney(p.realizedPnl, p.quoteCurrency)
}

// TotalPnl returns realized plus unrealized P&L against lastPrice.
func (p *Position) TotalPnl(lastPrice decimal.Decimal) Money {
	return NewMoney(p.realizedPnl.Add(p.UnrealizedPnl(lastPrice).Amount), p.quoteCurrency)
}

// Commission returns the cumulative commission paid in the quote currency.
func (p *Position) Commission() Money {
	return NewMoney(p.commissions[p.quoteCurrency], p.quoteCurrency)
}

// Commissions returns a snapshot of cumulative commissions per currency,
// sorted by currency code.
func (p *Position) Commissions() []Money {
	out := make([]Money, 0, len(p.commissions))
	for currency, amount := range p.commissions {
		out = append(out, NewMoney(amount, currency))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

///////////////////////////////////////////////////////////////////////////////

func (p *Position) Id() PositionId                  { return p.id }
func (p *Position) AccountId() AccountId            { return p.accountId }
func (p *Position) StrategyId() StrategyId          { return p.strategyId }
func (p *Position) InstrumentId() InstrumentId      { return p.instrumentId }
func (p *Position) FromOrder() ClientOrderId        { return p.fromOrder }
func (p *Position) EntrySide() OrderSide            { return p.entrySide }
func (p *Position) Side() PositionSide              { return p.side }
func (p *Position) RelativeQty() decimal.Decimal    { return p.relativeQty }
func (p *Position) Quantity() decimal.Decimal       { return p.quantity }
func (p *Position) PeakQty() decimal.Decimal        { return p.peakQty }
func (p *Position) AvgPxOpen() decimal.Decimal      { return p.avgPxOpen }
func (p *Position) OpenedTsNs() int64               { return p.openedTsNs }
func (p *Position) ClosedTsNs() int64               { return p.closedTsNs }
func (p *Position) OpenDurationNs() int64           { return p.openDurationNs }
func (p *Position) QuoteCurrency() Currency         { return p.quoteCurrency }
func (p *Position) IsInverse() bool                 { return p.isInverse }
func (p *Position) RealizedPoints() decimal.Decimal { return p.realizedPoints }
func (p *Position) RealizedReturn() decimal.Decimal { return p.realizedReturn }

// AvgPxClose returns the weighted average closing price, and false until the
// first closing fill.
func (p *Position) AvgPxClose() (decimal.Decimal, bool) {
	return p.avgPxClose, p.hasPxClose
}

func (p *Position) IsOpen() bool   { return p.side != PositionSide_Flat }
func (p *Position) IsClosed() bool { return p.side == PositionSide_Flat }
func (p *Position) IsLong() bool   { return p.side == PositionSide_Long }
func (p *Position) IsShort() bool  { return p.side == PositionSide_Short }

// EventCount returns the number of applied fills.
func (p *Position) EventCount() int {
	return len(p.events)
}

// Events returns the applied fills in application order.
func (p *Position) Events() []OrderFilled {
	return p.events
}

// LastEvent returns the most recently applied fill.
func (p *Position) LastEvent() OrderFilled {
	return p.events[len(p.events)-1]
}

// ExecutionIds returns the applied execution ids in fill order.
func (p *Position) ExecutionIds() []ExecutionId {
	return p.executionIds
}

// ClientOrderIds returns the distinct client order ids, in first-seen order.
func (p *Position) ClientOrderIds() []ClientOrderId {
	seen := make(map[ClientOrderId]struct{}, len(p.events))
	var out []ClientOrderId
	for _, event := range p.events {
		if _, ok := seen[event.ClientOrderId]; ok {
			continue
		}
		seen[event.ClientOrderId] = struct{}{}
		out = append(out, event.ClientOrderId)
	}
	return out
}

// OrderIds returns the distinct venue order ids, in first-seen order.
func (p *Position) OrderIds() []OrderId {
	seen := make(map[OrderId]struct{}, len(p.events))
	var out []OrderId
	for _, event := range p.events {
		if _, ok := seen[event.OrderId]; ok {
			continue
		}
		seen[event.OrderId] = struct{}{}
		out = append(out, event.OrderId)
	}
	return out
}

// String renders the human-readable status, e.g. "LONG 100 EUR/USD.SIM".
func (p *Position) String() string {
	if p.quantity.IsPositive() {
		return fmt.Sprintf("%s %s %s", p.side, p.quantity, p.instrumentId)
	}
	return fmt.Sprintf("%s %s", p.side, p.instrumentId)
}
