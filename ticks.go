// Copyright (c) 2025 Neomantra Corp

package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"
)

///////////////////////////////////////////////////////////////////////////////

// Tick is one timestamped market observation, either a QuoteTick or a TradeTick.
type Tick interface {
	// The instrument the observation belongs to.
	Instrument() InstrumentId
	// UNIX epoch nanoseconds of the observation.
	Timestamp() int64
}

///////////////////////////////////////////////////////////////////////////////

// QuoteTick is a top-of-book bid/ask pair with sizes.
type QuoteTick struct {
	InstrumentId InstrumentId    // The instrument quoted.
	Bid          decimal.Decimal // The best bid price.
	Ask          decimal.Decimal // The best ask price.
	BidSize      decimal.Decimal // The size at the best bid.
	AskSize      decimal.Decimal // The size at the best ask.
	TsNs         int64           // The event timestamp in UNIX epoch nanoseconds.
}

func (t QuoteTick) Instrument() InstrumentId { return t.InstrumentId }
func (t QuoteTick) Timestamp() int64         { return t.TsNs }

func (t QuoteTick) String() string {
	return fmt.Sprintf("%s,%s,%s,%s,%s,%d",
		t.InstrumentId, t.Bid, t.Ask, t.BidSize, t.AskSize, t.TsNs)
}

///////////////////////////////////////////////////////////////////////////////

// TradeTick is a last-traded price and size with the aggressing side.
type TradeTick struct {
	InstrumentId InstrumentId    // The instrument traded.
	Price        decimal.Decimal // The traded price.
	Size         decimal.Decimal // The traded size.
	MatchId      string          // The venue's trade match identifier.
	Aggressor    AggressorSide   // The side that initiated the trade.
	TsNs         int64           // The event timestamp in UNIX epoch nanoseconds.
}

func (t TradeTick) Instrument() InstrumentId { return t.InstrumentId }
func (t TradeTick) Timestamp() int64         { return t.TsNs }

func (t TradeTick) String() string {
	return fmt.Sprintf("%s,%s,%s,%s,%s,%d",
		t.InstrumentId, t.Price, t.Size, t.Aggressor, t.MatchId, t.TsNs)
}
