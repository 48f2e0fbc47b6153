// Copyright (c) 2025 Neomantra Corp

package file

import (
	"io"
	"strconv"

	backtest "github.com/NimbleMarkets/backtest-go"
	"github.com/segmentio/encoding/json"
)

///////////////////////////////////////////////////////////////////////////////

// quoteTickJson is the NDJSON line form of a QuoteTick.
type quoteTickJson struct {
	Type       string `json:"type"`
	Instrument string `json:"instrument"`
	Bid        string `json:"bid"`
	Ask        string `json:"ask"`
	BidSize    string `json:"bid_size"`
	AskSize    string `json:"ask_size"`
	TsNs       string `json:"ts_ns"`
}

// tradeTickJson is the NDJSON line form of a TradeTick.
type tradeTickJson struct {
	Type       string `json:"type"`
	Instrument string `json:"instrument"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	MatchId    string `json:"match_id"`
	Aggressor  string `json:"aggressor"`
	TsNs       string `json:"ts_ns"`
}

// fillJson is the NDJSON line form of an OrderFilled.
type fillJson struct {
	ClientOrderId      string `json:"client_order_id"`
	OrderId            string `json:"order_id"`
	ExecutionId        string `json:"execution_id"`
	PositionId         string `json:"position_id"`
	StrategyId         string `json:"strategy_id"`
	AccountId          string `json:"account_id"`
	Instrument         string `json:"instrument"`
	Side               string `json:"side"`
	Price              string `json:"price"`
	Qty                string `json:"qty"`
	Currency           string `json:"currency"`
	IsInverse          bool   `json:"is_inverse"`
	Commission         string `json:"commission"`
	CommissionCurrency string `json:"commission_currency"`
	ExecutionNs        string `json:"execution_ns"`
}

// writeAsJsonLine writes a value marshalled as one JSON line to the writer.
func writeAsJsonLine[T any](val *T, writer io.Writer) error {
	jstr, err := json.Marshal(val)
	if err != nil {
		return err
	}
	if _, err = writer.Write(jstr); err != nil {
		return err
	}
	_, err = writer.Write([]byte{'\n'})
	return err
}

///////////////////////////////////////////////////////////////////////////////

// JsonWriterVisitor is a TickVisitor that writes each tick as one NDJSON line,
// in the format TickJsonScanner reads.
type JsonWriterVisitor struct {
	writer io.Writer
}

// NewJsonWriterVisitor creates a JsonWriterVisitor over the given writer.
func NewJsonWriterVisitor(writer io.Writer) *JsonWriterVisitor {
	return &JsonWriterVisitor{writer: writer}
}

func (v *JsonWriterVisitor) OnQuoteTick(tick *backtest.QuoteTick) error {
	return writeAsJsonLine(&quoteTickJson{
		Type:       backtest.TickTypeQuote,
		Instrument: tick.InstrumentId.String(),
		Bid:        tick.Bid.String(),
		Ask:        tick.Ask.String(),
		BidSize:    tick.BidSize.String(),
		AskSize:    tick.AskSize.String(),
		TsNs:       strconv.FormatInt(tick.TsNs, 10),
	}, v.writer)
}

func (v *JsonWriterVisitor) OnTradeTick(tick *backtest.TradeTick) error {
	return writeAsJsonLine(&tradeTickJson{
		Type:       backtest.TickTypeTrade,
		Instrument: tick.InstrumentId.String(),
		Price:      tick.Price.String(),
		Size:       tick.Size.String(),
		MatchId:    tick.MatchId,
		Aggressor:  string(rune(tick.Aggressor)),
		TsNs:       strconv.FormatInt(tick.TsNs, 10),
	}, v.writer)
}

func (v *JsonWriterVisitor) OnStreamEnd() error {
	return nil
}

///////////////////////////////////////////////////////////////////////////////

// WriteFillAsJson writes one OrderFilled as an NDJSON line, in the format
// FillJsonScanner reads.
func WriteFillAsJson(fill backtest.OrderFilled, writer io.Writer) error {
	return writeAsJsonLine(&fillJson{
		ClientOrderId:      fill.ClientOrderId.String(),
		OrderId:            fill.OrderId.String(),
		ExecutionId:        fill.ExecutionId.String(),
		PositionId:         fill.PositionId.String(),
		StrategyId:         fill.StrategyId.String(),
		AccountId:          fill.AccountId.String(),
		Instrument:         fill.InstrumentId.String(),
		Side:               fill.OrderSide.String(),
		Price:              fill.FillPrice.String(),
		Qty:                fill.FillQty.String(),
		Currency:           fill.Currency.String(),
		IsInverse:          fill.IsInverse,
		Commission:         fill.Commission.Amount.String(),
		CommissionCurrency: fill.Commission.Currency.String(),
		ExecutionNs:        strconv.FormatInt(fill.ExecutionNs, 10),
	}, writer)
}
