// Copyright (c) 2025 Neomantra Corp

package backtest

import (
	"bufio"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/valyala/fastjson"
	"github.com/valyala/fastjson/fastfloat"
)

///////////////////////////////////////////////////////////////////////////////

// Tick NDJSON carries one tick per line with a "type" discriminator.
// Timestamps are encoded as strings so 64-bit values survive JSON readers
// that only handle doubles.
//
//	{"type":"quote","instrument":"EUR/USD.SIM","bid":"1.0000","ask":"1.0001","bid_size":"1000000","ask_size":"1000000","ts_ns":"1609160400000000000"}
//	{"type":"trade","instrument":"EUR/USD.SIM","price":"1.0000","size":"100","match_id":"T-1","aggressor":"B","ts_ns":"1609160400000000000"}

const (
	TickTypeQuote = "quote"
	TickTypeTrade = "trade"
)

// jsonString decodes a fastjson.Value string field.
func jsonString(val *fastjson.Value, key string) string {
	return string(val.GetStringBytes(key))
}

// jsonInt64FromString decodes a fastjson.Value string field as an int64.
func jsonInt64FromString(val *fastjson.Value, key string) int64 {
	return fastfloat.ParseInt64BestEffort(string(val.GetStringBytes(key)))
}

// jsonDecimal decodes a fastjson.Value string field as an exact decimal.
func jsonDecimal(val *fastjson.Value, key string) (decimal.Decimal, error) {
	return decimal.NewFromString(string(val.GetStringBytes(key)))
}

///////////////////////////////////////////////////////////////////////////////

// TickJsonScanner scans a tick NDJSON stream.
type TickJsonScanner struct {
	scanner *bufio.Scanner
	parser  fastjson.Parser
}

// NewTickJsonScanner creates a TickJsonScanner over a reader.
func NewTickJsonScanner(r io.Reader) *TickJsonScanner {
	return &TickJsonScanner{
		scanner: bufio.NewScanner(r),
	}
}

// Next advances to the next non-empty line. Returns false on error or at the
// end of data; call Error to distinguish.
func (s *TickJsonScanner) Next() bool {
	for s.scanner.Scan() {
		if len(s.scanner.Bytes()) != 0 {
			return true
		}
	}
	return false
}

// Error returns the last error from Next.
func (s *TickJsonScanner) Error() error {
	return s.scanner.Err()
}

// Decode parses the current line into a QuoteTick or TradeTick.
func (s *TickJsonScanner) Decode() (Tick, error) {
	val, err := s.parser.ParseBytes(s.scanner.Bytes())
	if err != nil {
		return nil, err
	}
	switch tickType := jsonString(val, "type"); tickType {
	case TickTypeQuote:
		return quoteTickFromJson(val)
	case TickTypeTrade:
		return tradeTickFromJson(val)
	default:
		return nil, fmt.Errorf("unknown tick type '%s'", tickType)
	}
}

// Visit parses the current line and dispatches it to the visitor.
func (s *TickJsonScanner) Visit(visitor TickVisitor) error {
	tick, err := s.Decode()
	if err != nil {
		return err
	}
	return VisitTick(tick, visitor)
}

func quoteTickFromJson(val *fastjson.Value) (Tick, error) {
	instrument, err := InstrumentIdFromString(jsonString(val, "instrument"))
	if err != nil {
		return nil, err
	}
	bid, err := jsonDecimal(val, "bid")
	if err != nil {
		return nil, err
	}
	ask, err := jsonDecimal(val, "ask")
	if err != nil {
		return nil, err
	}
	bidSize, err := jsonDecimal(val, "bid_size")
	if err != nil {
		return nil, err
	}
	askSize, err := jsonDecimal(val, "ask_size")
	if err != nil {
		return nil, err
	}
	return QuoteTick{
		InstrumentId: instrument,
		Bid:          bid,
		Ask:          ask,
		BidSize:      bidSize,
		AskSize:      askSize,
		TsNs:         jsonInt64FromString(val, "ts_ns"),
	}, nil
}

func tradeTickFromJson(val *fastjson.Value) (Tick, error) {
	instrument, err := InstrumentIdFromString(jsonString(val, "instrument"))
	if err != nil {
		return nil, err
	}
	price, err := jsonDecimal(val, "price")
	if err != nil {
		return nil, err
	}
	size, err := jsonDecimal(val, "size")
	if err != nil {
		return nil, err
	}
	aggressor, err := AggressorSideFromString(jsonString(val, "aggressor"))
	if err != nil {
		return nil, err
	}
	return TradeTick{
		InstrumentId: instrument,
		Price:        price,
		Size:         size,
		MatchId:      jsonString(val, "match_id"),
		Aggressor:    aggressor,
		TsNs:         jsonInt64FromString(val, "ts_ns"),
	}, nil
}

///////////////////////////////////////////////////////////////////////////////

// FillJsonScanner scans an OrderFilled NDJSON stream, one fill per line.
type FillJsonScanner struct {
	scanner *bufio.Scanner
	parser  fastjson.Parser
}

// NewFillJsonScanner creates a FillJsonScanner over a reader.
func NewFillJsonScanner(r io.Reader) *FillJsonScanner {
	return &FillJsonScanner{
		scanner: bufio.NewScanner(r),
	}
}

// Next advances to the next non-empty line. Returns false on error or at the
// end of data; call Error to distinguish.
func (s *FillJsonScanner) Next() bool {
	for s.scanner.Scan() {
		if len(s.scanner.Bytes()) != 0 {
			return true
		}
	}
	return false
}

// Error returns the last error from Next.
func (s *FillJsonScanner) Error() error {
	return s.scanner.Err()
}

// Decode parses the current line into an OrderFilled.
func (s *FillJsonScanner) Decode() (OrderFilled, error) {
	val, err := s.parser.ParseBytes(s.scanner.Bytes())
	if err != nil {
		return OrderFilled{}, err
	}
	instrument, err := InstrumentIdFromString(jsonString(val, "instrument"))
	if err != nil {
		return OrderFilled{}, err
	}
	side, err := OrderSideFromString(jsonString(val, "side"))
	if err != nil {
		return OrderFilled{}, err
	}
	price, err := jsonDecimal(val, "price")
	if err != nil {
		return OrderFilled{}, err
	}
	qty, err := jsonDecimal(val, "qty")
	if err != nil {
		return OrderFilled{}, err
	}
	commission, err := jsonDecimal(val, "commission")
	if err != nil {
		return OrderFilled{}, err
	}
	return OrderFilled{
		ClientOrderId: ClientOrderId(jsonString(val, "client_order_id")),
		OrderId:       OrderId(jsonString(val, "order_id")),
		ExecutionId:   ExecutionId(jsonString(val, "execution_id")),
		PositionId:    PositionId(jsonString(val, "position_id")),
		StrategyId:    StrategyId(jsonString(val, "strategy_id")),
		AccountId:     AccountId(jsonString(val, "account_id")),
		InstrumentId:  instrument,
		OrderSide:     side,
		FillPrice:     price,
		FillQty:       qty,
		Currency:      Currency(jsonString(val, "currency")),
		IsInverse:     val.GetBool("is_inverse"),
		Commission:    NewMoney(commission, Currency(jsonString(val, "commission_currency"))),
		ExecutionNs:   jsonInt64FromString(val, "execution_ns"),
	}, nil
}
