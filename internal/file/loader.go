// Copyright (c) 2025 Neomantra Corp

package file

import (
	"fmt"
	"io"

	backtest "github.com/NimbleMarkets/backtest-go"
)

///////////////////////////////////////////////////////////////////////////////

// quoteColsBuilder accumulates one instrument's quote columns in file order.
type quoteColsBuilder struct {
	bid, ask         []string
	bidSize, askSize []string
	tsNs             []int64
}

// tradeColsBuilder accumulates one instrument's trade columns in file order.
type tradeColsBuilder struct {
	price, size []string
	matchId     []string
	aggressor   []string
	tsNs        []int64
}

///////////////////////////////////////////////////////////////////////////////

// LoadContainerFile reads a tick NDJSON file (zstd-transparent) into a
// DataContainer.
func LoadContainerFile(sourceFile string, forceZstdInput bool) (*backtest.DataContainer, error) {
	reader, closer, err := backtest.OpenTickReader(sourceFile, forceZstdInput)
	if err != nil {
		return nil, fmt.Errorf("failed to open '%s' for reading: %w", sourceFile, err)
	}
	defer closer()

	container, err := LoadContainer(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to load '%s': %w", sourceFile, err)
	}
	return container, nil
}

// LoadContainer reads tick NDJSON from a reader into a DataContainer.
// Ticks are grouped per instrument in file order; the producer checks the
// per-instrument sort invariant when a window is armed.
func LoadContainer(reader io.Reader) (*backtest.DataContainer, error) {
	// Instruments keep their first-appearance order so dense indexes are
	// stable across reloads of the same file.
	var order []backtest.InstrumentId
	quoteBuilders := make(map[backtest.InstrumentId]*quoteColsBuilder)
	tradeBuilders := make(map[backtest.InstrumentId]*tradeColsBuilder)
	note := func(id backtest.InstrumentId) {
		if _, haveQuotes := quoteBuilders[id]; haveQuotes {
			return
		}
		if _, haveTrades := tradeBuilders[id]; haveTrades {
			return
		}
		order = append(order, id)
	}

	scanner := backtest.NewTickJsonScanner(reader)
	for scanner.Next() {
		tick, err := scanner.Decode()
		if err != nil {
			return nil, err
		}
		switch t := tick.(type) {
		case backtest.QuoteTick:
			note(t.InstrumentId)
			b := quoteBuilders[t.InstrumentId]
			if b == nil {
				b = &quoteColsBuilder{}
				quoteBuilders[t.InstrumentId] = b
			}
			b.bid = append(b.bid, t.Bid.String())
			b.ask = append(b.ask, t.Ask.String())
			b.bidSize = append(b.bidSize, t.BidSize.String())
			b.askSize = append(b.askSize, t.AskSize.String())
			b.tsNs = append(b.tsNs, t.TsNs)
		case backtest.TradeTick:
			note(t.InstrumentId)
			b := tradeBuilders[t.InstrumentId]
			if b == nil {
				b = &tradeColsBuilder{}
				tradeBuilders[t.InstrumentId] = b
			}
			b.price = append(b.price, t.Price.String())
			b.size = append(b.size, t.Size.String())
			b.matchId = append(b.matchId, t.MatchId)
			b.aggressor = append(b.aggressor, string(rune(t.Aggressor)))
			b.tsNs = append(b.tsNs, t.TsNs)
		}
	}
	if err := scanner.Error(); err != nil && err != io.EOF {
		return nil, err
	}

	container := backtest.NewDataContainer()
	for _, id := range order {
		if b, ok := quoteBuilders[id]; ok {
			container.AddQuoteColumns(id, backtest.QuoteColumns{
				Bid:     b.bid,
				Ask:     b.ask,
				BidSize: b.bidSize,
				AskSize: b.askSize,
				TsNs:    b.tsNs,
			})
		}
		if b, ok := tradeBuilders[id]; ok {
			container.AddTradeColumns(id, backtest.TradeColumns{
				Price:     b.price,
				Size:      b.size,
				MatchId:   b.matchId,
				Aggressor: b.aggressor,
				TsNs:      b.tsNs,
			})
		}
	}
	return container, nil
}

// LoadFillsFile reads an OrderFilled NDJSON file (zstd-transparent) into a
// slice, in file order.
func LoadFillsFile(sourceFile string, forceZstdInput bool) ([]backtest.OrderFilled, error) {
	reader, closer, err := backtest.OpenTickReader(sourceFile, forceZstdInput)
	if err != nil {
		return nil, fmt.Errorf("failed to open '%s' for reading: %w", sourceFile, err)
	}
	defer closer()

	var fills []backtest.OrderFilled
	scanner := backtest.NewFillJsonScanner(reader)
	for scanner.Next() {
		fill, err := scanner.Decode()
		if err != nil {
			return nil, err
		}
		fills = append(fills, fill)
	}
	if err := scanner.Error(); err != nil && err != io.EOF {
		return nil, err
	}
	return fills, nil
}
