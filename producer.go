// Copyright (c) 2025 Neomantra Corp

package backtest

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
)

///////////////////////////////////////////////////////////////////////////////

// Producer merges a DataContainer's per-instrument column groups into one
// globally time-sorted tick stream bounded by a replay window.
//
// Setup binds a window and rebuilds the merged runs; Reset rewinds to the
// window start without rebuilding; Next emits ticks in non-decreasing
// timestamp order with quotes preceding trades at equal timestamps; Clear
// releases the merged buffers.
//
// A Producer is not safe for concurrent use; distinct instances share no
// mutable state.
type Producer struct {
	container *DataContainer
	log       *slog.Logger

	// Merged global quote run: six parallel arrays sorted by TsNs ascending.
	qInstrumentIdx []uint32
	qBid           []string
	qAsk           []string
	qBidSize       []string
	qAskSize       []string
	qTsNs          []int64

	// Merged global trade run: six parallel arrays sorted by TsNs ascending.
	tInstrumentIdx []uint32
	tPrice         []string
	tSize          []string
	tMatchId       []string
	tAggressor     []string
	tTsNs          []int64

	startNs int64
	stopNs  int64

	// Window bounds within the merged runs, half-open [first, end).
	qFirst, qEnd int
	tFirst, tEnd int

	// Cursors index the next unstaged row of each run.
	qPos, tPos int

	// Look-ahead of one materialized tick per side.
	nextQuote *QuoteTick
	nextTrade *TradeTick

	hasData   bool
	lastError error
}

// NewProducer creates a Producer over the container. Setup must be called
// before Next.
func NewProducer(container *DataContainer) *Producer {
	return &Producer{container: container}
}

// SetLogger installs a logger for debug tracing. A nil logger disables tracing.
func (p *Producer) SetLogger(logger *slog.Logger) {
	p.log = logger
}

// HasData returns true while the armed window still has unemitted ticks.
func (p *Producer) HasData() bool {
	return p.hasData
}

// Error returns the most recent error encountered while materializing ticks
// since the last Setup or Reset, if any.
func (p *Producer) Error() error {
	return p.lastError
}

// Window returns the armed replay window.
func (p *Producer) Window() (startNs int64, stopNs int64) {
	return p.startNs, p.stopNs
}

///////////////////////////////////////////////////////////////////////////////

// Setup binds the replay window [startNs, stopNs], merges all instruments'
// columns into global runs, and pre-stages the first tick of each side.
// Fails with ErrWindowInvalid if the window is reversed or outside the
// container's range, and with ErrContainerMalformed if any column group has
// mismatched lengths or unsorted timestamps.
func (p *Producer) Setup(startNs int64, stopNs int64) error {
	if err := p.validateContainer(); err != nil {
		return err
	}
	if p.container.IsEmpty() || startNs > stopNs ||
		startNs < p.container.MinTsNs() || stopNs > p.container.MaxTsNs() {
		return windowError(startNs, stopNs, p.container.MinTsNs(), p.container.MaxTsNs())
	}
	p.startNs, p.stopNs = startNs, stopNs

	p.mergeQuotes()
	p.mergeTrades()

	// Restrict each run to [first i where ts >= startNs, first i where ts > stopNs).
	p.qFirst = sort.Search(len(p.qTsNs), func(i int) bool { return p.qTsNs[i] >= startNs })
	p.qEnd = sort.Search(len(p.qTsNs), func(i int) bool { return p.qTsNs[i] > stopNs })
	p.tFirst = sort.Search(len(p.tTsNs), func(i int) bool { return p.tTsNs[i] >= startNs })
	p.tEnd = sort.Search(len(p.tTsNs), func(i int) bool { return p.tTsNs[i] > stopNs })

	if p.log != nil {
		p.log.Debug("producer setup",
			"start_ns", startNs, "stop_ns", stopNs,
			"quotes", p.qEnd-p.qFirst, "trades", p.tEnd-p.tFirst)
	}

	p.Reset()
	return nil
}

// Reset re-positions both cursors to the start of the armed window without
// rebuilding the merged runs.
func (p *Producer) Reset() {
	p.qPos = p.qFirst
	p.tPos = p.tFirst
	p.lastError = nil
	p.stageQuote()
	p.stageTrade()
	p.hasData = p.nextQuote != nil || p.nextTrade != nil
}

// Next returns the next tick in non-decreasing global timestamp order, or nil
// once both sides are exhausted. At equal timestamps the quote is emitted
// before the trade.
func (p *Producer) Next() Tick {
	if p.nextQuote != nil && (p.nextTrade == nil || p.nextQuote.TsNs <= p.nextTrade.TsNs) {
		tick := *p.nextQuote
		p.stageQuote()
		p.hasData = p.nextQuote != nil || p.nextTrade != nil
		return tick
	}
	if p.nextTrade != nil {
		tick := *p.nextTrade
		p.stageTrade()
		p.hasData = p.nextQuote != nil || p.nextTrade != nil
		return tick
	}
	p.hasData = false
	return nil
}

// Clear drops the merged runs and look-ahead slots, releasing their memory.
// Setup must be called again before the next replay.
func (p *Producer) Clear() {
	p.qInstrumentIdx, p.qBid, p.qAsk, p.qBidSize, p.qAskSize, p.qTsNs = nil, nil, nil, nil, nil, nil
	p.tInstrumentIdx, p.tPrice, p.tSize, p.tMatchId, p.tAggressor, p.tTsNs = nil, nil, nil, nil, nil, nil
	p.qFirst, p.qEnd, p.tFirst, p.tEnd = 0, 0, 0, 0
	p.qPos, p.tPos = 0, 0
	p.nextQuote, p.nextTrade = nil, nil
	p.hasData = false
}

///////////////////////////////////////////////////////////////////////////////

// validateContainer checks every column group's shape and sort invariants.
func (p *Producer) validateContainer() error {
	for _, id := range p.container.Instruments() {
		if cols, ok := p.container.QuoteColumns(id); ok {
			n := len(cols.TsNs)
			for _, col := range [][]string{cols.Bid, cols.Ask, cols.BidSize, cols.AskSize} {
				if len(col) != n {
					return columnShapeError(id, "quote", n, len(col))
				}
			}
			if len(cols.InstrumentIdx) != n {
				return columnShapeError(id, "quote", n, len(cols.InstrumentIdx))
			}
			for i := 1; i < n; i++ {
				if cols.TsNs[i] < cols.TsNs[i-1] {
					return columnOrderError(id, "quote", i)
				}
			}
		}
		if cols, ok := p.container.TradeColumns(id); ok {
			n := len(cols.TsNs)
			for _, col := range [][]string{cols.Price, cols.Size, cols.MatchId, cols.Aggressor} {
				if len(col) != n {
					return columnShapeError(id, "trade", n, len(col))
				}
			}
			if len(cols.InstrumentIdx) != n {
				return columnShapeError(id, "trade", n, len(cols.InstrumentIdx))
			}
			for i := 1; i < n; i++ {
				if cols.TsNs[i] < cols.TsNs[i-1] {
					return columnOrderError(id, "trade", i)
				}
			}
		}
	}
	return nil
}

// mergeQuotes concatenates every instrument's quote columns and sorts the
// result into one global run. The sort is stable so instruments tie-break in
// registration order at equal timestamps.
func (p *Producer) mergeQuotes() {
	total := 0
	for _, id := range p.container.Instruments() {
		if cols, ok := p.container.QuoteColumns(id); ok {
			total += len(cols.TsNs)
		}
	}
	instrumentIdx := make([]uint32, 0, total)
	bid := make([]string, 0, total)
	ask := make([]string, 0, total)
	bidSize := make([]string, 0, total)
	askSize := make([]string, 0, total)
	tsNs := make([]int64, 0, total)
	for _, id := range p.container.Instruments() {
		cols, ok := p.container.QuoteColumns(id)
		if !ok {
			continue
		}
		instrumentIdx = append(instrumentIdx, cols.InstrumentIdx...)
		bid = append(bid, cols.Bid...)
		ask = append(ask, cols.Ask...)
		bidSize = append(bidSize, cols.BidSize...)
		askSize = append(askSize, cols.AskSize...)
		tsNs = append(tsNs, cols.TsNs...)
	}

	order := sortedOrder(tsNs)
	p.qInstrumentIdx = gatherUint32(instrumentIdx, order)
	p.qBid = gatherString(bid, order)
	p.qAsk = gatherString(ask, order)
	p.qBidSize = gatherString(bidSize, order)
	p.qAskSize = gatherString(askSize, order)
	p.qTsNs = gatherInt64(tsNs, order)
}

// mergeTrades is the trade-side counterpart of mergeQuotes.
func (p *Producer) mergeTrades() {
	total := 0
	for _, id := range p.container.Instruments() {
		if cols, ok := p.container.TradeColumns(id); ok {
			total += len(cols.TsNs)
		}
	}
	instrumentIdx := make([]uint32, 0, total)
	price := make([]string, 0, total)
	size := make([]string, 0, total)
	matchId := make([]string, 0, total)
	aggressor := make([]string, 0, total)
	tsNs := make([]int64, 0, total)
	for _, id := range p.container.Instruments() {
		cols, ok := p.container.TradeColumns(id)
		if !ok {
			continue
		}
		instrumentIdx = append(instrumentIdx, cols.InstrumentIdx...)
		price = append(price, cols.Price...)
		size = append(size, cols.Size...)
		matchId = append(matchId, cols.MatchId...)
		aggressor = append(aggressor, cols.Aggressor...)
		tsNs = append(tsNs, cols.TsNs...)
	}

	order := sortedOrder(tsNs)
	p.tInstrumentIdx = gatherUint32(instrumentIdx, order)
	p.tPrice = gatherString(price, order)
	p.tSize = gatherString(size, order)
	p.tMatchId = gatherString(matchId, order)
	p.tAggressor = gatherString(aggressor, order)
	p.tTsNs = gatherInt64(tsNs, order)
}

// sortedOrder returns the stable ascending-timestamp permutation of tsNs.
func sortedOrder(tsNs []int64) []int {
	order := make([]int, len(tsNs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return tsNs[order[i]] < tsNs[order[j]]
	})
	return order
}

func gatherUint32(src []uint32, order []int) []uint32 {
	out := make([]uint32, len(order))
	for i, j := range order {
		out[i] = src[j]
	}
	return out
}

func gatherString(src []string, order []int) []string {
	out := make([]string, len(order))
	for i, j := range order {
		out[i] = src[j]
	}
	return out
}

func gatherInt64(src []int64, order []int) []int64 {
	out := make([]int64, len(order))
	for i, j := range order {
		out[i] = src[j]
	}
	return out
}

///////////////////////////////////////////////////////////////////////////////

// stageQuote materializes the next quote row into the look-ahead slot, or
// marks the quote side exhausted.
func (p *Producer) stageQuote() {
	if p.qPos >= p.qEnd {
		p.nextQuote = nil
		return
	}
	i := p.qPos
	p.qPos++
	tick, err := p.materializeQuote(i)
	if err != nil {
		p.lastError = err
		p.nextQuote = nil
		return
	}
	p.nextQuote = tick
}

// stageTrade materializes the next trade row into the look-ahead slot, or
// marks the trade side exhausted.
func (p *Producer) stageTrade() {
	if p.tPos >= p.tEnd {
		p.nextTrade = nil
		return
	}
	i := p.tPos
	p.tPos++
	tick, err := p.materializeTrade(i)
	if err != nil {
		p.lastError = err
		p.nextTrade = nil
		return
	}
	p.nextTrade = tick
}

// materializeQuote parses the string columns at row i into a QuoteTick.
func (p *Producer) materializeQuote(i int) (*QuoteTick, error) {
	bid, err := decimal.NewFromString(p.qBid[i])
	if err != nil {
		return nil, err
	}
	ask, err := decimal.NewFromString(p.qAsk[i])
	if err != nil {
		return nil, err
	}
	bidSize, err := decimal.NewFromString(p.qBidSize[i])
	if err != nil {
		return nil, err
	}
	askSize, err := decimal.NewFromString(p.qAskSize[i])
	if err != nil {
		return nil, err
	}
	return &QuoteTick{
		InstrumentId: p.container.InstrumentAt(p.qInstrumentIdx[i]),
		Bid:          bid,
		Ask:          ask,
		BidSize:      bidSize,
		AskSize:      askSize,
		TsNs:         p.qTsNs[i],
	}, nil
}

// materializeTrade parses the string columns at row i into a TradeTick.
func (p *Producer) materializeTrade(i int) (*TradeTick, error) {
	price, err := decimal.NewFromString(p.tPrice[i])
	if err != nil {
		return nil, err
	}
	size, err := decimal.NewFromString(p.tSize[i])
	if err != nil {
		return nil, err
	}
	aggressor, err := AggressorSideFromString(p.tAggressor[i])
	if err != nil {
		return nil, err
	}
	return &TradeTick{
		InstrumentId: p.container.InstrumentAt(p.tInstrumentIdx[i]),
		Price:        price,
		Size:         size,
		MatchId:      p.tMatchId[i],
		Aggressor:    aggressor,
		TsNs:         p.tTsNs[i],
	}, nil
}
