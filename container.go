// Copyright (c) 2025 Neomantra Corp

package backtest

///////////////////////////////////////////////////////////////////////////////

// QuoteColumns holds one instrument's quote ticks as parallel columns sorted by
// timestamp ascending. Prices and sizes are kept as compact strings and parsed
// into decimals when ticks are materialized.
type QuoteColumns struct {
	InstrumentIdx []uint32 // The dense instrument index, constant within the group.
	Bid           []string // Best bid prices.
	Ask           []string // Best ask prices.
	BidSize       []string // Sizes at the best bid.
	AskSize       []string // Sizes at the best ask.
	TsNs          []int64  // Event timestamps in UNIX epoch nanoseconds, ascending.
}

// TradeColumns holds one instrument's trade ticks as parallel columns sorted by
// timestamp ascending.
type TradeColumns struct {
	InstrumentIdx []uint32 // The dense instrument index, constant within the group.
	Price         []string // Traded prices.
	Size          []string // Traded sizes.
	MatchId       []string // Venue trade match identifiers.
	Aggressor     []string // Aggressor sides in single-character column form.
	TsNs          []int64  // Event timestamps in UNIX epoch nanoseconds, ascending.
}

///////////////////////////////////////////////////////////////////////////////

// DataContainer is a read-only provider of per-instrument quote and trade
// column groups, plus catalog metadata. Instruments are assigned dense small
// integer indexes in registration order.
type DataContainer struct {
	instruments []InstrumentId          // index -> instrument id
	indexes     map[InstrumentId]uint32 // instrument id -> dense index
	quotes      map[uint32]QuoteColumns
	trades      map[uint32]TradeColumns
	minTsNs     int64
	maxTsNs     int64
	hasRange    bool
}

// NewDataContainer returns an empty DataContainer.
func NewDataContainer() *DataContainer {
	return &DataContainer{
		indexes: make(map[InstrumentId]uint32),
		quotes:  make(map[uint32]QuoteColumns),
		trades:  make(map[uint32]TradeColumns),
	}
}

// ensureInstrument registers an instrument, returning its dense index.
func (c *DataContainer) ensureInstrument(id InstrumentId) uint32 {
	if idx, ok := c.indexes[id]; ok {
		return idx
	}
	idx := uint32(len(c.instruments))
	c.instruments = append(c.instruments, id)
	c.indexes[id] = idx
	return idx
}

// observeRange widens the container's timestamp range from a column.
func (c *DataContainer) observeRange(tsNs []int64) {
	if len(tsNs) == 0 {
		return
	}
	first, last := tsNs[0], tsNs[len(tsNs)-1]
	if !c.hasRange {
		c.minTsNs, c.maxTsNs = first, last
		c.hasRange = true
		return
	}
	if first < c.minTsNs {
		c.minTsNs = first
	}
	if last > c.maxTsNs {
		c.maxTsNs = last
	}
}

// AddQuoteColumns installs the quote column group for an instrument, registering
// the instrument if needed and stamping the group's instrument-index column.
// A second call for the same instrument replaces the group.
func (c *DataContainer) AddQuoteColumns(id InstrumentId, cols QuoteColumns) {
	idx := c.ensureInstrument(id)
	cols.InstrumentIdx = repeatIndex(idx, len(cols.TsNs))
	c.quotes[idx] = cols
	c.observeRange(cols.TsNs)
}

// AddTradeColumns installs the trade column group for an instrument, registering
// the instrument if needed and stamping the group's instrument-index column.
// A second call for the same instrument replaces the group.
func (c *DataContainer) AddTradeColumns(id InstrumentId, cols TradeColumns) {
	idx := c.ensureInstrument(id)
	cols.InstrumentIdx = repeatIndex(idx, len(cols.TsNs))
	c.trades[idx] = cols
	c.observeRange(cols.TsNs)
}

func repeatIndex(idx uint32, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = idx
	}
	return out
}

///////////////////////////////////////////////////////////////////////////////

// Instruments returns the instrument catalog in dense-index order.
func (c *DataContainer) Instruments() []InstrumentId {
	return c.instruments
}

// InstrumentAt returns the instrument for a dense index.
func (c *DataContainer) InstrumentAt(idx uint32) InstrumentId {
	return c.instruments[idx]
}

// InstrumentIndex returns the dense index for an instrument, if registered.
func (c *DataContainer) InstrumentIndex(id InstrumentId) (uint32, bool) {
	idx, ok := c.indexes[id]
	return idx, ok
}

// QuoteColumns borrows the quote column group for an instrument, if present.
func (c *DataContainer) QuoteColumns(id InstrumentId) (QuoteColumns, bool) {
	idx, ok := c.indexes[id]
	if !ok {
		return QuoteColumns{}, false
	}
	cols, ok := c.quotes[idx]
	return cols, ok
}

// TradeColumns borrows the trade column group for an instrument, if present.
func (c *DataContainer) TradeColumns(id InstrumentId) (TradeColumns, bool) {
	idx, ok := c.indexes[id]
	if !ok {
		return TradeColumns{}, false
	}
	cols, ok := c.trades[idx]
	return cols, ok
}

// IsEmpty returns true if the container holds no tick columns at all.
func (c *DataContainer) IsEmpty() bool {
	return !c.hasRange
}

// MinTsNs returns the earliest timestamp across all column groups.
func (c *DataContainer) MinTsNs() int64 {
	return c.minTsNs
}

// MaxTsNs returns the latest timestamp across all column groups.
func (c *DataContainer) MaxTsNs() int64 {
	return c.maxTsNs
}

// ExecutionResolutions describes, per instrument, which tick resolutions the
// container carries, e.g. "EUR/USD.SIM=QuoteTick+TradeTick".
func (c *DataContainer) ExecutionResolutions() []string {
	out := make([]string, 0, len(c.instruments))
	for idx, id := range c.instruments {
		var resolution string
		if cols, ok := c.quotes[uint32(idx)]; ok && len(cols.TsNs) > 0 {
			resolution = "QuoteTick"
		}
		if cols, ok := c.trades[uint32(idx)]; ok && len(cols.TsNs) > 0 {
			if resolution != "" {
				resolution += "+TradeTick"
			} else {
				resolution = "TradeTick"
			}
		}
		if resolution == "" {
			resolution = "None"
		}
		out = append(out, id.String()+"="+resolution)
	}
	return out
}
