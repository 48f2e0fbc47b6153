// Copyright (c) 2025 Neomantra Corp

package file

import (
	"fmt"

	backtest "github.com/NimbleMarkets/backtest-go"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	pqfile "github.com/apache/arrow-go/v18/parquet/file"
	pqschema "github.com/apache/arrow-go/v18/parquet/schema"
)

///////////////////////////////////////////////////////////////////////////////

// ParquetGroupNode_Ticks returns the Parquet Schema Group Node for the unified
// tick table. Quote and trade ticks share one schema; the fields of the other
// variant are null. Prices and sizes are written as strings so the exported
// values stay exact.
//
//	required int64 ts_ns (Timestamp(isAdjustedToUTC=true, timeUnit=nanoseconds));
//	required binary type (String);
//	required binary instrument (String);
//	optional binary bid (String);
//	optional binary ask (String);
//	optional binary bid_size (String);
//	optional binary ask_size (String);
//	optional binary price (String);
//	optional binary size (String);
//	optional binary match_id (String);
//	optional binary aggressor (String);
func ParquetGroupNode_Ticks() *pqschema.GroupNode {
	return pqschema.MustGroup(pqschema.NewGroupNode("schema", parquet.Repetitions.Required, pqschema.FieldList{
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeLogical("ts_ns", parquet.Repetitions.Required, pqschema.NewTimestampLogicalType(true, pqschema.TimeUnitNanos), parquet.Types.Int64, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("type", parquet.Repetitions.Required, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("instrument", parquet.Repetitions.Required, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("bid", parquet.Repetitions.Optional, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("ask", parquet.Repetitions.Optional, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("bid_size", parquet.Repetitions.Optional, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("ask_size", parquet.Repetitions.Optional, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("price", parquet.Repetitions.Optional, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("size", parquet.Repetitions.Optional, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("match_id", parquet.Repetitions.Optional, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("aggressor", parquet.Repetitions.Optional, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
	}, -1))
}

///////////////////////////////////////////////////////////////////////////////

// ParquetWriterVisitor is a TickVisitor that writes each tick as one row of
// the unified tick table.
type ParquetWriterVisitor struct {
	pw         *pqfile.Writer
	rgw        pqfile.BufferedRowGroupWriter
	destCloser func()
}

// NewParquetWriterVisitor creates a parquet file at destFile and returns a
// visitor writing rows into it. Call OnStreamEnd (or Close) to flush.
func NewParquetWriterVisitor(destFile string) (*ParquetWriterVisitor, error) {
	outfile, outfileCloser, err := backtest.CreateTickWriter(destFile, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create writer %w", err)
	}

	pwProperties := parquet.NewWriterProperties(
		parquet.WithVersion(parquet.V2_LATEST),
		parquet.WithCompression(compress.Codecs.Snappy))

	pw := pqfile.NewParquetWriter(outfile, ParquetGroupNode_Ticks(), pqfile.WithWriterProps(pwProperties))
	return &ParquetWriterVisitor{
		pw:         pw,
		rgw:        pw.AppendBufferedRowGroup(),
		destCloser: outfileCloser,
	}, nil
}

func (v *ParquetWriterVisitor) OnQuoteTick(tick *backtest.QuoteTick) error {
	writeInt64Column(v.rgw, 0, tick.TsNs)
	writeStringColumn(v.rgw, 1, backtest.TickTypeQuote)
	writeStringColumn(v.rgw, 2, tick.InstrumentId.String())
	writeOptionalColumn(v.rgw, 3, tick.Bid.String())
	writeOptionalColumn(v.rgw, 4, tick.Ask.String())
	writeOptionalColumn(v.rgw, 5, tick.BidSize.String())
	writeOptionalColumn(v.rgw, 6, tick.AskSize.String())
	for col := 7; col <= 10; col++ {
		writeNullColumn(v.rgw, col)
	}
	return nil
}

func (v *ParquetWriterVisitor) OnTradeTick(tick *backtest.TradeTick) error {
	writeInt64Column(v.rgw, 0, tick.TsNs)
	writeStringColumn(v.rgw, 1, backtest.TickTypeTrade)
	writeStringColumn(v.rgw, 2, tick.InstrumentId.String())
	for col := 3; col <= 6; col++ {
		writeNullColumn(v.rgw, col)
	}
	writeOptionalColumn(v.rgw, 7, tick.Price.String())
	writeOptionalColumn(v.rgw, 8, tick.Size.String())
	writeOptionalColumn(v.rgw, 9, tick.MatchId)
	writeOptionalColumn(v.rgw, 10, string(rune(tick.Aggressor)))
	return nil
}

// OnStreamEnd flushes and closes the parquet file.
func (v *ParquetWriterVisitor) OnStreamEnd() error {
	return v.Close()
}

// Close flushes the row group and the file footer. Safe to call twice.
func (v *ParquetWriterVisitor) Close() error {
	if v.pw == nil {
		return nil
	}
	v.rgw.Close()
	err := v.pw.FlushWithFooter()
	v.pw.Close()
	v.pw = nil
	v.destCloser()
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////

func writeInt64Column(rgw pqfile.BufferedRowGroupWriter, col int, value int64) {
	cw, _ := rgw.Column(col)
	cw.(*pqfile.Int64ColumnChunkWriter).WriteBatch([]int64{value}, nil, nil)
}

func writeStringColumn(rgw pqfile.BufferedRowGroupWriter, col int, value string) {
	cw, _ := rgw.Column(col)
	cw.(*pqfile.ByteArrayColumnChunkWriter).WriteBatch([]parquet.ByteArray{parquet.ByteArray(value)}, nil, nil)
}

func writeOptionalColumn(rgw pqfile.BufferedRowGroupWriter, col int, value string) {
	cw, _ := rgw.Column(col)
	cw.(*pqfile.ByteArrayColumnChunkWriter).WriteBatch([]parquet.ByteArray{parquet.ByteArray(value)}, []int16{1}, nil)
}

func writeNullColumn(rgw pqfile.BufferedRowGroupWriter, col int) {
	cw, _ := rgw.Column(col)
	cw.(*pqfile.ByteArrayColumnChunkWriter).WriteBatch(nil, []int16{0}, nil)
}
