// Copyright (c) 2025 Neomantra Corp

package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	backtest "github.com/NimbleMarkets/backtest-go"
	"github.com/neomantra/ymdflag"
)

const ymdPathFormat = "2006" + string(filepath.Separator) + "01" + string(filepath.Separator) + "02"

// pathSymbol renders an instrument id filesystem-safe.
func pathSymbol(id backtest.InstrumentId) string {
	return strings.ReplaceAll(id.String(), "/", "-")
}

// SplitFile splits a tick NDJSON source into per-instrument, per-day files
// under "<dest>/<instrument>/Y/M/D/<instrument>.<ymd>.ticks.ndjson.zst".
func SplitFile(sourceFilename string, destDir string, forceZstdInput bool, verbose bool) error {
	sourceReader, sourceCloser, err := backtest.OpenTickReader(sourceFilename, forceZstdInput)
	if err != nil {
		return fmt.Errorf("failed to open '%s' for reading: %w", sourceFilename, err)
	}
	defer sourceCloser()

	writerMap := make(map[string]*JsonWriterVisitor)
	closerMap := make(map[string]func())
	defer func() {
		for _, closer := range closerMap {
			closer()
		}
	}()

	// visitorFor returns (or creates) the day/instrument output file.
	visitorFor := func(id backtest.InstrumentId, tsNs int64) (*JsonWriterVisitor, error) {
		tickTime := backtest.TimestampToTime(tsNs)
		tickYMD := ymdflag.TimeToYMD(tickTime)
		symbol := pathSymbol(id)
		fileKey := symbol + "-" + strconv.Itoa(tickYMD)

		if visitor, ok := writerMap[fileKey]; ok {
			return visitor, nil
		}
		destPath := filepath.Join(destDir, symbol, tickTime.Format(ymdPathFormat))
		if err := os.MkdirAll(destPath, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create dest path '%s': %w", destPath, err)
		}
		destFile := fmt.Sprintf("%s.%d.ticks.ndjson.zst", symbol, tickYMD)
		fullDestPath := filepath.Join(destPath, destFile)

		destWriter, destCloser, err := backtest.CreateTickWriter(fullDestPath, true)
		if err != nil {
			return nil, fmt.Errorf("failed to create dest file '%s': %w", fullDestPath, err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "writing to '%s'\n", fullDestPath)
		}
		visitor := NewJsonWriterVisitor(destWriter)
		writerMap[fileKey] = visitor
		closerMap[fileKey] = destCloser
		return visitor, nil
	}

	scanner := backtest.NewTickJsonScanner(sourceReader)
	for scanner.Next() {
		tick, err := scanner.Decode()
		if err != nil {
			return err
		}
		visitor, err := visitorFor(tick.Instrument(), tick.Timestamp())
		if err != nil {
			return err
		}
		if err := backtest.VisitTick(tick, visitor); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	err = scanner.Error()
	if err == io.EOF {
		// EOF is not propagated as an error
		err = nil
	}
	return err
}
