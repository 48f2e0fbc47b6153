// Copyright (c) 2025 Neomantra Corp

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	backtest "github.com/NimbleMarkets/backtest-go"
	bt_file "github.com/NimbleMarkets/backtest-go/internal/file"
	bt_query "github.com/NimbleMarkets/backtest-go/internal/query"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/relvacode/iso8601"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

///////////////////////////////////////////////////////////////////////////////

var (
	verbose bool

	forceZstdInput = false // force input to be zstd, irrespective of filename suffix

	startTimeArg string // ISO8601 window start, default container start
	stopTimeArg  string // ISO8601 window stop, default container stop
	useCached    bool   // replay through the caching producer
	jsonOutArg   string // NDJSON export destination
	parquetOut   string // parquet export destination

	destDir string // destination directory for split

	genInstrument string
	genTickCount  int
	genFillCount  int
	genFillsOut   string
	genStartNs    int64
)

func requireNoError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}

func requireNoErrorWithoutPrint(err error) {
	if err != nil {
		os.Exit(1)
	}
}

///////////////////////////////////////////////////////////////////////////////

func main() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVarP(&forceZstdInput, "zstd", "z", false, "Input is zstd (useful for handling zstd on stdin)")

	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVarP(&forceZstdInput, "zstd", "z", false, "Input is zstd (useful for handling zstd on stdin)")
	replayCmd.Flags().StringVarP(&startTimeArg, "start", "s", "", "Window start as ISO8601 (default: container start)")
	replayCmd.Flags().StringVarP(&stopTimeArg, "stop", "e", "", "Window stop as ISO8601 (default: container stop)")
	replayCmd.Flags().BoolVarP(&useCached, "cached", "c", false, "Replay through the caching producer")
	replayCmd.Flags().StringVarP(&jsonOutArg, "json", "j", "", "Export the emitted stream as tick NDJSON to this file")
	replayCmd.Flags().StringVarP(&parquetOut, "parquet", "p", "", "Export the emitted stream as parquet to this file")

	rootCmd.AddCommand(fillsCmd)
	fillsCmd.Flags().BoolVarP(&forceZstdInput, "zstd", "z", false, "Input is zstd (useful for handling zstd on stdin)")

	rootCmd.AddCommand(splitCmd)
	splitCmd.Flags().BoolVarP(&forceZstdInput, "zstd", "z", false, "Input is zstd (useful for handling zstd on stdin)")
	splitCmd.Flags().StringVarP(&destDir, "dest", "d", "", "Destination directory")
	splitCmd.MarkFlagRequired("dest")

	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&genInstrument, "instrument", "i", "EUR/USD.SIM", "Instrument id for generated data")
	generateCmd.Flags().IntVarP(&genTickCount, "ticks", "t", 1000, "Number of quote/trade tick pairs to generate")
	generateCmd.Flags().IntVarP(&genFillCount, "fills", "f", 0, "Number of fills to generate")
	generateCmd.Flags().StringVarP(&genFillsOut, "fills-out", "o", "", "Destination file for generated fills")
	generateCmd.Flags().Int64VarP(&genStartNs, "start-ns", "n", 1_600_000_000_000_000_000, "First timestamp in epoch nanoseconds")

	rootCmd.AddCommand(queryCmd)

	err := rootCmd.Execute()
	requireNoErrorWithoutPrint(err)
}

///////////////////////////////////////////////////////////////////////////////

var rootCmd = &cobra.Command{
	Use:   "backtest-go-replay",
	Short: "backtest-go-replay replays tick files through the backtest producer",
	Long:  "backtest-go-replay replays tick files through the backtest producer",
}

///////////////////////////////////////////////////////////////////////////////

var infoCmd = &cobra.Command{
	Use:   "info file...",
	Short: `Prints the specified container file's metadata as JSON`,
	Long:  `Prints the specified container file's metadata as JSON`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, sourceFile := range args {
			if err := printInfo(sourceFile, forceZstdInput); err != nil {
				fmt.Fprintf(os.Stderr, "error: reading %s: %s\n", sourceFile, err.Error())
			}
		}
	},
}

// containerInfo is the JSON form of a container's metadata.
type containerInfo struct {
	Instruments          []string `json:"instruments"`
	MinTsNs              int64    `json:"min_ts_ns"`
	MaxTsNs              int64    `json:"max_ts_ns"`
	ExecutionResolutions []string `json:"execution_resolutions"`
}

func printInfo(sourceFile string, forceZstd bool) error {
	container, err := bt_file.LoadContainerFile(sourceFile, forceZstd)
	if err != nil {
		return err
	}

	info := containerInfo{
		MinTsNs:              container.MinTsNs(),
		MaxTsNs:              container.MaxTsNs(),
		ExecutionResolutions: container.ExecutionResolutions(),
	}
	for _, id := range container.Instruments() {
		info.Instruments = append(info.Instruments, id.String())
	}

	jstr, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal info: %w", err)
	}
	fmt.Printf("%s\n", jstr)
	return nil
}

///////////////////////////////////////////////////////////////////////////////

var replayCmd = &cobra.Command{
	Use:   "replay file",
	Short: `Replays a container file's window through the producer`,
	Long:  `Replays a container file's window through the producer`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireNoError(runReplay(args[0]))
	},
}

func runReplay(sourceFile string) error {
	container, err := bt_file.LoadContainerFile(sourceFile, forceZstdInput)
	if err != nil {
		return err
	}
	if container.IsEmpty() {
		return fmt.Errorf("container '%s' holds no ticks", sourceFile)
	}

	startNs, stopNs := container.MinTsNs(), container.MaxTsNs()
	if startTimeArg != "" {
		t, err := iso8601.ParseString(startTimeArg)
		if err != nil {
			return fmt.Errorf("bad start time: %w", err)
		}
		startNs = backtest.TimeToTimestamp(t)
	}
	if stopTimeArg != "" {
		t, err := iso8601.ParseString(stopTimeArg)
		if err != nil {
			return fmt.Errorf("bad stop time: %w", err)
		}
		stopNs = backtest.TimeToTimestamp(t)
	}

	var producer backtest.TickProducer
	if useCached {
		producer = backtest.NewCachedProducer(container)
	} else {
		inner := backtest.NewProducer(container)
		if verbose {
			inner.SetLogger(slog.New(slog.NewTextHandler(os.Stderr,
				&slog.HandlerOptions{Level: slog.LevelDebug})))
		}
		producer = inner
	}
	if err := producer.Setup(startNs, stopNs); err != nil {
		return err
	}

	var visitor backtest.TickVisitor = backtest.NullTickVisitor{}
	switch {
	case jsonOutArg != "":
		writer, closer, err := backtest.CreateTickWriter(jsonOutArg, false)
		if err != nil {
			return err
		}
		defer closer()
		visitor = bt_file.NewJsonWriterVisitor(writer)
	case parquetOut != "":
		pqVisitor, err := bt_file.NewParquetWriterVisitor(parquetOut)
		if err != nil {
			return err
		}
		visitor = pqVisitor
	}

	startWall := time.Now()
	count, err := backtest.DrainProducer(producer, visitor)
	if err != nil {
		return err
	}
	elapsed := time.Since(startWall)
	perSec := float64(count) / elapsed.Seconds()
	fmt.Printf("replayed %s ticks in %s (%s ticks/sec)\n",
		humanize.Comma(int64(count)), elapsed.Round(time.Millisecond),
		humanize.CommafWithDigits(perSec, 0))
	return nil
}

///////////////////////////////////////////////////////////////////////////////

var fillsCmd = &cobra.Command{
	Use:   "fills file",
	Short: `Folds an OrderFilled NDJSON stream into positions and prints their P&L`,
	Long:  `Folds an OrderFilled NDJSON stream into positions and prints their P&L`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireNoError(runFills(args[0]))
	},
}

func runFills(sourceFile string) error {
	fills, err := bt_file.LoadFillsFile(sourceFile, forceZstdInput)
	if err != nil {
		return err
	}

	var order []backtest.PositionId
	positions := make(map[backtest.PositionId]*backtest.Position)
	for _, fill := range fills {
		if position, ok := positions[fill.PositionId]; ok {
			if err := position.Apply(fill); err != nil {
				return fmt.Errorf("fill %s: %w", fill.ExecutionId, err)
			}
			continue
		}
		position, err := backtest.NewPosition(fill)
		if err != nil {
			return fmt.Errorf("fill %s: %w", fill.ExecutionId, err)
		}
		positions[fill.PositionId] = position
		order = append(order, fill.PositionId)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Position", "Instrument", "Side", "Qty", "Peak", "AvgOpen", "AvgClose", "Points", "PnL", "Commission", "Fills")
	for _, id := range order {
		p := positions[id]
		avgClose := "-"
		if px, ok := p.AvgPxClose(); ok {
			avgClose = px.String()
		}
		table.Append(
			p.Id().String(),
			p.InstrumentId().String(),
			p.Side().String(),
			p.Quantity().String(),
			p.PeakQty().String(),
			p.AvgPxOpen().String(),
			avgClose,
			p.RealizedPoints().String(),
			p.RealizedPnl().String(),
			p.Commission().String(),
			fmt.Sprintf("%d", p.EventCount()),
		)
	}
	table.Render()
	return nil
}

///////////////////////////////////////////////////////////////////////////////

var splitCmd = &cobra.Command{
	Use:   "split file...",
	Short: `Splits tick files into per-instrument, per-day NDJSON files`,
	Long:  `Splits tick files into per-instrument, per-day NDJSON files`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, sourceFile := range args {
			err := bt_file.SplitFile(sourceFile, destDir, forceZstdInput, verbose)
			requireNoError(err)
		}
	},
}

///////////////////////////////////////////////////////////////////////////////

var generateCmd = &cobra.Command{
	Use:   "generate ticks-file",
	Short: `Generates a synthetic tick corpus (and optionally fills) for smoke testing`,
	Long:  `Generates a synthetic tick corpus (and optionally fills) for smoke testing`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireNoError(runGenerate(args[0]))
	},
}

func runGenerate(destFile string) error {
	instrument, err := backtest.InstrumentIdFromString(genInstrument)
	if err != nil {
		return err
	}
	writer, closer, err := backtest.CreateTickWriter(destFile, false)
	if err != nil {
		return err
	}
	defer closer()

	visitor := bt_file.NewJsonWriterVisitor(writer)
	px := decimal.RequireFromString("1.0000")
	step := decimal.RequireFromString("0.0001")
	size := decimal.NewFromInt(1_000_000)
	tsNs := genStartNs
	for i := 0; i < genTickCount; i++ {
		// Random-walk-free sawtooth keeps prices reproducible; match ids are random UUIDs.
		if i%16 < 8 {
			px = px.Add(step)
		} else {
			px = px.Sub(step)
		}
		quote := backtest.QuoteTick{
			InstrumentId: instrument,
			Bid:          px,
			Ask:          px.Add(step),
			BidSize:      size,
			AskSize:      size,
			TsNs:         tsNs,
		}
		if err := visitor.OnQuoteTick(&quote); err != nil {
			return err
		}
		trade := backtest.TradeTick{
			InstrumentId: instrument,
			Price:        px,
			Size:         size.Div(decimal.NewFromInt(100)),
			MatchId:      uuid.NewString(),
			Aggressor:    backtest.AggressorSide_Buyer,
			TsNs:         tsNs,
		}
		if err := visitor.OnTradeTick(&trade); err != nil {
			return err
		}
		tsNs += int64(time.Millisecond)
	}

	if genFillCount == 0 || genFillsOut == "" {
		return nil
	}
	fillsWriter, fillsCloser, err := backtest.CreateTickWriter(genFillsOut, false)
	if err != nil {
		return err
	}
	defer fillsCloser()

	for i := 0; i < genFillCount; i++ {
		side := backtest.OrderSide_Buy
		if i%2 == 1 {
			side = backtest.OrderSide_Sell
		}
		fill := backtest.OrderFilled{
			ClientOrderId: backtest.ClientOrderId(fmt.Sprintf("O-%06d", i)),
			OrderId:       backtest.OrderId(fmt.Sprintf("V-%06d", i)),
			ExecutionId:   backtest.ExecutionId(uuid.NewString()),
			PositionId:    backtest.PositionId(fmt.Sprintf("P-%06d", i/2)),
			StrategyId:    "S-GEN",
			AccountId:     "A-GEN",
			InstrumentId:  instrument,
			OrderSide:     side,
			FillPrice:     px,
			FillQty:       decimal.NewFromInt(100),
			Currency:      "USD",
			Commission:    backtest.ZeroMoney("USD"),
			ExecutionNs:   genStartNs + int64(i)*int64(time.Second),
		}
		if err := bt_file.WriteFillAsJson(fill, fillsWriter); err != nil {
			return err
		}
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////

var queryCmd = &cobra.Command{
	Use:   "query parquet-glob sql",
	Short: `Runs DuckDB SQL over exported tick parquet, exposed as the view "ticks"`,
	Long:  `Runs DuckDB SQL over exported tick parquet, exposed as the view "ticks"`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		requireNoError(runQuery(args[0], args[1]))
	},
}

func runQuery(parquetGlob string, userSQL string) error {
	querier, err := bt_query.NewParquetQuerier()
	if err != nil {
		return err
	}
	defer querier.Close()

	if err := querier.CreateView("ticks", parquetGlob); err != nil {
		return err
	}
	csvOut, err := querier.QueryCSV(userSQL)
	if err != nil {
		return err
	}
	fmt.Print(csvOut)
	return nil
}
