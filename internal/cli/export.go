package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/aurumchain/go-aurum/internal/core/protocol"
	"github.com/aurumchain/go-aurum/internal/storage/compression"
	"github.com/aurumchain/go-aurum/internal/storage/historydb"
	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

const (
	exportFormatCSV     = "csv"
	exportFormatMsgpack = "msgpack"

	// historyPageRows keeps history reads well under the query row cap.
	historyPageRows = 1_000
)

var (
	exportFrom      uint64
	exportTo        uint64
	exportOutput    string
	exportFormat    string
	exportCompress  bool
	exportPNGPath   string
	exportMaxPoints int
	exportHistory   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored pricing records as CSV, dump file and/or PNG chart",
	Long: `Export reads pricing record entries from the record store (or the SQL
history index with --history) and writes them as a CSV table, a msgpack
dump file usable by replay and compare, and/or a PNG rate chart.

Heights are inclusive on both ends; --to 0 means up to the newest entry.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Uint64Var(&exportFrom, "from", 0, "First height to export (inclusive)")
	exportCmd.Flags().Uint64Var(&exportTo, "to", 0, "Last height to export (0 = newest)")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "Path to write the data file")
	exportCmd.Flags().StringVar(&exportFormat, "format", exportFormatCSV, "Data file format: csv or msgpack")
	exportCmd.Flags().BoolVar(&exportCompress, "compress", false, "Compress the msgpack payload with lz4")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write a PNG rate chart")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum chart points (0 = all)")
	exportCmd.Flags().BoolVar(&exportHistory, "history", false, "Read from the SQL history index instead of the store")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportOutput == "" && exportPNGPath == "" {
		return errors.New("at least one of --output or --png must be provided")
	}
	if exportMaxPoints == 1 {
		return errors.New("--max-points must be 0 or at least 2")
	}
	switch exportFormat {
	case exportFormatCSV, exportFormatMsgpack:
	default:
		return fmt.Errorf("unknown export format %q", exportFormat)
	}
	if exportCompress && exportFormat != exportFormatMsgpack {
		return errors.New("--compress only applies to msgpack dumps")
	}
	if exportTo != 0 && exportFrom > exportTo {
		return fmt.Errorf("--from %d is after --to %d", exportFrom, exportTo)
	}

	network, err := cfg.Network()
	if err != nil {
		return err
	}

	var entries []*recordstore.Entry
	if exportHistory {
		entries, err = collectHistoryEntries(cmd.Context(), exportFrom, exportTo)
	} else {
		entries, err = collectStoreEntries(exportFrom, exportTo)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		log.Info().Msg("no records in export window")
		return nil
	}

	if exportOutput != "" {
		switch exportFormat {
		case exportFormatCSV:
			err = writeEntriesCSV(exportOutput, entries)
		case exportFormatMsgpack:
			name := compression.NoneName
			if exportCompress {
				name = compression.LZ4Name
			}
			err = writeDump(exportOutput, network.String(), entries, name)
		}
		if err != nil {
			return err
		}
		log.Info().Str("path", exportOutput).Int("entries", len(entries)).Msg("wrote data export")
	}

	if exportPNGPath != "" {
		if err := writeEntriesPNG(exportPNGPath, entries, exportMaxPoints); err != nil {
			return err
		}
		log.Info().Str("path", exportPNGPath).Msg("wrote rate chart")
	}
	return nil
}

func collectStoreEntries(from, to uint64) ([]*recordstore.Entry, error) {
	store, err := recordstore.Open(recordstore.Options{
		Type: cfg.Store.Backend,
		Path: cfg.StorePath(),
	}, cfg.Store.CacheSize, log)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	defer store.Close()

	var entries []*recordstore.Entry
	err = store.ForEach(func(e *recordstore.Entry) error {
		if e.Height < from || (to != 0 && e.Height > to) {
			return nil
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func collectHistoryEntries(ctx context.Context, from, to uint64) ([]*recordstore.Entry, error) {
	if !cfg.History.Enabled {
		return nil, errors.New("history is not enabled in configuration")
	}

	db, err := historydb.Open(ctx, historydb.Config{
		Driver:          cfg.History.Driver,
		DSN:             cfg.History.DSN,
		MaxOpenConns:    cfg.History.MaxOpenConns,
		MaxIdleConns:    cfg.History.MaxIdleConns,
		ConnMaxLifetime: cfg.History.ConnMaxLifetime,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	defer db.Close()

	if to == 0 {
		to = math.MaxUint64
	}

	var entries []*recordstore.Entry
	for {
		batch, err := db.GetRange(ctx, from, to, historyPageRows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, batch...)
		if len(batch) < historyPageRows {
			return entries, nil
		}
		last := batch[len(batch)-1].Height
		if last >= to {
			return entries, nil
		}
		from = last + 1
	}
}

func writeEntriesCSV(path string, entries []*recordstore.Entry) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"height", "pr_version", "timestamp",
		"spot", "spot_coins", "moving_average", "moving_average_coins",
		"signature",
		"coin_burnt", "coin_minted", "asset_burnt", "asset_minted",
		"assets",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, e := range entries {
		row := []string{
			strconv.FormatUint(e.Height, 10),
			strconv.FormatUint(e.Record.Version, 10),
			strconv.FormatUint(e.Record.Timestamp, 10),
			strconv.FormatUint(e.Record.Spot, 10),
			coinAmount(e.Record.Spot).String(),
			strconv.FormatUint(e.Record.MovingAverage, 10),
			coinAmount(e.Record.MovingAverage).String(),
			e.Record.SignatureHex(),
			strconv.FormatUint(e.Supply.CoinBurnt, 10),
			strconv.FormatUint(e.Supply.CoinMinted, 10),
			strconv.FormatUint(e.Supply.AssetBurnt, 10),
			strconv.FormatUint(e.Supply.AssetMinted, 10),
			strconv.Itoa(len(e.Assets)),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeEntriesPNG(path string, entries []*recordstore.Entry, maxPoints int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	quoted := make([]*recordstore.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Record.Empty() || e.Record.HasMissingRates() {
			continue
		}
		quoted = append(quoted, e)
	}
	if len(quoted) < 2 {
		return fmt.Errorf("need at least two quoted records to chart, have %d", len(quoted))
	}
	quoted = downsampleEntries(quoted, maxPoints)

	x := make([]time.Time, len(quoted))
	spot := make([]float64, len(quoted))
	average := make([]float64, len(quoted))
	for i, e := range quoted {
		x[i] = time.Unix(int64(e.Record.Timestamp), 0).UTC()
		spot[i] = coinAmount(e.Record.Spot).InexactFloat64()
		average[i] = coinAmount(e.Record.MovingAverage).InexactFloat64()
	}

	rateFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.4f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Rate (coins)",
			ValueFormatter: rateFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Spot",
				XValues: x,
				YValues: spot,
			},
			chart.TimeSeries{
				Name:    "Moving average",
				XValues: x,
				YValues: average,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func downsampleEntries(entries []*recordstore.Entry, max int) []*recordstore.Entry {
	if max <= 0 || len(entries) <= max {
		return entries
	}

	result := make([]*recordstore.Entry, 0, max)
	step := float64(len(entries)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(entries) {
			idx = len(entries) - 1
		}
		result = append(result, entries[idx])
	}
	return result
}

// coinAmount rescales an atomic-unit rate into whole coins.
func coinAmount(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -protocol.AtomicUnitDigits)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
