// File: dataprovider/csvfeed.go
package dataprovider

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Quaser41/Autonomous-Trader/pkg/broker"
	"github.com/Quaser41/Autonomous-Trader/strategy"
	"github.com/Quaser41/Autonomous-Trader/utilities"
)

var requiredColumns = []string{"open", "high", "low", "close", "volume"}

// ReadCSVOHLCV reads OHLCV bars from a CSV file and validates integrity. The
// file must carry open/high/low/close/volume columns; an optional timestamp
// column (timestamp, time, date or datetime, unix seconds) must be in
// chronological order.
func ReadCSVOHLCV(r io.Reader) ([]utilities.OHLCVBar, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csv feed: reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv feed: missing required columns: %s", strings.Join(missing, ", "))
	}

	timeIdx := -1
	for _, c := range []string{"timestamp", "time", "date", "datetime"} {
		if i, ok := cols[c]; ok {
			timeIdx = i
			break
		}
	}

	var bars []utilities.OHLCVBar
	var prevTS int64
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv feed: line %d: %w", line, err)
		}
		bar, err := parseBar(record, cols)
		if err != nil {
			return nil, fmt.Errorf("csv feed: line %d: %w", line, err)
		}
		if timeIdx >= 0 {
			ts, err := strconv.ParseInt(strings.TrimSpace(record[timeIdx]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("csv feed: line %d: bad timestamp %q", line, record[timeIdx])
			}
			if len(bars) > 0 && ts < prevTS {
				return nil, fmt.Errorf("csv feed: rows must be in chronological order (line %d)", line)
			}
			prevTS = ts
			bar.Timestamp = ts
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBar(record []string, cols map[string]int) (utilities.OHLCVBar, error) {
	var bar utilities.OHLCVBar
	fields := []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open},
		{"high", &bar.High},
		{"low", &bar.Low},
		{"close", &bar.Close},
		{"volume", &bar.Volume},
	}
	for _, f := range fields {
		idx := cols[f.name]
		if idx >= len(record) {
			return bar, fmt.Errorf("short row, no %s column", f.name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
		if err != nil {
			return bar, fmt.Errorf("bad %s value %q", f.name, record[idx])
		}
		*f.dst = v
	}
	return bar, nil
}

// CSVFeed replays per-symbol OHLCV files as a price update stream. Each file
// in the directory is named <SYMBOL>.csv; bars are replayed in chronological
// order with the ATR fraction derived from the preceding bars, so the tick
// stream looks like the live one the executor would consume.
type CSVFeed struct {
	dir       string
	atrPeriod int
	interval  time.Duration
	logger    *utilities.Logger
	updates   chan broker.PriceUpdate
}

// NewCSVFeed builds a replay feed over the given directory. interval is the
// pacing between emitted ticks; zero replays as fast as the consumer reads.
func NewCSVFeed(dir string, atrPeriod int, interval time.Duration, logger *utilities.Logger) *CSVFeed {
	if atrPeriod <= 0 {
		atrPeriod = 14
	}
	return &CSVFeed{
		dir:       dir,
		atrPeriod: atrPeriod,
		interval:  interval,
		logger:    logger,
		updates:   make(chan broker.PriceUpdate, 64),
	}
}

// Updates returns the replayed tick stream. The channel closes when every
// file has been fully replayed or the context is cancelled.
func (f *CSVFeed) Updates() <-chan broker.PriceUpdate {
	return f.updates
}

// Start begins the replay in a background goroutine.
func (f *CSVFeed) Start(ctx context.Context) error {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*.csv"))
	if err != nil {
		return fmt.Errorf("csv feed: scanning %s: %w", f.dir, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("csv feed: no .csv files in %s", f.dir)
	}

	series := make(map[string][]utilities.OHLCVBar, len(matches))
	for _, path := range matches {
		symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), ".csv"))
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("csv feed: opening %s: %w", path, err)
		}
		bars, err := ReadCSVOHLCV(file)
		file.Close()
		if err != nil {
			return fmt.Errorf("csv feed: %s: %w", path, err)
		}
		if len(bars) == 0 {
			f.logger.LogWarn("CSVFeed: %s has no bars, skipping.", path)
			continue
		}
		series[symbol] = bars
		f.logger.LogInfo("CSVFeed: loaded %d bars for %s.", len(bars), symbol)
	}

	go f.replay(ctx, series)
	return nil
}

// replay interleaves symbols round-robin so a multi-symbol replay exercises
// the ledger the way concurrent live feeds would, while staying ordered
// within each symbol.
func (f *CSVFeed) replay(ctx context.Context, series map[string][]utilities.OHLCVBar) {
	defer close(f.updates)

	symbols := make([]string, 0, len(series))
	for s := range series {
		symbols = append(symbols, s)
	}

	for i := 0; ; i++ {
		emitted := false
		for _, symbol := range symbols {
			bars := series[symbol]
			if i >= len(bars) {
				continue
			}
			emitted = true
			update := broker.PriceUpdate{
				Symbol:    symbol,
				Price:     bars[i].Close,
				ATRPct:    strategy.CalculateATRPercent(bars[:i+1], f.atrPeriod),
				Timestamp: time.Unix(bars[i].Timestamp, 0).UTC(),
			}
			select {
			case <-ctx.Done():
				return
			case f.updates <- update:
			}
			if f.interval > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(f.interval):
				}
			}
		}
		if !emitted {
			return
		}
	}
}
