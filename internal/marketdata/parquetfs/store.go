// Package parquetfs serves historical bars from Parquet files on disk, laid out as
//
//	<DataDir>/<timeframe>/<SYMBOL>/<YYYY>.parquet
package parquetfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/marketdata"
)

// Compile-time interface check
var _ marketdata.Provider = (*Store)(nil)

// BarRecord is the on-disk schema
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// Store reads and writes bar files under DataDir
type Store struct {
	DataDir string
}

// New creates a Store rooted at dataDir
func New(dataDir string) *Store {
	return &Store{DataDir: dataDir}
}

func (s *Store) Name() string {
	return "parquetfs"
}

func (s *Store) path(tf core.Timeframe, symbol string, year int) string {
	return filepath.Join(s.DataDir, string(tf), strings.ToUpper(symbol), strconv.Itoa(year)+".parquet")
}

// GetHistoricalData reads every year file overlapping [req.Start, req.End]
func (s *Store) GetHistoricalData(ctx context.Context, req marketdata.Request) (*marketdata.HistoricalData, error) {
	tf := req.Timeframe
	if tf == "" {
		tf = core.TimeframeDay
	}

	var bars []core.Bar
	for year := req.Start.Year(); year <= req.End.Year(); year++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, err := parquet.ReadFile[BarRecord](s.path(tf, req.Symbol, year))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("reading %s/%d: %w", req.Symbol, year, err))
		}

		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if ts.Before(req.Start) || ts.After(req.End) {
				continue
			}
			bars = append(bars, fromRecord(r, ts))
		}
	}

	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrDataUnavailable,
			fmt.Errorf("no %s bars on disk for %s", tf, req.Symbol))
	}

	return &marketdata.HistoricalData{
		Symbol:     strings.ToUpper(req.Symbol),
		Bars:       bars,
		DataSource: s.Name(),
	}, nil
}

// WriteBars merges bars into the year files for symbol, replacing records with equal timestamps.
func (s *Store) WriteBars(ctx context.Context, tf core.Timeframe, symbol string, bars []core.Bar) error {
	if tf == "" {
		tf = core.TimeframeDay
	}

	byYear := make(map[int][]BarRecord)
	for _, b := range bars {
		byYear[b.Timestamp.UTC().Year()] = append(byYear[b.Timestamp.UTC().Year()], toRecord(symbol, b))
	}

	for year, incoming := range byYear {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := s.path(tf, symbol, year)
		existing, err := parquet.ReadFile[BarRecord](path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := parquet.WriteFile(path, mergeRecords(existing, incoming)); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", symbol, year, err)
		}
	}
	return nil
}

// mergeRecords deduplicates by timestamp, preferring incoming records, sorted ascending.
func mergeRecords(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

func toRecord(symbol string, b core.Bar) BarRecord {
	return BarRecord{
		Symbol:    strings.ToUpper(symbol),
		Timestamp: b.Timestamp.UnixMilli(),
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
	}
}

func fromRecord(r BarRecord, ts time.Time) core.Bar {
	return core.Bar{
		Symbol:    r.Symbol,
		Timestamp: ts,
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
		Volume:    r.Volume,
	}
}
