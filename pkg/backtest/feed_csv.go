package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCSVPricesFile builds a MemFeed from a wide price table on disk.
func LoadCSVPricesFile(path string) (*MemFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSVPrices(f)
}

// LoadCSVPrices reads a wide price table: a header row of
// "date,SYM1,SYM2,..." followed by one row per date with prices per
// symbol. Empty cells mean no observation for that symbol on that
// date. Dates are "2006-01-02".
func LoadCSVPrices(r io.Reader) (*MemFeed, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("backtest: price csv needs a header and at least one row")
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("backtest: price csv needs a date column and at least one symbol")
	}
	symbols := make([]string, len(header)-1)
	for i, name := range header[1:] {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("backtest: price csv has an empty symbol in column %d", i+2)
		}
		symbols[i] = name
	}

	series := make(map[string]Series, len(symbols))
	for rowIdx, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("backtest: price csv row %d has %d columns, want %d", rowIdx+2, len(rec), len(header))
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("backtest: price csv row %d: %w", rowIdx+2, err)
		}
		for i, cell := range rec[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			px, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("backtest: price csv row %d symbol %s: %w", rowIdx+2, symbols[i], err)
			}
			series[symbols[i]] = append(series[symbols[i]], Observation{Date: date, Value: px})
		}
	}

	feed := NewMemFeed()
	for _, sym := range symbols {
		if len(series[sym]) == 0 {
			continue
		}
		feed.SetPrices(sym, series[sym])
	}
	return feed, nil
}
