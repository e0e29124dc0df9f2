package backtest

import (
	"sort"
	"time"
)

// Observation is one dated value in a series.
type Observation struct {
	Date  time.Time
	Value float64
}

// Series is an ordered sequence of observations, oldest first.
type Series []Observation

// Until returns the prefix of observations dated at or before date.
func (s Series) Until(date time.Time) Series {
	n := sort.Search(len(s), func(i int) bool { return s[i].Date.After(date) })
	return s[:n]
}

// Values returns the observation values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, obs := range s {
		out[i] = obs.Value
	}
	return out
}

// Feed supplies dated prices and named auxiliary series to a run. The
// engine binds one feed per tree; independent runs must not share one.
type Feed interface {
	// PriceAt returns the price of the named instrument on date, false
	// when there is no observation for that exact date.
	PriceAt(name string, date time.Time) (float64, bool)
	// HasInstrument reports whether a price series is registered under name.
	HasInstrument(name string) bool
	// Series returns the full registered series (price history or
	// auxiliary side-channel data) under name.
	Series(name string) (Series, bool)
}

// MemFeed is the in-memory Feed used by backtests: price series keyed
// by instrument name plus arbitrary auxiliary series registered at
// setup under names decision units request.
type MemFeed struct {
	prices map[string]map[int64]float64
	series map[string]Series
}

// NewMemFeed builds an empty feed.
func NewMemFeed() *MemFeed {
	return &MemFeed{
		prices: make(map[string]map[int64]float64),
		series: make(map[string]Series),
	}
}

// SetPrices registers the price series for an instrument name,
// replacing any previous registration. Observations are copied and
// sorted by date.
func (f *MemFeed) SetPrices(name string, obs Series) {
	sorted := sortedCopy(obs)
	byDay := make(map[int64]float64, len(sorted))
	for _, o := range sorted {
		byDay[dayKey(o.Date)] = o.Value
	}
	f.prices[name] = byDay
	f.series[name] = sorted
}

// SetAuxiliary registers a named side-channel series that decision
// units may request by the same name.
func (f *MemFeed) SetAuxiliary(name string, obs Series) {
	f.series[name] = sortedCopy(obs)
}

func (f *MemFeed) PriceAt(name string, date time.Time) (float64, bool) {
	byDay, ok := f.prices[name]
	if !ok {
		return 0, false
	}
	px, ok := byDay[dayKey(date)]
	return px, ok
}

func (f *MemFeed) HasInstrument(name string) bool {
	_, ok := f.prices[name]
	return ok
}

func (f *MemFeed) Series(name string) (Series, bool) {
	s, ok := f.series[name]
	return s, ok
}

// Dates returns the union of all price observation dates in order,
// usable as a run's date sequence.
func (f *MemFeed) Dates() []time.Time {
	seen := make(map[int64]time.Time)
	for _, byDay := range f.prices {
		for day := range byDay {
			if _, ok := seen[day]; !ok {
				seen[day] = time.Unix(day, 0).UTC()
			}
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func sortedCopy(obs Series) Series {
	sorted := make(Series, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	return sorted
}

// dayKey normalizes a date to its UTC day for price lookup.
func dayKey(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}
