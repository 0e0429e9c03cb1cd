// Package cache provides a bounded in-memory store of candle series keyed by
// (symbol, interval). It is the single shared market-data structure of the
// process: the websocket ingester writes, analysis workers read.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"screener-core/internal/model"
)

// ErrNotFound is returned by reads for an unknown symbol or interval.
var ErrNotFound = fmt.Errorf("not found in cache")

// CandleCache stores per-(symbol, interval) candle series, each bounded to
// maxLen entries with FIFO eviction. One RWMutex guards the whole map;
// consistency is only needed within a single series, so coarse locking is
// enough at screener scale.
type CandleCache struct {
	mu     sync.RWMutex
	data   map[string]map[string][]model.Candle // [symbol][interval]
	maxLen int

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache keeping at most maxLen candles per symbol/interval.
func New(maxLen int) *CandleCache {
	return &CandleCache{
		data:   make(map[string]map[string][]model.Candle),
		maxLen: maxLen,
	}
}

// Set replaces the series for symbol/interval, truncated to the most recent
// maxLen candles. Used when bootstrapping history.
func (c *CandleCache) Set(symbol, interval string, candles []model.Candle) {
	if len(candles) > c.maxLen {
		candles = candles[len(candles)-c.maxLen:]
	}
	stored := make([]model.Candle, len(candles))
	copy(stored, candles)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data[symbol] == nil {
		c.data[symbol] = make(map[string][]model.Candle)
	}
	c.data[symbol][interval] = stored
}

// Update applies one live candle. A candle with the same open time as the
// newest stored one is a revision of the still-forming bar and replaces it in
// place; otherwise the candle is appended and the oldest is evicted once the
// series exceeds maxLen.
func (c *CandleCache) Update(symbol, interval string, candle model.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data[symbol] == nil {
		c.data[symbol] = make(map[string][]model.Candle)
	}

	series := c.data[symbol][interval]
	if n := len(series); n > 0 && series[n-1].OpenTime == candle.OpenTime {
		series[n-1] = candle
	} else {
		series = append(series, candle)
		if len(series) > c.maxLen {
			series = series[1:]
		}
	}
	c.data[symbol][interval] = series
}

// Get returns a copy of the most recent limit candles, or all of them when
// fewer are stored. Unknown keys return ErrNotFound.
func (c *CandleCache) Get(symbol, interval string, limit int) ([]model.Candle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bySymbol, ok := c.data[symbol]
	if !ok {
		c.misses.Add(1)
		return nil, fmt.Errorf("symbol %s: %w", symbol, ErrNotFound)
	}
	series, ok := bySymbol[interval]
	if !ok {
		c.misses.Add(1)
		return nil, fmt.Errorf("interval %s for %s: %w", interval, symbol, ErrNotFound)
	}
	c.hits.Add(1)

	if limit < 0 {
		limit = 0
	}
	if limit > len(series) {
		limit = len(series)
	}
	out := make([]model.Candle, limit)
	copy(out, series[len(series)-limit:])
	return out, nil
}

// GetLatest returns the most recent candle for symbol/interval.
func (c *CandleCache) GetLatest(symbol, interval string) (model.Candle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	series, ok := c.data[symbol][interval]
	if !ok || len(series) == 0 {
		return model.Candle{}, fmt.Errorf("no candles for %s@%s: %w", symbol, interval, ErrNotFound)
	}
	return series[len(series)-1], nil
}

// Has reports whether a series exists for symbol/interval.
func (c *CandleCache) Has(symbol, interval string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.data[symbol][interval]
	return ok
}

// GetSymbols returns all symbols currently stored.
func (c *CandleCache) GetSymbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	symbols := make([]string, 0, len(c.data))
	for s := range c.data {
		symbols = append(symbols, s)
	}
	return symbols
}

// GetIntervals returns all intervals stored for a symbol.
func (c *CandleCache) GetIntervals(symbol string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bySymbol, ok := c.data[symbol]
	if !ok {
		return nil
	}
	intervals := make([]string, 0, len(bySymbol))
	for iv := range bySymbol {
		intervals = append(intervals, iv)
	}
	return intervals
}

// Clear drops all series and resets the hit/miss counters.
func (c *CandleCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]map[string][]model.Candle)
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats describes cache occupancy and effectiveness.
type Stats struct {
	Symbols      int     `json:"symbols"`
	TotalCandles int     `json:"total_candles"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	HitRate      float64 `json:"hit_rate"` // percent
}

// Stats returns a snapshot of cache statistics.
func (c *CandleCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, bySymbol := range c.data {
		for _, series := range bySymbol {
			total += len(series)
		}
	}

	hits, misses := c.hits.Load(), c.misses.Load()
	rate := 0.0
	if hits+misses > 0 {
		rate = float64(hits) / float64(hits+misses) * 100
	}
	return Stats{
		Symbols:      len(c.data),
		TotalCandles: total,
		Hits:         hits,
		Misses:       misses,
		HitRate:      rate,
	}
}
