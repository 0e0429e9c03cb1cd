package model

import "time"

// Ticker carries the current market snapshot for a symbol, already parsed
// to numbers by the ingester.
type Ticker struct {
	LastPrice          float64 `json:"lastPrice"`
	PriceChangePercent float64 `json:"priceChangePercent"`
	QuoteVolume        float64 `json:"quoteVolume"`
}

// MarketData is the snapshot a signal carries into analysis: the ticker plus
// per-interval candle slices captured at signal time. Keys of Candles are
// interval strings such as "5m" or "1h".
type MarketData struct {
	Symbol    string              `json:"symbol"`
	Ticker    *Ticker             `json:"ticker"`
	Candles   map[string][]Candle `json:"candles"`
	Timestamp time.Time           `json:"timestamp"`
}
