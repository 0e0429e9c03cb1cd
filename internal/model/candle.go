package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV bar for a symbol at a fixed interval.
// OpenTime and CloseTime are epoch milliseconds, matching the exchange wire
// format. A closed candle is immutable; the most recent candle of a live
// interval may still be forming and is revised in place by the ingester.
type Candle struct {
	OpenTime  int64   `json:"openTime"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"closeTime"`
}

// IsBullish reports whether the candle closed above its open.
func (c *Candle) IsBullish() bool { return c.Close > c.Open }

// IsBearish reports whether the candle closed below its open.
func (c *Candle) IsBearish() bool { return c.Close < c.Open }

// OpenedAt returns the candle open time as a UTC time.Time.
func (c *Candle) OpenedAt() time.Time {
	return time.Unix(0, c.OpenTime*int64(time.Millisecond)).UTC()
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
