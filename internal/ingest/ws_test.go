package ingest

import (
	"testing"

	"screener-core/internal/cache"
)

const closedKlineMsg = `{
  "stream": "btcusdt@kline_1m",
  "data": {
    "e": "kline",
    "E": 1700000059999,
    "s": "BTCUSDT",
    "k": {
      "t": 1700000000000,
      "T": 1700000059999,
      "s": "BTCUSDT",
      "i": "1m",
      "o": "37000.10",
      "c": "37050.55",
      "h": "37060.00",
      "l": "36990.00",
      "v": "123.45",
      "x": true
    }
  }
}`

func newTestStream() *Stream {
	return NewStream(StreamConfig{
		WSURL:     "wss://example.invalid",
		Symbols:   []string{"BTCUSDT"},
		Intervals: []string{"1m"},
	}, cache.New(100), nil, nil)
}

func TestHandleKlineEventClosedCandle(t *testing.T) {
	s := newTestStream()

	if err := s.handleKlineEvent([]byte(closedKlineMsg)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candle, err := s.cache.GetLatest("BTCUSDT", "1m")
	if err != nil {
		t.Fatalf("candle not cached: %v", err)
	}
	if candle.OpenTime != 1700000000000 {
		t.Errorf("open time: got %d", candle.OpenTime)
	}
	if candle.Open != 37000.10 || candle.Close != 37050.55 {
		t.Errorf("prices: got O=%.2f C=%.2f", candle.Open, candle.Close)
	}
	if candle.Volume != 123.45 {
		t.Errorf("volume: got %.2f", candle.Volume)
	}
}

func TestHandleKlineEventSkipsForming(t *testing.T) {
	s := newTestStream()

	forming := []byte(`{"stream":"btcusdt@kline_1m","data":{"e":"kline","s":"BTCUSDT","k":{"t":1700000000000,"T":1700000059999,"i":"1m","o":"1","c":"2","h":"3","l":"0.5","v":"10","x":false}}}`)
	if err := s.handleKlineEvent(forming); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.cache.Has("BTCUSDT", "1m") {
		t.Error("forming candle must not enter the cache")
	}
}

func TestHandleKlineEventDeduplicates(t *testing.T) {
	s := newTestStream()

	for i := 0; i < 3; i++ {
		if err := s.handleKlineEvent([]byte(closedKlineMsg)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	candles, err := s.cache.Get("BTCUSDT", "1m", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 1 {
		t.Errorf("replayed close must be deduplicated, got %d candles", len(candles))
	}
}

func TestHandleKlineEventCandleCloseHook(t *testing.T) {
	s := newTestStream()

	var fired int
	s.OnCandleClose = func(symbol, interval string) {
		if symbol != "BTCUSDT" || interval != "1m" {
			t.Errorf("hook args: %s %s", symbol, interval)
		}
		fired++
	}

	s.handleKlineEvent([]byte(closedKlineMsg))
	s.handleKlineEvent([]byte(closedKlineMsg)) // duplicate, no hook
	if fired != 1 {
		t.Errorf("expected hook fired once, got %d", fired)
	}
}

func TestHandleKlineEventBadPayload(t *testing.T) {
	s := newTestStream()

	if err := s.handleKlineEvent([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
	bad := []byte(`{"stream":"x","data":{"e":"kline","s":"BTCUSDT","k":{"i":"1m","o":"abc","c":"1","h":"1","l":"1","v":"1","x":true}}}`)
	if err := s.handleKlineEvent(bad); err == nil {
		t.Error("expected error for non-numeric price")
	}
}

func TestParseRESTKline(t *testing.T) {
	row := []any{
		1700000000000.0, "100.5", "101.0", "99.5", "100.8", "250.25",
		1700000059999.0, "25000.0", 150.0, "125.0", "12500.0", "0",
	}

	candle, err := parseRESTKline(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candle.OpenTime != 1700000000000 || candle.CloseTime != 1700000059999 {
		t.Errorf("times: %v", candle)
	}
	if candle.High != 101.0 || candle.Low != 99.5 || candle.Volume != 250.25 {
		t.Errorf("fields: %v", candle)
	}

	if _, err := parseRESTKline([]any{1.0, "1"}); err == nil {
		t.Error("expected error for short row")
	}
	row[4] = "not-a-number"
	if _, err := parseRESTKline(row); err == nil {
		t.Error("expected error for bad price")
	}
}
