package indicator

import (
	"testing"

	"screener-core/internal/model"
)

func candle(open, close float64) model.Candle {
	high, low := open, close
	if close > high {
		high = close
	}
	if open < low {
		low = open
	}
	return model.Candle{Open: open, High: high, Low: low, Close: close, Volume: 1}
}

func TestDetectEngulfingBullish(t *testing.T) {
	// bearish 105→100, then bullish 99→107 engulfing it, then a forming bar.
	series := []model.Candle{
		candle(105, 100),
		candle(99, 107),
		candle(107, 108), // still forming, must be ignored
	}
	if got := DetectEngulfing(series); got != EngulfingBullish {
		t.Errorf("expected bullish, got %q", got)
	}
}

func TestDetectEngulfingBearish(t *testing.T) {
	series := []model.Candle{
		candle(100, 105),
		candle(106, 99),
		candle(99, 99),
	}
	if got := DetectEngulfing(series); got != EngulfingBearish {
		t.Errorf("expected bearish, got %q", got)
	}
}

func TestDetectEngulfingNone(t *testing.T) {
	// Bodies do not overlap enough: 99→101 does not engulf 105→100.
	series := []model.Candle{
		candle(105, 100),
		candle(99, 101),
		candle(101, 102),
	}
	if got := DetectEngulfing(series); got != EngulfingNone {
		t.Errorf("expected none, got %q", got)
	}

	// Same-direction candles never engulf.
	series = []model.Candle{
		candle(100, 105),
		candle(105, 110),
		candle(110, 111),
	}
	if got := DetectEngulfing(series); got != EngulfingNone {
		t.Errorf("same direction: expected none, got %q", got)
	}
}

func TestDetectEngulfingTooShort(t *testing.T) {
	series := []model.Candle{candle(100, 105), candle(105, 99)}
	if got := DetectEngulfing(series); got != EngulfingNone {
		t.Errorf("expected none for 2 candles, got %q", got)
	}
}
