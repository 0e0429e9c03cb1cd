package indicator

import "screener-core/internal/model"

// Engulfing classifications returned by DetectEngulfing.
const (
	EngulfingBullish = "bullish"
	EngulfingBearish = "bearish"
	EngulfingNone    = ""
)

// DetectEngulfing classifies the engulfing pattern of the two most recent
// CLOSED candles. The last slice element is assumed to be the still-forming
// bar and is excluded, so at least 3 candles are required.
//
// Bullish: a bearish candle fully engulfed by the following bullish body.
// Bearish is the mirror case.
func DetectEngulfing(candles []model.Candle) string {
	if len(candles) < 3 {
		return EngulfingNone
	}

	current := candles[len(candles)-2]
	prev := candles[len(candles)-3]

	if prev.IsBearish() && current.IsBullish() {
		if current.Open < prev.Close && current.Close > prev.Open {
			return EngulfingBullish
		}
	}

	if prev.IsBullish() && current.IsBearish() {
		if current.Open > prev.Close && current.Close < prev.Open {
			return EngulfingBearish
		}
	}

	return EngulfingNone
}
