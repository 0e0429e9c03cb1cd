package indicator

import "screener-core/internal/model"

// RSIResult holds the RSI value series. Indices before the first full window
// are zero-filled.
type RSIResult struct {
	Values []float64
}

// CalculateRSI computes the Relative Strength Index with Wilder smoothing:
// the average gain/loss is seeded by an SMA of the first period deltas, then
// updated as avg = (avg*(period-1)+current)/period. When the average loss is
// zero, RSI is 100 if there were gains and 50 on a perfectly flat series.
// Needs period+1 candles for the first value; returns nil below that.
func CalculateRSI(candles []model.Candle, period int) *RSIResult {
	if len(candles) < period+1 || period <= 0 {
		return nil
	}

	gains := 0.0
	losses := 0.0
	for i := 1; i <= period; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	values := make([]float64, len(candles))
	values[period] = rsiFrom(avgGain, avgLoss)

	for i := period + 1; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close

		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		values[i] = rsiFrom(avgGain, avgLoss)
	}

	return &RSIResult{Values: values}
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain > 0 {
			return 100
		}
		return 50
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// LatestRSI returns the most recent computed RSI value, skipping the
// zero-filled warm-up region. Nil when there is not enough data.
func LatestRSI(candles []model.Candle, period int) *float64 {
	result := CalculateRSI(candles, period)
	if result == nil || len(result.Values) == 0 {
		return nil
	}

	for i := len(result.Values) - 1; i >= 0; i-- {
		if result.Values[i] != 0 {
			val := result.Values[i]
			return &val
		}
	}
	return nil
}
