// Package indicator provides technical indicator calculations over candle
// slices. All functions are pure: they never mutate their input and carry no
// state between calls.
//
// Insufficient history is an expected state, not an error — every function
// returns a nil sentinel (or a zero-filled series) when the input is shorter
// than the required window or the period is non-positive.
package indicator

import "screener-core/internal/model"

// CalculateSMA returns the simple moving average of the last period closes,
// or nil when there is not enough data.
func CalculateSMA(candles []model.Candle, period int) *float64 {
	if len(candles) < period || period <= 0 {
		return nil
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}

	result := sum / float64(period)
	return &result
}

// CalculateSMASeries returns one SMA value per index once the window is full,
// zero-filled before that.
func CalculateSMASeries(candles []model.Candle, period int) []float64 {
	if len(candles) < period || period <= 0 {
		return make([]float64, len(candles))
	}

	results := make([]float64, len(candles))
	for i := period - 1; i < len(candles); i++ {
		sum := 0.0
		for j := 0; j < period; j++ {
			sum += candles[i-j].Close
		}
		results[i] = sum / float64(period)
	}
	return results
}

// CalculateEMA returns the exponential moving average over the whole series,
// seeded with the first close and smoothed with k = 2/(period+1). The
// recurrence runs from the start of the slice, not a trailing window.
func CalculateEMA(candles []model.Candle, period int) *float64 {
	if len(candles) < period || period <= 0 {
		return nil
	}

	k := 2.0 / float64(period+1)
	ema := candles[0].Close
	for i := 1; i < len(candles); i++ {
		ema = candles[i].Close*k + ema*(1-k)
	}
	return &ema
}

// CalculateEMASeries returns the EMA recurrence value at every index.
func CalculateEMASeries(candles []model.Candle, period int) []float64 {
	if len(candles) < period || period <= 0 {
		return make([]float64, len(candles))
	}

	results := make([]float64, len(candles))
	k := 2.0 / float64(period+1)

	results[0] = candles[0].Close
	for i := 1; i < len(candles); i++ {
		results[i] = candles[i].Close*k + results[i-1]*(1-k)
	}
	return results
}

// emaFromValues applies the EMA recurrence to a plain value series, seeding
// with an SMA of the first period values. Used for the MACD signal line.
func emaFromValues(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return make([]float64, len(values))
	}

	result := make([]float64, len(values))
	k := 2.0 / float64(period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	result[period-1] = sum / float64(period)

	for i := period; i < len(values); i++ {
		result[i] = values[i]*k + result[i-1]*(1-k)
	}
	return result
}
