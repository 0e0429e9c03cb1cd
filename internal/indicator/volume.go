package indicator

import "screener-core/internal/model"

// CalculateAvgVolume returns the mean volume of the last period candles.
func CalculateAvgVolume(candles []model.Candle, period int) *float64 {
	if len(candles) < period || period <= 0 {
		return nil
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Volume
	}

	result := sum / float64(period)
	return &result
}

// HighestHigh returns the maximum high over the trailing period candles.
func HighestHigh(candles []model.Candle, period int) *float64 {
	if len(candles) < period || period <= 0 {
		return nil
	}

	highest := candles[len(candles)-period].High
	for i := len(candles) - period + 1; i < len(candles); i++ {
		if candles[i].High > highest {
			highest = candles[i].High
		}
	}
	return &highest
}

// LowestLow returns the minimum low over the trailing period candles.
func LowestLow(candles []model.Candle, period int) *float64 {
	if len(candles) < period || period <= 0 {
		return nil
	}

	lowest := candles[len(candles)-period].Low
	for i := len(candles) - period + 1; i < len(candles); i++ {
		if candles[i].Low < lowest {
			lowest = candles[i].Low
		}
	}
	return &lowest
}

// CalculateVWAP computes the volume-weighted average price over the entire
// supplied slice (not a trailing window), with typical price (H+L+C)/3.
// An empty slice or zero total volume yields 0.
func CalculateVWAP(candles []model.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}

	cumulativeTPV := 0.0
	cumulativeVolume := 0.0
	for _, c := range candles {
		typicalPrice := (c.High + c.Low + c.Close) / 3
		cumulativeTPV += typicalPrice * c.Volume
		cumulativeVolume += c.Volume
	}

	if cumulativeVolume == 0 {
		return 0
	}
	return cumulativeTPV / cumulativeVolume
}
