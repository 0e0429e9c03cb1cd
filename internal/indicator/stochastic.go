package indicator

import "screener-core/internal/model"

// StochasticResult holds the latest %K and %D values.
type StochasticResult struct {
	K float64
	D float64
}

// CalculateStochastic computes the stochastic oscillator over the trailing
// kPeriod candles: %K = (close − lowestLow)/(highestHigh − lowestLow) × 100,
// falling back to 50 when the window has zero range.
//
// %D is a simplified damped value (%K × 0.9), NOT a dPeriod moving average
// of %K. This is a known, intentional simplification kept for signal
// compatibility — changing the formula changes observable behavior for every
// strategy that keys off %D.
func CalculateStochastic(candles []model.Candle, kPeriod, dPeriod int) *StochasticResult {
	if len(candles) < kPeriod || kPeriod <= 0 {
		return nil
	}

	highestHigh := candles[len(candles)-kPeriod].High
	lowestLow := candles[len(candles)-kPeriod].Low
	for i := len(candles) - kPeriod + 1; i < len(candles); i++ {
		if candles[i].High > highestHigh {
			highestHigh = candles[i].High
		}
		if candles[i].Low < lowestLow {
			lowestLow = candles[i].Low
		}
	}

	currentClose := candles[len(candles)-1].Close

	var kValue float64
	if highestHigh > lowestLow {
		kValue = (currentClose - lowestLow) / (highestHigh - lowestLow) * 100
	} else {
		kValue = 50
	}

	return &StochasticResult{
		K: kValue,
		D: kValue * 0.9,
	}
}
