package indicator

import (
	"math"

	"screener-core/internal/model"
)

// BollingerBandsResult holds the three band series, index-aligned with the
// input and zero-filled before the first full window.
type BollingerBandsResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// LatestBollingerBands is the most recent point of a Bollinger calculation.
type LatestBollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// CalculateBollingerBands computes the middle band as SMA(period) and the
// upper/lower bands at ±stdDev population standard deviations of the
// trailing window.
func CalculateBollingerBands(candles []model.Candle, period int, stdDev float64) *BollingerBandsResult {
	if len(candles) < period || period <= 0 {
		return nil
	}

	middle := CalculateSMASeries(candles, period)
	upper := make([]float64, len(candles))
	lower := make([]float64, len(candles))

	for i := period - 1; i < len(candles); i++ {
		sum := 0.0
		for j := 0; j < period; j++ {
			diff := candles[i-j].Close - middle[i]
			sum += diff * diff
		}

		sd := math.Sqrt(sum / float64(period))
		upper[i] = middle[i] + stdDev*sd
		lower[i] = middle[i] - stdDev*sd
	}

	return &BollingerBandsResult{
		Upper:  upper,
		Middle: middle,
		Lower:  lower,
	}
}

// GetLatestBollingerBands returns the last point of the band series, or nil
// when the input is too short.
func GetLatestBollingerBands(candles []model.Candle, period int, stdDev float64) *LatestBollingerBands {
	result := CalculateBollingerBands(candles, period, stdDev)
	if result == nil || len(result.Middle) == 0 {
		return nil
	}

	idx := len(result.Middle) - 1
	return &LatestBollingerBands{
		Upper:  result.Upper[idx],
		Middle: result.Middle[idx],
		Lower:  result.Lower[idx],
	}
}
