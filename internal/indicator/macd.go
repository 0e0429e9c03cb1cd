package indicator

import "screener-core/internal/model"

// MACDResult holds the three MACD series, index-aligned with the input.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// LatestMACD is the most recent point of a MACD calculation.
type LatestMACD struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// CalculateMACD computes MACD = EMA(short) − EMA(long) over the full series,
// the signal line as an EMA of the MACD series (seeded by an SMA of its first
// signalPeriod values), and histogram = MACD − signal at every index.
func CalculateMACD(candles []model.Candle, shortPeriod, longPeriod, signalPeriod int) *MACDResult {
	if len(candles) < longPeriod || shortPeriod <= 0 || longPeriod <= 0 || signalPeriod <= 0 {
		return nil
	}

	shortEMA := CalculateEMASeries(candles, shortPeriod)
	longEMA := CalculateEMASeries(candles, longPeriod)

	macdLine := make([]float64, len(candles))
	for i := range candles {
		macdLine[i] = shortEMA[i] - longEMA[i]
	}

	signalLine := emaFromValues(macdLine, signalPeriod)

	histogram := make([]float64, len(candles))
	for i := range candles {
		histogram[i] = macdLine[i] - signalLine[i]
	}

	return &MACDResult{
		MACD:      macdLine,
		Signal:    signalLine,
		Histogram: histogram,
	}
}

// GetLatestMACD returns the last point of the MACD series, or nil when the
// input is too short.
func GetLatestMACD(candles []model.Candle, shortPeriod, longPeriod, signalPeriod int) *LatestMACD {
	result := CalculateMACD(candles, shortPeriod, longPeriod, signalPeriod)
	if result == nil || len(result.MACD) == 0 {
		return nil
	}

	idx := len(result.MACD) - 1
	return &LatestMACD{
		MACD:      result.MACD[idx],
		Signal:    result.Signal[idx],
		Histogram: result.Histogram[idx],
	}
}
