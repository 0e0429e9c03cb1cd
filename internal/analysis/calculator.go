package analysis

import (
	"errors"
	"fmt"
	"log"

	"screener-core/internal/indicator"
	"screener-core/internal/model"
)

// ErrMissingData is returned when the request's primary interval has no
// candles at all. Anything less severe is absorbed per indicator.
var ErrMissingData = errors.New("no market data for interval")

// Calculator maps a trader's configured indicator list onto indicator
// library calls, handling parameter defaults, coercion, and per-indicator
// failure isolation.
type Calculator struct {
	defaultLookback int
}

// NewCalculator creates a Calculator that slices series to defaultLookback
// candles before computing.
func NewCalculator(defaultLookback int) *Calculator {
	return &Calculator{defaultLookback: defaultLookback}
}

// CalculateIndicators computes every indicator the trader config names.
// A failing indicator (unknown name, bad parameter, not enough candles) is
// logged and omitted from the result map — it never fails the request.
// Fails only when the primary interval has zero cached candles.
func (c *Calculator) CalculateIndicators(req *Request) (map[string]any, error) {
	if req.Trader == nil {
		return nil, fmt.Errorf("trader config is nil")
	}

	if len(req.Trader.Indicators) == 0 {
		log.Printf("[calculator] trader %s has no indicators configured", req.TraderID)
		return map[string]any{}, nil
	}

	candles := req.MarketData.Candles[req.Interval]
	if len(candles) == 0 {
		return nil, fmt.Errorf("interval %s: %w", req.Interval, ErrMissingData)
	}

	if len(candles) > c.defaultLookback {
		candles = candles[len(candles)-c.defaultLookback:]
	}

	result := make(map[string]any, len(req.Trader.Indicators))
	for _, cfg := range req.Trader.Indicators {
		value, err := c.calculateIndicator(cfg, candles)
		if err != nil {
			log.Printf("[calculator] %s for signal %s: %v", cfg.Name, req.SignalID, err)
			continue
		}
		result[cfg.Name] = value
	}
	return result, nil
}

func (c *Calculator) calculateIndicator(cfg model.IndicatorConfig, candles []model.Candle) (any, error) {
	switch cfg.Name {
	case "MA", "SMA":
		return c.calculateSMA(cfg, candles)
	case "EMA":
		return c.calculateEMA(cfg, candles)
	case "RSI":
		return c.calculateRSI(cfg, candles)
	case "MACD":
		return c.calculateMACD(cfg, candles)
	case "BollingerBands", "BB":
		return c.calculateBollingerBands(cfg, candles)
	case "VWAP":
		return c.calculateVWAP(candles)
	case "Stochastic":
		return c.calculateStochastic(cfg, candles)
	case "AvgVolume":
		return c.calculateAvgVolume(cfg, candles)
	case "HighestHigh":
		return c.calculateHighestHigh(cfg, candles)
	case "LowestLow":
		return c.calculateLowestLow(cfg, candles)
	case "Engulfing":
		return indicator.DetectEngulfing(candles), nil
	default:
		return nil, fmt.Errorf("unsupported indicator: %s", cfg.Name)
	}
}

func (c *Calculator) calculateSMA(cfg model.IndicatorConfig, candles []model.Candle) (any, error) {
	period, err := cfg.Params.Int("period", 20)
	if err != nil {
		return nil, err
	}

	series := indicator.CalculateSMASeries(candles, period)
	latest := indicator.CalculateSMA(candles, period)
	if latest == nil {
		return nil, fmt.Errorf("insufficient data for SMA(%d)", period)
	}

	return map[string]any{
		"value":  *latest,
		"series": series,
		"period": period,
	}, nil
}

func (c *Calculator) calculateEMA(cfg model.IndicatorConfig, candles []model.Candle) (any, error) {
	period, err := cfg.Params.Int("period", 20)
	if err != nil {
		return nil, err
	}

	latest := indicator.CalculateEMA(candles, period)
	if latest == nil {
		return nil, fmt.Errorf("insufficient data for EMA(%d)", period)
	}

	return map[string]any{
		"value":  *latest,
		"series": indicator.CalculateEMASeries(candles, period),
		"period": period,
	}, nil
}

func (c *Calculator) calculateRSI(cfg model.IndicatorConfig, candles []model.Candle) (any, error) {
	period, err := cfg.Params.Int("period", 14)
	if err != nil {
		return nil, err
	}

	result := indicator.CalculateRSI(candles, period)
	if result == nil || len(result.Values) == 0 {
		return nil, fmt.Errorf("insufficient data for RSI(%d)", period)
	}

	return map[string]any{
		"value":  result.Values[len(result.Values)-1],
		"series": result.Values,
		"period": period,
	}, nil
}

func (c *Calculator) calculateMACD(cfg model.IndicatorConfig, candles []model.Candle) (any, error) {
	shortPeriod, err := cfg.Params.Int("shortPeriod", 12)
	if err != nil {
		return nil, err
	}
	longPeriod, err := cfg.Params.Int("longPeriod", 26)
	if err != nil {
		return nil, err
	}
	signalPeriod, err := cfg.Params.Int("signalPeriod", 9)
	if err != nil {
		return nil, err
	}

	result := indicator.CalculateMACD(candles, shortPeriod, longPeriod, signalPeriod)
	if result == nil || len(result.MACD) == 0 {
		return nil, fmt.Errorf("insufficient data for MACD(%d,%d,%d)", shortPeriod, longPeriod, signalPeriod)
	}

	last := len(result.MACD) - 1
	return map[string]any{
		"macd":      result.MACD[last],
		"signal":    result.Signal[last],
		"histogram": result.Histogram[last],
	}, nil
}

func (c *Calculator) calculateBollingerBands(cfg model.IndicatorConfig, candles []model.Candle) (any, error) {
	period, err := cfg.Params.Int("period", 20)
	if err != nil {
		return nil, err
	}
	stdDev, err := cfg.Params.Float("stdDev", 2.0)
	if err != nil {
		return nil, err
	}

	latest := indicator.GetLatestBollingerBands(candles, period, stdDev)
	if latest == nil {
		return nil, fmt.Errorf("insufficient data for BB(%d,%.1f)", period, stdDev)
	}

	return map[string]any{
		"upper":  latest.Upper,
		"middle": latest.Middle,
		"lower":  latest.Lower,
		"period": period,
		"stdDev": stdDev,
	}, nil
}

func (c *Calculator) calculateVWAP(candles []model.Candle) (any, error) {
	vwap := indicator.CalculateVWAP(candles)
	if vwap == 0 {
		return nil, fmt.Errorf("failed to calculate VWAP")
	}
	return map[string]any{"value": vwap}, nil
}

func (c *Calculator) calculateStochastic(cfg model.IndicatorConfig, candles []model.Candle) (any, error) {
	kPeriod, err := cfg.Params.Int("kPeriod", 14)
	if err != nil {
		return nil, err
	}
	dPeriod, err := cfg.Params.Int("dPeriod", 3)
	if err != nil {
		return nil, err
	}

	result := indicator.CalculateStochastic(candles, kPeriod, dPeriod)
	if result == nil {
		return nil, fmt.Errorf("insufficient data for Stochastic(%d,%d)", kPeriod, dPeriod)
	}

	return map[string]any{
		"k": result.K,
		"d": result.D,
	}, nil
}

func (c *Calculator) calculateAvgVolume(cfg model.IndicatorConfig, candles []model.Candle) (any, error) {
	period, err := cfg.Params.Int("period", 20)
	if err != nil {
		return nil, err
	}
	avg := indicator.CalculateAvgVolume(candles, period)
	if avg == nil {
		return nil, fmt.Errorf("insufficient data for AvgVolume(%d)", period)
	}
	return map[string]any{"value": *avg, "period": period}, nil
}

func (c *Calculator) calculateHighestHigh(cfg model.IndicatorConfig, candles []model.Candle) (any, error) {
	period, err := cfg.Params.Int("period", 20)
	if err != nil {
		return nil, err
	}
	hh := indicator.HighestHigh(candles, period)
	if hh == nil {
		return nil, fmt.Errorf("insufficient data for HighestHigh(%d)", period)
	}
	return map[string]any{"value": *hh, "period": period}, nil
}

func (c *Calculator) calculateLowestLow(cfg model.IndicatorConfig, candles []model.Candle) (any, error) {
	period, err := cfg.Params.Int("period", 20)
	if err != nil {
		return nil, err
	}
	ll := indicator.LowestLow(candles, period)
	if ll == nil {
		return nil, fmt.Errorf("insufficient data for LowestLow(%d)", period)
	}
	return map[string]any{"value": *ll, "period": period}, nil
}
