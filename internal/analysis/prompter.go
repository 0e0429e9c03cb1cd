package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"screener-core/pkg/openrouter"
)

// Prompter renders requests into the text block sent to the reasoning model.
// Pure function of its inputs: same request, same string.
type Prompter struct{}

// NewPrompter creates a prompt builder.
func NewPrompter() *Prompter {
	return &Prompter{}
}

// BuildAnalysisPrompt renders the initial analysis prompt for a signal.
func (p *Prompter) BuildAnalysisPrompt(req *Request, indicators map[string]any) (string, error) {
	strategyDesc := "No strategy description provided"
	if req.Trader != nil && len(req.Trader.Description) > 0 {
		strategyDesc = strings.Join(req.Trader.Description, " ")
	}

	ticker := req.MarketData.Ticker
	if ticker == nil {
		return "", fmt.Errorf("ticker data is nil")
	}

	prompt := fmt.Sprintf(`Analyze this trading signal:

STRATEGY:
%s

SYMBOL: %s
CURRENT PRICE: $%.8f
24H CHANGE: %.2f%%
VOLUME (24H): $%.2f

TECHNICAL INDICATORS:
%s

RECENT PRICE ACTION:
%s

Provide your analysis as JSON following the specified format. Focus on:
1. Whether the setup meets the strategy criteria
2. Risk/reward assessment at current price
3. Key support/resistance levels for stop loss and take profit
4. Overall confidence in this trade setup`,
		strategyDesc,
		req.Symbol,
		ticker.LastPrice,
		ticker.PriceChangePercent,
		ticker.QuoteVolume,
		p.formatIndicators(indicators),
		p.formatRecentCandles(req),
	)

	return prompt, nil
}

// BuildMonitoringPrompt renders the reanalysis prompt: the initial prompt
// plus the previous verdict and the reanalysis counter, so the model can
// reason about drift since the original call.
func (p *Prompter) BuildMonitoringPrompt(req *Request, indicators map[string]any, previous *openrouter.AnalysisResult, analysisCount, maxReanalyses int) (string, error) {
	base, err := p.BuildAnalysisPrompt(req, indicators)
	if err != nil {
		return "", err
	}

	previousStr := "None (first analysis)"
	if previous != nil {
		previousStr = fmt.Sprintf(`Decision: %s
Confidence: %.2f
Reasoning: %s`,
			previous.Decision,
			previous.Confidence,
			previous.Reasoning,
		)
	}

	return fmt.Sprintf(`%s

PREVIOUS ANALYSIS:
%s

REANALYSIS COUNT: %d / %d

Since this signal is being monitored, focus on what has CHANGED:
- Has price action confirmed or contradicted the original signal?
- Have indicators improved or deteriorated?
- Are we approaching maximum reanalysis limit? Be more decisive.
- Should we enter NOW, reject the signal, or continue monitoring?`,
		base,
		previousStr,
		analysisCount,
		maxReanalyses,
	), nil
}

// formatIndicators renders one line per calculated indicator, sorted for
// deterministic output.
func (p *Prompter) formatIndicators(indicators map[string]any) string {
	if len(indicators) == 0 {
		return "  No indicators calculated (trader configuration may be empty)"
	}

	names := make([]string, 0, len(indicators))
	for name := range indicators {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("  %s: %s", name, p.formatIndicatorValue(indicators[name])))
	}
	return strings.Join(lines, "\n")
}

// formatIndicatorValue renders a single indicator value. Compound
// indicators (MACD, Bollinger, Stochastic) show their known sub-fields.
func (p *Prompter) formatIndicatorValue(value any) string {
	switch v := value.(type) {
	case map[string]any:
		return p.formatIndicatorMap(v)
	case float64:
		return fmt.Sprintf("%.4f", v)
	case string:
		if v == "" {
			return "none"
		}
		return v
	case []float64:
		if len(v) > 0 {
			return fmt.Sprintf("%.4f (latest of %d values)", v[len(v)-1], len(v))
		}
		return "[] (empty)"
	default:
		jsonVal, _ := json.Marshal(v)
		return string(jsonVal)
	}
}

// sub-field render order for compound indicators
var indicatorMapKeys = []string{"value", "macd", "signal", "histogram", "upper", "middle", "lower", "k", "d"}

func (p *Prompter) formatIndicatorMap(m map[string]any) string {
	var parts []string
	for _, key := range indicatorMapKeys {
		if val, ok := m[key]; ok {
			if fval, ok := val.(float64); ok {
				parts = append(parts, fmt.Sprintf("%s=%.4f", key, fval))
			}
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}

	jsonVal, _ := json.Marshal(m)
	return string(jsonVal)
}

// formatRecentCandles renders the last 5 candles of the primary interval
// with an up/flat/down glyph per bar.
func (p *Prompter) formatRecentCandles(req *Request) string {
	candles := req.MarketData.Candles[req.Interval]
	if len(candles) == 0 {
		return "  No candle data available"
	}

	count := 5
	if len(candles) < count {
		count = len(candles)
	}
	recent := candles[len(candles)-count:]

	lines := make([]string, 0, count+1)
	lines = append(lines, fmt.Sprintf("  Last %d candles (%s interval):", count, req.Interval))
	for i, c := range recent {
		direction := "→"
		if c.Close > c.Open {
			direction = "↑"
		} else if c.Close < c.Open {
			direction = "↓"
		}
		lines = append(lines, fmt.Sprintf("    [%d] O:%.2f H:%.2f L:%.2f C:%.2f %s V:%.0f",
			i+1, c.Open, c.High, c.Low, c.Close, direction, c.Volume))
	}
	return strings.Join(lines, "\n")
}
