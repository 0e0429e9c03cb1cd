package openrouter

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrValidation marks a structurally or semantically invalid analysis
// response. Matched by callers via errors.Is.
var ErrValidation = errors.New("invalid analysis result")

var (
	jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")
)

// ParseAnalysisResult parses model output into an AnalysisResult. Models
// regularly wrap the JSON in markdown fences or surrounding prose, so the
// JSON payload is extracted first.
func ParseAnalysisResult(content string) (*AnalysisResult, error) {
	jsonStr := extractJSON(content)

	var result AnalysisResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("%w: parse JSON: %v (content: %s)", ErrValidation, err, truncate([]byte(jsonStr), 200))
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}

// extractJSON pulls a JSON object out of markdown fences or surrounding
// text, or returns the content unchanged when it already looks like JSON.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if matches := jsonBlockRegex.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	if strings.HasPrefix(content, "{") && strings.HasSuffix(content, "}") {
		return content
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end > start {
		return content[start : end+1]
	}

	return content
}

// ValidateAndSanitize applies the business rules for a tradeable verdict on
// top of structural validation: confidence is clamped into [0,1] first, and
// enter decisions must carry coherent long-side risk parameters.
func ValidateAndSanitize(result *AnalysisResult) error {
	if result.Confidence > 1.0 {
		result.Confidence = 1.0
	}
	if result.Confidence < 0.0 {
		result.Confidence = 0.0
	}

	if err := result.Validate(); err != nil {
		return err
	}

	if !result.ShouldEnterTrade() {
		return nil
	}

	if result.StopLoss != nil && result.EntryPrice != nil {
		if *result.StopLoss >= *result.EntryPrice {
			return fmt.Errorf("%w: stop loss (%.8f) must be below entry price (%.8f)",
				ErrValidation, *result.StopLoss, *result.EntryPrice)
		}
		stopLossPct := (*result.EntryPrice - *result.StopLoss) / *result.EntryPrice * 100
		if stopLossPct > 10 {
			return fmt.Errorf("%w: stop loss too wide (%.2f%%), maximum 10%%", ErrValidation, stopLossPct)
		}
	}

	if result.TakeProfit1 != nil && result.EntryPrice != nil {
		if *result.TakeProfit1 <= *result.EntryPrice {
			return fmt.Errorf("%w: take profit 1 (%.8f) must be above entry price (%.8f)",
				ErrValidation, *result.TakeProfit1, *result.EntryPrice)
		}
	}
	if result.TakeProfit2 != nil && result.TakeProfit1 != nil {
		if *result.TakeProfit2 <= *result.TakeProfit1 {
			return fmt.Errorf("%w: take profit 2 (%.8f) must be above take profit 1 (%.8f)",
				ErrValidation, *result.TakeProfit2, *result.TakeProfit1)
		}
	}

	if result.RiskRewardRatio != nil && *result.RiskRewardRatio < 1.0 {
		return fmt.Errorf("%w: risk/reward ratio too low (%.2f), minimum 1.0", ErrValidation, *result.RiskRewardRatio)
	}

	// Position size caps are sanitized rather than rejected.
	if result.PositionSizePct > 10 {
		result.PositionSizePct = 10
	}
	if result.PositionSizePct < 0.1 {
		result.PositionSizePct = 0.1
	}

	return nil
}
