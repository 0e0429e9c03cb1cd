package openrouter

import "fmt"

// AnalysisResult is the structured verdict the model must return.
type AnalysisResult struct {
	Decision        string   `json:"decision"` // "enter", "reject", "wait", "continue_monitoring"
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
	EntryPrice      *float64 `json:"entry_price"`
	StopLoss        *float64 `json:"stop_loss"`
	TakeProfit1     *float64 `json:"take_profit_1"`
	TakeProfit2     *float64 `json:"take_profit_2"`
	PositionSizePct float64  `json:"position_size_pct"`
	RiskRewardRatio *float64 `json:"risk_reward_ratio"`
	Timeframe       string   `json:"timeframe"`
	ChangesObserved string   `json:"changes_observed,omitempty"` // monitoring reanalyses only
}

// Decision values.
const (
	DecisionEnter              = "enter"
	DecisionReject             = "reject"
	DecisionWait               = "wait"
	DecisionContinueMonitoring = "continue_monitoring"
)

// IsValidDecision reports whether decision is one of the known values.
func IsValidDecision(decision string) bool {
	switch decision {
	case DecisionEnter, DecisionReject, DecisionWait, DecisionContinueMonitoring:
		return true
	default:
		return false
	}
}

// ShouldEnterTrade reports whether the verdict recommends entering now.
func (r *AnalysisResult) ShouldEnterTrade() bool {
	return r.Decision == DecisionEnter
}

// ShouldMonitor reports whether the verdict asks to keep watching the signal.
func (r *AnalysisResult) ShouldMonitor() bool {
	return r.Decision == DecisionWait || r.Decision == DecisionContinueMonitoring
}

// Validate checks structural validity of the result.
func (r *AnalysisResult) Validate() error {
	if !IsValidDecision(r.Decision) {
		return fmt.Errorf("%w: invalid decision %q", ErrValidation, r.Decision)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be within [0,1], got %.2f", ErrValidation, r.Confidence)
	}
	if r.Reasoning == "" {
		return fmt.Errorf("%w: reasoning cannot be empty", ErrValidation)
	}

	if r.ShouldEnterTrade() {
		if r.EntryPrice == nil || *r.EntryPrice <= 0 {
			return fmt.Errorf("%w: entry_price required for %q decision", ErrValidation, DecisionEnter)
		}
		if r.StopLoss == nil || *r.StopLoss <= 0 {
			return fmt.Errorf("%w: stop_loss required for %q decision", ErrValidation, DecisionEnter)
		}
		if r.PositionSizePct <= 0 || r.PositionSizePct > 100 {
			return fmt.Errorf("%w: position_size_pct must be within (0,100], got %.2f", ErrValidation, r.PositionSizePct)
		}
	}
	return nil
}
