// Package notification delivers trade-signal alerts to external channels
// (Telegram, webhooks). A SignalSink adapter plugs notifiers into the
// analysis engine so entry signals fan out as they are produced.
package notification

import (
	"context"
	"fmt"
	"log"

	"screener-core/internal/analysis"
	"screener-core/pkg/openrouter"
)

// AlertLevel is the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertSignal   AlertLevel = "SIGNAL"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert is one notification to deliver.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is a delivery backend.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the process log. Used in development and as
// a fallback when no channel is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// SignalSink adapts notifiers into an analysis.ResultSink. Only enter
// decisions produce alerts; everything else passes through silently.
type SignalSink struct {
	notifiers []Notifier
}

// NewSignalSink wraps the given notifiers.
func NewSignalSink(notifiers ...Notifier) *SignalSink {
	return &SignalSink{notifiers: notifiers}
}

// Name identifies this sink in logs and metrics.
func (s *SignalSink) Name() string { return "notify" }

// Persist sends an alert for enter decisions. A failing notifier is logged
// and does not block the others.
func (s *SignalSink) Persist(ctx context.Context, res *analysis.Result) error {
	if res.AnalysisResult == nil || !res.ShouldEnterTrade() {
		return nil
	}

	alert := formatEntryAlert(res)
	var firstErr error
	for _, n := range s.notifiers {
		if err := n.Send(ctx, alert); err != nil {
			log.Printf("[notify] send failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func formatEntryAlert(res *analysis.Result) Alert {
	msg := fmt.Sprintf("Confidence: %.0f%%\n%s", res.Confidence*100, res.Reasoning)
	if res.EntryPrice != nil {
		msg += fmt.Sprintf("\nEntry: %.8f", *res.EntryPrice)
	}
	if res.StopLoss != nil {
		msg += fmt.Sprintf("\nStop: %.8f", *res.StopLoss)
	}
	if res.TakeProfit1 != nil {
		msg += fmt.Sprintf("\nTP1: %.8f", *res.TakeProfit1)
	}
	if res.RiskRewardRatio != nil {
		msg += fmt.Sprintf("\nR/R: %.2f", *res.RiskRewardRatio)
	}

	return Alert{
		Level:   AlertSignal,
		Title:   fmt.Sprintf("%s %s@%s", openrouter.DecisionEnter, res.Symbol, res.Interval),
		Message: msg,
	}
}
