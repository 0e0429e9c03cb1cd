package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"screener-core/internal/analysis"
	"screener-core/pkg/openrouter"
)

type recordingNotifier struct {
	alerts []Alert
}

func (r *recordingNotifier) Send(ctx context.Context, alert Alert) error {
	r.alerts = append(r.alerts, alert)
	return nil
}

func enterResult() *analysis.Result {
	entry := 100.0
	stop := 97.0
	tp := 106.0
	rr := 2.0
	return &analysis.Result{
		AnalysisResult: &openrouter.AnalysisResult{
			Decision:        openrouter.DecisionEnter,
			Confidence:      0.85,
			Reasoning:       "breakout with volume",
			EntryPrice:      &entry,
			StopLoss:        &stop,
			TakeProfit1:     &tp,
			RiskRewardRatio: &rr,
			PositionSizePct: 2,
		},
		SignalID: "sig-1",
		Symbol:   "BTCUSDT",
		Interval: "1h",
	}
}

func TestSignalSinkFiresOnEnterOnly(t *testing.T) {
	rec := &recordingNotifier{}
	sink := NewSignalSink(rec)
	ctx := context.Background()

	res := enterResult()
	if err := sink.Persist(ctx, res); err != nil {
		t.Fatalf("persist: %v", err)
	}

	res.Decision = openrouter.DecisionWait
	sink.Persist(ctx, res)
	res.Decision = openrouter.DecisionReject
	sink.Persist(ctx, res)
	sink.Persist(ctx, &analysis.Result{Symbol: "ETHUSDT"}) // no verdict at all

	if len(rec.alerts) != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", len(rec.alerts))
	}

	alert := rec.alerts[0]
	if alert.Level != AlertSignal {
		t.Errorf("level: %s", alert.Level)
	}
	if !strings.Contains(alert.Title, "BTCUSDT@1h") {
		t.Errorf("title: %q", alert.Title)
	}
	for _, want := range []string{"85%", "breakout with volume", "Entry: 100", "Stop: 97", "R/R: 2.00"} {
		if !strings.Contains(alert.Message, want) {
			t.Errorf("message missing %q:\n%s", want, alert.Message)
		}
	}
}

func TestWebhookNotifierSend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Send(context.Background(), Alert{Level: AlertSignal, Title: "t", Message: "m"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["level"] != "SIGNAL" || got["title"] != "t" {
		t.Errorf("payload: %v", got)
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), Alert{Title: "t"}); err == nil {
		t.Error("expected error for non-2xx status")
	}
}
