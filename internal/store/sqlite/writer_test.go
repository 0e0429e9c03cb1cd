package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"screener-core/internal/analysis"
	"screener-core/pkg/openrouter"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := New(WriterConfig{DBPath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func testResult(signalID, symbol, decision string, at time.Time) *analysis.Result {
	return &analysis.Result{
		AnalysisResult: &openrouter.AnalysisResult{
			Decision:   decision,
			Confidence: 0.8,
			Reasoning:  "test reasoning",
		},
		SignalID:   signalID,
		TraderID:   "trader-1",
		Symbol:     symbol,
		Interval:   "1h",
		ModelUsed:  "test/model",
		TokensUsed: 100,
		LatencyMs:  1200,
		AnalyzedAt: at,
	}
}

func TestWriterPersistAndReadBack(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, decision := range []string{"wait", "enter", "reject"} {
		res := testResult("sig-a", "BTCUSDT", decision, now.Add(time.Duration(i)*time.Minute))
		if err := w.Persist(ctx, res); err != nil {
			t.Fatalf("persist %d: %v", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	reader := NewReader(w.DB())

	recent, err := reader.GetRecent(ctx, "BTCUSDT", 10)
	if err != nil {
		t.Fatalf("get recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 results, got %d", len(recent))
	}
	if recent[0].Decision != "reject" {
		t.Errorf("expected newest first, got %s", recent[0].Decision)
	}
	if recent[0].Reasoning != "test reasoning" {
		t.Errorf("payload round trip lost reasoning: %q", recent[0].Reasoning)
	}

	history, err := reader.GetBySignalID(ctx, "sig-a")
	if err != nil {
		t.Fatalf("get by signal: %v", err)
	}
	if len(history) != 3 || history[0].Decision != "wait" {
		t.Errorf("expected oldest-first history, got %v", history)
	}
}

func TestWriterUpsertOnSameKey(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	at := time.Now().UTC()
	if err := w.Persist(ctx, testResult("sig-b", "ETHUSDT", "wait", at)); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := w.Persist(ctx, testResult("sig-b", "ETHUSDT", "enter", at)); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	recent, err := NewReader(w.DB()).GetRecent(ctx, "ETHUSDT", 10)
	if err != nil {
		t.Fatalf("get recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("same signal+timestamp should replace, got %d rows", len(recent))
	}
	if recent[0].Decision != "enter" {
		t.Errorf("expected the replacement row, got %s", recent[0].Decision)
	}
}

func TestWriterCountByDecision(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		w.Persist(ctx, testResult("sig-c", "SOLUSDT", "wait", now.Add(time.Duration(i)*time.Second)))
	}
	w.Persist(ctx, testResult("sig-d", "SOLUSDT", "enter", now))
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	counts, err := NewReader(w.DB()).CountByDecision(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["wait"] != 4 || counts["enter"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
