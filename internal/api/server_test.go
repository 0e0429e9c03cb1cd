package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"screener-core/internal/analysis"
	"screener-core/internal/cache"
	"screener-core/internal/model"
	"screener-core/internal/trader"
)

type stubEngine struct {
	queued []*analysis.Request
	err    error
}

func (s *stubEngine) QueueAnalysis(req *analysis.Request) error {
	if s.err != nil {
		return s.err
	}
	if req.SignalID == "" {
		req.SignalID = "sig-stub"
	}
	s.queued = append(s.queued, req)
	return nil
}

func (s *stubEngine) QueueDepth() int    { return len(s.queued) }
func (s *stubEngine) QueueCapacity() int { return 16 }

func newTestServer(t *testing.T) (*Server, *cache.CandleCache, *trader.Registry, *stubEngine) {
	t.Helper()
	c := cache.New(100)
	c.Set("BTCUSDT", "1h", []model.Candle{
		{OpenTime: 1, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10, CloseTime: 2},
		{OpenTime: 2, Open: 100.5, High: 102, Low: 100, Close: 101.5, Volume: 12, CloseTime: 3},
	})
	reg := trader.NewRegistry()
	if err := reg.Register(&model.Trader{ID: "t1", UserID: "u1", Enabled: true, RequiredIntervals: []string{"1h"}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	eng := &stubEngine{}
	srv := NewServer(":0", c, reg, eng, nil)
	return srv, c, reg, eng
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSymbols(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/symbols", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	symbols, ok := body["symbols"].([]any)
	if !ok || len(symbols) != 1 || symbols[0] != "BTCUSDT" {
		t.Fatalf("symbols = %v, want [BTCUSDT]", body["symbols"])
	}
}

func TestKlines(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/klines?symbol=BTCUSDT&interval=1h&limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 2 {
		t.Fatalf("count = %v, want 2", body["count"])
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/klines?symbol=NOPE&interval=1h", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown symbol status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/klines?symbol=BTCUSDT", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing interval status = %d, want 400", rec.Code)
	}
}

func TestTraderLifecycle(t *testing.T) {
	srv, _, reg, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/traders", &model.Trader{
		ID: "t2", UserID: "u2", Enabled: true, RequiredIntervals: []string{"4h"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if reg.Count() != 2 {
		t.Fatalf("registry count = %d, want 2", reg.Count())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/traders", nil)
	body := decodeBody(t, rec)
	if traders := body["traders"].([]any); len(traders) != 2 {
		t.Fatalf("listed %d traders, want 2", len(traders))
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/traders?id=t2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rec.Code)
	}
	if reg.Count() != 1 {
		t.Fatalf("registry count after delete = %d, want 1", reg.Count())
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/traders?id=t2", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/traders", map[string]any{"user_id": "u3"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing-id create status = %d, want 400", rec.Code)
	}
}

func TestSubmitSignal(t *testing.T) {
	srv, _, _, eng := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/signals", map[string]string{
		"trader_id": "t1", "symbol": "BTCUSDT", "interval": "1h",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["signal_id"] != "sig-stub" {
		t.Fatalf("signal_id = %v, want sig-stub", body["signal_id"])
	}
	if len(eng.queued) != 1 || eng.queued[0].TraderID != "t1" || eng.queued[0].UserID != "u1" {
		t.Fatalf("queued request = %+v", eng.queued)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/signals", map[string]string{
		"trader_id": "ghost", "symbol": "BTCUSDT", "interval": "1h",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown trader status = %d, want 404", rec.Code)
	}
}

func TestSubmitSignalQueueFull(t *testing.T) {
	srv, _, _, eng := newTestServer(t)
	eng.err = analysis.ErrQueueFull

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/signals", map[string]string{
		"trader_id": "t1", "symbol": "BTCUSDT", "interval": "1h",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestResultsWithoutStore(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/results?symbol=BTCUSDT", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestStats(t *testing.T) {
	srv, c, _, _ := newTestServer(t)
	if _, err := c.Get("BTCUSDT", "1h", 1); err != nil {
		t.Fatalf("cache get: %v", err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	cacheStats := body["cache"].(map[string]any)
	if cacheStats["total_candles"].(float64) != 2 {
		t.Fatalf("total_candles = %v, want 2", cacheStats["total_candles"])
	}
	queue := body["queue"].(map[string]any)
	if queue["capacity"].(float64) != 16 {
		t.Fatalf("queue capacity = %v, want 16", queue["capacity"])
	}
}
