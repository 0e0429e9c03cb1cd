// Package api exposes the screener's management HTTP surface: inspect the
// candle cache, manage trader configurations, and submit signals for
// analysis by hand.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"screener-core/internal/analysis"
	"screener-core/internal/cache"
	"screener-core/internal/model"
	sqlitestore "screener-core/internal/store/sqlite"
	"screener-core/internal/trader"
)

// Engine is the part of the analysis engine the API needs.
type Engine interface {
	QueueAnalysis(req *analysis.Request) error
	QueueDepth() int
	QueueCapacity() int
}

// Server is the management HTTP server.
type Server struct {
	cache    *cache.CandleCache
	registry *trader.Registry
	engine   Engine
	results  *sqlitestore.Reader // nil when sqlite is unavailable

	srv *http.Server
}

// NewServer builds the server and its routes.
func NewServer(addr string, candleCache *cache.CandleCache, registry *trader.Registry, engine Engine, results *sqlitestore.Reader) *Server {
	s := &Server{
		cache:    candleCache,
		registry: registry,
		engine:   engine,
		results:  results,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/symbols", s.handleSymbols)
	mux.HandleFunc("/api/v1/klines", s.handleKlines)
	mux.HandleFunc("/api/v1/traders", s.handleTraders)
	mux.HandleFunc("/api/v1/signals", s.handleSignals)
	mux.HandleFunc("/api/v1/results", s.handleResults)
	mux.HandleFunc("/api/v1/stats", s.handleStats)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the route mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[api] listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbols": s.cache.GetSymbols()})
}

func (s *Server) handleKlines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	symbol := r.URL.Query().Get("symbol")
	interval := r.URL.Query().Get("interval")
	if symbol == "" || interval == "" {
		writeError(w, http.StatusBadRequest, "symbol and interval are required")
		return
	}
	limit := queryInt(r, "limit", 100)

	candles, err := s.cache.Get(symbol, interval, limit)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":   symbol,
		"interval": interval,
		"count":    len(candles),
		"candles":  candles,
	})
}

func (s *Server) handleTraders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"traders": s.registry.List()})

	case http.MethodPost:
		var t model.Trader
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			writeError(w, http.StatusBadRequest, "invalid trader JSON: "+err.Error())
			return
		}
		if err := s.registry.Register(&t); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": t.ID})

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := s.registry.Unregister(id); err != nil {
			if errors.Is(err, trader.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSignals queues a manual analysis request. The market snapshot is
// hydrated from the cache by the engine; the caller only names trader,
// symbol, and interval.
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		TraderID string `json:"trader_id"`
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid signal JSON: "+err.Error())
		return
	}
	if body.Symbol == "" || body.Interval == "" {
		writeError(w, http.StatusBadRequest, "symbol and interval are required")
		return
	}

	t, err := s.registry.Get(body.TraderID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	req := &analysis.Request{
		TraderID: t.ID,
		UserID:   t.UserID,
		Symbol:   body.Symbol,
		Interval: body.Interval,
		Trader:   t,
	}
	if err := s.engine.QueueAnalysis(req); err != nil {
		if errors.Is(err, analysis.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"signal_id":   req.SignalID,
		"queue_depth": s.engine.QueueDepth(),
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.results == nil {
		writeError(w, http.StatusServiceUnavailable, "result store not available")
		return
	}

	if signalID := r.URL.Query().Get("signal_id"); signalID != "" {
		results, err := s.results.GetBySignalID(r.Context(), signalID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol or signal_id is required")
		return
	}
	results, err := s.results.GetRecent(r.Context(), symbol, queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats := s.cache.Stats()
	registered, unregistered := s.registry.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"cache": map[string]any{
			"symbols":       stats.Symbols,
			"total_candles": stats.TotalCandles,
			"hits":          stats.Hits,
			"misses":        stats.Misses,
			"hit_rate":      stats.HitRate,
		},
		"queue": map[string]any{
			"depth":    s.engine.QueueDepth(),
			"capacity": s.engine.QueueCapacity(),
		},
		"traders": map[string]any{
			"count":        s.registry.Count(),
			"registered":   registered,
			"unregistered": unregistered,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
