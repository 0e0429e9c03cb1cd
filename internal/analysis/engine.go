// Package analysis orchestrates AI evaluation of trading signals: a bounded
// request queue, a fixed worker pool, and a concurrency gate around the
// reasoning client.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"screener-core/internal/cache"
	"screener-core/internal/metrics"
	"screener-core/internal/model"
	"screener-core/pkg/openrouter"
)

// ErrQueueFull is the backpressure signal returned by QueueAnalysis when the
// queue is at capacity. The producer decides whether to drop or delay.
var ErrQueueFull = errors.New("analysis queue is full")

// ReasoningClient is the external LLM call. Implementations own their
// transport; any returned error is terminal for the request.
type ReasoningClient interface {
	Chat(ctx context.Context, req *openrouter.ChatRequest) (*openrouter.ChatResponse, error)
}

// ResultSink receives completed analysis results. Persistence failures are
// logged by the engine, never retried.
type ResultSink interface {
	Name() string
	Persist(ctx context.Context, res *Result) error
}

// Engine owns the analysis queue and worker pool.
//
// Lifecycle: NewEngine → Start → QueueAnalysis (any number of times) → Stop.
// A stopped engine cannot be restarted; construct a fresh one.
type Engine struct {
	config     *Config
	client     ReasoningClient
	calculator *Calculator
	prompter   *Prompter
	candles    *cache.CandleCache
	sinks      []ResultSink
	metrics    *metrics.Metrics

	queue       chan *Request
	rateLimiter chan struct{} // semaphore capping in-flight reasoning calls
	workerWg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine creates an analysis engine. candles may be nil when every
// request carries its own market-data snapshot; m may be nil to disable
// instrumentation (tests).
func NewEngine(config *Config, client ReasoningClient, candles *cache.CandleCache, sinks []ResultSink, m *metrics.Metrics) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if client == nil {
		return nil, fmt.Errorf("reasoning client is required")
	}
	if config.MaxConcurrent > config.WorkerCount {
		config.MaxConcurrent = config.WorkerCount
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		config:      config,
		client:      client,
		calculator:  NewCalculator(config.DefaultLookback),
		prompter:    NewPrompter(),
		candles:     candles,
		sinks:       sinks,
		metrics:     m,
		queue:       make(chan *Request, config.QueueSize),
		rateLimiter: make(chan struct{}, config.MaxConcurrent),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start launches the worker pool.
func (e *Engine) Start() {
	log.Printf("[engine] starting with %d workers, %d concurrent calls, queue %d",
		e.config.WorkerCount, e.config.MaxConcurrent, e.config.QueueSize)

	for i := 0; i < e.config.WorkerCount; i++ {
		e.workerWg.Add(1)
		go e.worker(i)
	}
}

// Stop signals cancellation, closes the queue, and waits for all workers to
// drain. Queued-but-undispatched requests are dropped. In-flight reasoning
// calls are abandoned at their timeout boundary.
func (e *Engine) Stop() {
	log.Printf("[engine] shutting down...")

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.cancel()
	close(e.queue)
	e.mu.Unlock()

	e.workerWg.Wait()

	// Flush any sink that buffers.
	for _, sink := range e.sinks {
		if f, ok := sink.(interface{ Flush() error }); ok {
			if err := f.Flush(); err != nil {
				log.Printf("[engine] flush sink %s: %v", sink.Name(), err)
			}
		}
	}

	log.Printf("[engine] stopped")
}

// QueueAnalysis enqueues a request without blocking. Returns ErrQueueFull at
// capacity so the producer can apply its own backpressure policy. Requests
// without a signal id get one assigned.
func (e *Engine) QueueAnalysis(req *Request) error {
	if req == nil {
		return fmt.Errorf("analysis request is nil")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stopped {
		return fmt.Errorf("engine is stopped")
	}

	if req.SignalID == "" {
		req.SignalID = uuid.NewString()
	}
	req.QueuedAt = time.Now()

	select {
	case e.queue <- req:
		if e.metrics != nil {
			e.metrics.QueueDepth.Set(float64(len(e.queue)))
		}
		log.Printf("[engine] queued signal %s for %s@%s (queue depth: %d)",
			req.SignalID, req.Symbol, req.Interval, len(e.queue))
		return nil
	default:
		return fmt.Errorf("%w (%d/%d)", ErrQueueFull, len(e.queue), cap(e.queue))
	}
}

// QueueDepth returns the number of requests currently waiting.
func (e *Engine) QueueDepth() int { return len(e.queue) }

// QueueCapacity returns the maximum queue size.
func (e *Engine) QueueCapacity() int { return cap(e.queue) }

// worker pulls requests until the queue is closed or the engine context is
// cancelled. A failing request is logged and never stops the loop.
func (e *Engine) worker(id int) {
	defer e.workerWg.Done()

	for {
		select {
		case <-e.ctx.Done():
			log.Printf("[engine] worker %d stopped (context cancelled)", id)
			return
		case req, ok := <-e.queue:
			if !ok {
				log.Printf("[engine] worker %d stopped (queue closed)", id)
				return
			}
			if e.metrics != nil {
				e.metrics.QueueDepth.Set(float64(len(e.queue)))
			}
			if err := e.processRequest(req); err != nil {
				outcome := "failure"
				if errors.Is(err, context.DeadlineExceeded) {
					outcome = "timeout"
				}
				if e.metrics != nil {
					e.metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
				}
				log.Printf("[engine] worker %d: signal %s (%s@%s): %v",
					id, req.SignalID, req.Symbol, req.Interval, err)
			}
		}
	}
}

// processRequest runs the full pipeline for one request: indicators →
// prompt → gated reasoning call → parse/validate → sinks.
func (e *Engine) processRequest(req *Request) error {
	startTime := time.Now()
	log.Printf("[engine] processing signal %s (queued for %v)",
		req.SignalID, time.Since(req.QueuedAt).Round(time.Millisecond))

	if req.MarketData == nil {
		md, err := e.snapshotMarketData(req)
		if err != nil {
			return fmt.Errorf("snapshot market data: %w", err)
		}
		req.MarketData = md
	}

	indStart := time.Now()
	indicators, err := e.calculator.CalculateIndicators(req)
	if err != nil {
		return fmt.Errorf("calculate indicators: %w", err)
	}
	if e.metrics != nil {
		e.metrics.IndicatorComputeDur.Observe(time.Since(indStart).Seconds())
	}

	var promptStr string
	var systemPrompt string
	if req.IsReanalysis {
		systemPrompt = openrouter.SystemPrompts.MonitoringAnalysis
		promptStr, err = e.prompter.BuildMonitoringPrompt(req, indicators, req.PreviousResult, req.AnalysisCount, req.MaxReanalyses)
	} else {
		systemPrompt = openrouter.SystemPrompts.SignalAnalysis
		promptStr, err = e.prompter.BuildAnalysisPrompt(req, indicators)
	}
	if err != nil {
		return fmt.Errorf("build prompt: %w", err)
	}

	// Gate the reasoning call so CPU-bound indicator math above never waits
	// on I/O capacity.
	select {
	case e.rateLimiter <- struct{}{}:
	case <-e.ctx.Done():
		return e.ctx.Err()
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.config.RequestTimeout)
	resp, err := e.client.Chat(ctx, &openrouter.ChatRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   promptStr,
		Model:        e.config.Model,
		Temperature:  e.config.Temperature,
		MaxTokens:    e.config.MaxTokens,
	})
	cancel()
	<-e.rateLimiter

	if err != nil {
		return fmt.Errorf("reasoning call: %w", err)
	}

	log.Printf("[engine] response for signal %s (latency: %v, tokens: %d)",
		req.SignalID, resp.Latency.Round(time.Millisecond), resp.Usage.TotalTokens)
	if e.metrics != nil {
		e.metrics.TokensTotal.Add(float64(resp.Usage.TotalTokens))
	}

	verdict, err := openrouter.ParseAnalysisResult(resp.Content)
	if err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if err := openrouter.ValidateAndSanitize(verdict); err != nil {
		return fmt.Errorf("validate response: %w", err)
	}

	totalLatency := time.Since(startTime)
	result := &Result{
		AnalysisResult: verdict,
		SignalID:       req.SignalID,
		TraderID:       req.TraderID,
		UserID:         req.UserID,
		Symbol:         req.Symbol,
		Interval:       req.Interval,
		ModelUsed:      resp.Model,
		TokensUsed:     resp.Usage.TotalTokens,
		LatencyMs:      totalLatency.Milliseconds(),
		Indicators:     indicators,
		AnalyzedAt:     time.Now().UTC(),
	}

	for _, sink := range e.sinks {
		if err := sink.Persist(e.ctx, result); err != nil {
			if e.metrics != nil {
				e.metrics.SinkErrorsTotal.WithLabelValues(sink.Name()).Inc()
			}
			log.Printf("[engine] persist to %s for signal %s: %v", sink.Name(), req.SignalID, err)
		}
	}

	if e.metrics != nil {
		e.metrics.AnalysesTotal.WithLabelValues("success").Inc()
		e.metrics.AnalysisDur.Observe(totalLatency.Seconds())
	}
	log.Printf("[engine] completed signal %s: decision=%s confidence=%.2f (total: %v)",
		req.SignalID, verdict.Decision, verdict.Confidence, totalLatency.Round(time.Millisecond))

	return nil
}

// snapshotMarketData builds a market-data snapshot from the candle cache for
// requests that arrive without one (reanalyses dispatched by id). The ticker
// is reconstructed from the primary series.
func (e *Engine) snapshotMarketData(req *Request) (*model.MarketData, error) {
	if e.candles == nil {
		return nil, fmt.Errorf("no market data in request and no candle cache configured")
	}

	intervals := []string{req.Interval}
	if req.Trader != nil {
		for _, iv := range req.Trader.RequiredIntervals {
			if iv != req.Interval {
				intervals = append(intervals, iv)
			}
		}
	}

	series := make(map[string][]model.Candle, len(intervals))
	for _, iv := range intervals {
		candles, err := e.candles.Get(req.Symbol, iv, e.config.DefaultLookback)
		if err != nil {
			if iv == req.Interval {
				return nil, err
			}
			continue // secondary interval missing is tolerable
		}
		series[iv] = candles
	}

	primary := series[req.Interval]
	if len(primary) == 0 {
		return nil, fmt.Errorf("interval %s: %w", req.Interval, ErrMissingData)
	}
	latest := primary[len(primary)-1]
	ticker := &model.Ticker{LastPrice: latest.Close}
	if first := primary[0]; first.Close != 0 {
		ticker.PriceChangePercent = (latest.Close - first.Close) / first.Close * 100
	}

	return &model.MarketData{
		Symbol:    req.Symbol,
		Ticker:    ticker,
		Candles:   series,
		Timestamp: time.Now().UTC(),
	}, nil
}
