package analysis

import (
	"time"

	"screener-core/internal/model"
	"screener-core/pkg/openrouter"
)

// Request is one unit of analysis work. Created by the signal producer,
// consumed exactly once by a worker, dropped after processing.
type Request struct {
	SignalID     string
	TraderID     string
	UserID       string
	Symbol       string
	Interval     string
	MarketData   *model.MarketData
	Trader       *model.Trader
	IsReanalysis bool

	// Monitoring context, set for reanalyses only.
	PreviousResult *openrouter.AnalysisResult
	AnalysisCount  int
	MaxReanalyses  int

	QueuedAt time.Time
}

// Result is the immutable outcome of one analyzed request, handed to the
// configured sinks.
type Result struct {
	*openrouter.AnalysisResult

	SignalID   string
	TraderID   string
	UserID     string
	Symbol     string
	Interval   string
	ModelUsed  string
	TokensUsed int
	LatencyMs  int64
	Indicators map[string]any
	AnalyzedAt time.Time
}

// Config holds analysis engine configuration. Passed in at construction;
// the engine has no global state.
type Config struct {
	QueueSize      int
	WorkerCount    int
	MaxConcurrent  int // concurrent reasoning calls in flight, <= WorkerCount
	RequestTimeout time.Duration

	DefaultLookback int // candles of history handed to indicator math

	Model       string
	Temperature float64
	MaxTokens   int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		QueueSize:       1000,
		WorkerCount:     10,
		MaxConcurrent:   10,
		RequestTimeout:  30 * time.Second,
		DefaultLookback: 100,
		Model:           "google/gemini-2.5-flash",
		Temperature:     0.2,
		MaxTokens:       4000,
	}
}
