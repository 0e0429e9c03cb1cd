// Package redis persists analysis results to Redis: a capped stream for
// consumers, a latest-per-symbol key, and a pub/sub fanout for live
// subscribers. Writes go through a circuit breaker with local buffering so a
// Redis outage never blocks the analysis workers.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"screener-core/internal/analysis"
)

const (
	resultStream     = "analysis:results"
	resultStreamMax  = 10000
	defaultLatestTTL = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int

	// Circuit breaker tuning. Zero values take the defaults (5 failures,
	// 10s reset).
	MaxFailures  int
	ResetTimeout time.Duration
}

// Writer publishes analysis results to Redis. Implements analysis.ResultSink.
type Writer struct {
	client *goredis.Client
	cb     *CircuitBreaker
	buffer *resultBuffer
}

// New creates a Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	resetTimeout := cfg.ResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = 10 * time.Second
	}

	w := &Writer{
		client: client,
		cb:     NewCircuitBreaker(maxFailures, resetTimeout),
	}
	w.buffer = newResultBuffer(w, 10000)
	w.cb.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
		if to == StateClosed {
			go w.buffer.flush()
		}
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return w, nil
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// Name identifies this sink in logs and metrics.
func (w *Writer) Name() string { return "redis" }

// Persist writes one result: XADD to the capped results stream, SET the
// latest-per-symbol key, PUBLISH to the symbol channel. When the breaker is
// open the result is buffered and replayed once Redis recovers.
func (w *Writer) Persist(ctx context.Context, res *analysis.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	err = w.cb.Execute(func() error {
		return w.write(ctx, res.Symbol, payload)
	})
	if err != nil {
		w.buffer.add(res.Symbol, payload)
		return err
	}
	return nil
}

func (w *Writer) write(ctx context.Context, symbol string, payload []byte) error {
	data := string(payload)
	pipe := w.client.Pipeline()

	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: resultStream,
		MaxLen: resultStreamMax,
		Approx: true,
		Values: map[string]interface{}{"data": data},
	})
	pipe.Set(ctx, "analysis:latest:"+symbol, data, defaultLatestTTL)
	pipe.Publish(ctx, "pub:analysis:"+symbol, data)

	_, err := pipe.Exec(ctx)
	return err
}

// Flush replays any results buffered while the circuit was open.
func (w *Writer) Flush() error {
	w.buffer.flush()
	return nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
