package redis

import (
	"context"
	"log"
	"sync"
	"time"
)

// pendingResult is an encoded result held back during a Redis outage.
type pendingResult struct {
	symbol  string
	payload []byte
}

// resultBuffer holds results the breaker rejected, oldest dropped first when
// full, and replays them when the circuit closes.
type resultBuffer struct {
	writer *Writer

	mu      sync.Mutex
	pending []pendingResult
	maxBuf  int
	dropped int
}

func newResultBuffer(w *Writer, maxBuf int) *resultBuffer {
	if maxBuf <= 0 {
		maxBuf = 10000
	}
	return &resultBuffer{
		writer:  w,
		pending: make([]pendingResult, 0, 64),
		maxBuf:  maxBuf,
	}
}

func (b *resultBuffer) add(symbol string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) >= b.maxBuf {
		b.pending = b.pending[1:]
		b.dropped++
		if b.dropped%1000 == 1 {
			log.Printf("[redis] buffer full, dropped %d results so far", b.dropped)
		}
	}
	b.pending = append(b.pending, pendingResult{symbol: symbol, payload: payload})
}

// flush replays buffered results in arrival order. Stops at the first write
// failure and keeps the remainder for the next attempt.
func (b *resultBuffer) flush() {
	b.mu.Lock()
	batch := b.pending
	b.pending = make([]pendingResult, 0, 64)
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	log.Printf("[redis] flushing %d buffered results", len(batch))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i, p := range batch {
		if err := b.writer.write(ctx, p.symbol, p.payload); err != nil {
			log.Printf("[redis] flush stopped at %d/%d: %v", i, len(batch), err)
			b.mu.Lock()
			b.pending = append(batch[i:], b.pending...)
			b.mu.Unlock()
			return
		}
	}
	log.Printf("[redis] flushed %d buffered results", len(batch))
}
