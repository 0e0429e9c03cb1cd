package cache

import (
	"errors"
	"sync"
	"testing"

	"screener-core/internal/model"
)

func makeCandles(n int, startTime int64) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		ot := startTime + int64(i)*60000
		candles[i] = model.Candle{
			OpenTime:  ot,
			Open:      100 + float64(i),
			High:      101 + float64(i),
			Low:       99 + float64(i),
			Close:     100.5 + float64(i),
			Volume:    1000,
			CloseTime: ot + 59999,
		}
	}
	return candles
}

func TestSetTruncatesToCapacity(t *testing.T) {
	c := New(50)
	c.Set("BTCUSDT", "5m", makeCandles(80, 0))

	got, err := c.Get("BTCUSDT", "5m", 50)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 50 {
		t.Fatalf("expected 50 candles, got %d", len(got))
	}
	// Must be the LAST 50, still time ordered
	if got[0].OpenTime != 30*60000 {
		t.Errorf("expected first open time %d, got %d", 30*60000, got[0].OpenTime)
	}
	for i := 1; i < len(got); i++ {
		if got[i].OpenTime <= got[i-1].OpenTime {
			t.Fatalf("series not strictly increasing at index %d", i)
		}
	}
}

func TestGetClampsLimit(t *testing.T) {
	c := New(10)
	c.Set("BTCUSDT", "5m", makeCandles(5, 0))

	got, err := c.Get("BTCUSDT", "5m", -3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("negative limit: expected 0 candles, got %d", len(got))
	}

	got, err = c.Get("BTCUSDT", "5m", 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("zero limit: expected 0 candles, got %d", len(got))
	}
}

func TestGetUnknownKey(t *testing.T) {
	c := New(10)
	c.Set("BTCUSDT", "5m", makeCandles(5, 0))

	if _, err := c.Get("ETHUSDT", "5m", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown symbol: expected ErrNotFound, got %v", err)
	}
	if _, err := c.Get("BTCUSDT", "1h", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown interval: expected ErrNotFound, got %v", err)
	}

	stats := c.Stats()
	if stats.Misses != 2 {
		t.Errorf("expected 2 misses, got %d", stats.Misses)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	c := New(10)
	c.Set("BTCUSDT", "5m", makeCandles(5, 0))

	got, _ := c.Get("BTCUSDT", "5m", 5)
	got[0].Close = -1

	again, _ := c.Get("BTCUSDT", "5m", 5)
	if again[0].Close == -1 {
		t.Error("Get must return a copy, not the backing slice")
	}
}

func TestUpdateRevisesFormingCandle(t *testing.T) {
	c := New(10)
	c.Set("BTCUSDT", "5m", makeCandles(5, 0))

	revised := model.Candle{OpenTime: 4 * 60000, Close: 999}
	c.Update("BTCUSDT", "5m", revised)

	got, _ := c.Get("BTCUSDT", "5m", 10)
	if len(got) != 5 {
		t.Fatalf("revision must not change length, got %d", len(got))
	}
	if got[len(got)-1].Close != 999 {
		t.Errorf("expected revised close 999, got %v", got[len(got)-1].Close)
	}
}

func TestUpdateAppendsAndEvicts(t *testing.T) {
	c := New(5)
	c.Set("BTCUSDT", "5m", makeCandles(5, 0))

	c.Update("BTCUSDT", "5m", model.Candle{OpenTime: 5 * 60000, Close: 105.5})

	got, _ := c.Get("BTCUSDT", "5m", 10)
	if len(got) != 5 {
		t.Fatalf("expected capped length 5, got %d", len(got))
	}
	if got[0].OpenTime != 1*60000 {
		t.Errorf("oldest candle not evicted: first open time %d", got[0].OpenTime)
	}
	if got[4].OpenTime != 5*60000 {
		t.Errorf("new candle not appended: last open time %d", got[4].OpenTime)
	}
}

func TestUpdateCreatesSeries(t *testing.T) {
	c := New(5)
	c.Update("SOLUSDT", "1h", model.Candle{OpenTime: 0, Close: 20})

	if !c.Has("SOLUSDT", "1h") {
		t.Fatal("expected series to be created on first update")
	}
	latest, err := c.GetLatest("SOLUSDT", "1h")
	if err != nil {
		t.Fatalf("getLatest: %v", err)
	}
	if latest.Close != 20 {
		t.Errorf("expected close 20, got %v", latest.Close)
	}
}

func TestSymbolsAndIntervals(t *testing.T) {
	c := New(10)
	c.Set("BTCUSDT", "5m", makeCandles(1, 0))
	c.Set("BTCUSDT", "1h", makeCandles(1, 0))
	c.Set("ETHUSDT", "5m", makeCandles(1, 0))

	if n := len(c.GetSymbols()); n != 2 {
		t.Errorf("expected 2 symbols, got %d", n)
	}
	if n := len(c.GetIntervals("BTCUSDT")); n != 2 {
		t.Errorf("expected 2 intervals, got %d", n)
	}
	if ivs := c.GetIntervals("XRPUSDT"); ivs != nil {
		t.Errorf("expected nil intervals for unknown symbol, got %v", ivs)
	}
}

func TestClearResetsEverything(t *testing.T) {
	c := New(10)
	c.Set("BTCUSDT", "5m", makeCandles(5, 0))
	c.Get("BTCUSDT", "5m", 1)
	c.Get("ETHUSDT", "5m", 1)

	c.Clear()

	stats := c.Stats()
	if stats.Symbols != 0 || stats.TotalCandles != 0 || stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("expected zeroed stats after clear, got %+v", stats)
	}
}

func TestStatsHitRate(t *testing.T) {
	c := New(10)
	c.Set("BTCUSDT", "5m", makeCandles(5, 0))

	c.Get("BTCUSDT", "5m", 1) // hit
	c.Get("BTCUSDT", "5m", 1) // hit
	c.Get("BTCUSDT", "1d", 1) // miss
	c.Get("ETHUSDT", "5m", 1) // miss

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 2 {
		t.Fatalf("expected 2/2 hits/misses, got %d/%d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 50.0 {
		t.Errorf("expected hit rate 50, got %v", stats.HitRate)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	c := New(100)
	c.Set("BTCUSDT", "5m", makeCandles(100, 0))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Update("BTCUSDT", "5m", model.Candle{
					OpenTime: int64(100+i) * 60000,
					Close:    float64(i),
				})
			}
		}(w)
	}
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				series, err := c.Get("BTCUSDT", "5m", 50)
				if err != nil {
					t.Errorf("get: %v", err)
					return
				}
				for j := 1; j < len(series); j++ {
					if series[j].OpenTime <= series[j-1].OpenTime {
						t.Error("series out of order under concurrency")
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	got, _ := c.Get("BTCUSDT", "5m", 1000)
	if len(got) != 100 {
		t.Errorf("expected bounded length 100 after concurrent writes, got %d", len(got))
	}
}
