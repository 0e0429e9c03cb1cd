// Package ingest feeds the candle cache from Binance: a REST client for the
// historical bootstrap and a kline WebSocket stream for live updates.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"screener-core/internal/model"
)

// RESTClient calls the Binance spot REST API.
type RESTClient struct {
	apiURL     string
	httpClient *http.Client
}

// NewRESTClient creates a Binance REST client. apiURL is the base, e.g.
// https://api.binance.com.
func NewRESTClient(apiURL string) *RESTClient {
	return &RESTClient{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetTopSymbols returns the top count USDT spot pairs by 24h quote volume,
// skipping leveraged tokens and anything below minVolume.
func (c *RESTClient) GetTopSymbols(ctx context.Context, count int, minVolume float64) ([]string, error) {
	var tickers []struct {
		Symbol      string `json:"symbol"`
		QuoteVolume string `json:"quoteVolume"`
	}
	if err := c.getJSON(ctx, "/api/v3/ticker/24hr", &tickers); err != nil {
		return nil, err
	}

	type symbolVolume struct {
		symbol string
		volume float64
	}
	filtered := make([]symbolVolume, 0, count)
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, "USDT") || strings.Contains(t.Symbol, "_") {
			continue
		}
		// Leveraged tokens track the pair but not the market.
		if strings.Contains(t.Symbol, "UP") || strings.Contains(t.Symbol, "DOWN") ||
			strings.Contains(t.Symbol, "BEAR") || strings.Contains(t.Symbol, "BULL") {
			continue
		}
		vol, err := strconv.ParseFloat(t.QuoteVolume, 64)
		if err != nil || vol <= minVolume {
			continue
		}
		filtered = append(filtered, symbolVolume{t.Symbol, vol})
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].volume > filtered[j].volume })
	if len(filtered) > count {
		filtered = filtered[:count]
	}

	symbols := make([]string, len(filtered))
	for i, sv := range filtered {
		symbols[i] = sv.symbol
	}
	return symbols, nil
}

// GetKlines fetches up to limit historical candles for symbol/interval.
func (c *RESTClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	path := fmt.Sprintf("/api/v3/klines?symbol=%s&interval=%s&limit=%d", symbol, interval, limit)

	var raw [][]any
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, len(raw))
	for i, row := range raw {
		candle, err := parseRESTKline(row)
		if err != nil {
			return nil, fmt.Errorf("kline %d for %s@%s: %w", i, symbol, interval, err)
		}
		candles[i] = candle
	}
	return candles, nil
}

// GetTicker fetches the 24h ticker for one symbol.
func (c *RESTClient) GetTicker(ctx context.Context, symbol string) (*model.Ticker, error) {
	var raw struct {
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
		QuoteVolume        string `json:"quoteVolume"`
	}
	if err := c.getJSON(ctx, "/api/v3/ticker/24hr?symbol="+symbol, &raw); err != nil {
		return nil, err
	}

	last, err := strconv.ParseFloat(raw.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("ticker %s: bad lastPrice %q", symbol, raw.LastPrice)
	}
	change, _ := strconv.ParseFloat(raw.PriceChangePercent, 64)
	volume, _ := strconv.ParseFloat(raw.QuoteVolume, 64)

	return &model.Ticker{
		LastPrice:          last,
		PriceChangePercent: change,
		QuoteVolume:        volume,
	}, nil
}

func (c *RESTClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("binance request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("binance API error: %s - %s", resp.Status, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseRESTKline converts one row of the /api/v3/klines array format:
// [openTime, open, high, low, close, volume, closeTime, ...].
func parseRESTKline(raw []any) (model.Candle, error) {
	if len(raw) < 7 {
		return model.Candle{}, fmt.Errorf("short kline row: %d fields", len(raw))
	}

	openTime, ok := raw[0].(float64)
	if !ok {
		return model.Candle{}, fmt.Errorf("bad openTime %v", raw[0])
	}
	closeTime, ok := raw[6].(float64)
	if !ok {
		return model.Candle{}, fmt.Errorf("bad closeTime %v", raw[6])
	}

	prices := make([]float64, 5) // open, high, low, close, volume
	for i := 0; i < 5; i++ {
		s, ok := raw[i+1].(string)
		if !ok {
			return model.Candle{}, fmt.Errorf("bad field %d: %v", i+1, raw[i+1])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("bad field %d: %w", i+1, err)
		}
		prices[i] = v
	}

	return model.Candle{
		OpenTime:  int64(openTime),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    prices[4],
		CloseTime: int64(closeTime),
	}, nil
}
