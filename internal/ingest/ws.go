package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"screener-core/internal/cache"
	"screener-core/internal/metrics"
	"screener-core/internal/model"
)

// StreamConfig holds the kline stream configuration.
type StreamConfig struct {
	WSURL     string // e.g. wss://stream.binance.com:9443
	Symbols   []string
	Intervals []string
}

// Stream maintains a single combined-stream WebSocket connection for all
// symbol+interval pairs and writes closed candles into the cache.
type Stream struct {
	cfg    StreamConfig
	cache  *cache.CandleCache
	m      *metrics.Metrics      // nil disables instrumentation
	health *metrics.HealthStatus // nil disables liveness updates

	// OnCandleClose, when set, is called after each closed candle lands in
	// the cache. Must not block; the read loop runs it inline.
	OnCandleClose func(symbol, interval string)

	mu          sync.RWMutex
	conn        *websocket.Conn
	isConnected bool

	// closeTime of the last candle accepted per symbol-interval, so a
	// resubscribe replay never double-counts.
	lastClosedMu sync.Mutex
	lastClosed   map[string]int64

	reconnectCh chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
}

// klineEvent is the Binance kline payload.
type klineEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Kline     struct {
		StartTime int64  `json:"t"`
		CloseTime int64  `json:"T"`
		Interval  string `json:"i"`
		Open      string `json:"o"`
		Close     string `json:"c"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Volume    string `json:"v"`
		IsClosed  bool   `json:"x"`
	} `json:"k"`
}

// streamMessage wraps a kline event on the combined-stream endpoint.
type streamMessage struct {
	Stream string     `json:"stream"`
	Data   klineEvent `json:"data"`
}

// NewStream creates a kline stream feeding candleCache.
func NewStream(cfg StreamConfig, candleCache *cache.CandleCache, m *metrics.Metrics, health *metrics.HealthStatus) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	return &Stream{
		cfg:         cfg,
		cache:       candleCache,
		m:           m,
		health:      health,
		lastClosed:  make(map[string]int64),
		reconnectCh: make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Bootstrap seeds the cache with historical candles over REST so indicator
// math has a full window before the first live close arrives.
func (s *Stream) Bootstrap(ctx context.Context, rest *RESTClient, limit int) error {
	log.Printf("[ws] bootstrapping %d symbols x %d intervals (%d candles each)",
		len(s.cfg.Symbols), len(s.cfg.Intervals), limit)

	for _, symbol := range s.cfg.Symbols {
		for _, interval := range s.cfg.Intervals {
			candles, err := rest.GetKlines(ctx, symbol, interval, limit)
			if err != nil {
				return fmt.Errorf("bootstrap %s@%s: %w", symbol, interval, err)
			}
			s.cache.Set(symbol, interval, candles)
		}
	}
	return nil
}

// Connect dials the combined stream and starts the read and reconnect loops.
func (s *Stream) Connect() error {
	streams := make([]string, 0, len(s.cfg.Symbols)*len(s.cfg.Intervals))
	for _, symbol := range s.cfg.Symbols {
		for _, interval := range s.cfg.Intervals {
			streams = append(streams, fmt.Sprintf("%s@kline_%s", strings.ToLower(symbol), interval))
		}
	}
	url := fmt.Sprintf("%s/stream?streams=%s", s.cfg.WSURL, strings.Join(streams, "/"))

	log.Printf("[ws] connecting (%d streams)", len(streams))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial kline stream: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.isConnected = true
	s.mu.Unlock()
	if s.health != nil {
		s.health.SetWSConnected(true)
	}
	log.Printf("[ws] connected")

	go s.readLoop(conn)
	go s.reconnectLoop()
	return nil
}

func (s *Stream) readLoop(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		s.isConnected = false
		s.mu.Unlock()
		if s.health != nil {
			s.health.SetWSConnected(false)
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			log.Printf("[ws] read error: %v", err)
			s.triggerReconnect()
			return
		}

		if err := s.handleKlineEvent(message); err != nil {
			log.Printf("[ws] handle event: %v", err)
		}
	}
}

// handleKlineEvent parses one combined-stream message. Only closed candles
// enter the cache; the forming bar is never stored.
func (s *Stream) handleKlineEvent(message []byte) error {
	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return fmt.Errorf("unmarshal stream message: %w", err)
	}

	event := msg.Data
	if event.EventType != "kline" || !event.Kline.IsClosed {
		return nil
	}

	candle, err := parseStreamKline(event)
	if err != nil {
		return err
	}

	key := event.Symbol + "-" + event.Kline.Interval
	s.lastClosedMu.Lock()
	duplicate := s.lastClosed[key] == candle.CloseTime
	if !duplicate {
		s.lastClosed[key] = candle.CloseTime
	}
	s.lastClosedMu.Unlock()
	if duplicate {
		return nil
	}

	s.cache.Update(event.Symbol, event.Kline.Interval, candle)

	if s.m != nil {
		s.m.CandleUpdatesTotal.Inc()
		s.m.CacheHitRate.Set(s.cache.Stats().HitRate)
	}
	if s.health != nil {
		s.health.SetLastCandleTime(time.Now().UTC())
	}
	if s.OnCandleClose != nil {
		s.OnCandleClose(event.Symbol, event.Kline.Interval)
	}

	log.Printf("[ws] candle closed: %s@%s close=%.8f", event.Symbol, event.Kline.Interval, candle.Close)
	return nil
}

func parseStreamKline(event klineEvent) (model.Candle, error) {
	fields := [5]string{event.Kline.Open, event.Kline.High, event.Kline.Low, event.Kline.Close, event.Kline.Volume}
	var parsed [5]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("kline %s@%s: bad field %q", event.Symbol, event.Kline.Interval, f)
		}
		parsed[i] = v
	}

	return model.Candle{
		OpenTime:  event.Kline.StartTime,
		Open:      parsed[0],
		High:      parsed[1],
		Low:       parsed[2],
		Close:     parsed[3],
		Volume:    parsed[4],
		CloseTime: event.Kline.CloseTime,
	}, nil
}

func (s *Stream) triggerReconnect() {
	select {
	case s.reconnectCh <- struct{}{}:
	default:
	}
}

// reconnectLoop redials with exponential backoff, capped at a minute.
func (s *Stream) reconnectLoop() {
	backoff := 1 * time.Second
	const maxBackoff = 60 * time.Second

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.reconnectCh:
			log.Printf("[ws] reconnecting in %v", backoff)
			select {
			case <-time.After(backoff):
			case <-s.ctx.Done():
				return
			}

			s.mu.Lock()
			if s.conn != nil {
				s.conn.Close()
				s.conn = nil
			}
			s.mu.Unlock()

			if s.m != nil {
				s.m.WSReconnects.Inc()
			}

			if err := s.Connect(); err != nil {
				log.Printf("[ws] reconnect failed: %v", err)
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				s.triggerReconnect()
			} else {
				backoff = 1 * time.Second
				return // the new Connect started a fresh reconnectLoop
			}
		}
	}
}

// IsConnected reports whether the stream currently has a live connection.
func (s *Stream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// Close tears down the connection and stops all loops.
func (s *Stream) Close() error {
	log.Printf("[ws] closing")
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
		s.conn = nil
	}
	s.isConnected = false
	if s.health != nil {
		s.health.SetWSConnected(false)
	}
	return nil
}
