package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"screener-core/config"
	"screener-core/internal/analysis"
	"screener-core/internal/api"
	"screener-core/internal/cache"
	"screener-core/internal/ingest"
	"screener-core/internal/metrics"
	"screener-core/internal/model"
	"screener-core/internal/notification"
	redisstore "screener-core/internal/store/redis"
	sqlitestore "screener-core/internal/store/sqlite"
	"screener-core/internal/trader"
	"screener-core/pkg/openrouter"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[screener] starting...")

	cfg := config.Load()
	intervals := cfg.ParseIntervals()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Symbol universe ----
	rest := ingest.NewRESTClient(cfg.BinanceAPIURL)
	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		discovered, err := rest.GetTopSymbols(ctx, cfg.TopSymbols, cfg.MinVolume)
		if err != nil {
			log.Fatalf("[screener] symbol discovery failed: %v", err)
		}
		symbols = discovered
	}
	log.Printf("[screener] tracking %d symbols on intervals %v", len(symbols), intervals)

	// ---- Candle cache + ingest ----
	candleCache := cache.New(cfg.CandleWindow)
	stream := ingest.NewStream(ingest.StreamConfig{
		WSURL:     cfg.BinanceWSURL,
		Symbols:   symbols,
		Intervals: intervals,
	}, candleCache, prom, health)

	if err := stream.Bootstrap(ctx, rest, cfg.CandleWindow); err != nil {
		log.Fatalf("[screener] bootstrap failed: %v", err)
	}
	log.Printf("[screener] cache bootstrapped: %d candles", candleCache.Stats().TotalCandles)

	// ---- Result sinks ----
	if err := os.MkdirAll("data", 0o755); err != nil {
		log.Fatalf("[screener] data dir: %v", err)
	}
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[screener] sqlite init failed: %v", err)
	}
	defer sqlWriter.Close()

	sinks := []analysis.ResultSink{sqlWriter}

	redisWriter, err := redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Printf("[screener] WARNING: redis init failed: %v (continuing without redis)", err)
	} else {
		defer redisWriter.Close()
		sinks = append(sinks, redisWriter)
	}

	notifiers := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
		log.Println("[screener] telegram alerts enabled")
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
		log.Println("[screener] webhook alerts enabled")
	}
	sinks = append(sinks, notification.NewSignalSink(notifiers...))

	if redisWriter != nil {
		health.StartLivenessChecker(ctx, redisWriter.Client(), sqlWriter.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, sqlWriter.DB(), 10*time.Second)
	}

	// ---- Trader registry ----
	registry := trader.NewRegistry()
	if err := registry.Register(&model.Trader{
		ID:      "default",
		Name:    "baseline momentum",
		Enabled: true,
		Description: []string{
			"Momentum continuation on the primary interval.",
			"RSI pulling out of the 40-60 band with MACD histogram turning, volume above average.",
		},
		Indicators: []model.IndicatorConfig{
			{Name: "RSI"},
			{Name: "MACD"},
			{Name: "BollingerBands"},
			{Name: "AvgVolume"},
			{Name: "Engulfing"},
		},
		RequiredIntervals: intervals,
	}); err != nil {
		log.Fatalf("[screener] default trader: %v", err)
	}

	// ---- Reasoning client + engine ----
	client, err := openrouter.NewClient(&openrouter.Config{
		APIKey:      cfg.OpenRouterAPIKey,
		BaseURL:     cfg.OpenRouterBaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.RequestTimeout + 10*time.Second,
	})
	if err != nil {
		log.Fatalf("[screener] openrouter init failed: %v", err)
	}

	engine, err := analysis.NewEngine(&analysis.Config{
		QueueSize:       cfg.QueueSize,
		WorkerCount:     cfg.WorkerCount,
		MaxConcurrent:   cfg.MaxConcurrent,
		RequestTimeout:  cfg.RequestTimeout,
		DefaultLookback: cfg.Lookback,
		Model:           cfg.Model,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
	}, client, candleCache, sinks, prom)
	if err != nil {
		log.Fatalf("[screener] engine init failed: %v", err)
	}
	engine.Start()

	// ---- Management API ----
	apiSrv := api.NewServer(cfg.APIAddr, candleCache, registry, engine, sqlitestore.NewReader(sqlWriter.DB()))
	apiSrv.Start()

	// ---- Candle close -> analysis fanout ----
	// Every closed candle on a trader's primary interval becomes an
	// analysis request. Queue-full drops are logged and counted, never
	// block the read loop.
	stream.OnCandleClose = func(symbol, interval string) {
		for _, t := range registry.ListEnabled() {
			if len(t.RequiredIntervals) > 0 && t.RequiredIntervals[0] != interval {
				continue
			}
			err := engine.QueueAnalysis(&analysis.Request{
				TraderID: t.ID,
				UserID:   t.UserID,
				Symbol:   symbol,
				Interval: interval,
				Trader:   t,
			})
			if err != nil {
				prom.AnalysesTotal.WithLabelValues("dropped").Inc()
				log.Printf("[screener] drop %s@%s for trader %s: %v", symbol, interval, t.ID, err)
			}
		}
	}

	if err := stream.Connect(); err != nil {
		log.Fatalf("[screener] websocket connect failed: %v", err)
	}

	// ---- Graceful shutdown ----
	<-sigCh
	log.Println("[screener] shutdown signal received")

	stream.Close()
	engine.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Stop(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	log.Println("[screener] stopped")
}
