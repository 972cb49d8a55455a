package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-trading-bot-go/internal/bot"
	"stock-trading-bot-go/internal/config"
	"stock-trading-bot-go/internal/executor"
	"stock-trading-bot-go/internal/logger"
	"stock-trading-bot-go/internal/models"
	"stock-trading-bot-go/internal/persistence"
	"stock-trading-bot-go/internal/pricesource"
	"stock-trading-bot-go/internal/reporter"
	"stock-trading-bot-go/internal/server"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()

	// A bootstrap logger so that .env and config loading can already log;
	// it gets replaced once the real log config is known.
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	if err := godotenv.Load(); err != nil {
		logger.S().Info("No .env file found, reading from system environment.")
	} else {
		logger.S().Info("Loaded configuration from .env file.")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("Failed to load config file: %v", err)
	}

	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	source := buildPriceSource(cfg)

	repo, err := persistence.NewBadgerRepository(cfg.DBPath)
	if err != nil {
		logger.S().Fatalf("Failed to open database: %v", err)
	}

	exec := executor.New(source, repo, cfg.InitialBalance)

	// Startup hygiene: drop sentinel symbols and make sure the singleton
	// portfolio exists before anything trades or serves.
	if err := bot.CleanInvalidSymbols(repo); err != nil {
		logger.S().Warnf("Failed to clean invalid symbols: %v", err)
	}
	portfolio, err := exec.InitializePortfolio()
	if err != nil {
		logger.S().Fatalf("Failed to initialize portfolio: %v", err)
	}
	logger.S().Infow("Initial portfolio state",
		"balance", portfolio.Balance, "positionsCount", len(portfolio.Positions))

	tradingBot := bot.NewTradingBot(exec, repo, time.Duration(cfg.TradeIntervalSec)*time.Second)
	tradingBot.Start()

	apiServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(source, repo, exec, cfg.InitialBalance).Handler(),
	}
	go func() {
		logger.S().Infof("Trading bot server listening at %s", cfg.ListenAddr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.S().Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	tradingBot.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.S().Warnf("HTTP server shutdown: %v", err)
	}

	reporter.PrintSummary(repo)

	if closer, ok := source.(io.Closer); ok {
		closer.Close()
	}
	if err := repo.Close(); err != nil {
		logger.S().Errorf("Failed to close database: %v", err)
	}
	logger.S().Info("Trading bot stopped cleanly.")
}

// buildPriceSource picks the quote backend from the config. The Finnhub
// variants need FINNHUB_API_KEY in the environment; Binance price data is
// public.
func buildPriceSource(cfg *models.Config) pricesource.PriceSource {
	switch cfg.PriceSource {
	case "binance":
		return pricesource.NewBinanceSource()
	case "finnhub", "finnhub-stream":
		apiKey := os.Getenv("FINNHUB_API_KEY")
		if apiKey == "" {
			logger.S().Fatal("FINNHUB_API_KEY environment variable must be set.")
		}
		rest := pricesource.NewFinnhubSource(cfg.FinnhubAPIURL, apiKey)
		if cfg.PriceSource == "finnhub" {
			return rest
		}
		stream, err := pricesource.NewStreamSource(cfg.FinnhubWSURL, apiKey, rest)
		if err != nil {
			logger.S().Warnf("Price stream unavailable, falling back to REST quotes: %v", err)
			return rest
		}
		return stream
	default:
		logger.S().Fatalf("Unknown price source: %s. Choose 'finnhub', 'finnhub-stream' or 'binance'.", cfg.PriceSource)
		return nil
	}
}
