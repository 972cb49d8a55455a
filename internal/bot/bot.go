package bot

import (
	"context"
	"sync"
	"time"

	"stock-trading-bot-go/internal/executor"
	"stock-trading-bot-go/internal/logger"
	"stock-trading-bot-go/internal/models"
	"stock-trading-bot-go/internal/persistence"
)

// TradingBot drives the periodic batch cycle: every interval it loads the
// configured symbol set and hands it to the executor.
type TradingBot struct {
	executor *executor.Executor
	repo     persistence.Repository
	interval time.Duration

	mutex     sync.Mutex
	isRunning bool
	stopChan  chan struct{}
}

// NewTradingBot creates a bot that runs one batch per interval.
func NewTradingBot(exec *executor.Executor, repo persistence.Repository, interval time.Duration) *TradingBot {
	return &TradingBot{
		executor: exec,
		repo:     repo,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start launches the scheduling loop. The first batch runs immediately;
// subsequent batches follow the ticker.
func (b *TradingBot) Start() {
	b.mutex.Lock()
	if b.isRunning {
		b.mutex.Unlock()
		return
	}
	b.isRunning = true
	b.mutex.Unlock()

	logger.S().Infow("Trading bot started", "interval", b.interval)
	go b.loop()
}

func (b *TradingBot) loop() {
	b.runBatch()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.runBatch()
		case <-b.stopChan:
			return
		}
	}
}

// runBatch executes one scheduled pass over the configured symbols.
func (b *TradingBot) runBatch() {
	logger.S().Info("Running scheduled trading job")

	symbols, err := b.repo.LoadSymbols()
	if err != nil {
		logger.S().Errorw("Failed to load trading symbols", "error", err)
		return
	}
	if len(symbols) == 0 {
		logger.S().Warn("No trading symbols configured")
		return
	}

	logger.S().Infow("Trading symbols", "symbols", symbols)
	b.executor.RunAll(context.Background(), symbols)
}

// Stop shuts the scheduling loop down. Any batch already in flight finishes
// its current symbol through the executor's own serialization.
func (b *TradingBot) Stop() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if !b.isRunning {
		return
	}
	b.isRunning = false
	close(b.stopChan)
	logger.S().Info("Trading bot stopped")
}

// CleanInvalidSymbols removes the sentinel invalid marker and empty entries
// from the stored symbol set. Run once at startup; the write only happens
// when something actually changed.
func CleanInvalidSymbols(repo persistence.Repository) error {
	symbols, err := repo.LoadSymbols()
	if err != nil {
		return err
	}

	valid := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if symbol == "" || symbol == models.InvalidSymbolSentinel {
			continue
		}
		valid = append(valid, symbol)
	}

	if len(valid) == len(symbols) {
		return nil
	}
	if err := repo.SaveSymbols(valid); err != nil {
		return err
	}
	logger.S().Infow("Cleaned invalid symbols from stored set", "symbols", valid)
	return nil
}
