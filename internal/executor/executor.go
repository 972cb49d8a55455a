package executor

import (
	"context"
	"sync"
	"time"

	"stock-trading-bot-go/internal/logger"
	"stock-trading-bot-go/internal/models"
	"stock-trading-bot-go/internal/persistence"
	"stock-trading-bot-go/internal/pricesource"
	"stock-trading-bot-go/internal/strategy"

	"github.com/shopspring/decimal"
)

// Executor runs the trading cycle for single symbols and for whole batches.
// All cycles mutate the one portfolio record, so RunOne serializes behind a
// mutex: two concurrent read-modify-write cycles would silently lose the
// earlier update.
type Executor struct {
	source         pricesource.PriceSource
	repo           persistence.Repository
	initialBalance decimal.Decimal

	mu sync.Mutex
}

// CycleResult summarizes one completed cycle for a symbol.
type CycleResult struct {
	Symbol   string          `json:"symbol"`
	Action   strategy.Action `json:"action"`
	Price    decimal.Decimal `json:"price"`
	Position int64           `json:"position"`
	Balance  decimal.Decimal `json:"balance"`
}

// New creates an Executor. initialBalance seeds a fresh portfolio and is the
// profit/loss baseline for performance snapshots.
func New(source pricesource.PriceSource, repo persistence.Repository, initialBalance decimal.Decimal) *Executor {
	return &Executor{
		source:         source,
		repo:           repo,
		initialBalance: initialBalance,
	}
}

// loadOrDefaultPortfolio returns the stored portfolio or an in-memory
// default. The default is not persisted here; it reaches the store at the
// end of the first successful cycle, so a failed price fetch leaves no
// record behind.
func (e *Executor) loadOrDefaultPortfolio() (*models.Portfolio, error) {
	portfolio, err := e.repo.LoadPortfolio()
	if err != nil {
		return nil, err
	}
	if portfolio == nil {
		logger.S().Infow("No existing portfolio found, using default values", "balance", e.initialBalance)
		portfolio = models.NewPortfolio(e.initialBalance)
	}
	return portfolio, nil
}

// loadOrDefaultSettings returns the stored thresholds or the defaults.
func (e *Executor) loadOrDefaultSettings() (models.BotSettings, error) {
	settings, err := e.repo.LoadSettings()
	if err != nil {
		return models.BotSettings{}, err
	}
	if settings == nil {
		return models.DefaultSettings(), nil
	}
	return *settings, nil
}

// RunOne executes one full cycle for symbol: fetch the quote, decide, apply
// the decision to the portfolio, record the trade if one happened, persist
// the portfolio and append a performance snapshot. A price source failure
// aborts the cycle before anything is written.
func (e *Executor) RunOne(ctx context.Context, symbol string) (*CycleResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	portfolio, err := e.loadOrDefaultPortfolio()
	if err != nil {
		return nil, err
	}
	settings, err := e.loadOrDefaultSettings()
	if err != nil {
		return nil, err
	}

	currentPrice, err := e.source.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	decision := strategy.Decide(strategy.Input{
		Symbol:       symbol,
		CurrentPrice: currentPrice,
		LastPrice:    portfolio.LastPrices[symbol],
		Position:     portfolio.Position(symbol),
		Balance:      portfolio.Balance,
		Settings:     settings,
	})

	now := time.Now()

	switch decision.Action {
	case strategy.Buy:
		logger.S().Infow("Bought shares", "symbol", symbol, "quantity", decision.Quantity, "price", currentPrice)
	case strategy.Sell:
		logger.S().Infow("Sold shares", "symbol", symbol, "quantity", decision.Quantity, "price", currentPrice)
	}

	if decision.Action != strategy.Hold {
		trade := &models.Trade{
			Symbol:    symbol,
			Type:      models.TradeType(decision.Action),
			Quantity:  decision.Quantity,
			Price:     currentPrice,
			Timestamp: now,
		}
		if err := e.repo.AppendTrade(trade); err != nil {
			return nil, err
		}
	}

	portfolio.Balance = decision.Balance
	portfolio.SetPosition(symbol, decision.Position)
	portfolio.LastPrices[symbol] = currentPrice
	portfolio.LastUpdated = now

	if err := e.repo.SavePortfolio(portfolio); err != nil {
		return nil, err
	}

	totalValue := portfolio.TotalValue()
	perf := &models.Performance{
		Timestamp:  now,
		Balance:    portfolio.Balance,
		TotalValue: totalValue,
		ProfitLoss: totalValue.Sub(e.initialBalance),
	}
	if err := e.repo.AppendPerformance(perf); err != nil {
		return nil, err
	}

	return &CycleResult{
		Symbol:   symbol,
		Action:   decision.Action,
		Price:    currentPrice,
		Position: decision.Position,
		Balance:  portfolio.Balance,
	}, nil
}

// RunAll runs one cycle per configured symbol, in order. A failing symbol is
// logged and skipped so it never blocks its siblings, and the sentinel
// invalid marker is filtered out before it reaches the price source.
func (e *Executor) RunAll(ctx context.Context, symbols []string) {
	for _, symbol := range symbols {
		if symbol == "" || symbol == models.InvalidSymbolSentinel {
			logger.S().Warnw("Skipping invalid symbol", "symbol", symbol)
			continue
		}

		logger.S().Infow("Executing trade cycle", "symbol", symbol)
		if _, err := e.RunOne(ctx, symbol); err != nil {
			logger.S().Errorw("Trade cycle failed", "symbol", symbol, "error", err)
		}
	}
}

// InitializePortfolio makes sure the singleton portfolio record exists,
// seeding it with the initial balance on first start.
func (e *Executor) InitializePortfolio() (*models.Portfolio, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	portfolio, err := e.repo.LoadPortfolio()
	if err != nil {
		return nil, err
	}
	if portfolio != nil {
		return portfolio, nil
	}

	portfolio = models.NewPortfolio(e.initialBalance)
	if err := e.repo.SavePortfolio(portfolio); err != nil {
		return nil, err
	}
	logger.S().Infow("Initialized new portfolio", "balance", e.initialBalance)
	return portfolio, nil
}
