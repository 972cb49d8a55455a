package persistence

import "stock-trading-bot-go/internal/models"

// Repository defines durable storage for the trading account. It abstracts
// the underlying store (BadgerDB, in-memory) from the rest of the
// application. The portfolio, settings and symbol set are singleton records;
// trades and performance snapshots are append-only logs.
type Repository interface {
	// LoadPortfolio loads the single portfolio record.
	// If none has been saved yet, it returns (nil, nil).
	LoadPortfolio() (*models.Portfolio, error)

	// SavePortfolio atomically replaces the portfolio record.
	SavePortfolio(portfolio *models.Portfolio) error

	// AppendTrade appends a trade to the trade log and fills in its ID.
	AppendTrade(trade *models.Trade) error

	// RecentTrades returns up to limit trades, newest first.
	RecentTrades(limit int) ([]models.Trade, error)

	// AppendPerformance appends a valuation snapshot and fills in its ID.
	AppendPerformance(perf *models.Performance) error

	// RecentPerformance returns up to limit snapshots, newest first.
	RecentPerformance(limit int) ([]models.Performance, error)

	// LoadSettings loads the strategy thresholds.
	// If none have been saved yet, it returns (nil, nil).
	LoadSettings() (*models.BotSettings, error)

	// SaveSettings atomically replaces the strategy thresholds.
	SaveSettings(settings *models.BotSettings) error

	// LoadSymbols returns the configured trading symbols in stored order.
	// An empty slice means nothing is configured.
	LoadSymbols() ([]string, error)

	// SaveSymbols atomically replaces the trading symbol set.
	SaveSymbols(symbols []string) error

	// Close gracefully closes the connection to the database.
	Close() error
}
