package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvalidSymbolSentinel marks a placeholder entry that must never be traded.
// It is filtered out of the symbol set at every boundary.
const InvalidSymbolSentinel = "INVALID_SYMBOL"

// Config holds every runtime parameter of the bot.
type Config struct {
	DBPath           string          `json:"db_path"`            // BadgerDB directory
	ListenAddr       string          `json:"listen_addr"`        // HTTP API address, e.g. ":3000"
	PriceSource      string          `json:"price_source"`       // "finnhub", "finnhub-stream" or "binance"
	FinnhubAPIURL    string          `json:"finnhub_api_url"`    // REST base, defaults to the public endpoint
	FinnhubWSURL     string          `json:"finnhub_ws_url"`     // websocket endpoint for the streaming source
	InitialBalance   decimal.Decimal `json:"initial_balance"`    // starting cash, the profit/loss baseline
	TradeIntervalSec int             `json:"trade_interval_sec"` // seconds between scheduled batch runs
	LogConfig        LogConfig       `json:"log"`
}

// LogConfig defines logging behaviour and rotation.
type LogConfig struct {
	Level      string `json:"level"`       // "debug", "info", "warn", "error"
	Output     string `json:"output"`      // "console", "file" or "both"
	File       string `json:"file"`        // log file path
	MaxSize    int    `json:"max_size"`    // max size of a single log file (MB)
	MaxBackups int    `json:"max_backups"` // rotated files to keep
	MaxAge     int    `json:"max_age"`     // days to keep rotated files
	Compress   bool   `json:"compress"`    // gzip rotated files
}

// Portfolio is the single trading account record. Balance must never go
// negative; a position with quantity zero is normalized to absence.
type Portfolio struct {
	Balance     decimal.Decimal            `json:"balance"`
	Positions   map[string]int64           `json:"positions"`
	LastPrices  map[string]decimal.Decimal `json:"last_prices"`
	LastUpdated time.Time                  `json:"last_updated"`
}

// NewPortfolio returns a fresh portfolio holding only cash.
func NewPortfolio(initialBalance decimal.Decimal) *Portfolio {
	return &Portfolio{
		Balance:     initialBalance,
		Positions:   make(map[string]int64),
		LastPrices:  make(map[string]decimal.Decimal),
		LastUpdated: time.Now(),
	}
}

// Position returns the held share count for symbol, zero when absent.
func (p *Portfolio) Position(symbol string) int64 {
	return p.Positions[symbol]
}

// SetPosition records a new share count, removing the entry when it hits zero
// so that "no position" has exactly one representation.
func (p *Portfolio) SetPosition(symbol string, quantity int64) {
	if quantity == 0 {
		delete(p.Positions, symbol)
		return
	}
	p.Positions[symbol] = quantity
}

// TotalValue is cash plus every position valued at its last observed price.
func (p *Portfolio) TotalValue() decimal.Decimal {
	total := p.Balance
	for symbol, quantity := range p.Positions {
		price, ok := p.LastPrices[symbol]
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(quantity)))
	}
	return total
}

// TradeType is the direction of an executed trade.
type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// Trade is one append-only log entry, written once per executed decision.
type Trade struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Type      TradeType       `json:"type"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Performance is a valuation snapshot, appended after every evaluation cycle
// including HOLD cycles. The series is what the dashboard charts.
type Performance struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Balance    decimal.Decimal `json:"balance"`
	TotalValue decimal.Decimal `json:"total_value"`
	ProfitLoss decimal.Decimal `json:"profit_loss"`
}

// BotSettings holds the strategy thresholds, in percent. BuyThreshold is
// normally negative (a drop), SellThreshold positive (a rise).
type BotSettings struct {
	BuyThreshold  decimal.Decimal `json:"buy_threshold"`
	SellThreshold decimal.Decimal `json:"sell_threshold"`
}

// DefaultSettings mirrors the historical defaults: buy on a 2% drop, sell on
// a 3% rise.
func DefaultSettings() BotSettings {
	return BotSettings{
		BuyThreshold:  decimal.NewFromInt(-2),
		SellThreshold: decimal.NewFromInt(3),
	}
}
