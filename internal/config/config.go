package config

import (
	"encoding/json"
	"os"
	"stock-trading-bot-go/internal/models"

	"github.com/shopspring/decimal"
)

// LoadConfig reads the JSON config file at path and fills in defaults for
// anything left unset.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg := &models.Config{}
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *models.Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = "trading_bot_db"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":3000"
	}
	if cfg.PriceSource == "" {
		cfg.PriceSource = "finnhub"
	}
	if cfg.FinnhubAPIURL == "" {
		cfg.FinnhubAPIURL = "https://finnhub.io/api/v1"
	}
	if cfg.FinnhubWSURL == "" {
		cfg.FinnhubWSURL = "wss://ws.finnhub.io"
	}
	if cfg.InitialBalance.IsZero() {
		cfg.InitialBalance = decimal.NewFromInt(10000)
	}
	if cfg.TradeIntervalSec <= 0 {
		cfg.TradeIntervalSec = 300 // one batch every five minutes
	}
}
