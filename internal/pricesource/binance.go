package pricesource

import (
	"context"
	"fmt"

	"stock-trading-bot-go/internal/logger"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// BinanceSource quotes crypto pairs (e.g. "BTCUSDT") through the public
// Binance ticker endpoint. No API key is needed for price data.
type BinanceSource struct {
	client *binance.Client
}

// NewBinanceSource creates a price source backed by the public Binance API.
func NewBinanceSource() *BinanceSource {
	return &BinanceSource{client: binance.NewClient("", "")}
}

// Quote implements PriceSource.
func (s *BinanceSource) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := s.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidSymbol, symbol)
	}

	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: unparseable price %q for %s", ErrSourceUnavailable, prices[0].Price, symbol)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidSymbol, symbol)
	}

	logger.S().Infow("Fetched crypto price", "symbol", symbol, "price", price)
	return price, nil
}
