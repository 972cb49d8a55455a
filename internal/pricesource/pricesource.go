package pricesource

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// PriceSource supplies the current price for a symbol. Implementations must
// be safe for concurrent use; a quote call has no side effects on the
// account, so callers may fetch prices for different symbols in parallel.
type PriceSource interface {
	// Quote returns the current price for symbol. It fails with
	// ErrInvalidSymbol when the upstream reports no usable quote and with
	// ErrSourceUnavailable on transport failure. A returned price is
	// always positive.
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

var (
	// ErrInvalidSymbol means the upstream has no usable quote for the
	// symbol, e.g. every OHLC field came back zero.
	ErrInvalidSymbol = errors.New("invalid symbol or no data available")

	// ErrSourceUnavailable is a transient transport or upstream failure.
	// The bot does not retry; the scheduler simply tries again next cycle.
	ErrSourceUnavailable = errors.New("price source unavailable")
)
