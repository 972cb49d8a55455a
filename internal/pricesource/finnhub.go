package pricesource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"stock-trading-bot-go/internal/logger"

	"github.com/shopspring/decimal"
)

// FinnhubSource fetches stock quotes from the Finnhub REST API.
type FinnhubSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewFinnhubSource creates a REST price source against baseURL
// (e.g. "https://finnhub.io/api/v1") authenticated with apiKey.
func NewFinnhubSource(baseURL, apiKey string) *FinnhubSource {
	return &FinnhubSource{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// finnhubQuote is the /quote response. Only the fields used for validation
// and the current price are decoded.
type finnhubQuote struct {
	Current decimal.Decimal `json:"c"`
	High    decimal.Decimal `json:"h"`
	Low     decimal.Decimal `json:"l"`
	Open    decimal.Decimal `json:"o"`
}

// Quote implements PriceSource.
func (s *FinnhubSource) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("token", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: quote request returned status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var quote finnhubQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	// Finnhub answers unknown symbols with an all-zero quote instead of an
	// error status. A non-positive current price with other fields set is
	// equally unusable; the contract guarantees a positive price.
	if quote.Current.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidSymbol, symbol)
	}

	logger.S().Infow("Fetched stock price", "symbol", symbol, "price", quote.Current)
	return quote.Current, nil
}
