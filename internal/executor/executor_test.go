package executor

import (
	"context"
	"sync"
	"testing"

	"stock-trading-bot-go/internal/models"
	"stock-trading-bot-go/internal/pricesource"
	"stock-trading-bot-go/internal/strategy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// mockPriceSource serves canned prices and errors per symbol and records
// which symbols were queried.
type mockPriceSource struct {
	sync.Mutex
	prices  map[string]decimal.Decimal
	errs    map[string]error
	queried []string
}

func (m *mockPriceSource) Quote(_ context.Context, symbol string) (decimal.Decimal, error) {
	m.Lock()
	defer m.Unlock()
	m.queried = append(m.queried, symbol)
	if err, ok := m.errs[symbol]; ok {
		return decimal.Zero, err
	}
	if price, ok := m.prices[symbol]; ok {
		return price, nil
	}
	return decimal.Zero, pricesource.ErrInvalidSymbol
}

// mockRepository is an in-memory Repository that counts writes.
type mockRepository struct {
	sync.Mutex
	portfolio      *models.Portfolio
	settings       *models.BotSettings
	symbols        []string
	trades         []models.Trade
	performance    []models.Performance
	portfolioSaves int
}

func (m *mockRepository) LoadPortfolio() (*models.Portfolio, error) {
	m.Lock()
	defer m.Unlock()
	return m.portfolio, nil
}

func (m *mockRepository) SavePortfolio(p *models.Portfolio) error {
	m.Lock()
	defer m.Unlock()
	m.portfolio = p
	m.portfolioSaves++
	return nil
}

func (m *mockRepository) AppendTrade(t *models.Trade) error {
	m.Lock()
	defer m.Unlock()
	m.trades = append(m.trades, *t)
	return nil
}

func (m *mockRepository) RecentTrades(limit int) ([]models.Trade, error) {
	m.Lock()
	defer m.Unlock()
	return m.trades, nil
}

func (m *mockRepository) AppendPerformance(p *models.Performance) error {
	m.Lock()
	defer m.Unlock()
	m.performance = append(m.performance, *p)
	return nil
}

func (m *mockRepository) RecentPerformance(limit int) ([]models.Performance, error) {
	m.Lock()
	defer m.Unlock()
	return m.performance, nil
}

func (m *mockRepository) LoadSettings() (*models.BotSettings, error) {
	m.Lock()
	defer m.Unlock()
	return m.settings, nil
}

func (m *mockRepository) SaveSettings(s *models.BotSettings) error {
	m.Lock()
	defer m.Unlock()
	m.settings = s
	return nil
}

func (m *mockRepository) LoadSymbols() ([]string, error) {
	m.Lock()
	defer m.Unlock()
	return m.symbols, nil
}

func (m *mockRepository) SaveSymbols(symbols []string) error {
	m.Lock()
	defer m.Unlock()
	m.symbols = symbols
	return nil
}

func (m *mockRepository) Close() error { return nil }

func portfolioWith(balance string, positions map[string]int64, lastPrices map[string]string) *models.Portfolio {
	p := models.NewPortfolio(dec(balance))
	for symbol, quantity := range positions {
		p.Positions[symbol] = quantity
	}
	for symbol, price := range lastPrices {
		p.LastPrices[symbol] = dec(price)
	}
	return p
}

func TestRunOneBuy(t *testing.T) {
	repo := &mockRepository{
		portfolio: portfolioWith("10000", nil, map[string]string{"AAPL": "100"}),
	}
	source := &mockPriceSource{prices: map[string]decimal.Decimal{"AAPL": dec("97")}}
	e := New(source, repo, dec("10000"))

	result, err := e.RunOne(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, strategy.Buy, result.Action)
	assert.Equal(t, int64(103), result.Position)
	assert.True(t, dec("9").Equal(result.Balance), "balance = %s", result.Balance)

	require.Len(t, repo.trades, 1)
	assert.Equal(t, models.TradeBuy, repo.trades[0].Type)
	assert.Equal(t, int64(103), repo.trades[0].Quantity)
	assert.True(t, dec("97").Equal(repo.trades[0].Price))

	// One performance snapshot per cycle; 9 + 103*97 = 10000, so no P/L yet.
	require.Len(t, repo.performance, 1)
	assert.True(t, dec("10000").Equal(repo.performance[0].TotalValue))
	assert.True(t, repo.performance[0].ProfitLoss.IsZero())

	assert.Equal(t, 1, repo.portfolioSaves)
	assert.True(t, dec("97").Equal(repo.portfolio.LastPrices["AAPL"]))
}

func TestRunOneSell(t *testing.T) {
	repo := &mockRepository{
		portfolio: portfolioWith("1000", map[string]int64{"AAPL": 50}, map[string]string{"AAPL": "100"}),
	}
	source := &mockPriceSource{prices: map[string]decimal.Decimal{"AAPL": dec("104")}}
	e := New(source, repo, dec("10000"))

	result, err := e.RunOne(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, strategy.Sell, result.Action)
	assert.Equal(t, int64(0), result.Position)
	assert.True(t, dec("6200").Equal(result.Balance))

	require.Len(t, repo.trades, 1)
	assert.Equal(t, models.TradeSell, repo.trades[0].Type)
	assert.Equal(t, int64(50), repo.trades[0].Quantity)

	// The liquidated position is removed rather than kept at zero.
	_, held := repo.portfolio.Positions["AAPL"]
	assert.False(t, held)
}

func TestRunOneHoldAppendsOnlyPerformance(t *testing.T) {
	repo := &mockRepository{
		portfolio: portfolioWith("500", map[string]int64{"AAPL": 10}, map[string]string{"AAPL": "100"}),
	}
	source := &mockPriceSource{prices: map[string]decimal.Decimal{"AAPL": dec("101")}}
	e := New(source, repo, dec("10000"))

	result, err := e.RunOne(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, strategy.Hold, result.Action)
	assert.Empty(t, repo.trades)
	require.Len(t, repo.performance, 1)

	// The hold still refreshed the last observed price, so the snapshot
	// values the position at 101.
	assert.True(t, dec("1510").Equal(repo.performance[0].TotalValue))
}

// TestRunOneIdempotent re-runs a cycle with an unchanged price: both runs
// must hold, producing no phantom trades.
func TestRunOneIdempotent(t *testing.T) {
	repo := &mockRepository{
		portfolio: portfolioWith("10000", nil, nil),
	}
	source := &mockPriceSource{prices: map[string]decimal.Decimal{"AAPL": dec("150")}}
	e := New(source, repo, dec("10000"))

	for i := 0; i < 2; i++ {
		result, err := e.RunOne(context.Background(), "AAPL")
		require.NoError(t, err)
		assert.Equal(t, strategy.Hold, result.Action)
	}

	assert.Empty(t, repo.trades)
	assert.Len(t, repo.performance, 2)
	assert.True(t, dec("10000").Equal(repo.portfolio.Balance))
}

// TestRunOnePriceFailureWritesNothing verifies that a failed quote aborts the
// cycle before any persistence effect.
func TestRunOnePriceFailureWritesNothing(t *testing.T) {
	repo := &mockRepository{
		portfolio: portfolioWith("10000", nil, map[string]string{"AAPL": "100"}),
	}
	source := &mockPriceSource{errs: map[string]error{"AAPL": pricesource.ErrSourceUnavailable}}
	e := New(source, repo, dec("10000"))

	_, err := e.RunOne(context.Background(), "AAPL")
	require.ErrorIs(t, err, pricesource.ErrSourceUnavailable)

	assert.Empty(t, repo.trades)
	assert.Empty(t, repo.performance)
	assert.Equal(t, 0, repo.portfolioSaves)
}

func TestRunOneCreatesDefaultPortfolio(t *testing.T) {
	repo := &mockRepository{}
	source := &mockPriceSource{prices: map[string]decimal.Decimal{"AAPL": dec("100")}}
	e := New(source, repo, dec("10000"))

	result, err := e.RunOne(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, strategy.Hold, result.Action)
	require.NotNil(t, repo.portfolio)
	assert.True(t, dec("10000").Equal(repo.portfolio.Balance))
}

// TestRunAllIsolatesFailures runs a batch where the first symbol fails and a
// sentinel sits in the middle: the sentinel is never queried and the last
// symbol still trades.
func TestRunAllIsolatesFailures(t *testing.T) {
	repo := &mockRepository{
		portfolio: portfolioWith("10000", nil, map[string]string{"MSFT": "100"}),
	}
	source := &mockPriceSource{
		prices: map[string]decimal.Decimal{"MSFT": dec("97")},
		errs:   map[string]error{"AAPL": pricesource.ErrSourceUnavailable},
	}
	e := New(source, repo, dec("10000"))

	e.RunAll(context.Background(), []string{"AAPL", models.InvalidSymbolSentinel, "MSFT"})

	assert.Equal(t, []string{"AAPL", "MSFT"}, source.queried)

	// MSFT dropped 3%, so the batch still bought it despite AAPL failing.
	require.Len(t, repo.trades, 1)
	assert.Equal(t, "MSFT", repo.trades[0].Symbol)
	assert.Equal(t, models.TradeBuy, repo.trades[0].Type)
}

func TestInitializePortfolio(t *testing.T) {
	repo := &mockRepository{}
	e := New(&mockPriceSource{}, repo, dec("10000"))

	portfolio, err := e.InitializePortfolio()
	require.NoError(t, err)
	assert.True(t, dec("10000").Equal(portfolio.Balance))
	assert.Equal(t, 1, repo.portfolioSaves)

	// A second call must not reset the stored record.
	repo.portfolio.Balance = dec("123")
	again, err := e.InitializePortfolio()
	require.NoError(t, err)
	assert.True(t, dec("123").Equal(again.Balance))
	assert.Equal(t, 1, repo.portfolioSaves)
}
