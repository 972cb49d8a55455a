package reporter

import (
	"os"
	"sort"

	"stock-trading-bot-go/internal/logger"
	"stock-trading-bot-go/internal/persistence"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
)

const recentTradeCount = 10

// PrintSummary renders the current account state to stdout: valuation
// figures, open positions and the most recent trades. Used on shutdown and
// on demand; the periodic snapshots live in the performance log instead.
func PrintSummary(repo persistence.Repository) {
	portfolio, err := repo.LoadPortfolio()
	if err != nil {
		logger.S().Errorw("Failed to load portfolio for report", "error", err)
		return
	}
	if portfolio == nil {
		logger.S().Info("No portfolio recorded yet, nothing to report")
		return
	}

	summary := table.NewWriter()
	summary.SetOutputMirror(os.Stdout)
	summary.SetStyle(table.StyleLight)
	summary.SetTitle("Account Summary")
	summary.AppendRow(table.Row{"Cash Balance", portfolio.Balance.StringFixed(2)})
	summary.AppendRow(table.Row{"Total Value", portfolio.TotalValue().StringFixed(2)})
	summary.AppendRow(table.Row{"Open Positions", len(portfolio.Positions)})
	summary.Render()

	if len(portfolio.Positions) > 0 {
		symbols := make([]string, 0, len(portfolio.Positions))
		for symbol := range portfolio.Positions {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)

		positions := table.NewWriter()
		positions.SetOutputMirror(os.Stdout)
		positions.SetStyle(table.StyleLight)
		positions.SetTitle("Positions")
		positions.AppendHeader(table.Row{"Symbol", "Quantity", "Last Price", "Value"})
		for _, symbol := range symbols {
			quantity := portfolio.Positions[symbol]
			price := portfolio.LastPrices[symbol]
			value := price.Mul(decimal.NewFromInt(quantity))
			positions.AppendRow(table.Row{symbol, quantity, price.StringFixed(2), value.StringFixed(2)})
		}
		positions.Render()
	}

	trades, err := repo.RecentTrades(recentTradeCount)
	if err != nil {
		logger.S().Errorw("Failed to load trades for report", "error", err)
		return
	}
	if len(trades) == 0 {
		return
	}

	recent := table.NewWriter()
	recent.SetOutputMirror(os.Stdout)
	recent.SetStyle(table.StyleLight)
	recent.SetTitle("Recent Trades")
	recent.AppendHeader(table.Row{"Time", "Symbol", "Type", "Quantity", "Price"})
	for _, trade := range trades {
		recent.AppendRow(table.Row{
			trade.Timestamp.Format("2006-01-02 15:04:05"),
			trade.Symbol,
			trade.Type,
			trade.Quantity,
			trade.Price.StringFixed(2),
		})
	}
	recent.Render()
}
