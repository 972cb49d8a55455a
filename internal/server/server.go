package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"stock-trading-bot-go/internal/executor"
	"stock-trading-bot-go/internal/logger"
	"stock-trading-bot-go/internal/models"
	"stock-trading-bot-go/internal/persistence"
	"stock-trading-bot-go/internal/pricesource"

	"github.com/shopspring/decimal"
)

const (
	tradeHistoryLimit = 50
	performanceLimit  = 30
)

// Server exposes the bot over HTTP: quotes, on-demand trade cycles, account
// state and configuration of thresholds and symbols.
type Server struct {
	source         pricesource.PriceSource
	repo           persistence.Repository
	executor       *executor.Executor
	initialBalance decimal.Decimal
}

// New wires the API against its collaborators. initialBalance is the cash
// the account started with; the portfolio response reports profit and loss
// relative to it.
func New(source pricesource.PriceSource, repo persistence.Repository, exec *executor.Executor, initialBalance decimal.Decimal) *Server {
	return &Server{source: source, repo: repo, executor: exec, initialBalance: initialBalance}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /price/{symbol}", s.handlePrice)
	mux.HandleFunc("GET /trade/{symbol}", s.handleTrade)
	mux.HandleFunc("GET /portfolio", s.handlePortfolio)
	mux.HandleFunc("GET /trades", s.handleTrades)
	mux.HandleFunc("GET /performance", s.handlePerformance)
	mux.HandleFunc("GET /bot/settings", s.handleGetSettings)
	mux.HandleFunc("POST /bot/settings", s.handleUpdateSettings)
	mux.HandleFunc("GET /config/symbols", s.handleGetSymbols)
	mux.HandleFunc("POST /config/symbols", s.handleAddSymbols)
	mux.HandleFunc("DELETE /config/symbols", s.handleDeleteSymbol)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.S().Errorw("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusForQuoteError maps the price source taxonomy onto HTTP statuses.
func statusForQuoteError(err error) int {
	switch {
	case errors.Is(err, pricesource.ErrInvalidSymbol):
		return http.StatusBadRequest
	case errors.Is(err, pricesource.ErrSourceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	price, err := s.source.Quote(r.Context(), symbol)
	if err != nil {
		writeError(w, statusForQuoteError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"symbol": symbol, "price": price})
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == models.InvalidSymbolSentinel {
		writeError(w, http.StatusBadRequest, "invalid symbol")
		return
	}

	result, err := s.executor.RunOne(r.Context(), symbol)
	if err != nil {
		writeError(w, statusForQuoteError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// positionView is the per-symbol breakdown in the portfolio response.
type positionView struct {
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Value    decimal.Decimal `json:"value"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := s.repo.LoadPortfolio()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if portfolio == nil {
		writeError(w, http.StatusNotFound, "no portfolio recorded yet")
		return
	}

	totalValue := portfolio.Balance
	positions := make(map[string]positionView, len(portfolio.Positions))
	for symbol, quantity := range portfolio.Positions {
		// Prefer a live quote for valuation; fall back to the last
		// observed price when the source is down.
		price, err := s.source.Quote(r.Context(), symbol)
		if err != nil {
			price = portfolio.LastPrices[symbol]
		}
		value := price.Mul(decimal.NewFromInt(quantity))
		totalValue = totalValue.Add(value)
		positions[symbol] = positionView{Quantity: quantity, Price: price, Value: value}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance":    portfolio.Balance,
		"positions":  positions,
		"totalValue": totalValue,
		"profitLoss": totalValue.Sub(s.initialBalance),
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.repo.RecentTrades(tradeHistoryLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.repo.RecentPerformance(performanceLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.repo.LoadSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if settings == nil {
		defaults := models.DefaultSettings()
		settings = &defaults
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BuyThreshold  *decimal.Decimal `json:"buyThreshold"`
		SellThreshold *decimal.Decimal `json:"sellThreshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "thresholds must be numbers")
		return
	}
	if req.BuyThreshold == nil || req.SellThreshold == nil {
		writeError(w, http.StatusBadRequest, "buyThreshold and sellThreshold are required")
		return
	}

	settings := &models.BotSettings{
		BuyThreshold:  *req.BuyThreshold,
		SellThreshold: *req.SellThreshold,
	}
	if err := s.repo.SaveSettings(settings); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.S().Infow("Updated bot settings",
		"buyThreshold", settings.BuyThreshold, "sellThreshold", settings.SellThreshold)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Bot settings updated successfully",
		"settings": settings,
	})
}

func (s *Server) handleGetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.repo.LoadSymbols()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, symbols)
}

func (s *Server) handleAddSymbols(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbols []string `json:"symbols"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbols == nil {
		writeError(w, http.StatusBadRequest, "symbols must be an array")
		return
	}

	symbols, err := s.repo.LoadSymbols()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	seen := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		seen[symbol] = true
	}
	for _, symbol := range req.Symbols {
		// The sentinel and empty strings never enter the stored set.
		if symbol == "" || symbol == models.InvalidSymbolSentinel || seen[symbol] {
			continue
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	}

	if err := s.repo.SaveSymbols(symbols); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.S().Infow("Updated trading symbols", "symbols", symbols)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Trading symbols updated successfully",
		"symbols": symbols,
	})
}

func (s *Server) handleDeleteSymbol(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	symbols, err := s.repo.LoadSymbols()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	remaining := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if symbol != req.Symbol {
			remaining = append(remaining, symbol)
		}
	}

	if err := s.repo.SaveSymbols(remaining); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.S().Infow("Deleted trading symbol", "symbol", req.Symbol)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Trading symbol deleted successfully",
		"symbols": remaining,
	})
}
