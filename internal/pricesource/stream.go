package pricesource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stock-trading-bot-go/internal/logger"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// StreamSource keeps a cache of last trade prices fed by the Finnhub
// websocket trade stream. Quote serves from the cache and falls back to the
// wrapped REST source for symbols that have not traded since the stream
// connected, so a cold cache never stalls a trading cycle.
type StreamSource struct {
	wsURL    string
	apiKey   string
	fallback PriceSource

	mu         sync.RWMutex
	conn       *websocket.Conn
	prices     map[string]decimal.Decimal
	subscribed map[string]bool
	stopChan   chan struct{}
}

// streamMessage is the envelope Finnhub sends over the websocket.
type streamMessage struct {
	Type string `json:"type"`
	Data []struct {
		Symbol string          `json:"s"`
		Price  decimal.Decimal `json:"p"`
	} `json:"data"`
}

// NewStreamSource connects to the Finnhub trade stream at wsURL. Quotes for
// symbols without streamed data yet are delegated to fallback.
func NewStreamSource(wsURL, apiKey string, fallback PriceSource) (*StreamSource, error) {
	s := &StreamSource{
		wsURL:      wsURL,
		apiKey:     apiKey,
		fallback:   fallback,
		prices:     make(map[string]decimal.Decimal),
		subscribed: make(map[string]bool),
		stopChan:   make(chan struct{}),
	}

	if err := s.connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	go s.readLoop()
	return s, nil
}

func (s *StreamSource) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL+"?token="+s.apiKey, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	// Re-subscribe everything we were watching before a reconnect.
	for symbol := range s.subscribed {
		if err := conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": symbol}); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	logger.S().Infow("Connected to price stream", "url", s.wsURL)
	return nil
}

// readLoop consumes stream messages and refreshes the price cache,
// reconnecting with a delay after any read failure.
func (s *StreamSource) readLoop() {
	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()

		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.stopChan:
				return
			default:
			}
			logger.S().Warnw("Price stream read failed, reconnecting", "error", err)
			time.Sleep(5 * time.Second)
			if err := s.connect(); err != nil {
				logger.S().Errorw("Price stream reconnect failed", "error", err)
			}
			continue
		}

		if msg.Type != "trade" {
			continue
		}

		s.mu.Lock()
		for _, trade := range msg.Data {
			if trade.Price.Sign() > 0 {
				s.prices[trade.Symbol] = trade.Price
			}
		}
		s.mu.Unlock()
	}
}

// subscribe registers interest in a symbol, once.
func (s *StreamSource) subscribe(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribed[symbol] {
		return nil
	}
	if err := s.conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": symbol}); err != nil {
		return err
	}
	s.subscribed[symbol] = true
	return nil
}

// Quote implements PriceSource.
func (s *StreamSource) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := s.subscribe(symbol); err != nil {
		logger.S().Warnw("Stream subscribe failed", "symbol", symbol, "error", err)
	}

	s.mu.RLock()
	price, ok := s.prices[symbol]
	s.mu.RUnlock()

	if ok {
		return price, nil
	}
	return s.fallback.Quote(ctx, symbol)
}

// Close stops the read loop and closes the websocket connection.
func (s *StreamSource) Close() error {
	close(s.stopChan)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
