package persistence

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"stock-trading-bot-go/internal/models"

	"github.com/dgraph-io/badger/v3"
	"github.com/jxskiss/base62"
	"github.com/shopspring/decimal"
)

var (
	portfolioKey = []byte("portfolio")
	settingsKey  = []byte("bot_settings")
	symbolsKey   = []byte("trading_symbols")

	tradePrefix = []byte("trade:")
	perfPrefix  = []byte("perf:")
)

// badgerRepository is the BadgerDB implementation of Repository.
type badgerRepository struct {
	db       *badger.DB
	tradeSeq *badger.Sequence
	perfSeq  *badger.Sequence
}

// NewBadgerRepository opens (or creates) a BadgerDB database at dbPath and
// returns a repository backed by it.
func NewBadgerRepository(dbPath string) (Repository, error) {
	opts := badger.DefaultOptions(dbPath)
	// Badger's own logging is noisy; errors still surface through the
	// returned values of DB operations.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	tradeSeq, err := db.GetSequence([]byte("seq:trade"), 64)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open trade sequence: %w", err)
	}
	perfSeq, err := db.GetSequence([]byte("seq:perf"), 64)
	if err != nil {
		tradeSeq.Release()
		db.Close()
		return nil, fmt.Errorf("failed to open performance sequence: %w", err)
	}

	return &badgerRepository{db: db, tradeSeq: tradeSeq, perfSeq: perfSeq}, nil
}

// loadSingleton unmarshals the value at key into out, reporting found=false
// when the key does not exist.
func (r *badgerRepository) loadSingleton(key []byte, out interface{}) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// saveSingleton marshals value and writes it under key in one transaction.
func (r *badgerRepository) saveSingleton(key []byte, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// LoadPortfolio implements Repository.
func (r *badgerRepository) LoadPortfolio() (*models.Portfolio, error) {
	var portfolio models.Portfolio
	found, err := r.loadSingleton(portfolioKey, &portfolio)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	if !found {
		return nil, nil
	}
	// Maps may come back nil from older records; normalize so callers can
	// index without nil checks.
	if portfolio.Positions == nil {
		portfolio.Positions = make(map[string]int64)
	}
	if portfolio.LastPrices == nil {
		portfolio.LastPrices = make(map[string]decimal.Decimal)
	}
	return &portfolio, nil
}

// SavePortfolio implements Repository.
func (r *badgerRepository) SavePortfolio(portfolio *models.Portfolio) error {
	if err := r.saveSingleton(portfolioKey, portfolio); err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	return nil
}

// nextID draws the next value from seq and renders it as a compact base62
// string for use as a record ID. The raw sequence number keeps the log key
// ordering; the encoded form is what API clients see.
func nextID(seq *badger.Sequence) (uint64, string, error) {
	n, err := seq.Next()
	if err != nil {
		return 0, "", err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return n, base62.EncodeToString(buf[:]), nil
}

// logKey builds an append-log key with a fixed-width sequence suffix so that
// lexicographic key order matches append order.
func logKey(prefix []byte, n uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, n))
}

// AppendTrade implements Repository.
func (r *badgerRepository) AppendTrade(trade *models.Trade) error {
	n, id, err := nextID(r.tradeSeq)
	if err != nil {
		return fmt.Errorf("failed to allocate trade ID: %w", err)
	}
	trade.ID = id

	data, err := json.Marshal(trade)
	if err != nil {
		return err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(logKey(tradePrefix, n), data)
	})
	if err != nil {
		return fmt.Errorf("failed to append trade: %w", err)
	}
	return nil
}

// RecentTrades implements Repository.
func (r *badgerRepository) RecentTrades(limit int) ([]models.Trade, error) {
	trades := make([]models.Trade, 0, limit)
	err := r.scanRecent(tradePrefix, limit, func(val []byte) error {
		var trade models.Trade
		if err := json.Unmarshal(val, &trade); err != nil {
			return err
		}
		trades = append(trades, trade)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read trade log: %w", err)
	}
	return trades, nil
}

// AppendPerformance implements Repository.
func (r *badgerRepository) AppendPerformance(perf *models.Performance) error {
	n, id, err := nextID(r.perfSeq)
	if err != nil {
		return fmt.Errorf("failed to allocate performance ID: %w", err)
	}
	perf.ID = id

	data, err := json.Marshal(perf)
	if err != nil {
		return err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(logKey(perfPrefix, n), data)
	})
	if err != nil {
		return fmt.Errorf("failed to append performance snapshot: %w", err)
	}
	return nil
}

// RecentPerformance implements Repository.
func (r *badgerRepository) RecentPerformance(limit int) ([]models.Performance, error) {
	snapshots := make([]models.Performance, 0, limit)
	err := r.scanRecent(perfPrefix, limit, func(val []byte) error {
		var perf models.Performance
		if err := json.Unmarshal(val, &perf); err != nil {
			return err
		}
		snapshots = append(snapshots, perf)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read performance log: %w", err)
	}
	return snapshots, nil
}

// scanRecent walks an append log backwards, calling fn for up to limit
// values, newest first.
func (r *badgerRepository) scanRecent(prefix []byte, limit int, fn func(val []byte) error) error {
	return r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the last possible key of the prefix to start at the
		// newest entry.
		seek := append(append([]byte{}, prefix...), 0xFF)
		count := 0
		for it.Seek(seek); it.Valid() && count < limit; it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
			count++
		}
		return nil
	})
}

// LoadSettings implements Repository.
func (r *badgerRepository) LoadSettings() (*models.BotSettings, error) {
	var settings models.BotSettings
	found, err := r.loadSingleton(settingsKey, &settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load bot settings: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &settings, nil
}

// SaveSettings implements Repository.
func (r *badgerRepository) SaveSettings(settings *models.BotSettings) error {
	if err := r.saveSingleton(settingsKey, settings); err != nil {
		return fmt.Errorf("failed to save bot settings: %w", err)
	}
	return nil
}

// LoadSymbols implements Repository.
func (r *badgerRepository) LoadSymbols() ([]string, error) {
	var symbols []string
	found, err := r.loadSingleton(symbolsKey, &symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to load trading symbols: %w", err)
	}
	if !found {
		return []string{}, nil
	}
	return symbols, nil
}

// SaveSymbols implements Repository.
func (r *badgerRepository) SaveSymbols(symbols []string) error {
	if err := r.saveSingleton(symbolsKey, symbols); err != nil {
		return fmt.Errorf("failed to save trading symbols: %w", err)
	}
	return nil
}

// Close releases the ID sequences and closes the database.
func (r *badgerRepository) Close() error {
	if err := r.tradeSeq.Release(); err != nil {
		return err
	}
	if err := r.perfSeq.Release(); err != nil {
		return err
	}
	return r.db.Close()
}
