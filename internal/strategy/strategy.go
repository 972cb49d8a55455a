// Package strategy holds the pure threshold decision engine. Decide performs
// no I/O and touches no shared state, which is what keeps it independently
// testable: the executor owns every side effect.
package strategy

import (
	"stock-trading-bot-go/internal/models"

	"github.com/shopspring/decimal"
)

// Action is the outcome of one strategy evaluation.
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
	Hold Action = "hold"
)

// Input carries everything a decision depends on. CurrentPrice is expected
// to be positive; a non-positive value yields a hold rather than arithmetic
// on a meaningless quote. LastPrice may be zero to mean "never observed";
// the first evaluation of a symbol then sees no price movement and holds,
// which prevents phantom trades against a synthetic zero baseline.
type Input struct {
	Symbol       string
	CurrentPrice decimal.Decimal
	LastPrice    decimal.Decimal
	Position     int64
	Balance      decimal.Decimal
	Settings     models.BotSettings
}

// Decision is the computed action together with the resulting account state
// for the evaluated symbol.
type Decision struct {
	Action   Action
	Quantity int64           // shares bought or sold, zero on hold
	Balance  decimal.Decimal // cash after applying the action
	Position int64           // shares held for the symbol after the action
}

var oneHundred = decimal.NewFromInt(100)

// Decide applies the percentage-threshold rule:
//
//   - buy when the relative change since the last observation is at or below
//     BuyThreshold% and the balance covers at least one share; the quantity
//     is floor(balance/price), so the balance can never go negative;
//   - sell the entire position when the change is at or above SellThreshold%
//     and any shares are held;
//   - hold otherwise.
//
// With a pathological configuration (BuyThreshold >= SellThreshold) both
// conditions can be true at once; buy is evaluated first and wins. That
// tie-break is fixed, not incidental.
func Decide(in Input) Decision {
	// A non-positive price cannot be divided by or traded against; treat it
	// as no observation and hold.
	if in.CurrentPrice.Sign() <= 0 {
		return Decision{
			Action:   Hold,
			Balance:  in.Balance,
			Position: in.Position,
		}
	}

	lastPrice := in.LastPrice
	if lastPrice.Sign() <= 0 {
		lastPrice = in.CurrentPrice
	}
	priceChange := in.CurrentPrice.Sub(lastPrice).Div(lastPrice)

	buyLimit := in.Settings.BuyThreshold.Div(oneHundred)
	sellLimit := in.Settings.SellThreshold.Div(oneHundred)

	if priceChange.LessThanOrEqual(buyLimit) && in.Balance.GreaterThanOrEqual(in.CurrentPrice) {
		quantity := in.Balance.Div(in.CurrentPrice).Floor().IntPart()
		return Decision{
			Action:   Buy,
			Quantity: quantity,
			Balance:  in.Balance.Sub(in.CurrentPrice.Mul(decimal.NewFromInt(quantity))),
			Position: in.Position + quantity,
		}
	}

	if priceChange.GreaterThanOrEqual(sellLimit) && in.Position > 0 {
		return Decision{
			Action:   Sell,
			Quantity: in.Position,
			Balance:  in.Balance.Add(in.CurrentPrice.Mul(decimal.NewFromInt(in.Position))),
			Position: 0,
		}
	}

	return Decision{
		Action:   Hold,
		Balance:  in.Balance,
		Position: in.Position,
	}
}
