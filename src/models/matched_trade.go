// backend/src/models/matched_trade.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchedTrade is a reconstructed round trip: one buy leg paired with one
// strictly later sell leg of the same instrument root. Derived, read-only,
// recomputed fully on every analysis run.
type MatchedTrade struct {
	InstrumentRoot  string          `json:"instrument_root"`
	BuySymbol       string          `json:"buy_symbol"`
	SellSymbol      string          `json:"sell_symbol"`
	BuyTime         time.Time       `json:"buy_time"`
	SellTime        time.Time       `json:"sell_time"`
	HoldingDuration time.Duration   `json:"-"`
	HoldingSeconds  float64         `json:"holding_seconds"`
	MatchedQuantity int64           `json:"matched_quantity"` // min(buy qty, sell qty); remainders are not re-matched
	BuyPrice        decimal.Decimal `json:"buy_price"`
	SellPrice       decimal.Decimal `json:"sell_price"`
	RealizedPnL     decimal.Decimal `json:"realized_pnl"`
	IsWinner        bool            `json:"is_winner"`
}

// MatchStats summarizes a set of matched trades.
type MatchStats struct {
	TotalMatches      int             `json:"total_matches"`
	Winners           int             `json:"winners"`
	WinRate           float64         `json:"win_rate"` // winners / total, 0 when empty
	TotalRealizedPnL  decimal.Decimal `json:"total_realized_pnl"`
	AvgHoldingSeconds float64         `json:"avg_holding_seconds"`
	MaxHoldingSeconds float64         `json:"max_holding_seconds"`
}
