// backend/src/models/analytics.go
package models

import "github.com/shopspring/decimal"

// AggregateBucket maps one grouping key value to its summary statistics.
// Buckets are recomputed on demand and never mutated in place.
type AggregateBucket struct {
	Key           string          `json:"key"`
	TradeCount    int             `json:"trade_count"`
	TotalQuantity int64           `json:"total_quantity"`
	BuyValue      decimal.Decimal `json:"buy_value"`
	SellValue     decimal.Decimal `json:"sell_value"`
	NetValue      decimal.Decimal `json:"net_value"` // sell value minus buy value
	MeanPrice     decimal.Decimal `json:"mean_price"`
}

// BehavioralMetrics are the discipline flags derived from per-day buckets.
type BehavioralMetrics struct {
	OvertradingDays       int `json:"overtrading_days"`
	HighLossDays          int `json:"high_loss_days"`
	WinDays               int `json:"win_days"`
	LossStreakTransitions int `json:"loss_streak_transitions"`
}
