// backend/src/processors/behavior_processor.go
package processors

import (
	"github.com/shopspring/decimal"

	"github.com/username/tradevisor/backend/src/models"
)

// BehaviorThresholds configures the discipline flags.
type BehaviorThresholds struct {
	// OvertradingTradesPerDay: days with strictly more trades than this count
	// as overtrading days.
	OvertradingTradesPerDay int
	// HighLossNetValue: days with a net value strictly below this (negative)
	// threshold count as high-loss days.
	HighLossNetValue decimal.Decimal
}

// BehaviorProcessor derives behavioral metrics from per-day buckets.
type BehaviorProcessor struct {
	thresholds BehaviorThresholds
}

func NewBehaviorProcessor(thresholds BehaviorThresholds) *BehaviorProcessor {
	return &BehaviorProcessor{thresholds: thresholds}
}

// Process computes the four behavioral metrics from per-day aggregate
// buckets. dayBuckets must be in chronological order (as produced by
// AggregationProcessor.ByDay); the loss-streak count depends on it.
func (p *BehaviorProcessor) Process(dayBuckets []models.AggregateBucket) models.BehavioralMetrics {
	var m models.BehavioralMetrics
	prevLoss := false
	for i, day := range dayBuckets {
		if day.TradeCount > p.thresholds.OvertradingTradesPerDay {
			m.OvertradingDays++
		}
		if day.NetValue.LessThan(p.thresholds.HighLossNetValue) {
			m.HighLossDays++
		}
		if day.NetValue.IsPositive() {
			m.WinDays++
		}

		loss := day.NetValue.IsNegative()
		// Rising edge only: a loss on the first day starts no transition.
		if i > 0 && loss && !prevLoss {
			m.LossStreakTransitions++
		}
		prevLoss = loss
	}
	return m
}
