// backend/src/processors/match_processor.go
package processors

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/username/tradevisor/backend/src/models"
	"github.com/username/tradevisor/backend/src/utils"
)

// MatchProcessor reconstructs round-trip trades by pairing buy executions
// with later sell executions of the same instrument root.
type MatchProcessor struct{}

func NewMatchProcessor() *MatchProcessor { return &MatchProcessor{} }

// indexedRecord keeps the original input position so sorting stays stable
// across equal timestamps.
type indexedRecord struct {
	models.ExecutionRecord
	inputOrder int
}

// Process pairs buys with sells per instrument root, in first-encountered
// root order. For each buy, taken in ascending execution time, the earliest
// not-yet-consumed sell with a strictly later execution time is matched.
// Each sell satisfies at most one buy; legs without an eligible counterpart
// produce no trade. The matched quantity is min(buy, sell) and unmatched
// remainders are not carried into further matches.
func (p *MatchProcessor) Process(records []models.ExecutionRecord) []models.MatchedTrade {
	buysByRoot := make(map[string][]indexedRecord)
	sellsByRoot := make(map[string][]indexedRecord)
	var rootOrder []string

	for i, rec := range records {
		root := rec.InstrumentRoot
		if _, seen := buysByRoot[root]; !seen {
			if _, seen := sellsByRoot[root]; !seen {
				rootOrder = append(rootOrder, root)
			}
		}
		ir := indexedRecord{ExecutionRecord: rec, inputOrder: i}
		if rec.Side == models.SideBuy {
			buysByRoot[root] = append(buysByRoot[root], ir)
		} else {
			sellsByRoot[root] = append(sellsByRoot[root], ir)
		}
	}

	var trades []models.MatchedTrade
	for _, root := range rootOrder {
		trades = append(trades, matchRoot(buysByRoot[root], sellsByRoot[root])...)
	}
	return trades
}

// matchRoot runs the greedy earliest-available pairing for one instrument root.
func matchRoot(buys, sells []indexedRecord) []models.MatchedTrade {
	if len(buys) == 0 || len(sells) == 0 {
		return nil
	}

	sortByTime(buys)
	sortByTime(sells)

	consumed := make([]bool, len(sells))
	var trades []models.MatchedTrade
	for _, buy := range buys {
		for i, sell := range sells {
			if consumed[i] || !sell.ExecutedAt.After(buy.ExecutedAt) {
				continue
			}
			consumed[i] = true
			trades = append(trades, newMatchedTrade(buy.ExecutionRecord, sell.ExecutionRecord))
			break
		}
	}
	return trades
}

func sortByTime(recs []indexedRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].ExecutedAt.Equal(recs[j].ExecutedAt) {
			return recs[i].ExecutedAt.Before(recs[j].ExecutedAt)
		}
		return recs[i].inputOrder < recs[j].inputOrder
	})
}

func newMatchedTrade(buy, sell models.ExecutionRecord) models.MatchedTrade {
	quantity := buy.Quantity
	if sell.Quantity < quantity {
		quantity = sell.Quantity
	}
	pnl := sell.Price.Sub(buy.Price).Mul(decimal.NewFromInt(quantity))
	holding := sell.ExecutedAt.Sub(buy.ExecutedAt)
	return models.MatchedTrade{
		InstrumentRoot:  buy.InstrumentRoot,
		BuySymbol:       buy.Symbol,
		SellSymbol:      sell.Symbol,
		BuyTime:         buy.ExecutedAt,
		SellTime:        sell.ExecutedAt,
		HoldingDuration: holding,
		HoldingSeconds:  holding.Seconds(),
		MatchedQuantity: quantity,
		BuyPrice:        buy.Price,
		SellPrice:       sell.Price,
		RealizedPnL:     pnl,
		IsWinner:        pnl.IsPositive(),
	}
}

// ComputeMatchStats summarizes a matched-trade set. An empty input yields
// zero-valued stats, never an error.
func ComputeMatchStats(trades []models.MatchedTrade) models.MatchStats {
	stats := models.MatchStats{TotalRealizedPnL: decimal.Zero}
	if len(trades) == 0 {
		return stats
	}

	var totalHolding, maxHolding float64
	for _, t := range trades {
		stats.TotalMatches++
		if t.IsWinner {
			stats.Winners++
		}
		stats.TotalRealizedPnL = stats.TotalRealizedPnL.Add(t.RealizedPnL)
		totalHolding += t.HoldingSeconds
		if t.HoldingSeconds > maxHolding {
			maxHolding = t.HoldingSeconds
		}
	}
	stats.WinRate = utils.RoundFloat(float64(stats.Winners)/float64(stats.TotalMatches), 4)
	stats.AvgHoldingSeconds = utils.RoundFloat(totalHolding/float64(stats.TotalMatches), 2)
	stats.MaxHoldingSeconds = maxHolding
	return stats
}
