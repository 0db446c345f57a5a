// backend/src/processors/aggregation_processor.go
package processors

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/tradevisor/backend/src/models"
)

// weekdayOrder fixes the calendar ordering of weekday buckets.
var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// AggregationProcessor groups execution records into summary buckets.
type AggregationProcessor struct{}

func NewAggregationProcessor() *AggregationProcessor { return &AggregationProcessor{} }

// ByDay buckets records per calendar day ("2006-01-02"), chronologically ordered.
func (p *AggregationProcessor) ByDay(records []models.ExecutionRecord) []models.AggregateBucket {
	buckets := aggregate(records, func(r models.ExecutionRecord) string {
		return r.ExecutedAt.Format("2006-01-02")
	})
	// Day keys are ISO dates, so lexicographic order is chronological.
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
	return buckets
}

// ByHour buckets records per hour of day (0-23), ascending. Absent hours are
// omitted unless dense is set, in which case every hour gets a zero-valued slot.
func (p *AggregationProcessor) ByHour(records []models.ExecutionRecord, dense bool) []models.AggregateBucket {
	buckets := aggregate(records, func(r models.ExecutionRecord) string {
		return strconv.Itoa(r.ExecutedAt.Hour())
	})
	sort.SliceStable(buckets, func(i, j int) bool {
		hi, _ := strconv.Atoi(buckets[i].Key)
		hj, _ := strconv.Atoi(buckets[j].Key)
		return hi < hj
	})
	if !dense {
		return buckets
	}

	present := make(map[string]models.AggregateBucket, len(buckets))
	for _, b := range buckets {
		present[b.Key] = b
	}
	filled := make([]models.AggregateBucket, 0, 24)
	for h := 0; h < 24; h++ {
		key := strconv.Itoa(h)
		if b, ok := present[key]; ok {
			filled = append(filled, b)
			continue
		}
		filled = append(filled, emptyBucket(key))
	}
	return filled
}

// ByWeekday buckets records per weekday name, always in Monday..Sunday
// calendar order; weekdays with no records are omitted.
func (p *AggregationProcessor) ByWeekday(records []models.ExecutionRecord) []models.AggregateBucket {
	buckets := aggregate(records, func(r models.ExecutionRecord) string {
		return r.ExecutedAt.Weekday().String()
	})
	byKey := make(map[string]models.AggregateBucket, len(buckets))
	for _, b := range buckets {
		byKey[b.Key] = b
	}
	ordered := make([]models.AggregateBucket, 0, len(buckets))
	for _, wd := range weekdayOrder {
		if b, ok := byKey[wd.String()]; ok {
			ordered = append(ordered, b)
		}
	}
	return ordered
}

// ByInstrument buckets records per instrument root, in first-encountered order.
func (p *AggregationProcessor) ByInstrument(records []models.ExecutionRecord) []models.AggregateBucket {
	return aggregate(records, func(r models.ExecutionRecord) string {
		return r.InstrumentRoot
	})
}

// BestAndWorst picks the buckets with the highest and lowest net value.
// Ties go to the first-encountered bucket in the given order. Both results
// are nil for an empty input.
func BestAndWorst(buckets []models.AggregateBucket) (best, worst *models.AggregateBucket) {
	for i := range buckets {
		b := &buckets[i]
		if best == nil || b.NetValue.GreaterThan(best.NetValue) {
			best = b
		}
		if worst == nil || b.NetValue.LessThan(worst.NetValue) {
			worst = b
		}
	}
	return best, worst
}

// aggregate builds one bucket per distinct key, preserving first-encountered
// key order. Each call produces a fresh slice; input records are never mutated.
func aggregate(records []models.ExecutionRecord, keyOf func(models.ExecutionRecord) string) []models.AggregateBucket {
	type accumulator struct {
		bucket   models.AggregateBucket
		sumPrice decimal.Decimal
	}

	accByKey := make(map[string]*accumulator)
	var keyOrder []string
	for _, rec := range records {
		key := keyOf(rec)
		acc, ok := accByKey[key]
		if !ok {
			acc = &accumulator{bucket: emptyBucket(key), sumPrice: decimal.Zero}
			accByKey[key] = acc
			keyOrder = append(keyOrder, key)
		}
		acc.bucket.TradeCount++
		acc.bucket.TotalQuantity += rec.Quantity
		if rec.Side == models.SideSell {
			acc.bucket.SellValue = acc.bucket.SellValue.Add(rec.TradeValue)
		} else {
			acc.bucket.BuyValue = acc.bucket.BuyValue.Add(rec.TradeValue)
		}
		acc.bucket.NetValue = acc.bucket.NetValue.Add(rec.SignedValue())
		acc.sumPrice = acc.sumPrice.Add(rec.Price)
	}

	buckets := make([]models.AggregateBucket, 0, len(keyOrder))
	for _, key := range keyOrder {
		acc := accByKey[key]
		acc.bucket.MeanPrice = acc.sumPrice.Div(decimal.NewFromInt(int64(acc.bucket.TradeCount))).Round(4)
		buckets = append(buckets, acc.bucket)
	}
	return buckets
}

func emptyBucket(key string) models.AggregateBucket {
	return models.AggregateBucket{
		Key:       key,
		BuyValue:  decimal.Zero,
		SellValue: decimal.Zero,
		NetValue:  decimal.Zero,
		MeanPrice: decimal.Zero,
	}
}
