package processors

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/tradevisor/backend/src/models"
)

func TestByDay_ChronologicalOrderAndTotals(t *testing.T) {
	records := []models.ExecutionRecord{
		leg("AAA", models.SideSell, 10, 110, at(3, 10, 0)),
		leg("AAA", models.SideBuy, 10, 100, at(2, 9, 30)),
		leg("AAA", models.SideBuy, 5, 50, at(3, 9, 0)),
	}

	buckets := NewAggregationProcessor().ByDay(records)

	if len(buckets) != 2 {
		t.Fatalf("expected 2 day buckets, got %d", len(buckets))
	}
	if buckets[0].Key != "2024-05-02" || buckets[1].Key != "2024-05-03" {
		t.Fatalf("day buckets out of chronological order: %q, %q", buckets[0].Key, buckets[1].Key)
	}

	total := 0
	for _, b := range buckets {
		total += b.TradeCount
	}
	if total != len(records) {
		t.Errorf("bucket trade counts sum to %d, want %d", total, len(records))
	}

	day2 := buckets[1]
	// sell 10*110 - buy 5*50 = 1100 - 250 = 850
	if !day2.NetValue.Equal(decimal.NewFromInt(850)) {
		t.Errorf("expected day net value 850, got %s", day2.NetValue)
	}
	if !day2.MeanPrice.Equal(decimal.NewFromInt(80)) {
		t.Errorf("expected mean price 80, got %s", day2.MeanPrice)
	}
	if day2.TotalQuantity != 15 {
		t.Errorf("expected total quantity 15, got %d", day2.TotalQuantity)
	}
}

func TestByHour_SparseAndDense(t *testing.T) {
	records := []models.ExecutionRecord{
		leg("AAA", models.SideBuy, 1, 10, at(2, 15, 0)),
		leg("AAA", models.SideBuy, 1, 10, at(2, 9, 0)),
		leg("AAA", models.SideBuy, 1, 10, at(2, 9, 30)),
	}
	p := NewAggregationProcessor()

	sparse := p.ByHour(records, false)
	if len(sparse) != 2 {
		t.Fatalf("expected 2 sparse hour buckets, got %d", len(sparse))
	}
	if sparse[0].Key != "9" || sparse[1].Key != "15" {
		t.Fatalf("hour buckets out of numeric order: %q, %q", sparse[0].Key, sparse[1].Key)
	}
	if sparse[0].TradeCount != 2 {
		t.Errorf("expected 2 trades in hour 9, got %d", sparse[0].TradeCount)
	}

	dense := p.ByHour(records, true)
	if len(dense) != 24 {
		t.Fatalf("expected 24 dense hour buckets, got %d", len(dense))
	}
	if dense[0].Key != "0" || dense[23].Key != "23" {
		t.Fatalf("dense buckets must cover 0..23, got %q..%q", dense[0].Key, dense[23].Key)
	}
	if dense[9].TradeCount != 2 || dense[15].TradeCount != 1 {
		t.Errorf("dense fill moved counts: hour9=%d hour15=%d", dense[9].TradeCount, dense[15].TradeCount)
	}
	if dense[3].TradeCount != 0 || !dense[3].NetValue.IsZero() {
		t.Errorf("expected zero-valued slot for absent hour, got %+v", dense[3])
	}
}

func TestByWeekday_CalendarOrder(t *testing.T) {
	// 2024-05-03 is a Friday, 2024-05-06 a Monday, 2024-05-08 a Wednesday.
	records := []models.ExecutionRecord{
		leg("AAA", models.SideBuy, 1, 10, at(3, 9, 0)),
		leg("AAA", models.SideBuy, 1, 10, at(8, 9, 0)),
		leg("AAA", models.SideBuy, 1, 10, at(6, 9, 0)),
	}

	buckets := NewAggregationProcessor().ByWeekday(records)

	want := []string{"Monday", "Wednesday", "Friday"}
	if len(buckets) != len(want) {
		t.Fatalf("expected %d weekday buckets, got %d", len(want), len(buckets))
	}
	for i, b := range buckets {
		if b.Key != want[i] {
			t.Errorf("weekday bucket %d: got %q, want %q (calendar order)", i, b.Key, want[i])
		}
	}
}

func TestByInstrument_FirstEncounteredOrder(t *testing.T) {
	records := []models.ExecutionRecord{
		leg("NIFTY2450022000PE", models.SideBuy, 1, 10, at(2, 9, 0)),
		leg("BANKNIFTY2451248000CE", models.SideBuy, 1, 10, at(2, 9, 5)),
		leg("NIFTY2455021000CE", models.SideSell, 1, 10, at(2, 9, 10)),
	}

	buckets := NewAggregationProcessor().ByInstrument(records)

	if len(buckets) != 2 {
		t.Fatalf("expected 2 instrument buckets, got %d", len(buckets))
	}
	if buckets[0].Key != "NIFTY" || buckets[1].Key != "BANKNIFTY" {
		t.Errorf("instrument buckets must keep first-encountered order, got %q, %q",
			buckets[0].Key, buckets[1].Key)
	}
	if buckets[0].TradeCount != 2 {
		t.Errorf("expected both NIFTY strikes in one root bucket, got count %d", buckets[0].TradeCount)
	}
}

func TestBestAndWorst(t *testing.T) {
	records := []models.ExecutionRecord{
		leg("AAA", models.SideSell, 10, 100, at(2, 9, 0)),  // day 2: +1000
		leg("BBB", models.SideBuy, 10, 50, at(3, 9, 0)),    // day 3: -500
		leg("CCC", models.SideSell, 10, 100, at(4, 9, 0)),  // day 4: +1000 (tie with day 2)
	}
	buckets := NewAggregationProcessor().ByDay(records)

	best, worst := BestAndWorst(buckets)

	if best == nil || worst == nil {
		t.Fatal("expected non-nil best and worst")
	}
	if best.Key != "2024-05-02" {
		t.Errorf("tie must go to the first-encountered bucket, got best %q", best.Key)
	}
	if worst.Key != "2024-05-03" {
		t.Errorf("expected worst day 2024-05-03, got %q", worst.Key)
	}
}

func TestBestAndWorst_Empty(t *testing.T) {
	best, worst := BestAndWorst(nil)
	if best != nil || worst != nil {
		t.Fatal("expected nil best/worst for empty buckets")
	}
}

func TestAggregate_EmptyInput(t *testing.T) {
	p := NewAggregationProcessor()
	if got := p.ByDay(nil); len(got) != 0 {
		t.Errorf("ByDay(nil) = %d buckets, want 0", len(got))
	}
	if got := p.ByWeekday(nil); len(got) != 0 {
		t.Errorf("ByWeekday(nil) = %d buckets, want 0", len(got))
	}
	if got := p.ByHour(nil, true); len(got) != 24 {
		t.Errorf("dense ByHour(nil) = %d buckets, want 24 zero slots", len(got))
	}
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	rec := leg("AAA", models.SideBuy, 10, 100, time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))
	records := []models.ExecutionRecord{rec}

	NewAggregationProcessor().ByDay(records)

	if records[0].Quantity != 10 || !records[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Fatal("aggregation mutated its input records")
	}
}
