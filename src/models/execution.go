// backend/src/models/execution.go
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side marks the direction of an execution leg.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ExecutionRecord is one filled order leg from a brokerage tradebook.
// Records are created once at parse time and never mutated afterwards.
type ExecutionRecord struct {
	Symbol         string          `json:"symbol"`
	InstrumentRoot string          `json:"instrument_root"`
	Side           Side            `json:"side"`
	Quantity       int64           `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	TradeValue     decimal.Decimal `json:"trade_value"` // quantity * price
	ExecutedAt     time.Time       `json:"executed_at"`
}

// SignedValue returns the trade value with sell positive and buy negative,
// the net-PnL proxy used throughout the aggregations.
func (r ExecutionRecord) SignedValue() decimal.Decimal {
	if r.Side == SideSell {
		return r.TradeValue
	}
	return r.TradeValue.Neg()
}

// InstrumentRootOf derives the underlying instrument name from a derivative
// symbol by truncating at the first digit (expiry/strike/option suffix).
// A symbol without digits is returned unchanged.
func InstrumentRootOf(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	for i, r := range symbol {
		if r >= '0' && r <= '9' {
			return symbol[:i]
		}
	}
	return symbol
}

// ParseResult is the outcome of normalizing one uploaded tradebook.
// Rows that fail row-level validation are excluded and counted, rows with a
// non-complete status are filtered and counted; neither aborts the parse.
type ParseResult struct {
	Records      []ExecutionRecord `json:"records"`
	SkippedRows  int               `json:"skipped_rows"`
	FilteredRows int               `json:"filtered_rows"`
}

// SchemaError reports every required column missing from the upload header.
// It is fatal for the run: no rows are processed when the schema is invalid.
type SchemaError struct {
	MissingColumns []string
}

func (e *SchemaError) Error() string {
	cols := make([]string, len(e.MissingColumns))
	copy(cols, e.MissingColumns)
	sort.Strings(cols)
	return fmt.Sprintf("tradebook is missing required column(s): %s", strings.Join(cols, ", "))
}
