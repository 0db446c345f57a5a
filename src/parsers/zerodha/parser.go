// backend/src/parsers/zerodha/parser.go
package zerodha

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/tradevisor/backend/src/logger"
	"github.com/username/tradevisor/backend/src/models"
)

// Column names recognized in a Zerodha F&O tradebook export, after header
// normalization (lowercased, spaces replaced with underscores).
const (
	colSymbol        = "symbol"
	colTradeType     = "trade_type"
	colQuantity      = "quantity"
	colPrice         = "price"
	colExecutionTime = "order_execution_time"
	colTradeDate     = "trade_date"
	colStatus        = "status"
)

// timestampLayouts are tried in order for the execution-time column.
// trade_date-only exports carry no intraday component.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ZerodhaParser normalizes Zerodha tradebook CSV rows into ExecutionRecords.
type ZerodhaParser struct{}

// NewParser creates a new instance of the ZerodhaParser.
func NewParser() *ZerodhaParser {
	return &ZerodhaParser{}
}

// normalizeHeader maps a raw header cell to its canonical column name.
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "\"")
	return strings.ReplaceAll(s, " ", "_")
}

// normalizeCell trims whitespace and surrounding quotes from a raw value.
func normalizeCell(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"")
}

// Parse reads a Zerodha tradebook CSV and converts its rows into a ParseResult.
//
// A missing required column is fatal and reported as a models.SchemaError
// listing every absent column. Rows that fail type or format validation are
// excluded and counted, not fatal; rows whose status is present and not
// "complete" are filtered out and counted separately.
func (p *ZerodhaParser) Parse(file io.Reader) (*models.ParseResult, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields per record

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("zerodha parser: failed to read CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, cell := range header {
		name := normalizeHeader(cell)
		if _, seen := colIndex[name]; !seen {
			colIndex[name] = i
		}
	}

	var missing []string
	for _, required := range []string{colSymbol, colTradeType, colQuantity, colPrice} {
		if _, ok := colIndex[required]; !ok {
			missing = append(missing, required)
		}
	}
	timeCol, hasTimeCol := colIndex[colExecutionTime]
	if !hasTimeCol {
		// Coarser daily granularity is accepted when the execution-time
		// column is absent.
		timeCol, hasTimeCol = colIndex[colTradeDate]
	}
	if !hasTimeCol {
		missing = append(missing, colExecutionTime)
	}
	if len(missing) > 0 {
		return nil, &models.SchemaError{MissingColumns: missing}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("zerodha parser: failed to read all CSV records: %w", err)
	}

	statusCol, hasStatusCol := colIndex[colStatus]

	result := &models.ParseResult{}
	for _, record := range records {
		if isBlankRecord(record) {
			continue
		}
		if !rowHasColumn(record, timeCol) ||
			!rowHasColumn(record, colIndex[colSymbol]) ||
			!rowHasColumn(record, colIndex[colTradeType]) ||
			!rowHasColumn(record, colIndex[colQuantity]) ||
			!rowHasColumn(record, colIndex[colPrice]) {
			result.SkippedRows++
			continue
		}

		if hasStatusCol && rowHasColumn(record, statusCol) {
			status := normalizeCell(record[statusCol])
			if status != "" && !strings.EqualFold(status, "complete") {
				result.FilteredRows++
				continue
			}
		}

		rec, ok := buildRecord(record, colIndex, timeCol)
		if !ok {
			result.SkippedRows++
			continue
		}
		result.Records = append(result.Records, rec)
	}

	if result.SkippedRows > 0 {
		logger.L.Warn("Tradebook rows excluded during normalization", "skipped", result.SkippedRows)
	}
	return result, nil
}

// buildRecord validates and converts one CSV row. Any failure means the row
// is excluded from the result (reported as false, never as an error).
func buildRecord(record []string, colIndex map[string]int, timeCol int) (models.ExecutionRecord, bool) {
	var rec models.ExecutionRecord

	symbol := normalizeCell(record[colIndex[colSymbol]])
	root := models.InstrumentRootOf(symbol)
	if symbol == "" || root == "" {
		return rec, false
	}

	var side models.Side
	switch strings.ToLower(normalizeCell(record[colIndex[colTradeType]])) {
	case "buy":
		side = models.SideBuy
	case "sell":
		side = models.SideSell
	default:
		return rec, false
	}

	quantity, err := strconv.ParseInt(normalizeCell(record[colIndex[colQuantity]]), 10, 64)
	if err != nil || quantity <= 0 {
		return rec, false
	}

	price, err := decimal.NewFromString(normalizeCell(record[colIndex[colPrice]]))
	if err != nil || price.IsNegative() {
		return rec, false
	}

	executedAt, ok := parseTimestamp(normalizeCell(record[timeCol]))
	if !ok {
		return rec, false
	}

	rec = models.ExecutionRecord{
		Symbol:         symbol,
		InstrumentRoot: root,
		Side:           side,
		Quantity:       quantity,
		Price:          price,
		TradeValue:     price.Mul(decimal.NewFromInt(quantity)),
		ExecutedAt:     executedAt,
	}
	return rec, true
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func rowHasColumn(record []string, idx int) bool {
	return idx >= 0 && idx < len(record)
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
