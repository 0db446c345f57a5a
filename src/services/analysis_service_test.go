// backend/src/services/analysis_service_test.go
package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/tradevisor/backend/src/logger"
	"github.com/username/tradevisor/backend/src/models"
	"github.com/username/tradevisor/backend/src/processors"
)

func init() {
	logger.InitLogger("error")
}

const sampleTradebook = `symbol,trade_type,quantity,price,order_execution_time,status
NIFTY2451822500CE,buy,50,100.00,2024-05-02T09:30:00,COMPLETE
NIFTY2451822500CE,sell,50,112.00,2024-05-02T10:15:00,COMPLETE
BANKNIFTY24MAY48000PE,buy,15,200.00,2024-05-02T11:00:00,COMPLETE
BANKNIFTY24MAY48000PE,sell,15,180.00,2024-05-03T09:45:00,COMPLETE
NIFTY2451822600CE,buy,25,80.00,2024-05-03T13:20:00,COMPLETE
`

func newTestService(t *testing.T) AnalysisService {
	t.Helper()
	return NewAnalysisService(
		processors.NewMatchProcessor(),
		processors.NewAggregationProcessor(),
		processors.NewBehaviorProcessor(processors.BehaviorThresholds{
			OvertradingTradesPerDay: 10,
			HighLossNetValue:        decimal.NewFromInt(-2000),
		}),
		cache.New(5*time.Minute, 10*time.Minute),
		5*time.Minute,
	)
}

func createTestSession(t *testing.T, svc AnalysisService) *AnalysisSummary {
	t.Helper()
	summary, err := svc.CreateSession(strings.NewReader(sampleTradebook), "zerodha", "tradebook.csv")
	require.NoError(t, err)
	require.NotEmpty(t, summary.SessionID)
	return summary
}

func TestCreateSession_Summary(t *testing.T) {
	svc := newTestService(t)
	summary := createTestSession(t, svc)

	assert.Equal(t, "zerodha", summary.Source)
	assert.Equal(t, "tradebook.csv", summary.Filename)
	assert.Equal(t, 5, summary.TotalRecords)
	assert.Equal(t, 0, summary.SkippedRows)
	assert.Equal(t, []string{"NIFTY", "BANKNIFTY"}, summary.InstrumentRoots)
	assert.Equal(t, 2, summary.MatchStats.TotalMatches)
	assert.Equal(t, 1, summary.MatchStats.Winners)
	require.NotNil(t, summary.BestDay)
	require.NotNil(t, summary.WorstDay)
	assert.Equal(t, "2024-05-03", summary.BestDay.Key)
	assert.Equal(t, "2024-05-02", summary.WorstDay.Key)
}

func TestCreateSession_SchemaErrorPassesThrough(t *testing.T) {
	svc := newTestService(t)
	broken := "symbol,trade_type,order_execution_time\nNIFTY24500CE,buy,2024-05-02T09:30:00\n"

	_, err := svc.CreateSession(strings.NewReader(broken), "zerodha", "broken.csv")
	var schemaErr *models.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.ElementsMatch(t, []string{"quantity", "price"}, schemaErr.MissingColumns)
}

func TestCreateSession_UnknownSourceFailsParsing(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateSession(strings.NewReader(sampleTradebook), "unknownbroker", "x.csv")
	assert.ErrorIs(t, err, ErrParsingFailed)
}

func TestGetSummary_InstrumentFilterRecomputes(t *testing.T) {
	svc := newTestService(t)
	session := createTestSession(t, svc)

	filtered, err := svc.GetSummary(session.SessionID, "BANKNIFTY")
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.TotalRecords)
	assert.Equal(t, []string{"BANKNIFTY"}, filtered.InstrumentRoots)
	assert.Equal(t, 1, filtered.MatchStats.TotalMatches)
	assert.Equal(t, 0, filtered.MatchStats.Winners)

	// The unfiltered view is unchanged afterwards.
	full, err := svc.GetSummary(session.SessionID, "")
	require.NoError(t, err)
	assert.Equal(t, 5, full.TotalRecords)
}

func TestGetSummary_UnknownSession(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetSummary("no-such-session", "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGetRecords_FilterAndOrder(t *testing.T) {
	svc := newTestService(t)
	session := createTestSession(t, svc)

	records, err := svc.GetRecords(session.SessionID, "NIFTY")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, "NIFTY", rec.InstrumentRoot)
	}
	assert.True(t, records[0].ExecutedAt.Before(records[2].ExecutedAt))
}

func TestGetTrades(t *testing.T) {
	svc := newTestService(t)
	session := createTestSession(t, svc)

	report, err := svc.GetTrades(session.SessionID, "")
	require.NoError(t, err)
	require.Len(t, report.Trades, 2)
	assert.Equal(t, 2, report.Stats.TotalMatches)
	assert.True(t, report.Trades[0].RealizedPnL.Equal(decimal.NewFromInt(600)))
	assert.True(t, report.Trades[1].RealizedPnL.Equal(decimal.NewFromInt(-300)))
}

func TestGetHourly_DenseFill(t *testing.T) {
	svc := newTestService(t)
	session := createTestSession(t, svc)

	sparse, err := svc.GetHourly(session.SessionID, "", false)
	require.NoError(t, err)
	assert.Len(t, sparse.Buckets, 4)

	dense, err := svc.GetHourly(session.SessionID, "", true)
	require.NoError(t, err)
	require.Len(t, dense.Buckets, 24)
	assert.Equal(t, "0", dense.Buckets[0].Key)
	assert.Equal(t, "23", dense.Buckets[23].Key)
}

func TestDeleteSession(t *testing.T) {
	svc := newTestService(t)
	session := createTestSession(t, svc)

	svc.DeleteSession(session.SessionID)
	_, err := svc.GetSummary(session.SessionID, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExportCSV_Records(t *testing.T) {
	svc := newTestService(t)
	session := createTestSession(t, svc)

	var buf strings.Builder
	require.NoError(t, svc.ExportCSV(&buf, session.SessionID, ExportTableRecords))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "symbol,instrument_root,side,quantity,price,trade_value,executed_at", lines[0])
	assert.Contains(t, lines[1], "NIFTY2451822500CE")
}

func TestExportCSV_UnknownTable(t *testing.T) {
	svc := newTestService(t)
	session := createTestSession(t, svc)

	var buf strings.Builder
	err := svc.ExportCSV(&buf, session.SessionID, "holdings")
	assert.True(t, errors.Is(err, ErrUnknownExportTable))
}
