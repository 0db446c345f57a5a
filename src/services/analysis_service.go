// backend/src/services/analysis_service.go
package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/username/tradevisor/backend/src/logger"
	"github.com/username/tradevisor/backend/src/models"
	"github.com/username/tradevisor/backend/src/parsers"
	"github.com/username/tradevisor/backend/src/processors"
	"github.com/username/tradevisor/backend/src/security/validation"
)

const (
	ckAnalysisSession    = "analysis_session_%s"
	CacheCleanupInterval = 10 * time.Minute
)

// analysisSession holds everything derived once from one upload. It is
// stored immutably: every request-time view is computed from Records, never
// written back.
type analysisSession struct {
	ID           string
	Source       string
	Filename     string
	UploadedAt   time.Time
	Records      []models.ExecutionRecord
	SkippedRows  int
	FilteredRows int
}

type analysisServiceImpl struct {
	matchProcessor    *processors.MatchProcessor
	aggregationProc   *processors.AggregationProcessor
	behaviorProcessor *processors.BehaviorProcessor
	sessionCache      *cache.Cache
	sessionTTL        time.Duration
}

func NewAnalysisService(
	matchProcessor *processors.MatchProcessor,
	aggregationProc *processors.AggregationProcessor,
	behaviorProcessor *processors.BehaviorProcessor,
	sessionCache *cache.Cache,
	sessionTTL time.Duration,
) AnalysisService {
	return &analysisServiceImpl{
		matchProcessor:    matchProcessor,
		aggregationProc:   aggregationProc,
		behaviorProcessor: behaviorProcessor,
		sessionCache:      sessionCache,
		sessionTTL:        sessionTTL,
	}
}

func (s *analysisServiceImpl) CreateSession(fileReader io.Reader, source, filename string) (*AnalysisSummary, error) {
	startTime := time.Now()
	parser, err := parsers.GetParser(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	parseResult, err := parser.Parse(fileReader)
	if err != nil {
		var schemaErr *models.SchemaError
		if errors.As(err, &schemaErr) {
			// Surfaced as-is so the handler can report the full column list.
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	session := &analysisSession{
		ID:           uuid.NewString(),
		Source:       source,
		Filename:     filename,
		UploadedAt:   time.Now().UTC(),
		Records:      parseResult.Records,
		SkippedRows:  parseResult.SkippedRows,
		FilteredRows: parseResult.FilteredRows,
	}
	s.sessionCache.Set(fmt.Sprintf(ckAnalysisSession, session.ID), session, s.sessionTTL)

	logger.L.Info("Analysis session created",
		"sessionID", session.ID,
		"records", len(session.Records),
		"skippedRows", session.SkippedRows,
		"filteredRows", session.FilteredRows,
		"duration", time.Since(startTime))
	return s.buildSummary(session, ""), nil
}

func (s *analysisServiceImpl) getSession(sessionID string) (*analysisSession, error) {
	cached, found := s.sessionCache.Get(fmt.Sprintf(ckAnalysisSession, sessionID))
	if !found {
		return nil, ErrSessionNotFound
	}
	return cached.(*analysisSession), nil
}

// filterByRoot restricts records to one instrument root. An empty root means
// no restriction. The result is always a fresh slice (or the original,
// untouched, when unfiltered).
func filterByRoot(records []models.ExecutionRecord, instrumentRoot string) []models.ExecutionRecord {
	if instrumentRoot == "" {
		return records
	}
	var filtered []models.ExecutionRecord
	for _, rec := range records {
		if rec.InstrumentRoot == instrumentRoot {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

func (s *analysisServiceImpl) buildSummary(session *analysisSession, instrumentRoot string) *AnalysisSummary {
	records := filterByRoot(session.Records, instrumentRoot)

	trades := s.matchProcessor.Process(records)
	daily := s.aggregationProc.ByDay(records)
	best, worst := processors.BestAndWorst(daily)

	netValue := decimal.Zero
	for _, rec := range records {
		netValue = netValue.Add(rec.SignedValue())
	}

	var roots []string
	seen := make(map[string]bool)
	for _, rec := range records {
		if !seen[rec.InstrumentRoot] {
			seen[rec.InstrumentRoot] = true
			roots = append(roots, rec.InstrumentRoot)
		}
	}

	return &AnalysisSummary{
		SessionID:       session.ID,
		Source:          session.Source,
		Filename:        session.Filename,
		UploadedAt:      session.UploadedAt,
		TotalRecords:    len(records),
		SkippedRows:     session.SkippedRows,
		FilteredRows:    session.FilteredRows,
		InstrumentRoots: roots,
		NetValue:        netValue,
		MatchStats:      processors.ComputeMatchStats(trades),
		Behavioral:      s.behaviorProcessor.Process(daily),
		BestDay:         best,
		WorstDay:        worst,
	}
}

func (s *analysisServiceImpl) GetSummary(sessionID, instrumentRoot string) (*AnalysisSummary, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.buildSummary(session, instrumentRoot), nil
}

func (s *analysisServiceImpl) GetRecords(sessionID, instrumentRoot string) ([]models.ExecutionRecord, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return filterByRoot(session.Records, instrumentRoot), nil
}

func (s *analysisServiceImpl) GetTrades(sessionID, instrumentRoot string) (*TradeReport, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	trades := s.matchProcessor.Process(filterByRoot(session.Records, instrumentRoot))
	return &TradeReport{
		Trades: trades,
		Stats:  processors.ComputeMatchStats(trades),
	}, nil
}

func (s *analysisServiceImpl) GetDaily(sessionID, instrumentRoot string) (*BucketReport, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	buckets := s.aggregationProc.ByDay(filterByRoot(session.Records, instrumentRoot))
	best, worst := processors.BestAndWorst(buckets)
	return &BucketReport{Buckets: buckets, Best: best, Worst: worst}, nil
}

func (s *analysisServiceImpl) GetHourly(sessionID, instrumentRoot string, dense bool) (*BucketReport, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	buckets := s.aggregationProc.ByHour(filterByRoot(session.Records, instrumentRoot), dense)
	best, worst := processors.BestAndWorst(buckets)
	return &BucketReport{Buckets: buckets, Best: best, Worst: worst}, nil
}

func (s *analysisServiceImpl) GetWeekday(sessionID, instrumentRoot string) (*BucketReport, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	buckets := s.aggregationProc.ByWeekday(filterByRoot(session.Records, instrumentRoot))
	best, worst := processors.BestAndWorst(buckets)
	return &BucketReport{Buckets: buckets, Best: best, Worst: worst}, nil
}

func (s *analysisServiceImpl) GetInstruments(sessionID string) (*BucketReport, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	buckets := s.aggregationProc.ByInstrument(session.Records)
	best, worst := processors.BestAndWorst(buckets)
	return &BucketReport{Buckets: buckets, Best: best, Worst: worst}, nil
}

func (s *analysisServiceImpl) DeleteSession(sessionID string) {
	s.sessionCache.Delete(fmt.Sprintf(ckAnalysisSession, sessionID))
}

// ExportCSV writes one of the session's result tables as CSV. String cells
// pass the formula-injection sanitizer before serialization.
func (s *analysisServiceImpl) ExportCSV(w io.Writer, sessionID, table string) error {
	session, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	switch table {
	case ExportTableRecords:
		if err := writer.Write([]string{"symbol", "instrument_root", "side", "quantity", "price", "trade_value", "executed_at"}); err != nil {
			return err
		}
		for _, rec := range session.Records {
			row := []string{
				validation.SanitizeForFormulaInjection(rec.Symbol),
				validation.SanitizeForFormulaInjection(rec.InstrumentRoot),
				string(rec.Side),
				strconv.FormatInt(rec.Quantity, 10),
				rec.Price.String(),
				rec.TradeValue.String(),
				rec.ExecutedAt.Format(time.RFC3339),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	case ExportTableTrades:
		if err := writer.Write([]string{"instrument_root", "buy_symbol", "sell_symbol", "buy_time", "sell_time", "holding_seconds", "matched_quantity", "buy_price", "sell_price", "realized_pnl", "is_winner"}); err != nil {
			return err
		}
		for _, tr := range s.matchProcessor.Process(session.Records) {
			row := []string{
				validation.SanitizeForFormulaInjection(tr.InstrumentRoot),
				validation.SanitizeForFormulaInjection(tr.BuySymbol),
				validation.SanitizeForFormulaInjection(tr.SellSymbol),
				tr.BuyTime.Format(time.RFC3339),
				tr.SellTime.Format(time.RFC3339),
				strconv.FormatFloat(tr.HoldingSeconds, 'f', -1, 64),
				strconv.FormatInt(tr.MatchedQuantity, 10),
				tr.BuyPrice.String(),
				tr.SellPrice.String(),
				tr.RealizedPnL.String(),
				strconv.FormatBool(tr.IsWinner),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	case ExportTableDaily:
		if err := writer.Write([]string{"day", "trade_count", "total_quantity", "buy_value", "sell_value", "net_value", "mean_price"}); err != nil {
			return err
		}
		for _, b := range s.aggregationProc.ByDay(session.Records) {
			row := []string{
				b.Key,
				strconv.Itoa(b.TradeCount),
				strconv.FormatInt(b.TotalQuantity, 10),
				b.BuyValue.String(),
				b.SellValue.String(),
				b.NetValue.String(),
				b.MeanPrice.String(),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExportTable, table)
	}
	return nil
}
