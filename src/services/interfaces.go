// backend/src/services/interfaces.go
package services

import (
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/tradevisor/backend/src/models"
)

// AnalysisSummary is the headline result of one analysis run, returned after
// upload and on demand (optionally restricted to one instrument root).
type AnalysisSummary struct {
	SessionID       string                   `json:"session_id"`
	Source          string                   `json:"source"`
	Filename        string                   `json:"filename"`
	UploadedAt      time.Time                `json:"uploaded_at"`
	TotalRecords    int                      `json:"total_records"`
	SkippedRows     int                      `json:"skipped_rows"`
	FilteredRows    int                      `json:"filtered_rows"`
	InstrumentRoots []string                 `json:"instrument_roots"`
	NetValue        decimal.Decimal          `json:"net_value"`
	MatchStats      models.MatchStats        `json:"match_stats"`
	Behavioral      models.BehavioralMetrics `json:"behavioral"`
	BestDay         *models.AggregateBucket  `json:"best_day,omitempty"`
	WorstDay        *models.AggregateBucket  `json:"worst_day,omitempty"`
}

// BucketReport is one grouped view plus its best/worst buckets.
type BucketReport struct {
	Buckets []models.AggregateBucket `json:"buckets"`
	Best    *models.AggregateBucket  `json:"best,omitempty"`
	Worst   *models.AggregateBucket  `json:"worst,omitempty"`
}

// TradeReport is the matched-trade table plus its summary statistics.
type TradeReport struct {
	Trades []models.MatchedTrade `json:"trades"`
	Stats  models.MatchStats     `json:"stats"`
}

// Define common service errors
var (
	ErrParsingFailed      = errors.New("tradebook parsing failed")
	ErrSessionNotFound    = errors.New("analysis session not found or expired")
	ErrUnknownExportTable = errors.New("unknown export table")
)

// Export table names accepted by ExportCSV.
const (
	ExportTableRecords = "records"
	ExportTableTrades  = "trades"
	ExportTableDaily   = "daily"
)

// AnalysisService runs the analysis pipeline over one uploaded tradebook and
// serves derived views of the resulting session. Every view is recomputed
// from the immutable session records, so an instrument filter never leaks
// state between requests.
type AnalysisService interface {
	CreateSession(fileReader io.Reader, source, filename string) (*AnalysisSummary, error)
	GetSummary(sessionID, instrumentRoot string) (*AnalysisSummary, error)
	GetRecords(sessionID, instrumentRoot string) ([]models.ExecutionRecord, error)
	GetTrades(sessionID, instrumentRoot string) (*TradeReport, error)
	GetDaily(sessionID, instrumentRoot string) (*BucketReport, error)
	GetHourly(sessionID, instrumentRoot string, dense bool) (*BucketReport, error)
	GetWeekday(sessionID, instrumentRoot string) (*BucketReport, error)
	GetInstruments(sessionID string) (*BucketReport, error)
	ExportCSV(w io.Writer, sessionID, table string) error
	DeleteSession(sessionID string)
}
