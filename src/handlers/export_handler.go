// backend/src/handlers/export_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/username/tradevisor/backend/src/logger"
	"github.com/username/tradevisor/backend/src/services"
	"github.com/username/tradevisor/backend/src/utils"
)

type ExportHandler struct {
	analysisService services.AnalysisService
}

func NewExportHandler(service services.AnalysisService) *ExportHandler {
	return &ExportHandler{analysisService: service}
}

// HandleExport streams one of the session tables as a CSV attachment. The
// table name comes from the URL (records, trades or daily).
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	sessionID, ok := GetSessionIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusUnauthorized)
		return
	}

	table := chi.URLParam(r, "table")

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", table))

	if err := h.analysisService.ExportCSV(w, sessionID, table); err != nil {
		// Headers may already be written; the CSV writer flushes on return.
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			ctxLogger.Debug("Export requested for missing session", "table", table)
			utils.SendJSONError(w, "Analysis session not found or expired", http.StatusUnauthorized)
		case errors.Is(err, services.ErrUnknownExportTable):
			ctxLogger.Warn("Export requested for unknown table", "table", table)
			utils.SendJSONError(w, fmt.Sprintf("unknown export table '%s'", table), http.StatusNotFound)
		default:
			ctxLogger.Error("CSV export failed", "table", table, "error", err)
			utils.SendJSONError(w, "export failed", http.StatusInternalServerError)
		}
		return
	}
	ctxLogger.Info("CSV export served", "table", table)
}
