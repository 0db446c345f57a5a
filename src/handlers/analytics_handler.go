// backend/src/handlers/analytics_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/tradevisor/backend/src/logger"
	"github.com/username/tradevisor/backend/src/services"
	"github.com/username/tradevisor/backend/src/utils"
)

// AnalyticsHandler serves the derived views of one analysis session. Every
// endpoint accepts ?symbol=<instrument_root> and recomputes on the filtered
// subset; the stored session records are never modified.
type AnalyticsHandler struct {
	analysisService services.AnalysisService
}

func NewAnalyticsHandler(service services.AnalysisService) *AnalyticsHandler {
	return &AnalyticsHandler{analysisService: service}
}

func (h *AnalyticsHandler) respond(w http.ResponseWriter, r *http.Request, payload interface{}, err error) {
	ctxLogger := logger.FromContext(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			ctxLogger.Debug("Analysis session not found or expired", "path", r.URL.Path)
			utils.SendJSONError(w, "Analysis session not found or expired", http.StatusUnauthorized)
			return
		}
		ctxLogger.Error("Failed to build analytics view", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "failed to build analytics view", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if encodeErr := json.NewEncoder(w).Encode(payload); encodeErr != nil {
		ctxLogger.Error("Error encoding analytics response", "path", r.URL.Path, "error", encodeErr)
	}
}

func sessionAndSymbol(r *http.Request) (sessionID, instrumentRoot string, ok bool) {
	sessionID, ok = GetSessionIDFromContext(r.Context())
	return sessionID, r.URL.Query().Get("symbol"), ok
}

func (h *AnalyticsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sessionID, symbol, ok := sessionAndSymbol(r)
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusUnauthorized)
		return
	}
	summary, err := h.analysisService.GetSummary(sessionID, symbol)
	h.respond(w, r, summary, err)
}

func (h *AnalyticsHandler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	sessionID, symbol, ok := sessionAndSymbol(r)
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusUnauthorized)
		return
	}
	records, err := h.analysisService.GetRecords(sessionID, symbol)
	h.respond(w, r, records, err)
}

func (h *AnalyticsHandler) HandleTrades(w http.ResponseWriter, r *http.Request) {
	sessionID, symbol, ok := sessionAndSymbol(r)
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusUnauthorized)
		return
	}
	report, err := h.analysisService.GetTrades(sessionID, symbol)
	h.respond(w, r, report, err)
}

func (h *AnalyticsHandler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	sessionID, symbol, ok := sessionAndSymbol(r)
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusUnauthorized)
		return
	}
	report, err := h.analysisService.GetDaily(sessionID, symbol)
	h.respond(w, r, report, err)
}

func (h *AnalyticsHandler) HandleHourly(w http.ResponseWriter, r *http.Request) {
	sessionID, symbol, ok := sessionAndSymbol(r)
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusUnauthorized)
		return
	}
	dense := r.URL.Query().Get("dense") == "true"
	report, err := h.analysisService.GetHourly(sessionID, symbol, dense)
	h.respond(w, r, report, err)
}

func (h *AnalyticsHandler) HandleWeekday(w http.ResponseWriter, r *http.Request) {
	sessionID, symbol, ok := sessionAndSymbol(r)
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusUnauthorized)
		return
	}
	report, err := h.analysisService.GetWeekday(sessionID, symbol)
	h.respond(w, r, report, err)
}

func (h *AnalyticsHandler) HandleInstruments(w http.ResponseWriter, r *http.Request) {
	sessionID, _, ok := sessionAndSymbol(r)
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusUnauthorized)
		return
	}
	report, err := h.analysisService.GetInstruments(sessionID)
	h.respond(w, r, report, err)
}

func (h *AnalyticsHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := GetSessionIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusUnauthorized)
		return
	}
	h.analysisService.DeleteSession(sessionID)
	logger.FromContext(r.Context()).Info("Analysis session deleted")
	w.WriteHeader(http.StatusNoContent)
}
