// backend/src/handlers/upload_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/tradevisor/backend/src/config"
	"github.com/username/tradevisor/backend/src/logger"
	"github.com/username/tradevisor/backend/src/models"
	"github.com/username/tradevisor/backend/src/security"
	"github.com/username/tradevisor/backend/src/security/validation"
	"github.com/username/tradevisor/backend/src/services"
	"github.com/username/tradevisor/backend/src/utils"
)

const defaultSource = "zerodha"

type UploadHandler struct {
	analysisService services.AnalysisService
	tokenManager    *security.SessionTokenManager
}

func NewUploadHandler(service services.AnalysisService, tokenManager *security.SessionTokenManager) *UploadHandler {
	return &UploadHandler{
		analysisService: service,
		tokenManager:    tokenManager,
	}
}

// uploadResponse is the summary plus the bearer token the client presents on
// every subsequent analytics call.
type uploadResponse struct {
	SessionToken string                    `json:"session_token"`
	Summary      *services.AnalysisSummary `json:"summary"`
}

func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		ctxLogger.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("failed to read upload or file too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	source := r.FormValue("source")
	if source == "" {
		source = defaultSource
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		ctxLogger.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		ctxLogger.Warn("Uploaded file too large", "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("file too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		ctxLogger.Warn("Invalid client-declared file type", "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		ctxLogger.Warn("File content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctxLogger.Info("File content validated", "filename", fileHeader.Filename, "clientType", clientContentType, "detectedType", detectedContentType)

	filename := validation.SanitizeText(validation.StripUnprintable(fileHeader.Filename))

	summary, err := h.analysisService.CreateSession(file, source, filename)
	if err != nil {
		var schemaErr *models.SchemaError
		switch {
		case errors.As(err, &schemaErr):
			ctxLogger.Warn("Upload rejected: schema error", "filename", filename, "missingColumns", schemaErr.MissingColumns)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":           schemaErr.Error(),
				"missing_columns": schemaErr.MissingColumns,
			})
		case errors.Is(err, services.ErrParsingFailed):
			ctxLogger.Warn("Upload rejected: unreadable tradebook", "filename", filename, "error", err)
			utils.SendJSONError(w, "could not read the tradebook file", http.StatusBadRequest)
		default:
			ctxLogger.Error("Upload processing failed", "filename", filename, "error", err)
			utils.SendJSONError(w, "failed to process upload", http.StatusInternalServerError)
		}
		return
	}

	token, err := h.tokenManager.Issue(summary.SessionID)
	if err != nil {
		ctxLogger.Error("Failed to issue session token", "sessionID", summary.SessionID, "error", err)
		h.analysisService.DeleteSession(summary.SessionID)
		utils.SendJSONError(w, "failed to create analysis session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(uploadResponse{SessionToken: token, Summary: summary}); err != nil {
		ctxLogger.Error("Error encoding upload response", "error", err)
	}
}
