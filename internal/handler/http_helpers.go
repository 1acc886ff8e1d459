package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"pdf-page-server/internal/domain"
	apperrors "pdf-page-server/pkg/errors"
)

// multipartOverhead is allowed on top of MAX_FILE_SIZE for form boundaries and fields.
const multipartOverhead = 1 << 20

// appendResponse is the body returned after pages are appended.
type appendResponse struct {
	Message string `json:"message"`
	*domain.AppendResult
	Document *domain.StoredDocument `json:"document,omitempty"`
}

func newAppendResponse(result *domain.AppendResult, doc *domain.StoredDocument) appendResponse {
	return appendResponse{
		Message:      fmt.Sprintf("Successfully appended %d pages to %s", result.PagesAdded, result.TargetPath),
		AppendResult: result,
		Document:     doc,
	}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an AppError with its own status code
func writeError(w http.ResponseWriter, appErr *apperrors.AppError) {
	writeJSON(w, appErr.StatusCode, appErr)
}

// writeAppError classifies err and writes it with its status code. Server
// side failures are logged; client errors are not.
func writeAppError(w http.ResponseWriter, logger domain.Logger, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		err = fmt.Errorf("%w: limit is %d bytes", domain.ErrFileTooLarge, maxBytesErr.Limit)
	}

	appErr := apperrors.FromDomain(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("Request failed", err, "type", appErr.Type)
	} else {
		logger.Debug("Request rejected", "type", appErr.Type, "error", err)
	}

	writeError(w, appErr)
}
