package handler

import (
	"errors"
	"net/http"
	"strings"

	"pdf-page-server/internal/domain"
	apperrors "pdf-page-server/pkg/errors"
)

// PDFHandler handles requests against the PDF open in a desktop reader
type PDFHandler struct {
	locator     domain.DocumentLocator
	appender    domain.PageAppender
	logger      domain.Logger
	maxFileSize int64

	// allowTargetPath lets callers name any writable PDF. Only enabled
	// when requests are authenticated.
	allowTargetPath bool
}

// NewPDFHandler creates a new PDF handler instance
func NewPDFHandler(locator domain.DocumentLocator, appender domain.PageAppender, logger domain.Logger, maxFileSize int64, allowTargetPath bool) *PDFHandler {
	return &PDFHandler{
		locator:         locator,
		appender:        appender,
		logger:          logger,
		maxFileSize:     maxFileSize,
		allowTargetPath: allowTargetPath,
	}
}

func (h *PDFHandler) limitBody(w http.ResponseWriter, r *http.Request) {
	if h.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	}
}

// GetOpenDocument reports the currently open document and every candidate
func (h *PDFHandler) GetOpenDocument(w http.ResponseWriter, r *http.Request) {
	docs, err := h.locator.OpenDocuments(r.Context())
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if len(docs) == 0 {
		writeAppError(w, h.logger, domain.ErrOpenDocumentNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                "success",
		"document":              docs[0],
		"total_documents_found": len(docs),
		"all_documents":         docs,
	})
}

// AppendImages appends images to the open document
func (h *PDFHandler) AppendImages(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)

	req, err := decodeAppendImagesRequest(r)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	target, err := h.locator.ResolveOpenDocument(r.Context())
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	result, err := h.appender.AppendImages(r.Context(), domain.AppendRequest{
		TargetPath: target,
		Text:       req.Text,
		Images:     req.Images,
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newAppendResponse(result, nil))
}

// AppendPDF merges an uploaded PDF onto the open document, or onto the
// target_path form value when one is given and allowed
func (h *PDFHandler) AppendPDF(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeAppError(w, h.logger, err)
			return
		}
		writeError(w, apperrors.NewValidationError("File is required"))
		return
	}
	defer file.Close()

	if !strings.EqualFold(extension(header.Filename), ".pdf") {
		writeError(w, apperrors.NewValidationError("Only PDF files are allowed"))
		return
	}

	target := strings.TrimSpace(r.FormValue("target_path"))
	if target != "" && !h.allowTargetPath {
		writeError(w, apperrors.NewForbiddenError("target_path requires API key authentication"))
		return
	}
	if target == "" {
		target, err = h.locator.ResolveOpenDocument(r.Context())
		if err != nil {
			writeAppError(w, h.logger, err)
			return
		}
	}

	result, err := h.appender.AppendDocument(r.Context(), target, file)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newAppendResponse(result, nil))
}
