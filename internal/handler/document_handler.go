// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"pdf-page-server/internal/domain"
	apperrors "pdf-page-server/pkg/errors"

	"github.com/gorilla/mux"
)

// appendImagesRequest is the JSON body of every image append route. Images
// entries may be null or empty; those are skipped.
type appendImagesRequest struct {
	Text   string    `json:"text"`
	Images []*string `json:"images"`
}

func decodeAppendImagesRequest(r *http.Request) (*appendImagesRequest, error) {
	var req appendImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, &domain.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if req.Images == nil {
		return nil, &domain.ValidationError{Field: "images", Message: "is required"}
	}
	return &req, nil
}

// DocumentHandler handles stored-document HTTP requests
type DocumentHandler struct {
	documentService domain.DocumentService
	logger          domain.Logger
	maxFileSize     int64
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService domain.DocumentService, logger domain.Logger, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          logger,
		maxFileSize:     maxFileSize,
	}
}

// limitBody caps the request body at MAX_FILE_SIZE plus form overhead.
func (h *DocumentHandler) limitBody(w http.ResponseWriter, r *http.Request) {
	if h.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)
	}
}

// ListDocuments handles listing every stored document
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documentService.ListDocuments(r.Context())
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	// Ensure JSON is [] not null when there are no documents.
	if docs == nil {
		docs = make([]*domain.StoredDocument, 0)
	}
	writeJSON(w, http.StatusOK, docs)
}

// UploadDocument handles multipart PDF upload
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
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

	filename := r.FormValue("filename")
	if filename == "" {
		filename = header.Filename
	}
	if !strings.EqualFold(extension(filename), ".pdf") {
		writeError(w, apperrors.NewValidationError("Only PDF files are allowed"))
		return
	}

	doc, err := h.documentService.Upload(r.Context(), domain.UploadRequest{
		ID:       r.FormValue("id"),
		Filename: filename,
		Content:  file,
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument handles metadata retrieval
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documentService.GetDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DownloadDocument streams the stored PDF bytes
func (h *DocumentHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, content, err := h.documentService.OpenContent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))

	if rs, ok := content.(io.ReadSeeker); ok {
		http.ServeContent(w, r, doc.Filename, doc.UpdatedAt, rs)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		h.logger.Warn("Failed to stream document", "id", doc.ID, "error", err)
	}
}

// DeleteDocument handles document deletion
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]

	if err := h.documentService.DeleteDocument(r.Context(), documentID); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted successfully", "id": documentID})
}

// AppendImages appends images to a stored document
func (h *DocumentHandler) AppendImages(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)

	req, err := decodeAppendImagesRequest(r)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	doc, result, err := h.documentService.AppendImages(r.Context(), mux.Vars(r)["id"], req.Text, req.Images)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newAppendResponse(result, doc))
}

// AppendPDF merges an uploaded PDF onto a stored document
func (h *DocumentHandler) AppendPDF(w http.ResponseWriter, r *http.Request) {
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

	doc, result, err := h.documentService.AppendDocument(r.Context(), mux.Vars(r)["id"], file)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newAppendResponse(result, doc))
}

func extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}
