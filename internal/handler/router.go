package handler

import (
	"net/http"

	apperrors "pdf-page-server/pkg/errors"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const (
	serviceName    = "pdf-page-server"
	serviceVersion = "1.0.0"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	documentHandler *DocumentHandler,
	pdfHandler *PDFHandler,
	allowedOrigins []string,
	middlewares ...mux.MiddlewareFunc,
) http.Handler {
	router := mux.NewRouter()
	for _, m := range middlewares {
		router.Use(m)
	}

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
	}).Methods("GET")

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": "PDF Page Server",
			"version": serviceVersion,
			"endpoints": map[string]string{
				"GET /health":                        "Liveness check",
				"GET /api/v1/documents/open":         "PDF currently open in a desktop reader",
				"POST /api/v1/documents/open/images": "Append images to the open PDF",
				"POST /api/v1/documents/open/pdf":    "Append an uploaded PDF to the open PDF",
				"GET /api/v1/documents":              "List stored documents",
				"POST /api/v1/documents":             "Upload a PDF",
				"GET /api/v1/documents/{id}":         "Stored document metadata",
				"GET /api/v1/documents/{id}/content": "Download a stored PDF",
				"DELETE /api/v1/documents/{id}":      "Delete a stored PDF",
				"POST /api/v1/documents/{id}/images": "Append images to a stored PDF",
				"POST /api/v1/documents/{id}/pdf":    "Append an uploaded PDF to a stored PDF",
			},
		})
	}).Methods("GET")

	// Routes kept for clients of the earlier single-endpoint servers.
	router.HandleFunc("/add-images", pdfHandler.AppendImages).Methods("POST")
	router.HandleFunc("/get_document", pdfHandler.GetOpenDocument).Methods("GET")
	router.HandleFunc("/append_to_document", pdfHandler.AppendPDF).Methods("POST")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Open document routes are registered before {id} so "open" is not taken as an ID.
	api.HandleFunc("/documents/open", pdfHandler.GetOpenDocument).Methods("GET")
	api.HandleFunc("/documents/open/images", pdfHandler.AppendImages).Methods("POST")
	api.HandleFunc("/documents/open/pdf", pdfHandler.AppendPDF).Methods("POST")

	api.HandleFunc("/documents", documentHandler.ListDocuments).Methods("GET")
	api.HandleFunc("/documents", documentHandler.UploadDocument).Methods("POST")
	api.HandleFunc("/documents/{id}", documentHandler.GetDocument).Methods("GET")
	api.HandleFunc("/documents/{id}", documentHandler.DeleteDocument).Methods("DELETE")
	api.HandleFunc("/documents/{id}/content", documentHandler.DownloadDocument).Methods("GET")
	api.HandleFunc("/documents/{id}/images", documentHandler.AppendImages).Methods("POST")
	api.HandleFunc("/documents/{id}/pdf", documentHandler.AppendPDF).Methods("POST")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, apperrors.NewNotFoundError("Route not found"))
	})

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-API-Key",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
		},
		MaxAge: 300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
