package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-page-server/internal/config"
	"pdf-page-server/internal/handler"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// Wiring
	container, err := config.NewContainer(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	maxFileSize := container.Config.GetMaxFileSize()

	// Handlers
	documentHandler := handler.NewDocumentHandler(
		container.DocumentService,
		container.Logger,
		maxFileSize,
	)

	pdfHandler := handler.NewPDFHandler(
		container.LocatorService,
		container.PDFService,
		container.Logger,
		maxFileSize,
		container.Config.GetAPIKey() != "",
	)

	// Router
	router := handler.NewRouter(
		documentHandler,
		pdfHandler,
		container.Config.GetAllowedOrigins(),
		handler.RecoveryMiddleware(container.Logger),
		handler.LoggingMiddleware(container.Logger),
		handler.APIKeyMiddleware(container.Config.GetAPIKey(), container.Logger),
	)

	// start server
	server := &http.Server{
		Addr:              ":" + container.Config.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		container.Logger.Error("Graceful shutdown failed", err)
	}

	if err := container.Close(); err != nil {
		container.Logger.Error("Failed to close metadata store", err)
	}

	container.Logger.Info("Server exited")
}
