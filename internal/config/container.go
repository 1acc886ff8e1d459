package config

import (
	"context"
	"fmt"
	"strings"

	"pdf-page-server/internal/domain"
	"pdf-page-server/internal/repository"
	"pdf-page-server/internal/service"
	"pdf-page-server/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config             domain.Config
	Logger             domain.Logger
	DocumentRepository domain.DocumentRepository
	Storage            domain.BlobStorage
	PDFService         *service.PDFService
	DocumentService    *service.DocumentService
	LocatorService     *service.LocatorService
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context) (*Container, error) {
	config := NewConfig()
	appLogger := logger.NewLogger(config.GetLogLevel())

	documentRepo, err := newDocumentRepository(ctx, config, appLogger.With("component", "metadata"))
	if err != nil {
		return nil, err
	}

	storage, err := service.NewStorageService(config.GetUploadPath(), appLogger.With("component", "storage"))
	if err != nil {
		documentRepo.Close()
		return nil, err
	}

	// One lock table so stored-document deletes and appends exclude each other.
	locks := service.NewPathLocks()
	pdfLogger := appLogger.With("component", "pdf")
	assembler := service.NewDocumentAssembler(pdfLogger)

	pdfService := service.NewPDFService(
		service.NewImageNormalizer(),
		service.NewPageRasterizer(config.GetPageSize()),
		assembler,
		service.NewReplacer(config.GetBackupSuffix(), config.GetKeepBackup(), pdfLogger),
		locks,
		pdfLogger,
	)

	documentService := service.NewDocumentService(
		documentRepo,
		storage,
		pdfService,
		assembler,
		locks,
		appLogger.With("component", "documents"),
		config.GetMaxFileSize(),
	)

	locatorService := service.NewLocatorService(config.GetReaderProcesses(), appLogger.With("component", "locator"))

	appLogger.Info("Container initialized",
		"metadata_backend", config.GetMetadataBackend(),
		"upload_path", config.GetUploadPath(),
		"page_size", config.GetPageSize().Name,
	)

	return &Container{
		Config:             config,
		Logger:             appLogger,
		DocumentRepository: documentRepo,
		Storage:            storage,
		PDFService:         pdfService,
		DocumentService:    documentService,
		LocatorService:     locatorService,
	}, nil
}

func newDocumentRepository(ctx context.Context, config domain.Config, appLogger domain.Logger) (domain.DocumentRepository, error) {
	switch backend := strings.ToLower(config.GetMetadataBackend()); backend {
	case "redis":
		return repository.NewRedisDocumentRepository(ctx, config.GetRedisURL(), appLogger)
	case "supabase":
		supabaseClient := repository.NewSupabaseClient(config, appLogger)
		if err := supabaseClient.Initialize(); err != nil {
			return nil, err
		}
		return repository.NewSupabaseDocumentRepository(supabaseClient, config.GetSupabaseTable(), appLogger), nil
	case "memory":
		appLogger.Warn("Using in-memory metadata store; documents are forgotten on restart")
		return repository.NewMemoryDocumentRepository(), nil
	default:
		return nil, fmt.Errorf("unknown METADATA_BACKEND %q (want redis, supabase or memory)", backend)
	}
}

// Close releases the metadata store connection
func (c *Container) Close() error {
	return c.DocumentRepository.Close()
}
