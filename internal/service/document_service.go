package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"pdf-page-server/internal/domain"

	"github.com/google/uuid"
)

var documentIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// pdfInspector is the part of DocumentAssembler the document service needs.
type pdfInspector interface {
	PageCount(path string) (int, error)
	Validate(rs io.ReadSeeker) error
}

// DocumentService manages stored documents: bytes on disk, metadata in the repository.
// Operations on one id are serialized by docLocks; locks guards file paths and
// is shared with the append pipeline. docLocks is always taken first.
type DocumentService struct {
	repo        domain.DocumentRepository
	storage     domain.BlobStorage
	appender    domain.PageAppender
	inspector   pdfInspector
	locks       *PathLocks
	docLocks    *PathLocks
	logger      domain.Logger
	maxFileSize int64
}

func NewDocumentService(
	repo domain.DocumentRepository,
	storage domain.BlobStorage,
	appender domain.PageAppender,
	inspector pdfInspector,
	locks *PathLocks,
	logger domain.Logger,
	maxFileSize int64,
) *DocumentService {
	return &DocumentService{
		repo:        repo,
		storage:     storage,
		appender:    appender,
		inspector:   inspector,
		locks:       locks,
		docLocks:    NewPathLocks(),
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

func documentKey(id string) string {
	return id + ".pdf"
}

// Upload stores the bytes under a staging key, validates them, creates the
// metadata record and only then moves the bytes to the document's key. A
// losing concurrent upload of the same id never touches the winner's bytes.
func (s *DocumentService) Upload(ctx context.Context, req domain.UploadRequest) (*domain.StoredDocument, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.New().String()
	} else if !documentIDPattern.MatchString(id) {
		return nil, &domain.ValidationError{Field: "id", Message: "must be 1-128 letters, digits, '.', '_' or '-'"}
	}

	unlock := s.docLocks.Lock(id)
	defer unlock()

	if _, err := s.repo.GetByID(ctx, id); err == nil {
		return nil, domain.ErrDocumentExists
	} else if !errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, fmt.Errorf("failed to check existing document: %w", err)
	}

	filename := sanitizeFilename(req.Filename, id)
	key := documentKey(id)
	staging := key + "." + uuid.New().String() + ".staging"

	path, err := s.storage.Path(key)
	if err != nil {
		return nil, err
	}

	content := req.Content
	if s.maxFileSize > 0 {
		content = io.LimitReader(req.Content, s.maxFileSize+1)
	}

	size, err := s.storage.Store(ctx, staging, content)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		s.discardBlob(ctx, staging)
		return nil, domain.ErrFileTooLarge
	}

	stagingPath, err := s.storage.Path(staging)
	if err != nil {
		s.discardBlob(ctx, staging)
		return nil, err
	}

	pageCount, err := s.inspect(stagingPath)
	if err != nil {
		s.discardBlob(ctx, staging)
		return nil, err
	}

	now := time.Now().UTC()
	doc := &domain.StoredDocument{
		ID:          id,
		Filename:    filename,
		StoragePath: path,
		SizeBytes:   size,
		PageCount:   pageCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		s.discardBlob(ctx, staging)
		return nil, fmt.Errorf("failed to save document metadata: %w", err)
	}

	// Appends to open documents may name this path directly.
	unlockPath := s.locks.Lock(path)
	err = s.storage.Rename(ctx, staging, key)
	unlockPath()
	if err != nil {
		s.discardBlob(ctx, staging)
		if delErr := s.repo.Delete(ctx, id); delErr != nil {
			s.logger.Error("Failed to remove metadata of unstored document", delErr, "id", id)
		}
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	s.logger.Info("Document uploaded", "id", id, "filename", filename, "size_bytes", size, "page_count", pageCount)
	return doc, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, id string) (*domain.StoredDocument, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DocumentService) ListDocuments(ctx context.Context) ([]*domain.StoredDocument, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

// OpenContent returns the record and a reader over its bytes; the caller closes it.
func (s *DocumentService) OpenContent(ctx context.Context, id string) (*domain.StoredDocument, io.ReadCloser, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.storage.Open(ctx, documentKey(doc.ID))
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

// DeleteDocument removes both the bytes and the metadata record. The bytes
// are moved aside first and moved back if the record cannot be deleted.
func (s *DocumentService) DeleteDocument(ctx context.Context, id string) error {
	unlockDoc := s.docLocks.Lock(id)
	defer unlockDoc()

	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(doc.StoragePath)
	defer unlock()

	key := documentKey(doc.ID)
	tombstone := key + ".deleting"

	blobMissing := false
	if err := s.storage.Rename(ctx, key, tombstone); err != nil {
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			return fmt.Errorf("failed to stage document bytes for deletion: %w", err)
		}
		s.logger.Warn("Document bytes already missing", "id", id)
		blobMissing = true
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if !blobMissing {
			if restoreErr := s.storage.Rename(ctx, tombstone, key); restoreErr != nil {
				s.logger.Error("Failed to restore document bytes", restoreErr, "id", id)
			}
		}
		return fmt.Errorf("failed to delete document metadata: %w", err)
	}

	if !blobMissing {
		if err := s.storage.Delete(ctx, tombstone); err != nil {
			s.logger.Warn("Failed to remove document bytes", "id", id, "error", err)
		}
	}

	s.logger.Info("Document deleted", "id", id)
	return nil
}

// AppendImages appends image pages to a stored document. The metadata refresh
// happens under the document's lock so concurrent appends record their counts
// in the order the bytes changed.
func (s *DocumentService) AppendImages(ctx context.Context, id string, text string, images []*string) (*domain.StoredDocument, *domain.AppendResult, error) {
	unlock := s.docLocks.Lock(id)
	defer unlock()

	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.appender.AppendImages(ctx, domain.AppendRequest{
		TargetPath: doc.StoragePath,
		Text:       text,
		Images:     images,
	})
	if err != nil {
		return nil, nil, err
	}

	return s.refresh(ctx, doc, result), result, nil
}

func (s *DocumentService) AppendDocument(ctx context.Context, id string, pdf io.Reader) (*domain.StoredDocument, *domain.AppendResult, error) {
	unlock := s.docLocks.Lock(id)
	defer unlock()

	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.appender.AppendDocument(ctx, doc.StoragePath, pdf)
	if err != nil {
		return nil, nil, err
	}

	return s.refresh(ctx, doc, result), result, nil
}

// refresh records the new size and page count. The bytes are already
// replaced, so a failed update only leaves the counters stale.
func (s *DocumentService) refresh(ctx context.Context, doc *domain.StoredDocument, result *domain.AppendResult) *domain.StoredDocument {
	updated := *doc
	updated.SizeBytes = result.SizeBytes
	updated.PageCount = result.TotalPages
	updated.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, &updated); err != nil {
		s.logger.Warn("Failed to update document metadata after append", "id", doc.ID, "error", err)
		return doc
	}
	return &updated
}

func (s *DocumentService) inspect(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := s.inspector.Validate(f); err != nil {
		return 0, err
	}

	count, err := s.inspector.PageCount(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidFile, err)
	}
	return count, nil
}

func (s *DocumentService) discardBlob(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to discard stored bytes", "key", key, "error", err)
	}
}

// sanitizeFilename strips path components and falls back to "<id>.pdf".
func sanitizeFilename(name, id string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return id + ".pdf"
	}
	return name
}
