package domain

import (
	"context"
	"io"
	"time"
)

// StoredDocument is a PDF kept on local disk and indexed in the metadata store.
type StoredDocument struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	StoragePath string `json:"storage_path"`

	SizeBytes int64 `json:"size_bytes"`
	PageCount int   `json:"page_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UploadRequest describes a new document to store.
// ID is optional; the server generates one when empty.
type UploadRequest struct {
	ID       string
	Filename string
	Content  io.Reader
}

// DocumentRepository maps an identifier to its metadata record.
type DocumentRepository interface {
	Create(ctx context.Context, document *StoredDocument) error
	GetByID(ctx context.Context, id string) (*StoredDocument, error)
	Update(ctx context.Context, document *StoredDocument) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*StoredDocument, error)
	Close() error
}

// BlobStorage keeps document bytes under opaque keys.
type BlobStorage interface {
	Store(ctx context.Context, key string, content io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Rename(ctx context.Context, from, to string) error
	Path(key string) (string, error)
}

// DocumentService defines the use-case operations for stored documents.
type DocumentService interface {
	Upload(ctx context.Context, req UploadRequest) (*StoredDocument, error)
	GetDocument(ctx context.Context, id string) (*StoredDocument, error)
	ListDocuments(ctx context.Context) ([]*StoredDocument, error)
	OpenContent(ctx context.Context, id string) (*StoredDocument, io.ReadCloser, error)
	DeleteDocument(ctx context.Context, id string) error
	AppendImages(ctx context.Context, id string, text string, images []*string) (*StoredDocument, *AppendResult, error)
	AppendDocument(ctx context.Context, id string, pdf io.Reader) (*StoredDocument, *AppendResult, error)
}
