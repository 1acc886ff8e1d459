package repository

import (
	"context"
	"sync"

	"pdf-page-server/internal/domain"
)

// MemoryDocumentRepository keeps metadata in process memory. Records are lost
// on restart; it suits single-user desktop setups and tests.
type MemoryDocumentRepository struct {
	mu        sync.RWMutex
	documents map[string]domain.StoredDocument
}

func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{documents: make(map[string]domain.StoredDocument)}
}

func (r *MemoryDocumentRepository) Create(ctx context.Context, document *domain.StoredDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.documents[document.ID]; exists {
		return domain.ErrDocumentExists
	}
	r.documents[document.ID] = *document
	return nil
}

func (r *MemoryDocumentRepository) GetByID(ctx context.Context, id string) (*domain.StoredDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	document, exists := r.documents[id]
	if !exists {
		return nil, domain.ErrDocumentNotFound
	}
	return &document, nil
}

func (r *MemoryDocumentRepository) Update(ctx context.Context, document *domain.StoredDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.documents[document.ID]; !exists {
		return domain.ErrDocumentNotFound
	}
	r.documents[document.ID] = *document
	return nil
}

func (r *MemoryDocumentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.documents[id]; !exists {
		return domain.ErrDocumentNotFound
	}
	delete(r.documents, id)
	return nil
}

func (r *MemoryDocumentRepository) List(ctx context.Context) ([]*domain.StoredDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	documents := make([]*domain.StoredDocument, 0, len(r.documents))
	for _, document := range r.documents {
		copied := document
		documents = append(documents, &copied)
	}
	return documents, nil
}

func (r *MemoryDocumentRepository) Close() error {
	return nil
}
