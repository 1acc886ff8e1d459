package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pdf-page-server/internal/domain"
)

// documentRow is the shape of a row in the Supabase documents table.
type documentRow struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	StoragePath string `json:"storage_path"`
	SizeBytes   int64  `json:"size_bytes"`
	PageCount   int    `json:"page_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// SupabaseDocumentRepository implements the domain.DocumentRepository interface
type SupabaseDocumentRepository struct {
	supabaseClient *SupabaseClient
	table          string
	logger         domain.Logger
}

// NewSupabaseDocumentRepository creates a new Supabase document repository
func NewSupabaseDocumentRepository(supabaseClient *SupabaseClient, table string, logger domain.Logger) *SupabaseDocumentRepository {
	if table == "" {
		table = "documents"
	}
	return &SupabaseDocumentRepository{
		supabaseClient: supabaseClient,
		table:          table,
		logger:         logger,
	}
}

// Create inserts a new document row
func (r *SupabaseDocumentRepository) Create(ctx context.Context, document *domain.StoredDocument) error {
	client := r.supabaseClient.GetSupabaseClient()
	if client == nil {
		return fmt.Errorf("supabase client not initialized")
	}

	if _, err := r.GetByID(ctx, document.ID); err == nil {
		return domain.ErrDocumentExists
	}

	_, _, err := client.From(r.table).Insert(toRow(document), false, "", "", "").Execute()
	if err != nil {
		r.logger.Error("Failed to insert document in Supabase", err, "doc_id", document.ID)
		return fmt.Errorf("failed to create document: %w", err)
	}

	r.logger.Debug("Document row created", "id", document.ID)
	return nil
}

// GetByID retrieves a document by its ID
func (r *SupabaseDocumentRepository) GetByID(ctx context.Context, id string) (*domain.StoredDocument, error) {
	client := r.supabaseClient.GetSupabaseClient()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}

	data, _, err := client.From(r.table).
		Select("*", "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	var rows []documentRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrDocumentNotFound
	}

	return rows[0].toDocument()
}

// Update overwrites an existing document row
func (r *SupabaseDocumentRepository) Update(ctx context.Context, document *domain.StoredDocument) error {
	client := r.supabaseClient.GetSupabaseClient()
	if client == nil {
		return fmt.Errorf("supabase client not initialized")
	}

	data := map[string]interface{}{
		"filename":     document.Filename,
		"storage_path": document.StoragePath,
		"size_bytes":   document.SizeBytes,
		"page_count":   document.PageCount,
		"updated_at":   document.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	body, _, err := client.From(r.table).
		Update(data, "representation", "").
		Eq("id", document.ID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	var rows []documentRow
	if err := json.Unmarshal(body, &rows); err == nil && len(rows) == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Delete removes a document row
func (r *SupabaseDocumentRepository) Delete(ctx context.Context, id string) error {
	client := r.supabaseClient.GetSupabaseClient()
	if client == nil {
		return fmt.Errorf("supabase client not initialized")
	}

	body, _, err := client.From(r.table).
		Delete("representation", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	var rows []documentRow
	if err := json.Unmarshal(body, &rows); err == nil && len(rows) == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// List returns every document row
func (r *SupabaseDocumentRepository) List(ctx context.Context) ([]*domain.StoredDocument, error) {
	client := r.supabaseClient.GetSupabaseClient()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}

	data, _, err := client.From(r.table).
		Select("*", "", false).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var rows []documentRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal documents: %w", err)
	}

	documents := make([]*domain.StoredDocument, 0, len(rows))
	for _, row := range rows {
		document, err := row.toDocument()
		if err != nil {
			r.logger.Warn("Skipping malformed document row", "id", row.ID, "error", err)
			continue
		}
		documents = append(documents, document)
	}
	return documents, nil
}

// Close is a no-op; the Supabase client holds no long-lived connections.
func (r *SupabaseDocumentRepository) Close() error {
	return nil
}

func toRow(document *domain.StoredDocument) documentRow {
	return documentRow{
		ID:          document.ID,
		Filename:    document.Filename,
		StoragePath: document.StoragePath,
		SizeBytes:   document.SizeBytes,
		PageCount:   document.PageCount,
		CreatedAt:   document.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   document.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (row documentRow) toDocument() (*domain.StoredDocument, error) {
	createdAt, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	updatedAt, err := parseTimestamp(row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}

	return &domain.StoredDocument{
		ID:          row.ID,
		Filename:    row.Filename,
		StoragePath: row.StoragePath,
		SizeBytes:   row.SizeBytes,
		PageCount:   row.PageCount,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// parseTimestamp accepts the formats Postgres timestamptz columns come back in.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}
