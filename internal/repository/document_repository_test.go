package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"pdf-page-server/internal/domain"

	"github.com/alicebob/miniredis/v2"
)

type testLogger struct{}

func (testLogger) Info(msg string, fields ...interface{})             {}
func (testLogger) Error(msg string, err error, fields ...interface{}) {}
func (testLogger) Debug(msg string, fields ...interface{})            {}
func (testLogger) Warn(msg string, fields ...interface{})             {}

// documentStore is what every metadata backend must satisfy.
type documentStore interface {
	Create(ctx context.Context, document *domain.StoredDocument) error
	GetByID(ctx context.Context, id string) (*domain.StoredDocument, error)
	Update(ctx context.Context, document *domain.StoredDocument) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*domain.StoredDocument, error)
	Close() error
}

func newRedisRepository(t *testing.T) *RedisDocumentRepository {
	t.Helper()

	mr := miniredis.RunT(t)
	repo, err := NewRedisDocumentRepository(context.Background(), "redis://"+mr.Addr(), testLogger{})
	if err != nil {
		t.Fatalf("failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testDocument(id string) *domain.StoredDocument {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.StoredDocument{
		ID:          id,
		Filename:    id + ".pdf",
		StoragePath: "/srv/uploads/" + id + ".pdf",
		SizeBytes:   1024,
		PageCount:   2,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestDocumentRepositories(t *testing.T) {
	backends := map[string]func(t *testing.T) documentStore{
		"memory": func(t *testing.T) documentStore { return NewMemoryDocumentRepository() },
		"redis":  func(t *testing.T) documentStore { return newRedisRepository(t) },
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newStore(t)

			if err := repo.Create(ctx, testDocument("a")); err != nil {
				t.Fatalf("create failed: %v", err)
			}
			if err := repo.Create(ctx, testDocument("b")); err != nil {
				t.Fatalf("create failed: %v", err)
			}
			if err := repo.Create(ctx, testDocument("a")); !errors.Is(err, domain.ErrDocumentExists) {
				t.Fatalf("expected ErrDocumentExists, got %v", err)
			}

			got, err := repo.GetByID(ctx, "a")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got.StoragePath != "/srv/uploads/a.pdf" || !got.CreatedAt.Equal(testDocument("a").CreatedAt) {
				t.Fatalf("unexpected document: %+v", got)
			}

			got.PageCount = 5
			if err := repo.Update(ctx, got); err != nil {
				t.Fatalf("update failed: %v", err)
			}
			if again, _ := repo.GetByID(ctx, "a"); again.PageCount != 5 {
				t.Fatalf("expected page count 5, got %d", again.PageCount)
			}
			if err := repo.Update(ctx, testDocument("missing")); !errors.Is(err, domain.ErrDocumentNotFound) {
				t.Fatalf("expected ErrDocumentNotFound on update, got %v", err)
			}

			docs, err := repo.List(ctx)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(docs) != 2 {
				t.Fatalf("expected 2 documents, got %d", len(docs))
			}

			if err := repo.Delete(ctx, "a"); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			if err := repo.Delete(ctx, "a"); !errors.Is(err, domain.ErrDocumentNotFound) {
				t.Fatalf("expected ErrDocumentNotFound on second delete, got %v", err)
			}
			if _, err := repo.GetByID(ctx, "a"); !errors.Is(err, domain.ErrDocumentNotFound) {
				t.Fatalf("expected ErrDocumentNotFound, got %v", err)
			}

			docs, _ = repo.List(ctx)
			if len(docs) != 1 || docs[0].ID != "b" {
				t.Fatalf("expected only b left, got %v", docs)
			}

			if err := repo.Close(); err != nil {
				t.Fatalf("close failed: %v", err)
			}
		})
	}
}

func TestRedisDocumentRepository_SkipsDanglingIndexEntries(t *testing.T) {
	ctx := context.Background()
	repo := newRedisRepository(t)

	if err := repo.Create(ctx, testDocument("kept")); err != nil {
		t.Fatal(err)
	}
	if err := repo.client.SAdd(ctx, redisDocumentIndex, "ghost").Err(); err != nil {
		t.Fatal(err)
	}

	docs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "kept" {
		t.Fatalf("expected only kept document, got %v", docs)
	}
}

func TestNewRedisDocumentRepository_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisDocumentRepository(context.Background(), "redis://"+addr, testLogger{}); err == nil {
		t.Fatal("expected connection error")
	}
	if _, err := NewRedisDocumentRepository(context.Background(), "not a url", testLogger{}); err == nil {
		t.Fatal("expected url error")
	}
}
