package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pdf-page-server/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	redisDocumentPrefix = "document:"
	redisDocumentIndex  = "documents"
)

// RedisDocumentRepository stores document metadata as JSON values in Redis,
// with a set indexing every known ID.
type RedisDocumentRepository struct {
	client *redis.Client
	logger domain.Logger
}

// NewRedisDocumentRepository connects to redisURL and verifies the connection.
func NewRedisDocumentRepository(ctx context.Context, redisURL string, logger domain.Logger) (*RedisDocumentRepository, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis metadata store connected", "addr", opts.Addr, "db", opts.DB)
	return &RedisDocumentRepository{client: client, logger: logger}, nil
}

func redisDocumentKey(id string) string {
	return redisDocumentPrefix + id
}

func (r *RedisDocumentRepository) Create(ctx context.Context, document *domain.StoredDocument) error {
	data, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	created, err := r.client.SetNX(ctx, redisDocumentKey(document.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	if !created {
		return domain.ErrDocumentExists
	}

	if err := r.client.SAdd(ctx, redisDocumentIndex, document.ID).Err(); err != nil {
		r.client.Del(ctx, redisDocumentKey(document.ID))
		return fmt.Errorf("failed to index document: %w", err)
	}
	return nil
}

func (r *RedisDocumentRepository) GetByID(ctx context.Context, id string) (*domain.StoredDocument, error) {
	data, err := r.client.Get(ctx, redisDocumentKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	var document domain.StoredDocument
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return &document, nil
}

func (r *RedisDocumentRepository) Update(ctx context.Context, document *domain.StoredDocument) error {
	data, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	updated, err := r.client.SetXX(ctx, redisDocumentKey(document.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if !updated {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *RedisDocumentRepository) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, redisDocumentKey(id))
		pipe.SRem(ctx, redisDocumentIndex, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if del.Val() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *RedisDocumentRepository) List(ctx context.Context) ([]*domain.StoredDocument, error) {
	ids, err := r.client.SMembers(ctx, redisDocumentIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.StoredDocument{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisDocumentKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	documents := make([]*domain.StoredDocument, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Index entry without a value; left over from an interrupted create.
			r.logger.Warn("Skipping dangling document index entry", "id", ids[i])
			continue
		}
		var document domain.StoredDocument
		if err := json.Unmarshal([]byte(raw), &document); err != nil {
			r.logger.Warn("Skipping malformed document", "id", ids[i], "error", err)
			continue
		}
		documents = append(documents, &document)
	}
	return documents, nil
}

func (r *RedisDocumentRepository) Close() error {
	return r.client.Close()
}
