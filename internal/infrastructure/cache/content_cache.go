package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/coursestream/mediahub/internal/domain/model"
)

// contentCacheKeyPrefix is the prefix for content cache keys in Redis.
const contentCacheKeyPrefix = "content:"

// ContentCache defines the interface for caching video content metadata.
type ContentCache interface {
	// Get retrieves content from cache by ID.
	// Returns nil, nil if not found (cache miss).
	Get(ctx context.Context, contentID uuid.UUID) (*model.VideoContent, error)

	// Set stores content in cache with the specified TTL.
	Set(ctx context.Context, content *model.VideoContent, ttl time.Duration) error

	// Delete removes content from cache by ID.
	// Returns nil if the content was not cached.
	Delete(ctx context.Context, contentID uuid.UUID) error
}

// contentJSON is the JSON representation of VideoContent for caching.
type contentJSON struct {
	ID             string `json:"id"`
	CourseID       string `json:"course_id"`
	Title          string `json:"title"`
	Provider       string `json:"provider"`
	StoragePath    string `json:"storage_path"`
	RawURL         string `json:"raw_url"`
	SizeBytes      int64  `json:"size_bytes"`
	MigrationState string `json:"migration_state"`
	FreePreview    bool   `json:"free_preview"`
	Locked         bool   `json:"locked"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// RedisContentCache implements ContentCache using Redis.
type RedisContentCache struct {
	client *redis.Client
}

// NewRedisContentCache creates a new Redis-backed content cache.
func NewRedisContentCache(client *redis.Client) *RedisContentCache {
	return &RedisContentCache{client: client}
}

// Get retrieves content from Redis cache. Returns nil, nil on cache miss.
func (c *RedisContentCache) Get(ctx context.Context, contentID uuid.UUID) (*model.VideoContent, error) {
	data, err := c.client.Get(ctx, buildContentKey(contentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	content, err := deserializeContent(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize content: %w", err)
	}

	return content, nil
}

// Set stores content in Redis cache with the specified TTL.
func (c *RedisContentCache) Set(ctx context.Context, content *model.VideoContent, ttl time.Duration) error {
	data, err := serializeContent(content)
	if err != nil {
		return fmt.Errorf("serialize content: %w", err)
	}

	if err := c.client.Set(ctx, buildContentKey(content.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes content from Redis cache.
func (c *RedisContentCache) Delete(ctx context.Context, contentID uuid.UUID) error {
	if err := c.client.Del(ctx, buildContentKey(contentID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func buildContentKey(contentID uuid.UUID) string {
	return contentCacheKeyPrefix + contentID.String()
}

func serializeContent(content *model.VideoContent) ([]byte, error) {
	v := contentJSON{
		ID:             content.ID.String(),
		CourseID:       content.CourseID.String(),
		Title:          content.Title,
		Provider:       content.Provider.String(),
		StoragePath:    content.StoragePath,
		RawURL:         content.RawURL,
		SizeBytes:      content.SizeBytes,
		MigrationState: content.MigrationState.String(),
		FreePreview:    content.FreePreview,
		Locked:         content.Locked,
		CreatedAt:      content.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:      content.UpdatedAt.Format(time.RFC3339Nano),
	}
	return json.Marshal(v)
}

func deserializeContent(data []byte) (*model.VideoContent, error) {
	var v contentJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(v.ID)
	if err != nil {
		return nil, fmt.Errorf("parse content ID: %w", err)
	}

	courseID, err := uuid.Parse(v.CourseID)
	if err != nil {
		return nil, fmt.Errorf("parse course ID: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &model.VideoContent{
		ID:             id,
		CourseID:       courseID,
		Title:          v.Title,
		Provider:       model.Provider(v.Provider),
		StoragePath:    v.StoragePath,
		RawURL:         v.RawURL,
		SizeBytes:      v.SizeBytes,
		MigrationState: model.MigrationState(v.MigrationState),
		FreePreview:    v.FreePreview,
		Locked:         v.Locked,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

var _ ContentCache = (*RedisContentCache)(nil)
