// Package cache provides Redis-backed caches for storage settings and video
// content metadata.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coursestream/mediahub/internal/domain/model"
)

// settingsCacheKey is the single Redis key holding the settings record.
const settingsCacheKey = "storage:settings"

// SettingsCache caches the singleton storage settings record.
//
// Contract: any writer of settings must call Invalidate after a successful
// save so the next read observes the new record; otherwise staleness is
// bounded only by the TTL passed to Set.
type SettingsCache interface {
	// Get retrieves cached settings. Returns nil, nil on cache miss.
	Get(ctx context.Context) (*model.StorageSettings, error)

	// Set stores settings with the specified TTL.
	Set(ctx context.Context, settings *model.StorageSettings, ttl time.Duration) error

	// Invalidate drops the cached record so the next Get misses.
	Invalidate(ctx context.Context) error
}

// settingsJSON is the JSON representation of StorageSettings for caching.
// An explicit struct keeps the cache format decoupled from the domain model.
type settingsJSON struct {
	ActiveProvider         string `json:"active_provider"`
	SignedURLExpirySeconds int    `json:"signed_url_expiry_seconds"`
	MaxFileSizeMB          int    `json:"max_file_size_mb"`
	AutoCompress           bool   `json:"auto_compress"`
	GatewayEndpoint        string `json:"gateway_endpoint"`
	GatewayPublicBaseURL   string `json:"gateway_public_base_url"`
	CDNStorageZoneURL      string `json:"cdn_storage_zone_url"`
	CDNAccessKey           string `json:"cdn_access_key"`
	CDNPullZoneURL         string `json:"cdn_pull_zone_url"`
	CDNSecurityKey         string `json:"cdn_security_key"`
	UpdatedAt              string `json:"updated_at"`
}

// RedisSettingsCache implements SettingsCache using Redis.
type RedisSettingsCache struct {
	client *redis.Client
}

// NewRedisSettingsCache creates a new Redis-backed settings cache.
func NewRedisSettingsCache(client *redis.Client) *RedisSettingsCache {
	return &RedisSettingsCache{client: client}
}

// Get retrieves cached settings. Returns nil, nil on cache miss.
func (c *RedisSettingsCache) Get(ctx context.Context) (*model.StorageSettings, error) {
	data, err := c.client.Get(ctx, settingsCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var v settingsJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("deserialize settings: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &model.StorageSettings{
		ActiveProvider:         model.Provider(v.ActiveProvider),
		SignedURLExpirySeconds: v.SignedURLExpirySeconds,
		MaxFileSizeMB:          v.MaxFileSizeMB,
		AutoCompress:           v.AutoCompress,
		GatewayEndpoint:        v.GatewayEndpoint,
		GatewayPublicBaseURL:   v.GatewayPublicBaseURL,
		CDNStorageZoneURL:      v.CDNStorageZoneURL,
		CDNAccessKey:           v.CDNAccessKey,
		CDNPullZoneURL:         v.CDNPullZoneURL,
		CDNSecurityKey:         v.CDNSecurityKey,
		UpdatedAt:              updatedAt,
	}, nil
}

// Set stores settings with the specified TTL.
func (c *RedisSettingsCache) Set(ctx context.Context, settings *model.StorageSettings, ttl time.Duration) error {
	v := settingsJSON{
		ActiveProvider:         settings.ActiveProvider.String(),
		SignedURLExpirySeconds: settings.SignedURLExpirySeconds,
		MaxFileSizeMB:          settings.MaxFileSizeMB,
		AutoCompress:           settings.AutoCompress,
		GatewayEndpoint:        settings.GatewayEndpoint,
		GatewayPublicBaseURL:   settings.GatewayPublicBaseURL,
		CDNStorageZoneURL:      settings.CDNStorageZoneURL,
		CDNAccessKey:           settings.CDNAccessKey,
		CDNPullZoneURL:         settings.CDNPullZoneURL,
		CDNSecurityKey:         settings.CDNSecurityKey,
		UpdatedAt:              settings.UpdatedAt.Format(time.RFC3339Nano),
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("serialize settings: %w", err)
	}

	if err := c.client.Set(ctx, settingsCacheKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Invalidate drops the cached record.
func (c *RedisSettingsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, settingsCacheKey).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

var _ SettingsCache = (*RedisSettingsCache)(nil)
