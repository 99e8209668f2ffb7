package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coursestream/mediahub/internal/domain/model"
	"github.com/coursestream/mediahub/internal/domain/repository"
)

// settingsRowID pins the singleton row; the table holds at most one record.
const settingsRowID = 1

// SettingsRepository implements repository.SettingsRepository using PostgreSQL.
type SettingsRepository struct {
	db DBTX
}

// NewSettingsRepository creates a new SettingsRepository instance.
func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves the settings record.
func (r *SettingsRepository) Get(ctx context.Context) (*model.StorageSettings, error) {
	const query = `
		SELECT active_provider, signed_url_expiry_seconds, max_file_size_mb, auto_compress,
		       gateway_endpoint, gateway_public_base_url,
		       cdn_storage_zone_url, cdn_access_key, cdn_pull_zone_url, cdn_security_key,
		       updated_at
		FROM storage_settings
		WHERE id = $1
	`

	var (
		s              model.StorageSettings
		activeProvider string
	)
	err := r.db.QueryRow(ctx, query, settingsRowID).Scan(
		&activeProvider,
		&s.SignedURLExpirySeconds,
		&s.MaxFileSizeMB,
		&s.AutoCompress,
		&s.GatewayEndpoint,
		&s.GatewayPublicBaseURL,
		&s.CDNStorageZoneURL,
		&s.CDNAccessKey,
		&s.CDNPullZoneURL,
		&s.CDNSecurityKey,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to get storage settings: %w", err)
	}

	s.ActiveProvider = model.Provider(activeProvider)
	return &s, nil
}

// Save creates or replaces the settings record (single-row upsert).
func (r *SettingsRepository) Save(ctx context.Context, settings *model.StorageSettings) error {
	const query = `
		INSERT INTO storage_settings (
			id, active_provider, signed_url_expiry_seconds, max_file_size_mb, auto_compress,
			gateway_endpoint, gateway_public_base_url,
			cdn_storage_zone_url, cdn_access_key, cdn_pull_zone_url, cdn_security_key,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			active_provider = EXCLUDED.active_provider,
			signed_url_expiry_seconds = EXCLUDED.signed_url_expiry_seconds,
			max_file_size_mb = EXCLUDED.max_file_size_mb,
			auto_compress = EXCLUDED.auto_compress,
			gateway_endpoint = EXCLUDED.gateway_endpoint,
			gateway_public_base_url = EXCLUDED.gateway_public_base_url,
			cdn_storage_zone_url = EXCLUDED.cdn_storage_zone_url,
			cdn_access_key = EXCLUDED.cdn_access_key,
			cdn_pull_zone_url = EXCLUDED.cdn_pull_zone_url,
			cdn_security_key = EXCLUDED.cdn_security_key,
			updated_at = EXCLUDED.updated_at
	`

	settings.UpdatedAt = time.Now()

	_, err := r.db.Exec(ctx, query,
		settingsRowID,
		settings.ActiveProvider.String(),
		settings.SignedURLExpirySeconds,
		settings.MaxFileSizeMB,
		settings.AutoCompress,
		settings.GatewayEndpoint,
		settings.GatewayPublicBaseURL,
		settings.CDNStorageZoneURL,
		settings.CDNAccessKey,
		settings.CDNPullZoneURL,
		settings.CDNSecurityKey,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save storage settings: %w", err)
	}

	return nil
}

// Compile-time verification that SettingsRepository implements repository.SettingsRepository.
var _ repository.SettingsRepository = (*SettingsRepository)(nil)
