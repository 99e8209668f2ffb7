package repository

import (
	"context"

	"github.com/coursestream/mediahub/internal/domain/model"
)

// SettingsRepository defines persistence for the singleton storage settings
// record. Implementations are provided by the infrastructure layer.
type SettingsRepository interface {
	// Get retrieves the settings record.
	// Returns nil and ErrSettingsNotFound if no settings have been saved.
	Get(ctx context.Context) (*model.StorageSettings, error)

	// Save creates or replaces the settings record.
	//
	// Callers that cache settings are contractually required to invalidate
	// their cache after a successful Save; the repository does not do it.
	Save(ctx context.Context, settings *model.StorageSettings) error
}
