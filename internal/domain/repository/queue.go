package repository

import (
	"context"

	"github.com/google/uuid"
)

// MigrateTask represents a provider-to-provider video migration job message.
type MigrateTask struct {
	ContentID      uuid.UUID `json:"content_id"`
	TargetProvider string    `json:"target_provider"`
	RetryCount     int       `json:"retry_count"`
}

// MessageQueue defines the interface for message queue operations.
// Implementations are provided by the infrastructure layer (RabbitMQ).
type MessageQueue interface {
	// PublishMigrateTask sends a migration task to the queue.
	// Used by the API server to trigger async migrations.
	PublishMigrateTask(ctx context.Context, task MigrateTask) error

	// ConsumeMigrateTasks starts consuming migration tasks from the queue.
	// The handler function is called for each received task. Blocks until the
	// context is cancelled or the channel closes.
	// Used by the worker service.
	ConsumeMigrateTasks(ctx context.Context, handler func(task MigrateTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
