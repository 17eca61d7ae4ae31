package repository

import (
	"context"

	"printkeeper/internal/domain"
)

// History defines the interface for the reconciliation and dispatch journal
type History interface {
	// Write operations
	RecordActions(ctx context.Context, passID string, actions []domain.Action) error
	RecordDispatch(ctx context.Context, entry *domain.DispatchEntry) error

	// Read operations, newest first
	ListActions(ctx context.Context, limit int) ([]domain.ActionEntry, error)
	ListPassActions(ctx context.Context, passID string) ([]domain.ActionEntry, error)
	ListDispatches(ctx context.Context, queue string, limit int) ([]domain.DispatchEntry, error)

	// Close releases resources
	Close() error
}
