// Package queue implements the local durable upload queue: a SQLite-backed
// store of files captured while offline (or before any transport attempt),
// together with their per-item sync state.
package queue

import (
	"context"
	"time"

	"github.com/dmitrijs2005/papervault/internal/client/models"
)

// Repository describes the operations the sync engine performs on queued
// uploads. Implementations are backed by a local SQLite database.
type Repository interface {
	// Enqueue persists a new item with state=pending and returns its local id.
	// Fails with common.ErrStorageExhausted when local storage is full.
	Enqueue(ctx context.Context, item *models.QueueItem) (string, error)

	// Get returns one item by its local id.
	Get(ctx context.Context, localID string) (*models.QueueItem, error)

	// ListByState returns a snapshot of items in the given state, in
	// insertion order.
	ListByState(ctx context.Context, state models.SyncState) ([]*models.QueueItem, error)

	// ListEligible returns pending and failed items in insertion order,
	// forming the working set of one drain.
	ListEligible(ctx context.Context) ([]*models.QueueItem, error)

	// MarkState atomically updates one item's state. lastError is overwritten
	// only when transitioning to failed and cleared otherwise.
	MarkState(ctx context.Context, localID string, state models.SyncState, lastError string) error

	// ResetUploading reverts items stuck in uploading back to pending.
	// Only safe to call when no drain is in flight; an uploading row seen
	// then belongs to a drain that was interrupted mid-transfer.
	ResetUploading(ctx context.Context) (int64, error)

	// PurgeOlderThan deletes items in the given state enqueued before the
	// cutoff. Callers must only pass synced here; pending/failed items are
	// never auto-deleted.
	PurgeOlderThan(ctx context.Context, state models.SyncState, cutoff time.Time) (int64, error)

	// Delete removes one item entirely. Used for user cancellation.
	Delete(ctx context.Context, localID string) error

	// CountByState returns the number of items in the given state.
	CountByState(ctx context.Context, state models.SyncState) (int64, error)
}
