package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/papervault/internal/client/models"
	"github.com/dmitrijs2005/papervault/internal/common"
	"github.com/dmitrijs2005/papervault/internal/dbx"
	"github.com/google/uuid"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	// modernc.org/sqlite surfaces SQLITE_FULL as a plain error string.
	if strings.Contains(err.Error(), "database or disk is full") {
		return common.ErrStorageExhausted
	}
	return err
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, item *models.QueueItem) (string, error) {
	if item.LocalID == "" {
		item.LocalID = uuid.NewString()
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}
	item.SyncState = models.SyncStatePending

	query := `INSERT INTO queue_items (local_id, file_name, mime_type, byte_size, payload, enqueued_at, captured_offline, sync_state, last_error)
			values (?, ?, ?, ?, ?, ?, ?, ?, '')
	`
	_, err := r.db.ExecContext(ctx, query,
		item.LocalID, item.FileName, item.MimeType, item.ByteSize, item.Payload,
		item.EnqueuedAt.UnixMilli(), item.CapturedOffline, string(item.SyncState))
	if err != nil {
		return "", fmt.Errorf("failed to insert queue item: %w", mapSQLiteErr(err))
	}
	return item.LocalID, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, localID string) (*models.QueueItem, error) {
	query := `select local_id, file_name, mime_type, byte_size, payload, enqueued_at, captured_offline, sync_state, last_error
		from queue_items where local_id=?`
	row := r.db.QueryRowContext(ctx, query, localID)

	item, err := scanItem(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) ListByState(ctx context.Context, state models.SyncState) ([]*models.QueueItem, error) {
	query := `select local_id, file_name, mime_type, byte_size, payload, enqueued_at, captured_offline, sync_state, last_error
		from queue_items where sync_state=? order by rowid`
	return r.list(ctx, query, string(state))
}

func (r *SQLiteRepository) ListEligible(ctx context.Context) ([]*models.QueueItem, error) {
	query := `select local_id, file_name, mime_type, byte_size, payload, enqueued_at, captured_offline, sync_state, last_error
		from queue_items where sync_state in (?, ?) order by rowid`
	return r.list(ctx, query, string(models.SyncStatePending), string(models.SyncStateFailed))
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.QueueItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue items: %w", err)
	}
	defer rows.Close()

	var result []*models.QueueItem
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanItem(scan func(dest ...any) error) (*models.QueueItem, error) {
	item := &models.QueueItem{}
	var enqueuedAt int64
	var state string
	if err := scan(&item.LocalID, &item.FileName, &item.MimeType, &item.ByteSize,
		&item.Payload, &enqueuedAt, &item.CapturedOffline, &state, &item.LastError); err != nil {
		return nil, err
	}
	item.EnqueuedAt = time.UnixMilli(enqueuedAt).UTC()
	item.SyncState = models.SyncState(state)
	return item, nil
}

// MarkState updates one item's state. The last error is kept only on the
// transition to failed.
func (r *SQLiteRepository) MarkState(ctx context.Context, localID string, state models.SyncState, lastError string) error {
	if state != models.SyncStateFailed {
		lastError = ""
	}
	query := `update queue_items set sync_state=?, last_error=? where local_id=?`
	res, err := r.db.ExecContext(ctx, query, string(state), lastError, localID)
	if err != nil {
		return fmt.Errorf("failed to update queue item: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ResetUploading(ctx context.Context) (int64, error) {
	query := `update queue_items set sync_state=?, last_error='' where sync_state=?`
	res, err := r.db.ExecContext(ctx, query,
		string(models.SyncStatePending), string(models.SyncStateUploading))
	if err != nil {
		return 0, fmt.Errorf("failed to reset uploading items: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) PurgeOlderThan(ctx context.Context, state models.SyncState, cutoff time.Time) (int64, error) {
	query := `delete from queue_items where sync_state=? and enqueued_at < ?`
	res, err := r.db.ExecContext(ctx, query, string(state), cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge queue items: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Delete(ctx context.Context, localID string) error {
	query := `delete from queue_items where local_id=?`
	res, err := r.db.ExecContext(ctx, query, localID)
	if err != nil {
		return fmt.Errorf("failed to delete queue item: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) CountByState(ctx context.Context, state models.SyncState) (int64, error) {
	query := `select count(*) from queue_items where sync_state=?`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, string(state)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue items: %w", err)
	}
	return n, nil
}
