// Package sync drains the local durable queue through the upload transport.
// It owns the pending→uploading→synced|failed state machine and serializes
// drains so that at most one item is in flight at a time.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/papervault/internal/client/models"
	"github.com/dmitrijs2005/papervault/internal/client/queue"
	"github.com/dmitrijs2005/papervault/internal/common"
	"github.com/dmitrijs2005/papervault/internal/logging"
)

// Uploader transfers one queue item to the server. The upload transport
// satisfies this.
type Uploader interface {
	Send(ctx context.Context, item *models.QueueItem) (*models.Document, error)
}

// Engine coordinates queue drains. Triggers (reachable edge, manual flush,
// startup) are coalesced: a trigger arriving while a drain is running is a
// no-op, and the failed state is re-examined on the next trigger instead of
// being busy-retried.
type Engine struct {
	repo      queue.Repository
	uploader  Uploader
	retention time.Duration
	logger    logging.Logger

	// drainMu serializes drains; TryLock coalesces concurrent triggers.
	drainMu sync.Mutex

	mu        sync.Mutex
	subs      map[int]func(*models.Document)
	nextSubID int
	inflight  map[string]context.CancelFunc
}

func NewEngine(repo queue.Repository, uploader Uploader, retention time.Duration, logger logging.Logger) *Engine {
	return &Engine{
		repo:      repo,
		uploader:  uploader,
		retention: retention,
		logger:    logger.With("module", "sync"),
		subs:      make(map[int]func(*models.Document)),
		inflight:  make(map[string]context.CancelFunc),
	}
}

// Subscribe registers a callback fired for every successfully synced item,
// so collaborators can invalidate their document lists. Returns a handle for
// Unsubscribe.
func (e *Engine) Subscribe(fn func(*models.Document)) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSubID++
	e.subs[e.nextSubID] = fn
	return e.nextSubID
}

// Unsubscribe removes a previously registered callback.
func (e *Engine) Unsubscribe(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subs, id)
}

// Submit persists a file in the durable queue before any transport attempt
// and returns the local id. The caller decides when to trigger a drain.
func (e *Engine) Submit(ctx context.Context, fileName, mimeType string, payload []byte, capturedOffline bool) (string, error) {
	item := &models.QueueItem{
		FileName:        fileName,
		MimeType:        mimeType,
		ByteSize:        int64(len(payload)),
		Payload:         payload,
		CapturedOffline: capturedOffline,
	}
	localID, err := e.repo.Enqueue(ctx, item)
	if err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	e.logger.Info(ctx, "queued file", "local_id", localID, "name", fileName, "size", item.ByteSize)
	return localID, nil
}

// Run reacts to reachable-edge notifications until the context is cancelled.
func (e *Engine) Run(ctx context.Context, edges <-chan struct{}) {
	for {
		select {
		case <-edges:
			if err := e.Drain(ctx); err != nil {
				e.logger.Error(ctx, "drain failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Drain uploads every eligible (pending or failed) item, one at a time, then
// runs retention cleanup. If another drain is in progress the call is a no-op.
// A single item's failure never aborts the drain.
func (e *Engine) Drain(ctx context.Context) error {
	if !e.drainMu.TryLock() {
		e.logger.Debug(ctx, "drain already in progress, trigger coalesced")
		return nil
	}
	defer e.drainMu.Unlock()

	// No drain is in flight, so any uploading row was left behind by an
	// interrupted transfer (shutdown or crash). Make it eligible again.
	if n, err := e.repo.ResetUploading(ctx); err != nil {
		return fmt.Errorf("requeueing interrupted items: %w", err)
	} else if n > 0 {
		e.logger.Info(ctx, "requeued interrupted items", "count", n)
	}

	items, err := e.repo.ListEligible(ctx)
	if err != nil {
		return fmt.Errorf("listing eligible items: %w", err)
	}

	for _, item := range items {
		e.processItem(ctx, item)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return e.cleanup(ctx)
}

func (e *Engine) processItem(ctx context.Context, item *models.QueueItem) {
	if err := e.repo.MarkState(ctx, item.LocalID, models.SyncStateUploading, ""); err != nil {
		// item may have been cancelled between snapshot and now
		e.logger.Warn(ctx, "skipping item", "local_id", item.LocalID, "error", err)
		return
	}

	itemCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.inflight[item.LocalID] = cancel
	e.mu.Unlock()

	doc, err := e.uploader.Send(itemCtx, item)

	e.mu.Lock()
	delete(e.inflight, item.LocalID)
	e.mu.Unlock()
	cancel()

	switch {
	case err == nil:
		if err := e.repo.MarkState(ctx, item.LocalID, models.SyncStateSynced, ""); err != nil {
			e.logger.Error(ctx, "failed to mark item synced", "local_id", item.LocalID, "error", err)
			return
		}
		e.logger.Info(ctx, "item synced", "local_id", item.LocalID, "document_id", doc.ID)
		e.notify(doc)
	case errors.Is(err, common.ErrAborted):
		// Either the user cancelled (Cancel already removed the row) or the
		// drain itself was interrupted. In the latter case the item stays
		// uploading and the next drain requeues it.
		e.logger.Info(ctx, "item upload aborted", "local_id", item.LocalID)
	default:
		if markErr := e.repo.MarkState(ctx, item.LocalID, models.SyncStateFailed, err.Error()); markErr != nil {
			e.logger.Error(ctx, "failed to mark item failed", "local_id", item.LocalID, "error", markErr)
			return
		}
		e.logger.Warn(ctx, "item upload failed", "local_id", item.LocalID, "error", err)
	}
}

// Cancel aborts an in-flight upload of the item (if any) and removes it from
// the queue entirely. A cancelled item is only re-queued by an explicit new
// submission.
func (e *Engine) Cancel(ctx context.Context, localID string) error {
	e.mu.Lock()
	cancel, inflight := e.inflight[localID]
	e.mu.Unlock()
	if inflight {
		cancel()
	}

	if err := e.repo.Delete(ctx, localID); err != nil {
		return fmt.Errorf("removing cancelled item: %w", err)
	}
	e.logger.Info(ctx, "item cancelled", "local_id", localID)
	return nil
}

func (e *Engine) cleanup(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-e.retention)
	n, err := e.repo.PurgeOlderThan(ctx, models.SyncStateSynced, cutoff)
	if err != nil {
		return fmt.Errorf("retention cleanup: %w", err)
	}
	if n > 0 {
		e.logger.Info(ctx, "purged synced items", "count", n)
	}
	return nil
}

func (e *Engine) notify(doc *models.Document) {
	e.mu.Lock()
	fns := make([]func(*models.Document), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(doc)
	}
}
