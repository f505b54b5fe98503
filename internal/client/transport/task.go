package transport

import "github.com/dmitrijs2005/papervault/internal/client/models"

// Task is an observable, cancellable upload in flight.
type Task struct {
	progress chan int
	cancel   func()
	done     chan struct{}

	doc *models.Document
	err error
}

// Progress returns a stream of monotonically increasing percentages (0–100).
// The channel is closed when the task finishes. Slow consumers never block
// the transfer: stale values are dropped.
func (t *Task) Progress() <-chan int {
	return t.progress
}

// Cancel aborts the in-flight transfer. Wait will return common.ErrAborted,
// which is distinguishable from a network failure.
func (t *Task) Cancel() {
	t.cancel()
}

// Wait blocks until the task finishes and returns its result.
func (t *Task) Wait() (*models.Document, error) {
	<-t.done
	return t.doc, t.err
}

func (t *Task) report(pct int) {
	select {
	case t.progress <- pct:
		return
	default:
	}
	// consumer is behind: drop the oldest buffered value, keep the newest
	select {
	case <-t.progress:
	default:
	}
	select {
	case t.progress <- pct:
	default:
	}
}
