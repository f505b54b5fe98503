// Package documents persists ingested document records.
package documents

import (
	"context"
	"time"

	"github.com/dmitrijs2005/papervault/internal/server/models"
)

// Completion carries the metadata the ingestion pipeline persists once
// extraction and classification finish.
type Completion struct {
	ExtractedText string
	Category      models.Category
	Metadata      map[string]string
	VendorName    string
	Amount        string
	DueDate       *time.Time
}

// Repository stores and retrieves document records. All reads are scoped by
// owner; a record belonging to another owner behaves as if it did not exist.
type Repository interface {
	// Create inserts a new record in PROCESSING status.
	Create(ctx context.Context, doc *models.Document) error
	// Complete transitions a record to COMPLETED and persists the pipeline
	// results in one statement.
	Complete(ctx context.Context, id string, c *Completion) error
	GetByID(ctx context.Context, ownerID string, id string) (*models.Document, error)
	// ListByOwner returns the owner's documents, newest first, optionally
	// filtered by category.
	ListByOwner(ctx context.Context, ownerID string, category models.Category) ([]*models.Document, error)
	// Search matches the query against names, extracted text and vendor names.
	Search(ctx context.Context, ownerID string, query string) ([]*models.Document, error)
	// ListDue returns unpaid invoices due within the next seven days,
	// soonest first.
	ListDue(ctx context.Context, ownerID string) ([]*models.Document, error)
	// ListPending returns documents still in PROCESSING status.
	ListPending(ctx context.Context, ownerID string) ([]*models.Document, error)
	// ListOffline returns documents flagged as available offline.
	ListOffline(ctx context.Context, ownerID string) ([]*models.Document, error)
	// Delete removes a record. Deleting an absent record returns
	// common.ErrNotFound.
	Delete(ctx context.Context, ownerID string, id string) error
}
