// Package models defines server-side data models for ingested documents.
package models

import "time"

// Category classifies an ingested document.
type Category string

const (
	CategoryInvoice   Category = "INVOICE"
	CategoryTax       Category = "TAX"
	CategoryComplaint Category = "COMPLAINT"
	CategoryOther     Category = "OTHER"
)

// Categories lists every valid category value.
var Categories = []Category{CategoryInvoice, CategoryTax, CategoryComplaint, CategoryOther}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Status tracks a document through the ingestion pipeline.
type Status string

const (
	// StatusProcessing: raw bytes are durably stored, metadata pending.
	StatusProcessing Status = "PROCESSING"
	// StatusCompleted: extraction and classification have been persisted.
	StatusCompleted Status = "COMPLETED"
	// StatusError: reserved for records whose stored payload is gone.
	// The pipeline never sets it; extraction/classification failures degrade
	// metadata instead.
	StatusError Status = "ERROR"
)

// Document is the durable, server-owned record of an ingested file.
// Identity (ID, StorageKey) is assigned server-side and never reused.
// Documents are immutable after ingestion except for classification metadata.
type Document struct {
	ID            string            `json:"id"`
	OwnerID       string            `json:"ownerId"`
	StorageKey    string            `json:"storageKey"`
	OriginalName  string            `json:"originalName"`
	MimeType      string            `json:"mimeType"`
	ByteSize      int64             `json:"byteSize"`
	Category      Category          `json:"category"`
	Status        Status            `json:"status"`
	ExtractedText string            `json:"extractedText,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	VendorName    string            `json:"vendorName,omitempty"`
	Amount        string            `json:"amount,omitempty"`
	DueDate       *time.Time        `json:"dueDate,omitempty"`
	IsOffline     bool              `json:"isOffline"`
	IsPaid        bool              `json:"isPaid"`
	CreatedAt     time.Time         `json:"createdAt"`

	// DownloadRef is a time-bounded signed reference, attached by the
	// service layer and never persisted.
	DownloadRef string `json:"downloadRef,omitempty"`
}
