package models

import "time"

// Document is the client-side view of a server-owned record, as returned by
// the upload and completion endpoints.
type Document struct {
	ID            string            `json:"id"`
	OwnerID       string            `json:"ownerId"`
	StorageKey    string            `json:"storageKey"`
	OriginalName  string            `json:"originalName"`
	MimeType      string            `json:"mimeType"`
	ByteSize      int64             `json:"byteSize"`
	Category      string            `json:"category"`
	Status        string            `json:"status"`
	ExtractedText string            `json:"extractedText,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	VendorName    string            `json:"vendorName,omitempty"`
	Amount        string            `json:"amount,omitempty"`
	DueDate       *time.Time        `json:"dueDate,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	DownloadRef   string            `json:"downloadRef,omitempty"`
}
