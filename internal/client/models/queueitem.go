// Package models defines client-side data models used by the PaperVault agent.
package models

import "time"

// SyncState tracks a queue item through the upload state machine.
type SyncState string

const (
	// SyncStatePending marks an item waiting for the next drain.
	SyncStatePending SyncState = "pending"
	// SyncStateUploading marks the single item currently being transferred.
	SyncStateUploading SyncState = "uploading"
	// SyncStateSynced marks a confirmed upload, retained for a bounded window.
	SyncStateSynced SyncState = "synced"
	// SyncStateFailed marks a failed attempt; eligible for the next drain.
	SyncStateFailed SyncState = "failed"
)

// QueueItem is a locally persisted, not-yet-confirmed upload.
// Items are created when a file is submitted and mutated only by the sync
// engine.
type QueueItem struct {
	// LocalID is a client-assigned identifier, never sent to the server.
	LocalID string

	// FileName is the original name of the captured file.
	FileName string

	// MimeType is the declared content type.
	MimeType string

	// ByteSize is the payload length in bytes.
	ByteSize int64

	// Payload holds the raw file bytes.
	Payload []byte

	// EnqueuedAt is the capture time in UTC.
	EnqueuedAt time.Time

	// CapturedOffline records whether the server was unreachable at capture
	// time. Forwarded to the server so the document can be flagged.
	CapturedOffline bool

	// SyncState is the current state machine position.
	SyncState SyncState

	// LastError holds the message of the most recent failed attempt.
	LastError string
}
