// Package documents implements the server-side ingestion pipeline: validate,
// store, extract, classify, persist.
package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/papervault/internal/common"
	"github.com/dmitrijs2005/papervault/internal/logging"
	"github.com/dmitrijs2005/papervault/internal/server/access"
	"github.com/dmitrijs2005/papervault/internal/server/classify"
	"github.com/dmitrijs2005/papervault/internal/server/config"
	"github.com/dmitrijs2005/papervault/internal/server/extract"
	"github.com/dmitrijs2005/papervault/internal/server/models"
	repo "github.com/dmitrijs2005/papervault/internal/server/repositories/documents"
	"github.com/dmitrijs2005/papervault/internal/server/storage"
)

// PresignedUpload is a signed reference allowing one direct upload.
type PresignedUpload struct {
	UploadRef  string    `json:"uploadRef"`
	StorageKey string    `json:"storageKey"`
	Expires    time.Time `json:"expires"`
}

// CompleteUploadRequest finalizes a direct upload performed against a
// previously issued reference.
type CompleteUploadRequest struct {
	StorageKey   string          `json:"storageKey"`
	OriginalName string          `json:"originalName"`
	ByteSize     int64           `json:"byteSize"`
	ContentType  string          `json:"contentType"`
	Category     models.Category `json:"category"`
	Offline      bool            `json:"offline"`
}

// StatusFilter selects a status projection.
type StatusFilter string

const (
	StatusFilterDue     StatusFilter = "due"
	StatusFilterPending StatusFilter = "pending"
	StatusFilterOffline StatusFilter = "offline"
)

// Service coordinates the ingestion pipeline and owner-scoped reads.
type Service struct {
	repo       repo.Repository
	store      storage.ObjectStore
	broker     *access.Broker
	extractor  extract.Extractor
	classifier classify.Classifier
	config     *config.Config
	logger     logging.Logger
}

func NewService(r repo.Repository, store storage.ObjectStore, broker *access.Broker,
	extractor extract.Extractor, classifier classify.Classifier,
	cfg *config.Config, logger logging.Logger) *Service {
	return &Service{
		repo:       r,
		store:      store,
		broker:     broker,
		extractor:  extractor,
		classifier: classifier,
		config:     cfg,
		logger:     logger,
	}
}

// Upload ingests a document whose bytes arrive with the request. The raw
// payload is made durable before any enrichment runs; extraction and
// classification failures degrade metadata but never lose the document.
func (s *Service) Upload(ctx context.Context, ownerID string, originalName string,
	mimeType string, isOffline bool, body io.Reader) (*models.Document, error) {

	if err := s.validateMimeType(mimeType); err != nil {
		return nil, err
	}

	tmpFile, size, err := s.spool(body)
	if err != nil {
		return nil, err
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	doc := &models.Document{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		StorageKey:   s.broker.MakeStorageKey(ownerID, models.CategoryOther, originalName),
		OriginalName: originalName,
		MimeType:     mimeType,
		ByteSize:     size,
		Category:     models.CategoryOther,
		Status:       models.StatusProcessing,
		IsOffline:    isOffline,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.Put(ctx, doc.StorageKey, tmpFile, size, mimeType); err != nil {
		return nil, err
	}

	// Durability point: the object exists, so the record must too. A failed
	// insert removes the object again to avoid an orphan.
	if err := s.repo.Create(ctx, doc); err != nil {
		if delErr := s.store.Delete(ctx, doc.StorageKey); delErr != nil {
			s.logger.Error(ctx, "failed to remove orphaned object", "key", doc.StorageKey, "error", delErr)
		}
		return nil, fmt.Errorf("error creating document record: %w", err)
	}

	content, err := s.rewindAndRead(tmpFile, size)
	if err != nil {
		s.logger.Warn(ctx, "cannot re-read payload for extraction", "id", doc.ID, "error", err)
		content = nil
	}

	s.enrich(ctx, doc, content)

	return s.withDownloadRef(ctx, doc), nil
}

// PresignUpload issues a signed reference for a direct upload, bypassing the
// API server for the payload bytes.
func (s *Service) PresignUpload(ctx context.Context, ownerID string, originalName string,
	contentType string, category models.Category) (*PresignedUpload, error) {

	if err := s.validateMimeType(contentType); err != nil {
		return nil, err
	}
	if !models.ValidCategory(category) {
		category = models.CategoryOther
	}

	key := s.broker.MakeStorageKey(ownerID, category, originalName)

	url, expires, err := s.broker.IssueUploadReference(ctx, key, contentType)
	if err != nil {
		return nil, err
	}

	return &PresignedUpload{UploadRef: url, StorageKey: key, Expires: expires}, nil
}

// CompleteUpload registers a document whose bytes were uploaded directly via
// a signed reference. The key must belong to the calling owner and the object
// must actually exist in storage.
func (s *Service) CompleteUpload(ctx context.Context, ownerID string, req *CompleteUploadRequest) (*models.Document, error) {
	if !s.broker.VerifyOwnership(ownerID, req.StorageKey) {
		return nil, fmt.Errorf("%w: storage key outside owner namespace", common.ErrAuth)
	}
	if err := s.validateMimeType(req.ContentType); err != nil {
		return nil, err
	}

	storedSize, err := s.store.Stat(ctx, req.StorageKey)
	if err != nil {
		return nil, err
	}
	if storedSize > s.config.MaxFileSize {
		if delErr := s.store.Delete(ctx, req.StorageKey); delErr != nil {
			s.logger.Error(ctx, "failed to remove oversize object", "key", req.StorageKey, "error", delErr)
		}
		return nil, fmt.Errorf("%w: file exceeds %d bytes", common.ErrValidation, s.config.MaxFileSize)
	}

	category := req.Category
	if !models.ValidCategory(category) {
		category = models.CategoryOther
	}

	doc := &models.Document{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		StorageKey:   req.StorageKey,
		OriginalName: req.OriginalName,
		MimeType:     req.ContentType,
		ByteSize:     storedSize,
		Category:     category,
		Status:       models.StatusProcessing,
		IsOffline:    req.Offline,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("error creating document record: %w", err)
	}

	// Payload bytes never passed through this server, so enrichment works
	// from the name alone.
	s.enrich(ctx, doc, nil)

	return s.withDownloadRef(ctx, doc), nil
}

// Get returns a single owner-scoped document with a fresh download reference.
func (s *Service) Get(ctx context.Context, ownerID string, id string) (*models.Document, error) {
	doc, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	return s.withDownloadRef(ctx, doc), nil
}

// List returns the owner's documents, optionally filtered by category.
func (s *Service) List(ctx context.Context, ownerID string, category models.Category) ([]*models.Document, error) {
	if category != "" && !models.ValidCategory(category) {
		return nil, fmt.Errorf("%w: unknown category %q", common.ErrValidation, category)
	}

	docs, err := s.repo.ListByOwner(ctx, ownerID, category)
	if err != nil {
		return nil, err
	}

	return s.withDownloadRefs(ctx, docs), nil
}

// Search matches the query against names, extracted text and vendor names.
func (s *Service) Search(ctx context.Context, ownerID string, query string) ([]*models.Document, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", common.ErrValidation)
	}

	docs, err := s.repo.Search(ctx, ownerID, query)
	if err != nil {
		return nil, err
	}

	return s.withDownloadRefs(ctx, docs), nil
}

// Status returns one of the status projections: due invoices, documents still
// processing, or documents marked for offline use.
func (s *Service) Status(ctx context.Context, ownerID string, filter StatusFilter) ([]*models.Document, error) {
	var docs []*models.Document
	var err error

	switch filter {
	case StatusFilterDue:
		docs, err = s.repo.ListDue(ctx, ownerID)
	case StatusFilterPending:
		docs, err = s.repo.ListPending(ctx, ownerID)
	case StatusFilterOffline:
		docs, err = s.repo.ListOffline(ctx, ownerID)
	default:
		return nil, fmt.Errorf("%w: unknown status filter %q", common.ErrValidation, filter)
	}
	if err != nil {
		return nil, err
	}

	return s.withDownloadRefs(ctx, docs), nil
}

// Delete removes the document record and its stored payload. Deleting an
// absent document returns common.ErrNotFound.
func (s *Service) Delete(ctx context.Context, ownerID string, id string) error {
	doc, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, doc.StorageKey); err != nil {
		s.logger.Warn(ctx, "failed to remove stored object", "key", doc.StorageKey, "error", err)
	}

	return s.repo.Delete(ctx, ownerID, id)
}

// enrich runs extraction and classification and persists the results. Both
// stages fail open; persistence is retried and, if it keeps failing, the
// document stays PROCESSING and remains visible in the pending projection.
func (s *Service) enrich(ctx context.Context, doc *models.Document, content []byte) {
	var text string
	if len(content) > 0 {
		extracted, err := s.extractor.ExtractText(ctx, content, doc.MimeType)
		if err != nil {
			s.logger.Warn(ctx, "text extraction failed", "id", doc.ID, "error", err)
		} else {
			text = extracted
		}
	}

	result, err := s.classifier.Classify(ctx, doc.OriginalName, text)
	if err != nil || result == nil {
		result = classify.Fallback()
	}
	if doc.Category != models.CategoryOther && result.Category == models.CategoryOther {
		// An explicit category hint from the uploader outranks an
		// inconclusive classifier.
		result.Category = doc.Category
	}
	if result.Metadata == nil {
		result.Metadata = map[string]string{}
	}
	result.Metadata["confidenceScore"] = strconv.FormatFloat(result.Confidence, 'f', -1, 64)

	completion := &repo.Completion{
		ExtractedText: text,
		Category:      result.Category,
		Metadata:      result.Metadata,
		VendorName:    result.VendorName,
		Amount:        result.Amount,
		DueDate:       result.DueDate,
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(100*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.repo.Complete(ctx, doc.ID, completion); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "failed to persist enrichment, document stays processing",
			"id", doc.ID, "error", err)
		return
	}

	doc.Status = models.StatusCompleted
	doc.ExtractedText = text
	doc.Category = result.Category
	doc.Metadata = result.Metadata
	doc.VendorName = result.VendorName
	doc.Amount = result.Amount
	doc.DueDate = result.DueDate
}

// spool copies the payload to a temporary file, enforcing the size ceiling
// without buffering unbounded client input in memory.
func (s *Service) spool(body io.Reader) (*os.File, int64, error) {
	tmpFile, err := os.CreateTemp("", "papervault-upload-*")
	if err != nil {
		return nil, 0, err
	}

	size, err := io.Copy(tmpFile, io.LimitReader(body, s.config.MaxFileSize+1))
	if err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, 0, err
	}
	if size > s.config.MaxFileSize {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, 0, fmt.Errorf("%w: file exceeds %d bytes", common.ErrValidation, s.config.MaxFileSize)
	}

	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, 0, err
	}

	return tmpFile, size, nil
}

func (s *Service) rewindAndRead(f *os.File, size int64) ([]byte, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	buf.Grow(int(size))
	if _, err := io.Copy(buf, f); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (s *Service) validateMimeType(mimeType string) error {
	for _, allowed := range s.config.AllowedMimeTypes {
		if mimeType == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported file type %q", common.ErrValidation, mimeType)
}

func (s *Service) withDownloadRef(ctx context.Context, doc *models.Document) *models.Document {
	ref, err := s.broker.IssueDownloadReference(ctx, doc.StorageKey)
	if err != nil {
		s.logger.Warn(ctx, "failed to issue download reference", "key", doc.StorageKey, "error", err)
		return doc
	}
	doc.DownloadRef = ref
	return doc
}

func (s *Service) withDownloadRefs(ctx context.Context, docs []*models.Document) []*models.Document {
	for _, doc := range docs {
		s.withDownloadRef(ctx, doc)
	}
	return docs
}
