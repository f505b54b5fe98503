package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/papervault/internal/common"
	"github.com/dmitrijs2005/papervault/internal/logging"
	"github.com/dmitrijs2005/papervault/internal/server/access"
	"github.com/dmitrijs2005/papervault/internal/server/classify"
	"github.com/dmitrijs2005/papervault/internal/server/config"
	"github.com/dmitrijs2005/papervault/internal/server/models"
	repo "github.com/dmitrijs2005/papervault/internal/server/repositories/documents"
)

type memoryRepo struct {
	docs         map[string]*models.Document
	completeErrs int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{docs: map[string]*models.Document{}}
}

func (m *memoryRepo) Create(ctx context.Context, doc *models.Document) error {
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *memoryRepo) Complete(ctx context.Context, id string, c *repo.Completion) error {
	if m.completeErrs > 0 {
		m.completeErrs--
		return errors.New("connection reset")
	}
	doc, ok := m.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	doc.Status = models.StatusCompleted
	doc.ExtractedText = c.ExtractedText
	doc.Category = c.Category
	doc.Metadata = c.Metadata
	doc.VendorName = c.VendorName
	doc.Amount = c.Amount
	doc.DueDate = c.DueDate
	return nil
}

func (m *memoryRepo) GetByID(ctx context.Context, ownerID string, id string) (*models.Document, error) {
	doc, ok := m.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *memoryRepo) ListByOwner(ctx context.Context, ownerID string, category models.Category) ([]*models.Document, error) {
	var out []*models.Document
	for _, doc := range m.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		if category != "" && doc.Category != category {
			continue
		}
		copied := *doc
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memoryRepo) Search(ctx context.Context, ownerID string, query string) ([]*models.Document, error) {
	var out []*models.Document
	q := strings.ToLower(query)
	for _, doc := range m.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		haystack := strings.ToLower(doc.OriginalName + " " + doc.ExtractedText + " " + doc.VendorName)
		if strings.Contains(haystack, q) {
			copied := *doc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListDue(ctx context.Context, ownerID string) ([]*models.Document, error) {
	var out []*models.Document
	for _, doc := range m.docs {
		if doc.OwnerID == ownerID && doc.Category == models.CategoryInvoice &&
			!doc.IsPaid && doc.DueDate != nil {
			copied := *doc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListPending(ctx context.Context, ownerID string) ([]*models.Document, error) {
	var out []*models.Document
	for _, doc := range m.docs {
		if doc.OwnerID == ownerID && doc.Status == models.StatusProcessing {
			copied := *doc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListOffline(ctx context.Context, ownerID string) ([]*models.Document, error) {
	var out []*models.Document
	for _, doc := range m.docs {
		if doc.OwnerID == ownerID && doc.IsOffline {
			copied := *doc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryRepo) Delete(ctx context.Context, ownerID string, id string) error {
	doc, ok := m.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return common.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

type memoryStore struct {
	objects map[string][]byte
	putErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) Stat(ctx context.Context, key string) (int64, error) {
	data, ok := m.objects[key]
	if !ok {
		return 0, common.ErrNotFound
	}
	return int64(len(data)), nil
}

func (m *memoryStore) PresignPut(ctx context.Context, key string, contentType string, expiry time.Duration) (string, error) {
	return "https://store.test/" + key + "?put", nil
}

func (m *memoryStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://store.test/" + key + "?get", nil
}

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) ExtractText(ctx context.Context, content []byte, mimeType string) (string, error) {
	return s.text, s.err
}

type stubClassifier struct {
	result *classify.Result
}

func (s *stubClassifier) Classify(ctx context.Context, originalName string, text string) (*classify.Result, error) {
	if s.result == nil {
		return classify.Fallback(), nil
	}
	return s.result, nil
}

type fixture struct {
	service *Service
	repo    *memoryRepo
	store   *memoryStore
	ext     *stubExtractor
	cls     *stubClassifier
	cfg     *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.MaxFileSize = 1024

	r := newMemoryRepo()
	store := newMemoryStore()
	broker := access.NewBroker(store, cfg.OwnerNamespace, cfg.SignedRefExpiry)
	ext := &stubExtractor{text: "Rechnung ACME"}
	cls := &stubClassifier{}

	service := NewService(r, store, broker, ext, cls, cfg, logging.NewJSONLogger())

	return &fixture{service: service, repo: r, store: store, ext: ext, cls: cls, cfg: cfg}
}

func TestUploadHappyPath(t *testing.T) {
	f := newFixture(t)
	f.cls.result = &classify.Result{
		Category:   models.CategoryInvoice,
		Confidence: 0.9,
		Metadata:   map[string]string{"currency": "EUR"},
		VendorName: "ACME",
		Amount:     "42.00",
	}

	doc, err := f.service.Upload(context.Background(), "user-1", "invoice.pdf",
		"application/pdf", false, strings.NewReader("pdf bytes"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Equal(t, models.CategoryInvoice, doc.Category)
	assert.Equal(t, "ACME", doc.VendorName)
	assert.Equal(t, "0.9", doc.Metadata["confidenceScore"])
	assert.Equal(t, "EUR", doc.Metadata["currency"])
	assert.Equal(t, "Rechnung ACME", doc.ExtractedText)
	assert.NotEmpty(t, doc.DownloadRef)
	assert.Contains(t, f.store.objects, doc.StorageKey)
	assert.True(t, strings.HasPrefix(doc.StorageKey, "users/dev/user-1/"))
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Upload(context.Background(), "user-1", "a.exe",
		"application/octet-stream", false, strings.NewReader("x"))

	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUploadSizeBoundary(t *testing.T) {
	f := newFixture(t)

	atLimit := bytes.Repeat([]byte("a"), int(f.cfg.MaxFileSize))
	doc, err := f.service.Upload(context.Background(), "user-1", "big.pdf",
		"application/pdf", false, bytes.NewReader(atLimit))
	require.NoError(t, err)
	assert.Equal(t, f.cfg.MaxFileSize, doc.ByteSize)

	overLimit := bytes.Repeat([]byte("a"), int(f.cfg.MaxFileSize)+1)
	_, err = f.service.Upload(context.Background(), "user-1", "huge.pdf",
		"application/pdf", false, bytes.NewReader(overLimit))
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Len(t, f.store.objects, 1)
}

func TestUploadCleansTempFiles(t *testing.T) {
	f := newFixture(t)

	countTemp := func() int {
		matches, err := filepath.Glob(filepath.Join(os.TempDir(), "papervault-upload-*"))
		require.NoError(t, err)
		return len(matches)
	}
	before := countTemp()

	_, err := f.service.Upload(context.Background(), "user-1", "a.pdf",
		"application/pdf", false, strings.NewReader("ok"))
	require.NoError(t, err)

	overLimit := bytes.Repeat([]byte("a"), int(f.cfg.MaxFileSize)+1)
	_, err = f.service.Upload(context.Background(), "user-1", "b.pdf",
		"application/pdf", false, bytes.NewReader(overLimit))
	require.Error(t, err)

	f.store.putErr = common.ErrStorage
	_, err = f.service.Upload(context.Background(), "user-1", "c.pdf",
		"application/pdf", false, strings.NewReader("ok"))
	require.Error(t, err)

	assert.Equal(t, before, countTemp())
}

func TestUploadStorageFailureCreatesNoRecord(t *testing.T) {
	f := newFixture(t)
	f.store.putErr = common.ErrStorage

	_, err := f.service.Upload(context.Background(), "user-1", "a.pdf",
		"application/pdf", false, strings.NewReader("x"))
	require.ErrorIs(t, err, common.ErrStorage)

	assert.Empty(t, f.repo.docs)
	assert.Empty(t, f.store.objects)
}

func TestUploadDegradedStillCompletes(t *testing.T) {
	f := newFixture(t)
	f.ext.text = ""
	f.ext.err = errors.New("ocr unreachable")
	f.cls.result = nil

	doc, err := f.service.Upload(context.Background(), "user-1", "scan.jpg",
		"image/jpeg", false, strings.NewReader("jpeg bytes"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Equal(t, models.CategoryOther, doc.Category)
	assert.Equal(t, "0", doc.Metadata["confidenceScore"])
	assert.Empty(t, doc.ExtractedText)
}

func TestUploadPersistRetrySucceeds(t *testing.T) {
	f := newFixture(t)
	f.repo.completeErrs = 1

	doc, err := f.service.Upload(context.Background(), "user-1", "a.pdf",
		"application/pdf", false, strings.NewReader("x"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, doc.Status)
}

func TestUploadPersistExhaustedStaysProcessing(t *testing.T) {
	f := newFixture(t)
	f.repo.completeErrs = 10

	doc, err := f.service.Upload(context.Background(), "user-1", "a.pdf",
		"application/pdf", false, strings.NewReader("x"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusProcessing, doc.Status)

	pending, err := f.service.Status(context.Background(), "user-1", StatusFilterPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestUploadOfflineFlagProjected(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Upload(context.Background(), "user-1", "a.pdf",
		"application/pdf", true, strings.NewReader("x"))
	require.NoError(t, err)
	_, err = f.service.Upload(context.Background(), "user-1", "b.pdf",
		"application/pdf", false, strings.NewReader("x"))
	require.NoError(t, err)

	offline, err := f.service.Status(context.Background(), "user-1", StatusFilterOffline)
	require.NoError(t, err)
	require.Len(t, offline, 1)
	assert.Equal(t, "a.pdf", offline[0].OriginalName)
}

func TestCompleteUploadForeignKeyRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CompleteUpload(context.Background(), "user-2", &CompleteUploadRequest{
		StorageKey:   "users/dev/user-1/OTHER/1-x.pdf",
		OriginalName: "x.pdf",
		ContentType:  "application/pdf",
	})

	assert.ErrorIs(t, err, common.ErrAuth)
	assert.Empty(t, f.repo.docs)
}

func TestCompleteUploadMissingObject(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CompleteUpload(context.Background(), "user-1", &CompleteUploadRequest{
		StorageKey:   "users/dev/user-1/OTHER/1-x.pdf",
		OriginalName: "x.pdf",
		ContentType:  "application/pdf",
	})

	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCompleteUploadHappyPath(t *testing.T) {
	f := newFixture(t)

	presigned, err := f.service.PresignUpload(context.Background(), "user-1",
		"invoice.pdf", "application/pdf", models.CategoryInvoice)
	require.NoError(t, err)
	require.NotEmpty(t, presigned.UploadRef)
	require.True(t, strings.HasPrefix(presigned.StorageKey, "users/dev/user-1/INVOICE/"))

	f.store.objects[presigned.StorageKey] = []byte("uploaded directly")

	doc, err := f.service.CompleteUpload(context.Background(), "user-1", &CompleteUploadRequest{
		StorageKey:   presigned.StorageKey,
		OriginalName: "invoice.pdf",
		ContentType:  "application/pdf",
		Category:     models.CategoryInvoice,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Equal(t, models.CategoryInvoice, doc.Category)
	assert.Equal(t, int64(len("uploaded directly")), doc.ByteSize)
}

func TestCompleteUploadOversizeObjectRemoved(t *testing.T) {
	f := newFixture(t)

	key := "users/dev/user-1/OTHER/1-x.pdf"
	f.store.objects[key] = bytes.Repeat([]byte("a"), int(f.cfg.MaxFileSize)+1)

	_, err := f.service.CompleteUpload(context.Background(), "user-1", &CompleteUploadRequest{
		StorageKey:   key,
		OriginalName: "x.pdf",
		ContentType:  "application/pdf",
	})

	assert.ErrorIs(t, err, common.ErrValidation)
	assert.NotContains(t, f.store.objects, key)
}

func TestDeleteRemovesObjectAndRecord(t *testing.T) {
	f := newFixture(t)

	doc, err := f.service.Upload(context.Background(), "user-1", "a.pdf",
		"application/pdf", false, strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(context.Background(), "user-1", doc.ID))
	assert.NotContains(t, f.store.objects, doc.StorageKey)

	err = f.service.Delete(context.Background(), "user-1", doc.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteForeignOwnerNotFound(t *testing.T) {
	f := newFixture(t)

	doc, err := f.service.Upload(context.Background(), "user-1", "a.pdf",
		"application/pdf", false, strings.NewReader("x"))
	require.NoError(t, err)

	err = f.service.Delete(context.Background(), "user-2", doc.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.service.Get(context.Background(), "user-1", doc.ID)
	assert.NoError(t, err)
}

func TestSearchFindsExtractedText(t *testing.T) {
	f := newFixture(t)
	f.ext.text = "Mahnung wegen offener Rechnung"

	_, err := f.service.Upload(context.Background(), "user-1", "brief.pdf",
		"application/pdf", false, strings.NewReader("x"))
	require.NoError(t, err)

	docs, err := f.service.Search(context.Background(), "user-1", "mahnung")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = f.service.Search(context.Background(), "user-2", "mahnung")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestListRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.List(context.Background(), "user-1", "RECEIPT")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestStatusRejectsUnknownFilter(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Status(context.Background(), "user-1", "stale")
	assert.ErrorIs(t, err, common.ErrValidation)
}
