package access

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/papervault/internal/server/models"
)

type fakeStore struct {
	lastKey    string
	lastExpiry time.Duration
}

func (f *fakeStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	return nil
}
func (f *fakeStore) Delete(ctx context.Context, key string) error { return nil }
func (f *fakeStore) Stat(ctx context.Context, key string) (int64, error) {
	return 0, nil
}
func (f *fakeStore) PresignPut(ctx context.Context, key string, contentType string, expiry time.Duration) (string, error) {
	f.lastKey = key
	f.lastExpiry = expiry
	return "https://store.example/" + key + "?sig=put", nil
}
func (f *fakeStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	f.lastKey = key
	f.lastExpiry = expiry
	return "https://store.example/" + key + "?sig=get", nil
}

func TestMakeStorageKeyFormat(t *testing.T) {
	b := NewBroker(&fakeStore{}, "users/dev", 5*time.Minute)

	key := b.MakeStorageKey("user-1", models.CategoryInvoice, "scan.pdf")

	require.True(t, strings.HasPrefix(key, "users/dev/user-1/INVOICE/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
}

func TestMakeStorageKeyNoExtension(t *testing.T) {
	b := NewBroker(&fakeStore{}, "users/dev", 5*time.Minute)

	key := b.MakeStorageKey("user-1", models.CategoryOther, "receipt")

	assert.True(t, strings.HasSuffix(key, ".bin"))
}

func TestMakeStorageKeyUnique(t *testing.T) {
	b := NewBroker(&fakeStore{}, "users/dev", 5*time.Minute)

	k1 := b.MakeStorageKey("user-1", models.CategoryOther, "a.pdf")
	k2 := b.MakeStorageKey("user-1", models.CategoryOther, "a.pdf")

	assert.NotEqual(t, k1, k2)
}

func TestVerifyOwnership(t *testing.T) {
	b := NewBroker(&fakeStore{}, "users/dev", 5*time.Minute)

	ownKey := b.MakeStorageKey("user-1", models.CategoryTax, "t.pdf")

	assert.True(t, b.VerifyOwnership("user-1", ownKey))
	assert.False(t, b.VerifyOwnership("user-2", ownKey))
	assert.False(t, b.VerifyOwnership("user-1", "users/dev/user-11/TAX/x.pdf"))
	assert.False(t, b.VerifyOwnership("user-1", "other/user-1/TAX/x.pdf"))
}

func TestIssueUploadReference(t *testing.T) {
	store := &fakeStore{}
	b := NewBroker(store, "users/dev", 5*time.Minute)

	before := time.Now()
	url, expires, err := b.IssueUploadReference(context.Background(), "users/dev/user-1/OTHER/1-x.pdf", "application/pdf")
	require.NoError(t, err)

	assert.Contains(t, url, "sig=put")
	assert.Equal(t, 5*time.Minute, store.lastExpiry)
	assert.WithinDuration(t, before.Add(5*time.Minute), expires, time.Second)
}

func TestIssueDownloadReference(t *testing.T) {
	store := &fakeStore{}
	b := NewBroker(store, "users/dev", 5*time.Minute)

	url, err := b.IssueDownloadReference(context.Background(), "users/dev/user-1/OTHER/1-x.pdf")
	require.NoError(t, err)

	assert.Contains(t, url, "sig=get")
}
