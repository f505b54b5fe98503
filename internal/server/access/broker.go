// Package access generates storage keys and brokers time-bounded signed
// references, keeping every key scoped to its owner.
package access

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/papervault/internal/server/models"
	"github.com/dmitrijs2005/papervault/internal/server/storage"
)

// Broker owns the storage key scheme. Keys embed the owner so that ownership
// can be verified from the key alone, without a database lookup.
type Broker struct {
	store     storage.ObjectStore
	namespace string
	expiry    time.Duration
}

func NewBroker(store storage.ObjectStore, namespace string, expiry time.Duration) *Broker {
	return &Broker{
		store:     store,
		namespace: strings.Trim(namespace, "/"),
		expiry:    expiry,
	}
}

// MakeStorageKey builds a fresh opaque key for an owner's document. The
// timestamp plus random suffix keeps keys unique even for identical uploads.
func (b *Broker) MakeStorageKey(ownerID string, category models.Category, originalName string) string {
	ext := strings.TrimPrefix(path.Ext(originalName), ".")
	if ext == "" {
		ext = "bin"
	}

	return fmt.Sprintf("%s/%s/%s/%d-%s.%s",
		b.namespace, ownerID, category, time.Now().UnixMilli(), uuid.New(), ext)
}

// VerifyOwnership reports whether the key lies inside the owner's prefix.
func (b *Broker) VerifyOwnership(ownerID string, key string) bool {
	return strings.HasPrefix(key, b.namespace+"/"+ownerID+"/")
}

// IssueUploadReference returns a signed URL allowing a single direct upload
// to the given key.
func (b *Broker) IssueUploadReference(ctx context.Context, key string, contentType string) (string, time.Time, error) {
	url, err := b.store.PresignPut(ctx, key, contentType, b.expiry)
	if err != nil {
		return "", time.Time{}, err
	}

	return url, time.Now().Add(b.expiry), nil
}

// IssueDownloadReference returns a signed URL allowing a direct download of
// the given key.
func (b *Broker) IssueDownloadReference(ctx context.Context, key string) (string, error) {
	return b.store.PresignGet(ctx, key, b.expiry)
}
