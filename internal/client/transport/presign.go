package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/papervault/internal/client/models"
	"github.com/dmitrijs2005/papervault/internal/common"
)

// PresignedUpload is the server's answer to a presigned-upload request.
type PresignedUpload struct {
	UploadRef  string    `json:"uploadRef"`
	StorageKey string    `json:"storageKey"`
	Expires    time.Time `json:"expires"`
}

// CompleteUploadRequest finishes a direct-to-storage upload.
type CompleteUploadRequest struct {
	StorageKey   string `json:"storageKey"`
	OriginalName string `json:"originalName"`
	ByteSize     int64  `json:"byteSize"`
	ContentType  string `json:"contentType"`
	Category     string `json:"category,omitempty"`
	Offline      bool   `json:"offline,omitempty"`
}

// PresignUpload asks the server for a time-bounded signed upload reference.
func (c *Client) PresignUpload(ctx context.Context, fileName, contentType, category string) (*PresignedUpload, error) {
	payload := map[string]string{
		"filename":    fileName,
		"contentType": contentType,
		"category":    category,
	}
	var out PresignedUpload
	if err := c.postJSON(ctx, "/api/documents/presigned-upload", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadToSignedRef PUTs the payload directly to object storage using a
// signed reference obtained from PresignUpload.
func (c *Client) UploadToSignedRef(ctx context.Context, url, contentType string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return common.ErrAborted
		}
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

// CompleteUpload registers a directly uploaded object as a document.
func (c *Client) CompleteUpload(ctx context.Context, req *CompleteUploadRequest) (*models.Document, error) {
	var env documentEnvelope
	if err := c.postJSON(ctx, "/api/documents/complete-upload", req, &env); err != nil {
		return nil, err
	}
	return &env.Document, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.AuthHeaderName, common.AuthScheme+" "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return common.ErrAborted
		}
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := mapStatus(resp.StatusCode); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
