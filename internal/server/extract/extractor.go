// Package extract pulls machine-readable text out of stored documents.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Extractor returns the text content of a document payload.
type Extractor interface {
	ExtractText(ctx context.Context, content []byte, mimeType string) (string, error)
}

// HTTPExtractor delegates extraction to an external OCR service. The service
// accepts the raw payload and responds with {"text": "..."}.
type HTTPExtractor struct {
	endpoint string
	httpc    *http.Client
}

func NewHTTPExtractor(endpoint string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
	}
}

func (e *HTTPExtractor) ExtractText(ctx context.Context, content []byte, mimeType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("extractor returned status %d", resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	return out.Text, nil
}

// NoopExtractor is used when no OCR service is configured. Documents then
// complete without extracted text.
type NoopExtractor struct{}

func (NoopExtractor) ExtractText(ctx context.Context, content []byte, mimeType string) (string, error) {
	return "", nil
}
