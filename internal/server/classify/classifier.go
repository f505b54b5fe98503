// Package classify assigns a category and business metadata to extracted
// document text.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/papervault/internal/server/models"
)

// Result is the classifier's verdict for one document.
type Result struct {
	Category   models.Category   `json:"category"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata"`
	VendorName string            `json:"vendorName"`
	Amount     string            `json:"amount"`
	DueDate    *time.Time        `json:"dueDate"`
}

// Fallback is the result used when classification is unavailable or returns
// something unusable. The document still completes, just uncategorized.
func Fallback() *Result {
	return &Result{
		Category:   models.CategoryOther,
		Confidence: 0,
		Metadata:   map[string]string{},
	}
}

// Classifier categorizes a document from its name and extracted text.
type Classifier interface {
	Classify(ctx context.Context, originalName string, text string) (*Result, error)
}

// HTTPClassifier delegates to an external classification service. It never
// fails a document: any transport error, timeout, non-200 status or invalid
// category collapses to the fallback result.
type HTTPClassifier struct {
	endpoint string
	httpc    *http.Client
}

func NewHTTPClassifier(endpoint string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, originalName string, text string) (*Result, error) {
	result, err := c.request(ctx, originalName, text)
	if err != nil {
		return Fallback(), nil
	}

	if !models.ValidCategory(result.Category) {
		return Fallback(), nil
	}
	if result.Metadata == nil {
		result.Metadata = map[string]string{}
	}

	return result, nil
}

func (c *HTTPClassifier) request(ctx context.Context, originalName string, text string) (*Result, error) {
	body, err := json.Marshal(map[string]string{
		"originalName": originalName,
		"text":         text,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	result := &Result{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, err
	}

	return result, nil
}

// NoopClassifier is used when no classification service is configured.
type NoopClassifier struct{}

func (NoopClassifier) Classify(ctx context.Context, originalName string, text string) (*Result, error) {
	return Fallback(), nil
}
