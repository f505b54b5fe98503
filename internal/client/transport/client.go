// Package transport performs the actual transfer of queued files to the
// server, reporting progress and translating HTTP failures into the shared
// error taxonomy.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dmitrijs2005/papervault/internal/client/models"
	"github.com/dmitrijs2005/papervault/internal/common"
)

// Client talks to the PaperVault HTTP API with a bearer token.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type documentEnvelope struct {
	Document models.Document `json:"document"`
}

// Ping probes the health endpoint. Used by the connectivity monitor.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return common.ErrUnavailable
	}
	return nil
}

// Send uploads one queue item and blocks until the server responds.
// Progress reporting and cancellation go through StartUpload.
func (c *Client) Send(ctx context.Context, item *models.QueueItem) (*models.Document, error) {
	return c.StartUpload(ctx, item).Wait()
}

// StartUpload begins the transfer and returns an observable, cancellable
// handle. The returned task reports monotonically increasing progress in
// percent.
func (c *Client) StartUpload(ctx context.Context, item *models.QueueItem) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		progress: make(chan int, 8),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer close(t.progress)
		doc, err := c.upload(ctx, item, t.report)
		t.doc, t.err = doc, err
	}()

	return t
}

func (c *Client) upload(ctx context.Context, item *models.QueueItem, report func(int)) (*models.Document, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", item.FileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(item.Payload); err != nil {
		return nil, err
	}
	if item.CapturedOffline {
		if err := mw.WriteField("offline", "true"); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	pr := &progressReader{r: &body, total: int64(body.Len()), report: report}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/documents/upload", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(common.AuthHeaderName, common.AuthScheme+" "+c.token)
	req.ContentLength = pr.total

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return nil, common.ErrAborted
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := mapStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var env documentEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	return &env.Document, nil
}

func mapStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return common.ErrAuth
	case status >= 400 && status < 500:
		return common.ErrValidation
	default:
		return &common.ServerError{Status: status}
	}
}

// progressReader reports percentages as the request body drains.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		// monotonic: never report a lower value
		if pct > p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
