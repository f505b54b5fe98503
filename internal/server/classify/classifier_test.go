package classify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/papervault/internal/server/models"
)

func TestClassifySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"category":"INVOICE","confidence":0.91,"vendorName":"ACME","amount":"42.00","metadata":{"iban":"DE1234"}}`))
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, time.Second)

	result, err := c.Classify(context.Background(), "invoice.pdf", "Rechnung ACME 42.00 EUR")
	require.NoError(t, err)

	assert.Equal(t, models.CategoryInvoice, result.Category)
	assert.InDelta(t, 0.91, result.Confidence, 0.001)
	assert.Equal(t, "ACME", result.VendorName)
	assert.Equal(t, "42.00", result.Amount)
	assert.Equal(t, "DE1234", result.Metadata["iban"])
}

func TestClassifyTimeoutFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, 20*time.Millisecond)

	result, err := c.Classify(context.Background(), "x.pdf", "text")
	require.NoError(t, err)

	assert.Equal(t, models.CategoryOther, result.Category)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.Metadata)
}

func TestClassifyGarbageFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, time.Second)

	result, err := c.Classify(context.Background(), "x.pdf", "text")
	require.NoError(t, err)

	assert.Equal(t, models.CategoryOther, result.Category)
}

func TestClassifyUnknownCategoryFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"category":"RECEIPT","confidence":0.99}`))
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, time.Second)

	result, err := c.Classify(context.Background(), "x.pdf", "text")
	require.NoError(t, err)

	assert.Equal(t, models.CategoryOther, result.Category)
	assert.NotNil(t, result.Metadata)
}

func TestClassifyServerErrorFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, time.Second)

	result, err := c.Classify(context.Background(), "x.pdf", "text")
	require.NoError(t, err)

	assert.Equal(t, models.CategoryOther, result.Category)
}
