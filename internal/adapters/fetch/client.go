package fetch

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/ports"
)

// Client implements ports.Fetcher over net/http. Requests carry
// cache-busting headers so intermediaries hand back current bytes; deciding
// what is fresh enough is the job of the cache layer below, not the
// transport.
type Client struct {
	http *http.Client
}

// NewClient creates a new Client. httpClient may be nil, in which case
// http.DefaultClient is used.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient}
}

// Fetch issues a GET for url and returns the still-open body. Transport
// failures and non-2xx statuses are reported as *domain.RetrievalError.
func (c *Client) Fetch(ctx context.Context, url string) (*ports.FetchResult, error) {
	ctx, span := otel.Tracer("heatmap/fetch").Start(ctx, "fetch.get")
	defer span.End()
	span.SetAttributes(attribute.String("http.url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.RetrievalError{URL: url, Err: err}
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	res, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, &domain.RetrievalError{URL: url, Err: err}
	}

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	if res.StatusCode < 200 || res.StatusCode > 299 {
		res.Body.Close()
		return nil, &domain.RetrievalError{URL: url, Status: res.StatusCode}
	}

	return &ports.FetchResult{Body: res.Body, ContentLength: res.ContentLength}, nil
}
