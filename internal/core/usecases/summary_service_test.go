package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/ports"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/usecases"
)

func TestSummaryService_NetworkFirst(t *testing.T) {
	raw := []byte(`{"total_km": 1234.56, "points": 98765}`)

	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, url string) (*ports.FetchResult, error) {
			return &ports.FetchResult{Body: body(raw), ContentLength: int64(len(raw))}, nil
		},
	}

	var storedKey string
	var stored []byte
	cache := &mockCache{
		setFn: func(ctx context.Context, key string, value []byte) error {
			storedKey, stored = key, value
			return nil
		},
	}

	svc := usecases.NewSummaryService(fetcher, cache)
	sum, err := svc.Load(context.Background(), "http://host/summary.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.TotalKm != 1234.56 {
		t.Errorf("expected 1234.56 km, got %f", sum.TotalKm)
	}
	if sum.Points != 98765 {
		t.Errorf("expected 98765 points, got %d", sum.Points)
	}
	if storedKey != "http://host/summary.json" || string(stored) != string(raw) {
		t.Errorf("summary was not persisted for offline use: key=%q", storedKey)
	}
}

func TestSummaryService_MissingFieldsDefaultToZero(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, url string) (*ports.FetchResult, error) {
			return &ports.FetchResult{Body: body([]byte(`{}`)), ContentLength: 2}, nil
		},
	}

	svc := usecases.NewSummaryService(fetcher, &mockCache{})
	sum, err := svc.Load(context.Background(), "http://host/summary.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.TotalKm != 0 || sum.Points != 0 {
		t.Errorf("expected zero values, got %+v", sum)
	}
}

func TestSummaryService_NetworkFailureFallsBackToCache(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, url string) (*ports.FetchResult, error) {
			return nil, &domain.RetrievalError{URL: url, Err: errors.New("offline")}
		},
	}
	cache := &mockCache{
		getFn: func(ctx context.Context, key string) ([]byte, error) {
			return []byte(`{"total_km": 42.5, "points": 7}`), nil
		},
	}

	svc := usecases.NewSummaryService(fetcher, cache)
	sum, err := svc.Load(context.Background(), "http://host/summary.json")
	if err != nil {
		t.Fatalf("expected cached summary, got error: %v", err)
	}
	if sum.TotalKm != 42.5 {
		t.Errorf("expected 42.5 km from cache, got %f", sum.TotalKm)
	}
}

func TestSummaryService_MalformedBodyFallsBackToCache(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, url string) (*ports.FetchResult, error) {
			return &ports.FetchResult{Body: body([]byte("<html>gateway error</html>")), ContentLength: -1}, nil
		},
	}
	cache := &mockCache{
		getFn: func(ctx context.Context, key string) ([]byte, error) {
			return []byte(`{"total_km": 10.0}`), nil
		},
	}

	svc := usecases.NewSummaryService(fetcher, cache)
	sum, err := svc.Load(context.Background(), "http://host/summary.json")
	if err != nil {
		t.Fatalf("expected cached summary, got error: %v", err)
	}
	if sum.TotalKm != 10.0 {
		t.Errorf("expected 10.0 km from cache, got %f", sum.TotalKm)
	}
}

func TestSummaryService_TotalFailureReturnsError(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, url string) (*ports.FetchResult, error) {
			return nil, &domain.RetrievalError{URL: url, Status: 503}
		},
	}

	svc := usecases.NewSummaryService(fetcher, &mockCache{})
	sum, err := svc.Load(context.Background(), "http://host/summary.json")
	if err == nil {
		t.Fatal("expected an error when network and cache both fail")
	}
	if sum != nil {
		t.Errorf("expected nil summary, got %+v", sum)
	}

	var rerr *domain.RetrievalError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RetrievalError, got %v", err)
	}
}

func TestFormatTotalKm(t *testing.T) {
	if got := usecases.FormatTotalKm(nil); got != "--" {
		t.Errorf("expected placeholder for nil summary, got %q", got)
	}
	if got := usecases.FormatTotalKm(&domain.Summary{TotalKm: 1234.5}); got != "1234.50" {
		t.Errorf("expected 1234.50, got %q", got)
	}
	if got := usecases.FormatTotalKm(&domain.Summary{}); got != "0.00" {
		t.Errorf("expected 0.00, got %q", got)
	}
}
