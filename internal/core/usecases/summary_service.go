package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/ports"
)

// SummaryService loads the ride summary sidecar. Network first so the
// headline figure is current, cached copy as fallback when the network is
// down, error only when both fail.
type SummaryService struct {
	fetcher ports.Fetcher
	cache   ports.BlobCache
}

// NewSummaryService creates a new SummaryService. cache may be nil.
func NewSummaryService(fetcher ports.Fetcher, cache ports.BlobCache) *SummaryService {
	return &SummaryService{fetcher: fetcher, cache: cache}
}

// Load returns the summary for url. Absent JSON fields decode to zero
// values. A fetched body that does not parse counts as a failed fetch and
// falls back to the cache like any other.
func (s *SummaryService) Load(ctx context.Context, url string) (*domain.Summary, error) {
	sum, err := s.fromNetwork(ctx, url)
	if err == nil {
		return sum, nil
	}

	if s.cache != nil {
		if raw, cerr := s.cache.Get(ctx, url); cerr == nil {
			var cached domain.Summary
			if jerr := json.Unmarshal(raw, &cached); jerr == nil {
				return &cached, nil
			}
		}
	}

	return nil, err
}

func (s *SummaryService) fromNetwork(ctx context.Context, url string) (*domain.Summary, error) {
	res, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &domain.RetrievalError{URL: url, Err: err}
	}

	var sum domain.Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return nil, fmt.Errorf("parse summary %s: %w", url, err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, url, raw)
	}
	return &sum, nil
}

// FormatTotalKm renders the headline distance for display, with a dashes
// placeholder when no summary could be loaded at all.
func FormatTotalKm(sum *domain.Summary) string {
	if sum == nil {
		return "--"
	}
	return strconv.FormatFloat(sum.TotalKm, 'f', 2, 64)
}
