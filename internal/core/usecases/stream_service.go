package usecases

import (
	"context"
	"io"
	"time"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/ports"
)

// chunkSize is the read granularity for progress reporting.
const chunkSize = 64 * 1024

// refreshTimeout bounds the detached refresh started after a cache hit.
const refreshTimeout = 2 * time.Minute

// StreamService loads the binary point stream. A cached copy is served
// immediately when present, with a detached refresh keeping it current for
// the next load; otherwise the stream is fetched chunk by chunk with
// progress reporting and cached best-effort.
type StreamService struct {
	fetcher ports.Fetcher
	cache   ports.BlobCache
}

// NewStreamService creates a new StreamService. cache may be nil.
func NewStreamService(fetcher ports.Fetcher, cache ports.BlobCache) *StreamService {
	return &StreamService{fetcher: fetcher, cache: cache}
}

// Load returns the complete byte buffer for url. onProgress, when non-nil,
// receives whole percentages in [0,100]: non-decreasing, only on change,
// ending with exactly 100. The only errors returned are retrieval errors;
// cache faults never surface.
func (s *StreamService) Load(ctx context.Context, url string, onProgress ports.ProgressFunc) ([]byte, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, url); err == nil {
			if onProgress != nil {
				onProgress(100)
			}
			s.refreshLater(url)
			return data, nil
		}
	}

	data, err := s.download(ctx, url, onProgress)
	if err != nil {
		return nil, err
	}

	// a failed write must never fail the load
	if s.cache != nil {
		_ = s.cache.Set(ctx, url, data)
	}
	return data, nil
}

// download fetches url in chunkSize reads. With a known length, progress is
// floor(received*100/total) per chunk; without one it is 0 until the final
// 100.
func (s *StreamService) download(ctx context.Context, url string, onProgress ports.ProgressFunc) ([]byte, error) {
	res, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	last := -1
	report := func(pct int) {
		if pct > 100 {
			pct = 100
		}
		if onProgress != nil && pct != last {
			last = pct
			onProgress(pct)
		}
	}

	var data []byte
	if res.ContentLength >= 0 {
		data = make([]byte, 0, res.ContentLength)
	} else {
		report(0)
	}

	buf := make([]byte, chunkSize)
	for {
		n, rerr := res.Body.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			if res.ContentLength > 0 {
				report(int(int64(len(data)) * 100 / res.ContentLength))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, &domain.RetrievalError{URL: url, Err: rerr}
		}
	}

	report(100)
	return data, nil
}

// refreshLater re-fetches url on its own goroutine so the next load sees
// fresh bytes. It is never awaited; any failure leaves the cached copy in
// place.
func (s *StreamService) refreshLater(url string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		res, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			return
		}
		defer res.Body.Close()

		data, err := io.ReadAll(res.Body)
		if err != nil {
			return
		}
		_ = s.cache.Set(ctx, url, data)
	}()
}
