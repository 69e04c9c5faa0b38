package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/ports"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/pkg/metrics"
)

// keyPrefix namespaces interceptor-owned cache entries away from app-level
// entries sharing the same store.
const keyPrefix = "sw:"

// Resource classes, decided by URL path alone.
const (
	classStream  = "stream"
	classSummary = "summary"
	classShell   = "shell"
)

// Interceptor is an http.RoundTripper giving any client the offline behavior
// of a service worker: data resources are network-first with a cached
// fallback, shell assets are cache-first, and every entry lives in a cache
// generation that Activate garbage-collects when retired.
//
// Only same-origin GET requests are intercepted; everything else passes
// through to the base transport untouched.
type Interceptor struct {
	base       http.RoundTripper
	cache      ports.BlobCache
	origin     string // scheme://host[:port] this interceptor owns
	generation string
	shell      []string // shell asset paths prefetched by Install
}

// NewInterceptor creates an Interceptor in front of base. base may be nil,
// in which case http.DefaultTransport is used.
func NewInterceptor(base http.RoundTripper, cache ports.BlobCache, origin, generation string, shellAssets []string) *Interceptor {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Interceptor{
		base:       base,
		cache:      cache,
		origin:     strings.TrimSuffix(origin, "/"),
		generation: generation,
		shell:      shellAssets,
	}
}

// Install fetches every shell asset into the current generation, the way a
// service worker pre-caches on install. Call once before serving traffic.
func (i *Interceptor) Install(ctx context.Context) error {
	for _, asset := range i.shell {
		url := i.origin + asset
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("install %s: %w", asset, err)
		}
		res, err := i.base.RoundTrip(req)
		if err != nil {
			return fmt.Errorf("install %s: %w", asset, err)
		}
		body, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			return fmt.Errorf("install %s: %w", asset, err)
		}
		if res.StatusCode < 200 || res.StatusCode > 299 {
			return fmt.Errorf("install %s: unexpected status %d", asset, res.StatusCode)
		}
		if err := i.cache.Set(ctx, i.key(url), body); err != nil {
			return fmt.Errorf("install %s: %w", asset, err)
		}
	}
	return nil
}

// Activate deletes interceptor entries belonging to every other generation,
// the way a service worker drops stale caches when it takes over. App-level
// entries outside the interceptor namespace are never touched.
func (i *Interceptor) Activate(ctx context.Context) error {
	keys, err := i.cache.Keys(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("activate: list keys: %w", err)
	}
	current := keyPrefix + i.generation + ":"
	for _, k := range keys {
		if strings.HasPrefix(k, current) {
			continue
		}
		if err := i.cache.Delete(ctx, k); err != nil {
			return fmt.Errorf("activate: delete %s: %w", k, err)
		}
	}
	return nil
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || !i.owns(req) {
		return i.base.RoundTrip(req)
	}

	url := req.URL.String()
	class := classify(req.URL.Path)
	if class == classShell {
		return i.cacheFirst(req, url)
	}
	return i.networkFirst(req, url, class)
}

func (i *Interceptor) owns(req *http.Request) bool {
	return req.URL.Scheme+"://"+req.URL.Host == i.origin
}

// classify maps a path to its caching class the way the origin lays out its
// routes: the point stream ends in .bin, the summary sidecar in
// summary.json, and everything else the origin serves is app shell.
func classify(path string) string {
	switch {
	case strings.HasSuffix(path, ".bin"):
		return classStream
	case strings.HasSuffix(path, "summary.json"):
		return classSummary
	default:
		return classShell
	}
}

// networkFirst fetches from the origin and stores successful bodies in the
// current generation before handing them back. Transport failures fall back
// to the cached copy; non-2xx responses pass through unstored.
func (i *Interceptor) networkFirst(req *http.Request, url, class string) (*http.Response, error) {
	res, err := i.base.RoundTrip(req)
	if err != nil {
		return i.fallback(req, url, class, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		metrics.InterceptorResponses.WithLabelValues(class, "network").Inc()
		return res, nil
	}

	body, rerr := io.ReadAll(res.Body)
	res.Body.Close()
	if rerr != nil {
		return i.fallback(req, url, class, rerr)
	}

	if cerr := i.cache.Set(req.Context(), i.key(url), body); cerr != nil {
		slog.Debug("interceptor cache write failed", "url", url, "error", cerr)
	}
	metrics.InterceptorResponses.WithLabelValues(class, "network").Inc()

	res.Body = io.NopCloser(bytes.NewReader(body))
	res.ContentLength = int64(len(body))
	return res, nil
}

// cacheFirst serves shell assets from the current generation. Misses go to
// the network without automatic persistence; Install owns what lands in the
// shell cache.
func (i *Interceptor) cacheFirst(req *http.Request, url string) (*http.Response, error) {
	if cached, err := i.cache.Get(req.Context(), i.key(url)); err == nil {
		metrics.InterceptorResponses.WithLabelValues(classShell, "cache").Inc()
		return cachedResponse(req, cached), nil
	}
	metrics.InterceptorResponses.WithLabelValues(classShell, "network").Inc()
	return i.base.RoundTrip(req)
}

// fallback serves the cached copy after a network failure. With nothing
// cached the original failure propagates, never the cache miss.
func (i *Interceptor) fallback(req *http.Request, url, class string, cause error) (*http.Response, error) {
	cached, cerr := i.cache.Get(req.Context(), i.key(url))
	if cerr != nil {
		return nil, cause
	}
	slog.Debug("serving cached copy after network failure", "url", url, "error", cause)
	metrics.InterceptorResponses.WithLabelValues(class, "fallback").Inc()
	return cachedResponse(req, cached), nil
}

// key builds the generation-scoped cache key for url.
func (i *Interceptor) key(url string) string {
	return keyPrefix + i.generation + ":" + url
}

// cachedResponse synthesizes a 200 around bytes served from the cache.
func cachedResponse(req *http.Request, body []byte) *http.Response {
	h := make(http.Header)
	h.Set("X-Cache", "HIT")
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
