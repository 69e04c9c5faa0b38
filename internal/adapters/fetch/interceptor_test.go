package fetch_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/adapters/fetch"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
)

// --- Test doubles ---

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// memCache is an in-memory ports.BlobCache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (m *memCache) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func okResponse(body string) *http.Response {
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Header:        make(http.Header),
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

func statusResponse(code int) *http.Response {
	return &http.Response{
		StatusCode: code,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

func getReq(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return req
}

const origin = "http://maps.local"

// --- Tests ---

func TestInterceptor_DataResourcesStoredOnSuccess(t *testing.T) {
	cache := newMemCache()
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/points.bin":
			return okResponse("binary-points"), nil
		case "/summary.json":
			return okResponse(`{"total_km": 1}`), nil
		}
		return statusResponse(404), nil
	})

	ic := fetch.NewInterceptor(base, cache, origin, "v1", nil)

	res, err := ic.RoundTrip(getReq(t, origin+"/points.bin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if string(body) != "binary-points" {
		t.Fatalf("expected the network body, got %q", body)
	}

	if _, err := ic.RoundTrip(getReq(t, origin+"/summary.json")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, err := cache.Get(context.Background(), "sw:v1:"+origin+"/points.bin"); err != nil || string(got) != "binary-points" {
		t.Errorf("stream not stored under its generation key: %v %q", err, got)
	}
	if _, err := cache.Get(context.Background(), "sw:v1:"+origin+"/summary.json"); err != nil {
		t.Errorf("summary not stored under its generation key: %v", err)
	}
}

func TestInterceptor_FallsBackToCacheWhenOffline(t *testing.T) {
	cache := newMemCache()
	_ = cache.Set(context.Background(), "sw:v1:"+origin+"/points.bin", []byte("stale-points"))

	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	ic := fetch.NewInterceptor(base, cache, origin, "v1", nil)
	res, err := ic.RoundTrip(getReq(t, origin+"/points.bin"))
	if err != nil {
		t.Fatalf("expected cached fallback, got error: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != 200 {
		t.Errorf("expected synthesized 200, got %d", res.StatusCode)
	}
	if res.Header.Get("X-Cache") != "HIT" {
		t.Error("fallback response not marked as cache hit")
	}
	body, _ := io.ReadAll(res.Body)
	if string(body) != "stale-points" {
		t.Errorf("expected cached body, got %q", body)
	}
}

func TestInterceptor_OfflineWithEmptyCachePropagatesFailure(t *testing.T) {
	netErr := errors.New("dial tcp: no route to host")
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, netErr
	})

	ic := fetch.NewInterceptor(base, newMemCache(), origin, "v1", nil)
	_, err := ic.RoundTrip(getReq(t, origin+"/points.bin"))
	if !errors.Is(err, netErr) {
		t.Fatalf("expected the network failure, got %v", err)
	}
}

func TestInterceptor_ErrorStatusPassesThroughUnstored(t *testing.T) {
	cache := newMemCache()
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return statusResponse(404), nil
	})

	ic := fetch.NewInterceptor(base, cache, origin, "v1", nil)
	res, err := ic.RoundTrip(getReq(t, origin+"/points.bin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Body.Close()

	if res.StatusCode != 404 {
		t.Errorf("expected 404 passed through, got %d", res.StatusCode)
	}
	if cache.len() != 0 {
		t.Error("error response must not be cached")
	}
}

func TestInterceptor_ShellServedFromCacheFirst(t *testing.T) {
	cache := newMemCache()
	_ = cache.Set(context.Background(), "sw:v1:"+origin+"/app.js", []byte("cached-js"))

	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		t.Error("shell hit must not reach the network")
		return nil, errors.New("unreachable")
	})

	ic := fetch.NewInterceptor(base, cache, origin, "v1", nil)
	res, err := ic.RoundTrip(getReq(t, origin+"/app.js"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if string(body) != "cached-js" {
		t.Errorf("expected cached shell asset, got %q", body)
	}
}

func TestInterceptor_ShellMissNotPersisted(t *testing.T) {
	cache := newMemCache()
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return okResponse("network-js"), nil
	})

	ic := fetch.NewInterceptor(base, cache, origin, "v1", nil)
	res, err := ic.RoundTrip(getReq(t, origin+"/app.js"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Body.Close()

	if cache.len() != 0 {
		t.Error("shell misses are Install's job to persist, not RoundTrip's")
	}
}

func TestInterceptor_NonGetPassesThrough(t *testing.T) {
	cache := newMemCache()
	baseCalled := false
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		baseCalled = true
		return okResponse("ok"), nil
	})

	ic := fetch.NewInterceptor(base, cache, origin, "v1", nil)
	req, err := http.NewRequest(http.MethodPost, origin+"/points.bin", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	res, err := ic.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Body.Close()

	if !baseCalled {
		t.Error("POST must go straight to the base transport")
	}
	if cache.len() != 0 {
		t.Error("POST responses must never be cached")
	}
}

func TestInterceptor_ForeignOriginPassesThrough(t *testing.T) {
	cache := newMemCache()
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return okResponse("tile"), nil
	})

	ic := fetch.NewInterceptor(base, cache, origin, "v1", nil)
	res, err := ic.RoundTrip(getReq(t, "http://tiles.example.com/layer.bin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Body.Close()

	if cache.len() != 0 {
		t.Error("foreign origins are out of scope for the interceptor cache")
	}
}

func TestInterceptor_InstallPrefetchesShellAssets(t *testing.T) {
	cache := newMemCache()
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/":
			return okResponse("<html>"), nil
		case "/app.js":
			return okResponse("js"), nil
		case "/style.css":
			return okResponse("css"), nil
		}
		return statusResponse(404), nil
	})

	ic := fetch.NewInterceptor(base, cache, origin, "v2", []string{"/", "/app.js", "/style.css"})
	if err := ic.Install(context.Background()); err != nil {
		t.Fatalf("install: %v", err)
	}

	for _, asset := range []string{"/", "/app.js", "/style.css"} {
		if _, err := cache.Get(context.Background(), "sw:v2:"+origin+asset); err != nil {
			t.Errorf("asset %s not pre-cached: %v", asset, err)
		}
	}
}

func TestInterceptor_InstallFailsOnMissingAsset(t *testing.T) {
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return statusResponse(404), nil
	})

	ic := fetch.NewInterceptor(base, newMemCache(), origin, "v2", []string{"/missing.js"})
	if err := ic.Install(context.Background()); err == nil {
		t.Fatal("expected install to fail on a missing shell asset")
	}
}

func TestInterceptor_ActivateDropsRetiredGenerations(t *testing.T) {
	cache := newMemCache()
	ctx := context.Background()
	_ = cache.Set(ctx, "sw:v1:"+origin+"/", []byte("old"))
	_ = cache.Set(ctx, "sw:v1:"+origin+"/app.js", []byte("old"))
	_ = cache.Set(ctx, "sw:v2:"+origin+"/", []byte("new"))
	_ = cache.Set(ctx, origin+"/points.bin", []byte("app-level"))

	ic := fetch.NewInterceptor(nil, cache, origin, "v2", nil)
	if err := ic.Activate(ctx); err != nil {
		t.Fatalf("activate: %v", err)
	}

	if _, err := cache.Get(ctx, "sw:v1:"+origin+"/"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Error("v1 shell entry survived activation")
	}
	if _, err := cache.Get(ctx, "sw:v1:"+origin+"/app.js"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Error("v1 asset entry survived activation")
	}
	if _, err := cache.Get(ctx, "sw:v2:"+origin+"/"); err != nil {
		t.Error("current generation must survive activation")
	}
	if _, err := cache.Get(ctx, origin+"/points.bin"); err != nil {
		t.Error("app-level entries must survive activation")
	}
}
