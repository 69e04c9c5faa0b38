package fetch_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/adapters/fetch"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
)

func TestClient_FetchReturnsBodyAndLength(t *testing.T) {
	var gotCacheControl, gotPragma string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCacheControl = r.Header.Get("Cache-Control")
		gotPragma = r.Header.Get("Pragma")
		_, _ = w.Write([]byte("stream-bytes"))
	}))
	defer srv.Close()

	c := fetch.NewClient(srv.Client())
	res, err := c.Fetch(context.Background(), srv.URL+"/points.bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "stream-bytes" {
		t.Errorf("expected body %q, got %q", "stream-bytes", body)
	}
	if res.ContentLength != int64(len("stream-bytes")) {
		t.Errorf("expected content length %d, got %d", len("stream-bytes"), res.ContentLength)
	}
	if gotCacheControl != "no-cache" {
		t.Errorf("expected Cache-Control no-cache, got %q", gotCacheControl)
	}
	if gotPragma != "no-cache" {
		t.Errorf("expected Pragma no-cache, got %q", gotPragma)
	}
}

func TestClient_ErrorStatusIsRetrievalError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := fetch.NewClient(srv.Client())
	_, err := c.Fetch(context.Background(), srv.URL+"/points.bin")

	var re *domain.RetrievalError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetrievalError, got %v", err)
	}
	if re.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", re.Status)
	}
}

func TestClient_ConnectionFailureIsRetrievalError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := fetch.NewClient(nil)
	_, err := c.Fetch(context.Background(), url+"/points.bin")

	var re *domain.RetrievalError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetrievalError, got %v", err)
	}
	if re.Err == nil {
		t.Error("transport failures must carry the underlying cause")
	}
	if re.Status != 0 {
		t.Errorf("transport failures carry no status, got %d", re.Status)
	}
}
