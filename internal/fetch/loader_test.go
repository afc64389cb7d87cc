package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"apiweaver/internal/apierr"
	"apiweaver/internal/metrics"
)

// TestLoader_Stdin verifies stdin input is read when the URL is empty or "-".
func TestLoader_Stdin(t *testing.T) {
	t.Parallel()

	l := NewLoader(http.DefaultClient, time.Second, "")
	for _, u := range []string{"", "-", "  -  "} {
		html, err := l.Load(context.Background(), Input{
			URL:   u,
			Stdin: bytes.NewBufferString("<p>x</p>"),
		})
		if err != nil {
			t.Fatalf("Load(%q): %v", u, err)
		}
		if html != "<p>x</p>" {
			t.Fatalf("unexpected html: %q", html)
		}
	}

	html, err := l.Load(context.Background(), Input{})
	if err != nil || html != "" {
		t.Fatalf("nil stdin: html=%q err=%v", html, err)
	}
}

// TestLoader_URL_Headers verifies the User-Agent and Accept headers.
func TestLoader_URL_Headers(t *testing.T) {
	t.Parallel()

	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(srv.Client(), 2*time.Second, "")
	html, err := l.Load(context.Background(), Input{URL: srv.URL})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if html != "<html></html>" {
		t.Fatalf("unexpected html: %q", html)
	}
	if gotUA != DefaultUserAgent {
		t.Fatalf("User-Agent=%q, want %q", gotUA, DefaultUserAgent)
	}
	if !strings.HasPrefix(gotAccept, "text/html") {
		t.Fatalf("Accept=%q", gotAccept)
	}
}

// TestLoader_URL_Non2xx verifies we include status code and a body snippet.
func TestLoader_URL_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(srv.Client(), 2*time.Second, "custom/2.0")
	_, err := l.Load(context.Background(), Input{URL: srv.URL})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !apierr.IsKind(err, apierr.KindFetch) {
		t.Fatalf("kind=%v, want fetch", apierr.KindOf(err))
	}
	msg := err.Error()
	if !strings.Contains(msg, "http status 403") || !strings.Contains(msg, "nope") || !strings.Contains(msg, srv.URL) {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestLoader_URL_BodyExcerptIsCapped verifies long error bodies are truncated.
func TestLoader_URL_BodyExcerptIsCapped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(bytes.Repeat([]byte("x"), 10000))
	}))
	t.Cleanup(srv.Close)

	_, err := NewLoader(srv.Client(), 2*time.Second, "").Load(context.Background(), Input{URL: srv.URL})
	if err == nil {
		t.Fatalf("expected error")
	}
	if n := strings.Count(err.Error(), "x"); n > errBodyLimit {
		t.Fatalf("body excerpt has %d bytes, want <= %d", n, errBodyLimit)
	}
}

// TestLoader_Timeout verifies a slow server produces a fetch error.
func TestLoader_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	_, err := NewLoader(srv.Client(), 50*time.Millisecond, "").Load(context.Background(), Input{URL: srv.URL})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !apierr.IsKind(err, apierr.KindFetch) {
		t.Fatalf("kind=%v, want fetch", apierr.KindOf(err))
	}
}

func TestLoader_RejectsBadURLs(t *testing.T) {
	t.Parallel()

	l := NewLoader(nil, time.Second, "")
	for _, u := range []string{
		"ftp://example.com/doc.html",
		"file:///etc/passwd",
		"example.com/doc.html",
		"http://",
		"http://[::1",
	} {
		_, err := l.Load(context.Background(), Input{URL: u})
		if err == nil {
			t.Fatalf("Load(%q): expected error", u)
		}
		if !apierr.IsKind(err, apierr.KindFetch) {
			t.Fatalf("Load(%q): kind=%v, want fetch", u, apierr.KindOf(err))
		}
	}
}

type recordingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
}

func (r *recordingBackend) IncCounter(name string, delta float64, l metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name+"/"+l["status"]] += delta
}

func (r *recordingBackend) ObserveHistogram(string, float64, metrics.Labels) {}
func (r *recordingBackend) Flush() error                                     { return nil }

// TestLoader_RecordsMetrics is not parallel: it swaps the global backend.
func TestLoader_RecordsMetrics(t *testing.T) {
	rec := &recordingBackend{counters: map[string]float64{}}
	metrics.SetBackend(rec)
	t.Cleanup(func() { metrics.SetBackend(nil) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(srv.Client(), time.Second, "")
	if _, err := l.Load(context.Background(), Input{URL: srv.URL + "/"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, _ = l.Load(context.Background(), Input{URL: srv.URL + "/missing"})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.counters[metrics.HTTPRequestsTotal+"/200"] != 1 || rec.counters[metrics.HTTPRequestsTotal+"/404"] != 1 {
		t.Fatalf("requests: %v", rec.counters)
	}
	if rec.counters[metrics.HTTPErrorsTotal+"/404"] != 1 || rec.counters[metrics.HTTPErrorsTotal+"/200"] != 0 {
		t.Fatalf("errors: %v", rec.counters)
	}
}
