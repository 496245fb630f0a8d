package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// The TLS fingerprint dialer only engages for https; httptest's plain HTTP
// server exercises everything else: headers, statuses, content types,
// redirects and timeouts.

var _ staticFetcher = (*httpFetcher)(nil)

func TestFetch_ReturnsHTMLBody(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>Hello World</body></html>"))
	}))
	defer server.Close()

	f := newHTTPFetcher(5 * time.Second)
	html, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if html != "<html><body>Hello World</body></html>" {
		t.Errorf("Fetch() body = %q", html)
	}
	if !strings.Contains(gotUA, "Chrome") {
		t.Errorf("User-Agent = %q, want a Chrome UA", gotUA)
	}
	if !strings.Contains(gotAccept, "text/html") {
		t.Errorf("Accept = %q, want text/html first", gotAccept)
	}
}

func TestFetch_RejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newHTTPFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Fetch() expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("Fetch() error = %v, want the status code in the message", err)
	}
}

func TestFetch_RejectsNonHTMLContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not": "html"}`))
	}))
	defer server.Close()

	f := newHTTPFetcher(5 * time.Second)
	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Fetch() expected error for non-HTML content type")
	}
}

func TestFetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>moved here</body></html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := newHTTPFetcher(5 * time.Second)
	html, err := f.Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.Contains(html, "moved here") {
		t.Errorf("Fetch() body = %q, want the redirect target's body", html)
	}
}

func TestFetch_StopsRedirectLoops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer server.Close()

	f := newHTTPFetcher(5 * time.Second)
	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Fetch() expected error for a redirect loop")
	}
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("too late"))
	}))
	defer server.Close()

	f := newHTTPFetcher(20 * time.Millisecond)
	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Fetch() expected timeout error")
	}
}
