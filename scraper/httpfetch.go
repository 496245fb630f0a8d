package scraper

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxFetchBody caps the static fetch body to prevent unbounded memory use.
const maxFetchBody = 10 << 20 // 10 MB

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		// Should never happen with a valid utls version; dialTLSChrome
		// falls back to HelloChrome_Auto when the spec is empty.
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2, which Go's http.Transport cannot handle
	// over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// httpFetcher performs the lightweight static pass: a single HTTP GET with a
// Chrome TLS fingerprint (utls) and browser-like headers, bounded by a fixed
// timeout. Any failure here is recoverable: the coordinator treats it as
// automatic insufficiency and falls through to the renderer.
type httpFetcher struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPFetcher creates a fetcher with the given per-request ceiling.
func newHTTPFetcher(timeout time.Duration) *httpFetcher {
	transport := &http.Transport{
		DialTLSContext:    dialTLSChrome,
		ForceAttemptHTTP2: false,
	}
	return &httpFetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		timeout: timeout,
	}
}

// Fetch retrieves the URL and returns the raw HTML. Non-2xx statuses and
// non-HTML content types are failures so the caller escalates to rendering.
func (f *httpFetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", fmt.Errorf("httpfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("httpfetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("httpfetch: HTTP %d for %s", resp.StatusCode, targetURL)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !isHTMLContentType(ct) {
		return "", fmt.Errorf("httpfetch: non-HTML content type %q for %s", ct, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return "", fmt.Errorf("httpfetch: read body: %w", err)
	}

	return string(body), nil
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// dialTLSChrome establishes a TLS connection using the Chrome fingerprint.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)

	var tlsConn *tls.UConn
	if len(chromeH1Spec.Extensions) > 0 {
		tlsConn = tls.UClient(rawConn, &tls.Config{ServerName: host}, tls.HelloCustom)
		if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
			rawConn.Close()
			return nil, fmt.Errorf("httpfetch: apply tls spec: %w", err)
		}
	} else {
		tlsConn = tls.UClient(rawConn, &tls.Config{ServerName: host}, tls.HelloChrome_Auto)
	}

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}
