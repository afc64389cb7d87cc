// Package fetch loads documentation HTML from a URL or from stdin.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"apiweaver/internal/apierr"
	"apiweaver/internal/metrics"
)

const (
	stage = "fetch"

	// DefaultUserAgent is sent when the caller does not set one.
	DefaultUserAgent = "ApiWeaver/1.0"
	// DefaultTimeout bounds the whole request, body included.
	DefaultTimeout = 30 * time.Second

	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	// errBodyLimit caps the body excerpt quoted in a non-2xx error.
	errBodyLimit = 4096
)

// StdinURL selects stdin as the input source.
const StdinURL = "-"

// Input describes where HTML should come from.
type Input struct {
	// URL is fetched with HTTP GET. Empty or "-" reads Stdin instead.
	URL string

	// Stdin is read when URL selects it. If nil, stdin reads as empty.
	Stdin io.Reader
}

// FromStdin reports whether in reads stdin rather than the network.
func (in Input) FromStdin() bool {
	u := strings.TrimSpace(in.URL)
	return u == "" || u == StdinURL
}

// Loader fetches or reads HTML with a consistent timeout policy. There is no
// retry: one failed request fails the run.
type Loader struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// NewLoader creates a Loader. A nil client means http.DefaultClient, a
// non-positive timeout means DefaultTimeout and an empty userAgent means
// DefaultUserAgent.
func NewLoader(client *http.Client, timeout time.Duration, userAgent string) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	return &Loader{
		client:    client,
		timeout:   timeout,
		userAgent: userAgent,
	}
}

// Load returns the HTML source for either stdin or a fetched URL.
//
// Every failure is an apierr fetch error carrying the URL. On non-2xx
// responses the error includes the status code and up to 4KB of the body.
func (l *Loader) Load(ctx context.Context, input Input) (string, error) {
	if input.FromStdin() {
		if input.Stdin == nil {
			return "", nil
		}
		b, err := io.ReadAll(input.Stdin)
		if err != nil {
			return "", apierr.Wrapf(apierr.KindFetch, stage, StdinURL, err, "read stdin")
		}
		return string(b), nil
	}

	rawURL := strings.TrimSpace(input.URL)
	if err := ValidateURL(rawURL); err != nil {
		return "", apierr.Wrap(apierr.KindFetch, stage, rawURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apierr.Wrapf(apierr.KindFetch, stage, rawURL, err, "new request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", acceptHTML)

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		l.observe("error", start, 0)
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apierr.Wrapf(apierr.KindFetch, stage, rawURL, err, "timed out after %s", l.timeout)
		}
		return "", apierr.Wrapf(apierr.KindFetch, stage, rawURL, err, "http get")
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		l.observe(status, start, len(body))
		return "", apierr.New(apierr.KindFetch, stage, rawURL,
			"http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	b, err := io.ReadAll(resp.Body)
	l.observe(status, start, len(b))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apierr.Wrapf(apierr.KindFetch, stage, rawURL, err, "timed out reading body after %s", l.timeout)
		}
		return "", apierr.Wrapf(apierr.KindFetch, stage, rawURL, err, "read body")
	}
	return string(b), nil
}

func (l *Loader) observe(status string, start time.Time, n int) {
	labels := metrics.Labels{"status": status}
	metrics.IncCounter(metrics.HTTPRequestsTotal, 1, labels)
	if status == "error" || !strings.HasPrefix(status, "2") {
		metrics.IncCounter(metrics.HTTPErrorsTotal, 1, labels)
	}
	metrics.ObserveHistogram(metrics.HTTPRequestDuration, time.Since(start).Seconds(), labels)
	metrics.ObserveHistogram(metrics.HTTPDownloadBytes, float64(n), labels)
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "":
		return fmt.Errorf("malformed url %q: missing scheme", raw)
	default:
		return fmt.Errorf("unsupported url scheme %q: only http and https are allowed", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("malformed url %q: missing host", raw)
	}
	return nil
}
