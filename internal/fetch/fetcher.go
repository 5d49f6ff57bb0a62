package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Fetcher retrieves the markup of the page denoted by a reference.
// A reference is the query part of a page address, e.g. "p=jean;n=dupont;".
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (string, error)
}

// Default request settings.
const (
	defaultDelay       = 2 * time.Second
	defaultTimeout     = 60 * time.Second
	defaultMaxBodySize = 5 * 1024 * 1024 // 5MB
	defaultUserAgent   = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	defaultAccept      = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	defaultLanguage    = "fr-FR,fr;q=0.9,en;q=0.5"

	// maxRedirects stops redirect loops while allowing the site's
	// language redirects.
	maxRedirects = 10
)

// HTTPFetcher fetches pages over HTTP.
// It is safe for concurrent use, but the delay is only meaningful for a
// serial caller.
type HTTPFetcher struct {
	baseURL        string
	delay          time.Duration
	timeout        time.Duration
	maxBodySize    int64
	userAgent      string
	acceptLanguage string
	cookie         string
	headers        map[string]string
	proxyAddress   string
	client         *http.Client
	logger         *slog.Logger

	// wait pauses before a request. Replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithDelay sets the delay waited before every request.
func WithDelay(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.delay = d
	}
}

// WithTimeout sets the timeout of one request.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithAcceptLanguage sets the Accept-Language header.
func WithAcceptLanguage(lang string) Option {
	return func(f *HTTPFetcher) {
		f.acceptLanguage = lang
	}
}

// WithCookie sets a raw cookie string (e.g. "session_id=abc123") sent
// with every request.
func WithCookie(cookie string) Option {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(f *HTTPFetcher) {
		f.headers = headers
	}
}

// WithProxy routes requests through a SOCKS5 proxy given as
// "[socks5://][user:password@]host:port".
func WithProxy(address string) Option {
	return func(f *HTTPFetcher) {
		f.proxyAddress = address
	}
}

// WithHTTPClient uses the given client instead of building one.
// Proxy and timeout options are ignored; headers are still injected.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithLogger sets the logger used for request debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher creates a fetcher for the site rooted at baseURL.
// References are appended verbatim to baseURL, which therefore usually
// ends with "?".
//
// Design decision: the HTTP client is built here rather than injected
// because proxy, timeout and header injection are all fetcher concerns.
// WithHTTPClient exists for tests.
func NewHTTPFetcher(baseURL string, opts ...Option) (*HTTPFetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	f := &HTTPFetcher{
		baseURL:        baseURL,
		delay:          defaultDelay,
		timeout:        defaultTimeout,
		maxBodySize:    defaultMaxBodySize,
		userAgent:      defaultUserAgent,
		acceptLanguage: defaultLanguage,
		logger:         slog.New(slog.DiscardHandler),
		wait:           sleep,
	}
	for _, opt := range opts {
		opt(f)
	}

	base := http.RoundTripper(http.DefaultTransport)
	if f.client == nil {
		f.client, err = f.newHTTPClient()
		if err != nil {
			return nil, err
		}
	}
	if f.client.Transport != nil {
		base = f.client.Transport
	}

	// Work on a copy so a caller-supplied client is not modified.
	client := *f.client
	client.Transport = &headerInjectingTransport{
		base:    base,
		cookie:  f.cookie,
		headers: f.headers,
	}
	f.client = &client

	return f, nil
}

// newHTTPClient builds the default client, optionally through the proxy.
func (f *HTTPFetcher) newHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	if f.proxyAddress != "" {
		dial, err := socksDialContext(f.proxyAddress)
		if err != nil {
			return nil, err
		}
		transport.Proxy = nil
		transport.DialContext = dial
	}

	// Session cookies set by the site are kept for the whole crawl.
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   f.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// URL returns the full address of the page denoted by ref.
func (f *HTTPFetcher) URL(ref string) string {
	return f.baseURL + ref
}

// Fetch waits the configured delay and then retrieves the page denoted by ref.
// The body is decoded to UTF-8 according to the response Content-Type.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrEmptyReference
	}

	if err := f.wait(ctx, f.delay); err != nil {
		return "", err
	}

	pageURL := f.URL(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", defaultAccept)
	if f.acceptLanguage != "" {
		req.Header.Set("Accept-Language", f.acceptLanguage)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	f.logger.Debug("fetched page",
		"url", pageURL,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body := io.LimitReader(resp.Body, f.maxBodySize)
	decoded, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", pageURL, err)
	}

	data, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", pageURL, err)
	}
	return string(data), nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
