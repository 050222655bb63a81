package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/webindex/internal/config"
)

// FetchErrorKind classifies a failed fetch.
type FetchErrorKind int

const (
	// FetchNetwork covers DNS, connection, TLS, timeout and body read failures.
	FetchNetwork FetchErrorKind = iota
	// FetchHTTPStatus is a response with a non-2xx status code.
	FetchHTTPStatus
)

// String returns the kind name used in outcome reasons.
func (k FetchErrorKind) String() string {
	switch k {
	case FetchNetwork:
		return "network"
	case FetchHTTPStatus:
		return "http-status"
	default:
		return "unknown"
	}
}

// FetchError is returned by Fetcher.Fetch. The crawler never retries a
// URL that failed with a FetchError within the same run.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Kind == FetchHTTPStatus {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Response is a successful (2xx) fetch.
type Response struct {
	// URL is the final URL after redirects.
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	Duration    time.Duration
}

// IsHTML reports whether the response declares a text/html body.
func (r *Response) IsHTML() bool {
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.ContentType)), "text/html")
	}
	return mediaType == "text/html"
}

// HeaderFunc returns extra request headers for a host.
type HeaderFunc func(host string) map[string]string

// Fetcher performs HTTP GET requests for the crawler.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
	headers     HeaderFunc
	redirect    RedirectPolicy
}

// RedirectPolicy vets each redirect hop before it is followed. req is the
// next request and via the requests made so far, oldest first. An error
// stops the fetch and is returned inside a *FetchError.
type RedirectPolicy func(req *http.Request, via []*http.Request) error

// maxRedirects matches the limit of the net/http default policy.
const maxRedirects = 10

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherClient sets the HTTP client used for requests.
func WithFetcherClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithFetcherUserAgent sets the User-Agent header.
func WithFetcherUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithFetcherTimeout bounds each request, including reading the body.
func WithFetcherTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithFetcherMaxBodySize caps how many bytes of a body are read. Longer bodies
// are truncated, not rejected.
func WithFetcherMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithFetcherHeaders sets a source of per-host extra headers.
func WithFetcherHeaders(fn HeaderFunc) FetcherOption {
	return func(f *Fetcher) {
		f.headers = fn
	}
}

// WithFetcherRedirectPolicy sets a policy consulted on every redirect.
func WithFetcherRedirectPolicy(policy RedirectPolicy) FetcherOption {
	return func(f *Fetcher) {
		f.redirect = policy
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      http.DefaultClient,
		userAgent:   config.DefaultUserAgent,
		timeout:     config.DefaultTimeout,
		maxBodySize: config.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.redirect != nil {
		// Copy so the caller's client keeps its own redirect behavior.
		client := *f.client
		client.CheckRedirect = f.checkRedirect
		f.client = &client
	}
	return f
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return f.redirect(req, via)
}

// Fetch retrieves rawURL. Any failure, including a non-2xx status, is
// returned as a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	start := time.Now()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchNetwork, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if f.headers != nil {
		for k, v := range f.headers(req.URL.Host) {
			req.Header.Set(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: FetchNetwork, URL: rawURL, Err: unwrapURLError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{
			Kind:       FetchHTTPStatus,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, &FetchError{Kind: FetchNetwork, URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Duration:    time.Since(start),
	}, nil
}

// unwrapURLError strips the *url.Error wrapper, whose message repeats the URL.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}
