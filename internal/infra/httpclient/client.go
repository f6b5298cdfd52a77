// Package httpclient is the single outbound HTTP path for all scraping
// traffic. Every request runs under a named profile that fixes its timeout
// budget, carries a rotating browser identity, and is retried with
// exponential backoff on transient failures.
package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/WilliamHoest/trackanything-admin/internal/observability/metrics"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/urlutil"
	"github.com/WilliamHoest/trackanything-admin/internal/resilience/retry"
)

// Profile names a class of outbound request. Profiles differ in timeout
// budget and rate limits; article pages are slow, JSON APIs are not.
type Profile string

const (
	ProfileHTML Profile = "html"
	ProfileAPI  Profile = "api"
	ProfileRSS  Profile = "rss"
)

// Timeout returns the per-request budget for the profile.
func (p Profile) Timeout() time.Duration {
	switch p {
	case ProfileAPI:
		return 10 * time.Second
	case ProfileRSS:
		return 20 * time.Second
	default:
		return 30 * time.Second
	}
}

// Config holds the client's safety limits.
type Config struct {
	// MaxBodySize caps response bodies in bytes. Larger responses are
	// rejected while reading, not trusted from Content-Length.
	MaxBodySize int64

	// MaxRedirects caps the redirect chain. Every redirect target is
	// re-validated against the SSRF rules.
	MaxRedirects int

	// DenyPrivateIPs blocks hostnames that resolve to private addresses.
	DenyPrivateIPs bool
}

// DefaultConfig returns production limits.
func DefaultConfig() Config {
	return Config{
		MaxBodySize:    10 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// Request describes one outbound fetch.
type Request struct {
	URL      string
	Profile  Profile
	Provider string
	// Header carries extra request headers, such as If-None-Match for
	// conditional feed fetches. Values here override the defaults.
	Header map[string]string
}

// Response is the decoded result of a successful fetch. A 304 Not Modified
// comes back as a Response with an empty body, not as an error.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	// FinalURL is the URL after redirects.
	FinalURL string
}

// NotModified reports whether the server answered 304 to a conditional fetch.
func (r *Response) NotModified() bool {
	return r.StatusCode == http.StatusNotModified
}

// Client is safe for concurrent use. One instance serves a whole process.
type Client struct {
	cfg      Config
	retryCfg retry.Config
	clients  map[Profile]*http.Client
}

// New creates a client with one underlying http.Client per profile, sharing
// limits from cfg.
func New(cfg Config) *Client {
	c := &Client{
		cfg:      cfg,
		retryCfg: retry.ScrapeHTTPConfig(),
		clients:  make(map[Profile]*http.Client, 3),
	}
	for _, profile := range []Profile{ProfileHTML, ProfileAPI, ProfileRSS} {
		c.clients[profile] = &http.Client{
			Timeout: profile.Timeout(),
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= cfg.MaxRedirects {
					return fmt.Errorf("%w: %d redirects", ErrInvalidURL, len(via))
				}
				return validateURL(req.URL.String(), cfg.DenyPrivateIPs)
			},
		}
	}
	return c
}

// Get fetches req.URL with retries. Only idempotent GETs go through this
// client, so retrying on 429, 408 and 5xx is always safe. The final error is
// one of the typed errors from this package or *retry.HTTPError.
func (c *Client) Get(ctx context.Context, req Request) (*Response, error) {
	if err := validateURL(req.URL, c.cfg.DenyPrivateIPs); err != nil {
		return nil, err
	}

	var resp *Response
	err := retry.WithBackoff(ctx, c.retryCfg, func() error {
		var attemptErr error
		resp, attemptErr = c.doGet(ctx, req)
		return attemptErr
	})
	if err != nil {
		metrics.RecordHTTPError(req.Provider, urlutil.ETLDPlusOne(req.URL), ErrorType(err))
		return nil, err
	}
	return resp, nil
}

func (c *Client) doGet(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if req.Profile == ProfileHTML {
		for key, value := range browserHeaders() {
			httpReq.Header.Set(key, value)
		}
	}
	httpReq.Header.Set("User-Agent", nextUserAgent())
	for key, value := range req.Header {
		httpReq.Header.Set(key, value)
	}

	client := c.clients[req.Profile]
	if client == nil {
		client = c.clients[ProfileHTML]
	}

	start := time.Now()
	httpResp, err := client.Do(httpReq)
	metrics.RecordRequest(req.Provider, urlutil.ETLDPlusOne(req.URL), time.Since(start))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			if urlErr.Timeout() {
				return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			return nil, &TransportError{URL: req.URL, Err: urlErr.Err}
		}
		return nil, &TransportError{URL: req.URL, Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode >= 400 || (httpResp.StatusCode >= 300 && httpResp.StatusCode != http.StatusNotModified) {
		// Drain so the connection can be reused across retries.
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 4096))
		return nil, &retry.HTTPError{
			StatusCode: httpResp.StatusCode,
			Message:    httpResp.Status,
			RetryAfter: parseRetryAfter(httpResp.Header.Get("Retry-After")),
		}
	}

	body, err := c.readBody(httpResp.Body)
	if err != nil {
		return nil, err
	}

	finalURL := req.URL
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		finalURL = httpResp.Request.URL.String()
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Header:     httpResp.Header,
		FinalURL:   finalURL,
	}, nil
}

func (c *Client) readBody(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, c.cfg.MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(data)) > c.cfg.MaxBodySize {
		return nil, fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, c.cfg.MaxBodySize)
	}
	return data, nil
}

// parseRetryAfter understands both delta-seconds and HTTP-date forms.
// Returns zero when the header is absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
