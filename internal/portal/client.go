// Package portal fetches and parses the SPP OpsPortal study pages.
package portal

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spp-monitor/internal/resilience"
)

const (
	indexPath = "/Studies/Gen"
	listPath  = "/Studies/GenList"

	// maxPageBytes bounds how much of a listing page is read. The real
	// pages are well under 1 MiB.
	maxPageBytes = 4 << 20
)

// browserHeaders mimics a regular browser session. The portal intermittently
// serves error pages to obviously scripted clients.
var browserHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// ClientOptions configures the portal client.
type ClientOptions struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int

	// RetryBackoff is the delay before the first retry; each further retry
	// doubles it. Zero means the default 2s schedule.
	RetryBackoff time.Duration
}

// Client issues portal requests over one persistent session. A single
// instance is shared for the life of a run so connections and headers stay
// stable across categories.
type Client struct {
	http  *http.Client
	base  *url.URL
	retry resilience.RetryConfig
}

// NewClient creates a portal client for the given base origin.
func NewClient(opts ClientOptions) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, eris.Wrapf(err, "portal: parse base url %q", opts.BaseURL)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, eris.Errorf("portal: base url %q is not absolute", opts.BaseURL)
	}

	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = opts.MaxRetries
	if opts.RetryBackoff > 0 {
		retry.InitialBackoff = opts.RetryBackoff
	}
	retry.OnRetry = resilience.RetryLogger("portal", "fetch")

	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		base:  base,
		retry: retry,
	}, nil
}

// Base returns the portal's base origin used for URL resolution.
func (c *Client) Base() *url.URL {
	return c.base
}

// IndexURL returns the studies index page URL.
func (c *Client) IndexURL() string {
	return c.base.JoinPath(indexPath).String()
}

// ListURL returns the listing page URL for one category.
func (c *Client) ListURL(categoryID int) string {
	u := c.base.JoinPath(listPath)
	q := url.Values{}
	q.Set("yearTypeId", strconv.Itoa(categoryID))
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch GETs a page with the shared session headers. Transport errors and
// non-2xx statuses are both retried with exponential backoff; once retries
// are exhausted the last error is returned and the caller degrades to "no
// data this cycle" rather than failing the run.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return "", eris.Wrapf(err, "portal: create request for %s", rawURL)
		}
		for k, v := range browserHeaders {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return "", resilience.NewTransientError(eris.Wrapf(err, "portal: fetch %s", rawURL), 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", resilience.NewTransientError(
				eris.Errorf("portal: status %d from %s", resp.StatusCode, rawURL),
				resp.StatusCode,
			)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		if err != nil {
			return "", resilience.NewTransientError(eris.Wrapf(err, "portal: read body from %s", rawURL), 0)
		}
		return string(body), nil
	})
}

// resolveURL makes href absolute against the portal's base origin. Hrefs
// that fail to parse pass through unchanged; extraction stays best-effort.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
