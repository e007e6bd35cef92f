// Package enrich holds the collaborators that add outside facts to an
// organizer: Google Places matches, website contact details and an LLM
// classification of the organizer's business model.
package enrich

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/k3a/html2text"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent on every website request.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 1 << 20

// Errors returned by Fetch.
var (
	ErrBlocked  = eris.New("enrich: blocked by anti-bot page")
	ErrNotFound = eris.New("enrich: page not found")
)

// Page is a fetched website page.
type Page struct {
	URL    string
	Status int
	HTML   string
}

// Fetcher downloads website pages at a bounded request rate. It is safe for
// concurrent use.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// FetchOption configures a Fetcher.
type FetchOption func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) FetchOption {
	return func(f *Fetcher) { f.client = hc }
}

// WithRequestRate limits requests per second across all goroutines. A
// non-positive rate disables limiting.
func WithRequestRate(rps float64) FetchOption {
	return func(f *Fetcher) {
		if rps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			f.limiter = nil
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) FetchOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) FetchOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// NewFetcher creates a Fetcher with a 15s timeout and 2 requests per second.
func NewFetcher(opts ...FetchOption) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter:   rate.NewLimiter(2, 2),
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs url and returns the page body. Non-2xx statuses and anti-bot
// interstitials are errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "enrich: rate limit")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: fetch %s", url)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: read %s", url)
	}

	if blocked(resp, body) {
		return nil, eris.Wrapf(ErrBlocked, "fetch %s", url)
	}
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, eris.Wrapf(ErrNotFound, "fetch %s", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("enrich: fetch %s: status %d", url, resp.StatusCode)
	}

	return &Page{URL: url, Status: resp.StatusCode, HTML: string(body)}, nil
}

// blocked detects Cloudflare and captcha interstitials.
func blocked(resp *http.Response, body []byte) bool {
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true
		}
	}
	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "checking your browser") || strings.Contains(lower, "cf-browser-verification") {
		return true
	}
	return len(body) < 4000 && (strings.Contains(lower, "g-recaptcha") || strings.Contains(lower, "h-captcha"))
}

// PageText converts HTML to collapsed plain text of at most limit runes.
// Scripts, styles and navigation chrome are dropped first. A non-positive
// limit means no limit.
func PageText(page string, limit int) string {
	doc := parseHTML(page)
	pruneTags(doc, chromeTags)
	text := html2text.HTML2Text(render(doc))
	return truncateRunes(strings.Join(strings.Fields(text), " "), limit)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// NormalizeWebsite adds an https scheme when missing and trims trailing
// slashes. It returns "" for blank input.
func NormalizeWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}
	return strings.TrimRight(raw, "/")
}

// join builds base+path, leaving base alone for the root path.
func join(base, path string) string {
	if path == "" || path == "/" {
		return base
	}
	return base + path
}
