package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retreat-leads/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// fieldMask lists the Place fields requested from Text Search.
var fieldMask = strings.Join([]string{
	"places.id",
	"places.displayName",
	"places.formattedAddress",
	"places.nationalPhoneNumber",
	"places.internationalPhoneNumber",
	"places.websiteUri",
	"places.googleMapsUri",
	"places.location",
	"places.rating",
	"places.userRatingCount",
}, ",")

// Client performs Google Places API operations.
type Client interface {
	TextSearch(ctx context.Context, query string) (*TextSearchResponse, error)
}

// TextSearchResponse is the response from Places Text Search.
type TextSearchResponse struct {
	Places []Place `json:"places"`
}

// Place represents a place returned by the API.
type Place struct {
	ID                       string      `json:"id"`
	DisplayName              DisplayName `json:"displayName"`
	FormattedAddress         string      `json:"formattedAddress"`
	NationalPhoneNumber      string      `json:"nationalPhoneNumber"`
	InternationalPhoneNumber string      `json:"internationalPhoneNumber"`
	WebsiteURI               string      `json:"websiteUri"`
	GoogleMapsURI            string      `json:"googleMapsUri"`
	Location                 *LatLng     `json:"location,omitempty"`
	Rating                   float64     `json:"rating"`
	UserRatingCount          int         `json:"userRatingCount"`
}

// Phone returns the international number, falling back to the national one.
func (p Place) Phone() string {
	if p.InternationalPhoneNumber != "" {
		return p.InternationalPhoneNumber
	}
	return p.NationalPhoneNumber
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// LatLng is a geographic coordinate.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("google", "text_search")
	for _, o := range opts {
		o(c)
	}
	return c
}

type textSearchRequest struct {
	TextQuery string `json:"textQuery"`
}

// TextSearch retries 429 and 5xx responses and dropped connections.
func (c *httpClient) TextSearch(ctx context.Context, query string) (*TextSearchResponse, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*TextSearchResponse, error) {
		return c.textSearch(ctx, query)
	})
}

func (c *httpClient) textSearch(ctx context.Context, query string) (*TextSearchResponse, error) {
	body, err := json.Marshal(textSearchRequest{TextQuery: query})
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result TextSearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal response")
	}

	return &result, nil
}
