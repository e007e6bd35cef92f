// Package notion pushes scored leads into the sales team's Notion database.
package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/retreat-leads/internal/resilience"
)

// Client is the subset of the Notion API the lead sync needs.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit sets requests per second. Zero disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		c.limiter = nil
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithRetry overrides the retry policy for rate-limited and transient calls.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *notionClient) {
		c.retry = cfg
	}
}

type notionClient struct {
	inner   *notionapi.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a client for the integration token. Calls are throttled
// to Notion's documented 3 requests per second and rate-limited responses
// are retried.
func NewClient(token string, opts ...ClientOption) Client {
	c := &notionClient{
		inner:   notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(3, 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	c.retry.ShouldRetry = retryable
	c.retry.OnRetry = resilience.RetryLogger("notion", "api")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func retryable(err error) bool {
	return strings.Contains(err.Error(), "rate_limited") || resilience.IsTransient(err)
}

// call throttles and retries one API request.
func call[T any](ctx context.Context, c *notionClient, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (T, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				var zero T
				return zero, eris.Wrap(err, "notion: rate limit")
			}
		}
		return fn(ctx)
	})
	if err != nil {
		return v, eris.Wrap(err, "notion: "+op)
	}
	return v, nil
}

func (c *notionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return call(ctx, c, "query database "+dbID, func(ctx context.Context) (*notionapi.DatabaseQueryResponse, error) {
		return c.inner.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	})
}

func (c *notionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	return call(ctx, c, "create page", func(ctx context.Context) (*notionapi.Page, error) {
		return c.inner.Page.Create(ctx, req)
	})
}

func (c *notionClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	return call(ctx, c, "update page "+pageID, func(ctx context.Context) (*notionapi.Page, error) {
		return c.inner.Page.Update(ctx, notionapi.PageID(pageID), req)
	})
}
