package notion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/retreat-leads/internal/resilience"
)

// MockClient is a testify mock of Client shared by the package tests.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *MockClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func testClient(attempts int) *notionClient {
	c := NewClient("test-token",
		WithRateLimit(0),
		WithRetry(resilience.RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond}),
	).(*notionClient)
	c.retry.ShouldRetry = retryable
	return c
}

func TestCall_RetriesRateLimited(t *testing.T) {
	t.Parallel()

	c := testClient(3)
	calls := 0
	page, err := call(context.Background(), c, "create page", func(context.Context) (*notionapi.Page, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("rate_limited: You have been rate limited")
		}
		return &notionapi.Page{ID: "page-1"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, notionapi.ObjectID("page-1"), page.ID)
	assert.Equal(t, 2, calls)
}

func TestCall_WrapsPermanentError(t *testing.T) {
	t.Parallel()

	c := testClient(3)
	calls := 0
	_, err := call(context.Background(), c, "update page p-1", func(context.Context) (*notionapi.Page, error) {
		calls++
		return nil, errors.New("validation_error: bad property")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "notion: update page p-1")
}

func TestCall_RateLimiterHonorsContext(t *testing.T) {
	t.Parallel()

	c := testClient(1)
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	c.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := call(ctx, c, "query database db", func(context.Context) (*notionapi.DatabaseQueryResponse, error) {
		called = true
		return nil, nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, retryable(errors.New("rate_limited: slow down")))
	assert.True(t, retryable(errors.New("read tcp: connection reset by peer")))
	assert.False(t, retryable(errors.New("object_not_found: no such page")))
}

func TestNewClientReturnsClient(t *testing.T) {
	t.Parallel()

	c := NewClient("test-token")
	require.NotNil(t, c)
	nc, ok := c.(*notionClient)
	require.True(t, ok)
	assert.NotNil(t, nc.limiter)
	assert.Equal(t, 3, nc.retry.MaxAttempts)
}
