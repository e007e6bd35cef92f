package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestCreateMessage_MockClient(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	req := MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 2000,
		System:    BuildCachedSystemBlocks("You classify retreat organizers."),
		Messages: []Message{
			{Role: "user", Content: "Organizer: Casa Violeta"},
		},
	}

	expected := &MessageResponse{
		ID:         "msg_123",
		Model:      "claude-haiku-4-5-20251001",
		Content:    []ContentBlock{{Type: "text", Text: `{"classification":"FACILITATOR"}`}},
		StopReason: "end_turn",
		Usage: TokenUsage{
			InputTokens:  10,
			OutputTokens: 5,
		},
	}

	mc.On("CreateMessage", ctx, req).Return(expected, nil)

	resp, err := mc.CreateMessage(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "msg_123", resp.ID)
	assert.Equal(t, `{"classification":"FACILITATOR"}`, resp.Text())

	mc.AssertExpectations(t)
}

func TestEstimateCost_Haiku(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	// input: 1M * $1.00 = $1.00
	// output: 1M * $5.00 = $5.00
	assert.InDelta(t, 6.00, cost, 0.001)
}

func TestEstimateCost_Sonnet(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	cost := usage.EstimateCost("claude-sonnet-4-5-20250929")
	assert.InDelta(t, 18.00, cost, 0.001)
}

func TestEstimateCost_WithCache(t *testing.T) {
	usage := TokenUsage{
		InputTokens:              500_000,
		OutputTokens:             100_000,
		CacheCreationInputTokens: 200_000,
		CacheReadInputTokens:     300_000,
	}
	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	// input: 0.5M * $1.00 = $0.50
	// output: 0.1M * $5.00 = $0.50
	// cacheWrite: 0.2M * $1.00 * 1.25 = $0.25
	// cacheRead: 0.3M * $1.00 * 0.10 = $0.03
	assert.InDelta(t, 1.28, cost, 0.001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.Equal(t, 0.0, usage.EstimateCost("unknown-model"))
}

func TestEstimateCost_ZeroTokens(t *testing.T) {
	assert.Equal(t, 0.0, TokenUsage{}.EstimateCost("claude-haiku-4-5-20251001"))
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		usage := TokenUsage{InputTokens: 100, OutputTokens: 50}
		usage.LogCost("claude-haiku-4-5-20251001", "classify")
	})
	assert.NotPanics(t, func() {
		TokenUsage{}.LogCost("unknown-model", "")
	})
}
