package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCachedSystemBlocks(t *testing.T) {
	text := "You classify retreat organizers as FACILITATOR, VENUE_OWNER or UNCLEAR."

	blocks := BuildCachedSystemBlocks(text)

	require.Len(t, blocks, 1)
	assert.Equal(t, text, blocks[0].Text)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)
}

func TestBuildCachedSystemBlocks_EmptyText(t *testing.T) {
	blocks := BuildCachedSystemBlocks("")

	require.Len(t, blocks, 1)
	assert.Equal(t, "", blocks[0].Text)
	require.NotNil(t, blocks[0].CacheControl)
}
