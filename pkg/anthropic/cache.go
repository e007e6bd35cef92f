package anthropic

// BuildCachedSystemBlocks wraps a shared system prompt in a single block with
// a 1-hour cache breakpoint, so consecutive classifications reuse it.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: "1h",
			},
		},
	}
}
