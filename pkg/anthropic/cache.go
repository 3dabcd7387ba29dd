package anthropic

// CachedSystem wraps a system prompt in a single block with a 1-hour
// prompt-cache breakpoint. Analyzers reuse the same system prompt for
// every submission in a batch, so all calls after the first read the
// cache at a tenth of the input price.
func CachedSystem(text string) []SystemBlock {
	return []SystemBlock{{
		Text:         text,
		CacheControl: &CacheControl{TTL: "1h"},
	}}
}
