package utils

// SnippetLength is how many runes of a post body travel with a feed row.
const SnippetLength = 500

// Snippet truncates s to at most max runes. Derived at serialization time,
// never stored.
func Snippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
