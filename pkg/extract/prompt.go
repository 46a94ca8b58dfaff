package extract

import "strings"

// prompt builds the user message sent to the model: the query followed by
// the page content. Kept in one place so every provider formats identically,
// which matters for cache-stable output across repeated calls.
func prompt(content, query string) string {
	var b strings.Builder
	b.WriteString("Query: ")
	b.WriteString(query)
	b.WriteString("\n\n## Webpage Content\n")
	b.WriteString(content)
	return b.String()
}
