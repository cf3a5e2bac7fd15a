package pattern

import "strings"

// ExtractJSONSnippet returns the substring between the first '{' and the
// last '}', or "" when there is none.
func ExtractJSONSnippet(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end >= start {
		return raw[start : end+1]
	}
	return ""
}
