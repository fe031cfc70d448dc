package llm

import "strings"

// CleanJSON strips Markdown fences and surrounding chatter from a model
// response, keeping the outermost JSON object or array.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return strings.Trim(s, "`")
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}

	open := strings.IndexAny(s, "{[")
	if open == -1 {
		return s
	}
	closeCh := "}"
	if s[open] == '[' {
		closeCh = "]"
	}
	if end := strings.LastIndex(s, closeCh); end > open {
		s = s[open : end+1]
	}
	return strings.TrimSpace(s)
}
