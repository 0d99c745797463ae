package content

import (
	"encoding/json"
	"strings"
)

// FallbackTitle marks a post whose model response could not be parsed.
const FallbackTitle = "Generated content - check logs"

type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ParsePost extracts the first JSON object in raw that carries string
// title and content fields. Surrounding prose and code fences are ignored.
// When nothing matches it returns a fallback draft holding raw and false.
func ParsePost(raw string) (Draft, bool) {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' {
			continue
		}
		if d, ok := decodeDraft(raw[i:]); ok {
			return d, true
		}
	}

	if d, ok := decodeDraft(strings.TrimSpace(raw)); ok {
		return d, true
	}

	return Draft{Title: FallbackTitle, Content: raw}, false
}

func decodeDraft(s string) (Draft, bool) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&fields); err != nil {
		return Draft{}, false
	}

	var d Draft
	titleRaw, okTitle := fields["title"]
	contentRaw, okContent := fields["content"]
	if !okTitle || !okContent {
		return Draft{}, false
	}
	if json.Unmarshal(titleRaw, &d.Title) != nil || json.Unmarshal(contentRaw, &d.Content) != nil {
		return Draft{}, false
	}
	return d, true
}

// CleanImagePrompt trims whitespace, code fences and wrapping quotes.
func CleanImagePrompt(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], " ") {
			// drop the language tag
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return s
}
