package domain

import (
	"strings"
)

// ExtractJSONObject locates the first complete JSON object embedded in a
// model response. Models frequently wrap their output in markdown code
// fences or surround it with prose; both are tolerated. The returned string
// is the balanced brace-to-brace slice; ok is false when no complete object
// is present.
//
// The scan is string-aware: braces inside JSON string values do not affect
// the balance count, and escaped quotes do not terminate strings.
func ExtractJSONObject(response string) (string, bool) {
	s := strings.TrimSpace(response)

	// Peel a markdown code fence when present. The fence line may carry a
	// language identifier such as "json".
	if i := strings.Index(s, "```"); i != -1 {
		s = s[i+3:]
		if nl := strings.IndexByte(s, '\n'); nl != -1 && !strings.Contains(s[:nl], "{") {
			s = s[nl+1:]
		}
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// Braces inside strings are content, not structure.
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
